package main

import (
	"context"
	"log/slog"

	"crescer/internal/auth"
	"crescer/internal/config"
	"crescer/internal/importer"
	"crescer/internal/portfolio"
	"crescer/internal/repo"
	"crescer/internal/service"
	"crescer/pkg/database"
	"crescer/pkg/integrations/memcache"
	"crescer/pkg/integrations/prices"
	"crescer/pkg/integrations/prices/binanceprices"
	"crescer/pkg/integrations/prices/coingeckoprices"
	"crescer/pkg/integrations/prices/cryptocompareprices"
	"crescer/pkg/integrations/prices/defillamaprices"
	"crescer/pkg/integrations/prices/exchangerates"
	"crescer/pkg/integrations/prices/krakenprices"
	"crescer/pkg/integrations/wmPubsub"
	pricetypes "crescer/pkg/types/prices"

	"github.com/pkg/errors"
)

// app is the wiring shared by the server and the local commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.Database
	repo   *repo.Repository

	tokens     *auth.Tokens
	rates      *service.ExchangeRateService
	livePrices *service.LivePriceService
	historic   *service.HistoricPriceService
	authSvc    *service.AuthService
	ledger     *service.LedgerService
	imports    *service.ImportService
	content    *service.ContentService

	pricePubSub  *wmPubsub.PubSub
	importPubSub *wmPubsub.PubSub
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := database.New(database.WithLogger(logger), database.WithPath(cfg.DBPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}
	a.db = db

	if a.repo, err = repo.New(db.Get()); err != nil {
		return nil, errors.Wrap(err, "failed to create repository")
	}
	if err := a.repo.Migrate(); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	if a.tokens, err = auth.New(auth.WithSecret(cfg.JWTSecret), auth.WithTTL(cfg.SessionTTL)); err != nil {
		return nil, errors.Wrap(err, "failed to create token issuer")
	}

	if a.pricePubSub, err = wmPubsub.New(
		wmPubsub.WithContext(ctx),
		wmPubsub.WithLogger(logger),
		wmPubsub.WithTopic("prices"),
		wmPubsub.WithReplayLast(),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create price pubsub")
	}
	if a.importPubSub, err = wmPubsub.New(
		wmPubsub.WithContext(ctx),
		wmPubsub.WithLogger(logger),
		wmPubsub.WithTopic("imports"),
		wmPubsub.WithBuffer(64),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create import pubsub")
	}

	if a.rates, err = service.NewExchangeRateService(
		service.WithExchangeRateContext(ctx),
		service.WithExchangeRateLogger(logger),
		service.WithExchangeRateCache(memcache.New[portfolio.Currency, float64]()),
		service.WithExchangeRateFetcher(exchangerates.NewRatesFetcher()),
		service.WithExchangeRateInterval(cfg.RatesInterval),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create exchange rate service")
	}

	coingecko := coingeckoprices.NewPriceFetcher()
	coingecko.APIKey = cfg.CoinGeckoAPIKey
	cryptocompare := cryptocompareprices.NewPriceFetcher()
	defillama := defillamaprices.NewPriceFetcher()

	spot := prices.NewPriceService(
		prices.WithSource(pricetypes.SourceBinance, binanceprices.NewPriceFetcher()),
		prices.WithSource(pricetypes.SourceKraken, krakenprices.NewPriceFetcher()),
		prices.WithSource(pricetypes.SourceCoinGecko, coingecko),
		prices.WithSource(pricetypes.SourceCryptoCompare, cryptocompare),
		prices.WithSource(pricetypes.SourceDefiLlama, defillama),
	)

	if a.livePrices, err = service.NewLivePriceService(
		service.WithLivePriceContext(ctx),
		service.WithLivePriceLogger(logger),
		service.WithLivePriceCache(memcache.New[portfolio.Currency, float64]()),
		service.WithLivePriceFetcher(spot),
		service.WithLivePriceSource(cfg.SpotSource),
		service.WithLivePriceRates(a.rates),
		service.WithLivePricePublisher(a.pricePubSub),
		service.WithLivePriceInterval(cfg.SpotInterval),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create live price service")
	}

	history := prices.NewHistoricalService(
		prices.WithHistoricalSource(pricetypes.SourceCoinGecko, coingecko),
		prices.WithHistoricalSource(pricetypes.SourceCryptoCompare, cryptocompare),
		prices.WithHistoricalSource(pricetypes.SourceDefiLlama, defillama),
	)
	if a.historic, err = service.NewHistoricPriceService(
		service.WithHistoricPriceLogger(logger),
		service.WithHistoricPriceFetcher(history),
		service.WithHistoricPriceRates(a.rates),
		service.WithHistoricPriceSpot(a.livePrices),
		service.WithHistoricPriceThrottle(cfg.HistoricThrottle),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create historic price service")
	}

	if a.authSvc, err = service.NewAuthService(
		service.WithAuthLogger(logger),
		service.WithAuthRepo(a.repo),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create auth service")
	}

	if a.ledger, err = service.NewLedgerService(
		service.WithLedgerLogger(logger),
		service.WithLedgerRepo(a.repo),
		service.WithLedgerRates(a.rates),
		service.WithLedgerSpot(a.livePrices),
		service.WithLedgerHistoric(a.historic),
		service.WithLedgerLocation(cfg.Location),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create ledger service")
	}

	normalizer, err := importer.New(importer.WithLogger(logger), importer.WithLocation(cfg.Location))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create import normalizer")
	}
	if a.imports, err = service.NewImportService(
		service.WithImportLogger(logger),
		service.WithImportRepo(a.repo),
		service.WithImportLedger(a.ledger),
		service.WithImportNormalizer(normalizer),
		service.WithImportRates(a.rates),
		service.WithImportPublisher(a.importPubSub),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create import service")
	}

	if a.content, err = service.NewContentService(
		service.WithContentLogger(logger),
		service.WithContentRepo(a.repo),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create content service")
	}

	return a, nil
}

// warmUp fills the rate table and the spot quote once for commands that do
// not run the background feeds.
func (a *app) warmUp(ctx context.Context) {
	if err := a.rates.Refresh(ctx); err != nil {
		a.logger.Warn("using default exchange rates", "error", err)
	}
	if err := a.livePrices.Refresh(ctx); err != nil {
		a.logger.Warn("spot price unavailable", "error", err)
	}
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}
