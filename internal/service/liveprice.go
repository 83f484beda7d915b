package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"crescer/internal/portfolio"
	tickerScheduler "crescer/pkg/integrations/scheduler"
	"crescer/pkg/types/cache"
	"crescer/pkg/types/prices"
	"crescer/pkg/types/pubsub"
	"crescer/pkg/types/scheduler"

	"github.com/pkg/errors"
)

var (
	ErrInvalidLivePriceConfig = errors.New("invalid live price service config")
	ErrPriceUnavailable       = errors.New("bitcoin price unavailable")
)

type RatesProvider interface {
	Current() portfolio.Rates
	Latest(ctx context.Context) portfolio.Rates
}

// sourcedFetcher is satisfied by the fallback chain, which can be pinned to one provider.
type sourcedFetcher interface {
	FetchBySource(ctx context.Context, name string, price *prices.Price) error
}

// SpotQuote is the last bitcoin price expressed in every supported currency.
type SpotQuote struct {
	Prices    map[portfolio.Currency]float64 `json:"prices"`
	Source    string                         `json:"source"`
	Timestamp time.Time                      `json:"timestamp"`
}

type LivePriceService struct {
	ctx          context.Context
	logger       *slog.Logger
	cache        cache.Cache[portfolio.Currency, float64]
	priceFetcher prices.PriceFetcher
	source       string
	rates        RatesProvider
	publisher    pubsub.Publisher
	interval     time.Duration
	scheduler    scheduler.Scheduler
	last         atomic.Pointer[SpotQuote]
}

type LivePriceOption func(*LivePriceService)

func WithLivePriceContext(ctx context.Context) LivePriceOption {
	return func(s *LivePriceService) {
		s.ctx = ctx
	}
}

func WithLivePriceLogger(l *slog.Logger) LivePriceOption {
	return func(s *LivePriceService) {
		s.logger = l
	}
}

func WithLivePriceCache(c cache.Cache[portfolio.Currency, float64]) LivePriceOption {
	return func(s *LivePriceService) {
		s.cache = c
	}
}

func WithLivePriceFetcher(f prices.PriceFetcher) LivePriceOption {
	return func(s *LivePriceService) {
		s.priceFetcher = f
	}
}

// WithLivePriceSource pins the spot feed to one named provider when the fetcher supports it.
func WithLivePriceSource(name string) LivePriceOption {
	return func(s *LivePriceService) {
		s.source = name
	}
}

func WithLivePriceRates(r RatesProvider) LivePriceOption {
	return func(s *LivePriceService) {
		s.rates = r
	}
}

func WithLivePricePublisher(p pubsub.Publisher) LivePriceOption {
	return func(s *LivePriceService) {
		s.publisher = p
	}
}

func WithLivePriceInterval(d time.Duration) LivePriceOption {
	return func(s *LivePriceService) {
		s.interval = d
	}
}

func (s *LivePriceService) IsValid() error {
	switch {
	case s.ctx == nil:
		return errors.Wrap(ErrInvalidLivePriceConfig, "ctx cannot be nil")
	case s.logger == nil:
		return errors.Wrap(ErrInvalidLivePriceConfig, "logger cannot be nil")
	case s.cache == nil:
		return errors.Wrap(ErrInvalidLivePriceConfig, "cache cannot be nil")
	case s.priceFetcher == nil:
		return errors.Wrap(ErrInvalidLivePriceConfig, "price fetcher cannot be nil")
	case s.rates == nil:
		return errors.Wrap(ErrInvalidLivePriceConfig, "rates provider cannot be nil")
	case s.publisher == nil:
		return errors.Wrap(ErrInvalidLivePriceConfig, "publisher cannot be nil")
	case s.interval <= 0:
		return errors.Wrap(ErrInvalidLivePriceConfig, "interval must be positive")
	default:
		return nil
	}
}

func NewLivePriceService(opts ...LivePriceOption) (*LivePriceService, error) {
	s := &LivePriceService{
		interval: scheduler.IntervalSpotPrice,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}

	sched, err := tickerScheduler.New(
		tickerScheduler.WithName("spot-price"),
		tickerScheduler.WithContext(s.ctx),
		tickerScheduler.WithLogger(s.logger),
		tickerScheduler.WithInterval(s.interval),
		tickerScheduler.WithHandler(s.Refresh),
		tickerScheduler.WithRunAtStart(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduler")
	}
	s.scheduler = sched

	return s, nil
}

func (s *LivePriceService) Start() error {
	return s.scheduler.Start()
}

func (s *LivePriceService) Stop() {
	s.scheduler.Stop()
}

// Refresh fetches the USD spot price, converts it into every currency and
// publishes the new quote. A failed fetch leaves the previous quote in place.
func (s *LivePriceService) Refresh(ctx context.Context) error {
	price := &prices.Price{Asset: prices.Bitcoin}

	var err error
	if sf, ok := s.priceFetcher.(sourcedFetcher); ok && s.source != "" {
		err = sf.FetchBySource(ctx, s.source, price)
	} else {
		err = s.priceFetcher.Fetch(ctx, price)
	}
	if err != nil {
		return errors.Wrap(err, "failed to fetch spot price")
	}
	if price.Value <= 0 {
		return errors.Wrap(ErrPriceUnavailable, "zero spot price")
	}

	rates := s.rates.Current()
	quote := &SpotQuote{
		Prices:    make(map[portfolio.Currency]float64, len(portfolio.Currencies)),
		Source:    price.Source,
		Timestamp: price.Timestamp,
	}
	for _, c := range portfolio.Currencies {
		quote.Prices[c] = portfolio.Convert(price.Value, portfolio.USD, c, rates)
	}

	s.cache.Replace(quote.Prices)
	s.last.Store(quote)

	data, err := json.Marshal(quote)
	if err != nil {
		return errors.Wrap(err, "failed to marshal spot quote")
	}
	if err := s.publisher.Publish(data); err != nil {
		return errors.Wrap(err, "failed to publish spot quote")
	}

	s.logger.Debug("spot price refreshed", "usd", price.Value, "source", price.Source)
	return nil
}

// Current returns the cached spot price in c, or ErrPriceUnavailable before the first refresh.
func (s *LivePriceService) Current(c portfolio.Currency) (float64, error) {
	v, ok := s.cache.Get(c)
	if !ok || v <= 0 {
		return 0, ErrPriceUnavailable
	}
	return v, nil
}

// Quote returns the last published quote, or nil before the first refresh.
func (s *LivePriceService) Quote() *SpotQuote {
	return s.last.Load()
}
