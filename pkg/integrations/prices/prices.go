package prices

import (
	"context"
	"fmt"
	"time"

	"crescer/pkg/integrations/prices/binanceprices"
	"crescer/pkg/integrations/prices/coingeckoprices"
	"crescer/pkg/integrations/prices/cryptocompareprices"
	"crescer/pkg/integrations/prices/defillamaprices"
	"crescer/pkg/integrations/prices/krakenprices"
	"crescer/pkg/types/prices"
)

var (
	_ prices.PriceFetcher      = (*PriceService)(nil)
	_ prices.HistoricalFetcher = (*HistoricalService)(nil)
)

type source struct {
	name    string
	fetcher prices.PriceFetcher
}

// PriceService asks each spot source in turn and returns the first quote.
type PriceService struct {
	sources []source
}

type Option func(*PriceService)

// WithSource appends a provider to the fallback chain.
func WithSource(name string, f prices.PriceFetcher) Option {
	return func(p *PriceService) {
		p.sources = append(p.sources, source{name: name, fetcher: f})
	}
}

// NewPriceService builds the default chain
// binance -> kraken -> coingecko -> cryptocompare -> defillama,
// or only the given sources when options are passed.
func NewPriceService(opts ...Option) *PriceService {
	p := &PriceService{}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.sources) == 0 {
		p.sources = []source{
			{name: prices.SourceBinance, fetcher: binanceprices.NewPriceFetcher()},
			{name: prices.SourceKraken, fetcher: krakenprices.NewPriceFetcher()},
			{name: prices.SourceCoinGecko, fetcher: coingeckoprices.NewPriceFetcher()},
			{name: prices.SourceCryptoCompare, fetcher: cryptocompareprices.NewPriceFetcher()},
			{name: prices.SourceDefiLlama, fetcher: defillamaprices.NewPriceFetcher()},
		}
	}
	return p
}

func (p *PriceService) Fetch(ctx context.Context, price *prices.Price) error {
	var errs []error
	for _, s := range p.sources {
		err := s.fetcher.Fetch(ctx, price)
		if err == nil && price.Value > 0 {
			if price.Source == "" {
				price.Source = s.name
			}
			return nil
		}
		if err == nil {
			err = fmt.Errorf("zero price")
		}
		errs = append(errs, fmt.Errorf("%s error: %w", s.name, err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return fmt.Errorf("no price sources configured")
	}
	return joinErrors(errs)
}

// FetchBySource skips the chain and asks one named provider.
func (p *PriceService) FetchBySource(ctx context.Context, name string, price *prices.Price) error {
	for _, s := range p.sources {
		if s.name == name {
			return s.fetcher.Fetch(ctx, price)
		}
	}
	return p.Fetch(ctx, price)
}

func (p *PriceService) Sources() []string {
	names := make([]string, len(p.sources))
	for i, s := range p.sources {
		names[i] = s.name
	}
	return names
}

type historicalSource struct {
	name    string
	fetcher prices.HistoricalFetcher
}

// HistoricalService asks each history provider in turn until one returns samples.
type HistoricalService struct {
	sources []historicalSource
}

type HistoricalOption func(*HistoricalService)

func WithHistoricalSource(name string, f prices.HistoricalFetcher) HistoricalOption {
	return func(h *HistoricalService) {
		h.sources = append(h.sources, historicalSource{name: name, fetcher: f})
	}
}

// NewHistoricalService defaults to coingecko -> cryptocompare -> defillama.
func NewHistoricalService(opts ...HistoricalOption) *HistoricalService {
	h := &HistoricalService{}
	for _, opt := range opts {
		opt(h)
	}
	if len(h.sources) == 0 {
		h.sources = []historicalSource{
			{name: prices.SourceCoinGecko, fetcher: coingeckoprices.NewPriceFetcher()},
			{name: prices.SourceCryptoCompare, fetcher: cryptocompareprices.NewPriceFetcher()},
			{name: prices.SourceDefiLlama, fetcher: defillamaprices.NewPriceFetcher()},
		}
	}
	return h
}

func (h *HistoricalService) FetchRange(ctx context.Context, asset prices.Asset, from, to time.Time) ([]prices.Sample, error) {
	var errs []error
	for _, s := range h.sources {
		samples, err := s.fetcher.FetchRange(ctx, asset, from, to)
		if err == nil && len(samples) > 0 {
			return samples, nil
		}
		if err == nil {
			err = fmt.Errorf("no samples")
		}
		errs = append(errs, fmt.Errorf("%s error: %w", s.name, err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no history sources configured")
	}
	return nil, joinErrors(errs)
}

func joinErrors(errs []error) error {
	err := errs[0]
	for _, e := range errs[1:] {
		err = fmt.Errorf("%w; %w", err, e)
	}
	return err
}
