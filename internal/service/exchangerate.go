package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"crescer/internal/portfolio"
	tickerScheduler "crescer/pkg/integrations/scheduler"
	"crescer/pkg/types/cache"
	"crescer/pkg/types/prices"
	"crescer/pkg/types/scheduler"

	"github.com/pkg/errors"
)

var ErrInvalidExchangeRateConfig = errors.New("invalid exchange rate service config")

// ExchangeRateService keeps the USD-based rate table fresh. Until the first
// successful refresh every lookup answers with portfolio.DefaultRates; after
// that a failed refresh keeps the last good table.
type ExchangeRateService struct {
	ctx       context.Context
	logger    *slog.Logger
	cache     cache.Cache[portfolio.Currency, float64]
	fetcher   prices.RatesFetcher
	interval  time.Duration
	scheduler scheduler.Scheduler
}

type ExchangeRateOption func(*ExchangeRateService)

func WithExchangeRateContext(ctx context.Context) ExchangeRateOption {
	return func(s *ExchangeRateService) {
		s.ctx = ctx
	}
}

func WithExchangeRateLogger(l *slog.Logger) ExchangeRateOption {
	return func(s *ExchangeRateService) {
		s.logger = l
	}
}

func WithExchangeRateCache(c cache.Cache[portfolio.Currency, float64]) ExchangeRateOption {
	return func(s *ExchangeRateService) {
		s.cache = c
	}
}

func WithExchangeRateFetcher(f prices.RatesFetcher) ExchangeRateOption {
	return func(s *ExchangeRateService) {
		s.fetcher = f
	}
}

func WithExchangeRateInterval(d time.Duration) ExchangeRateOption {
	return func(s *ExchangeRateService) {
		s.interval = d
	}
}

func (s *ExchangeRateService) IsValid() error {
	switch {
	case s.ctx == nil:
		return errors.Wrap(ErrInvalidExchangeRateConfig, "ctx cannot be nil")
	case s.logger == nil:
		return errors.Wrap(ErrInvalidExchangeRateConfig, "logger cannot be nil")
	case s.cache == nil:
		return errors.Wrap(ErrInvalidExchangeRateConfig, "cache cannot be nil")
	case s.fetcher == nil:
		return errors.Wrap(ErrInvalidExchangeRateConfig, "rates fetcher cannot be nil")
	case s.interval <= 0:
		return errors.Wrap(ErrInvalidExchangeRateConfig, "interval must be positive")
	default:
		return nil
	}
}

func NewExchangeRateService(opts ...ExchangeRateOption) (*ExchangeRateService, error) {
	s := &ExchangeRateService{
		interval: scheduler.IntervalRates,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}

	sched, err := tickerScheduler.New(
		tickerScheduler.WithName("exchange-rates"),
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

func (s *ExchangeRateService) Start() error {
	return s.scheduler.Start()
}

func (s *ExchangeRateService) Stop() {
	s.scheduler.Stop()
}

// Refresh pulls a new table. Currencies missing from the response keep their
// default rate so the table is always complete.
func (s *ExchangeRateService) Refresh(ctx context.Context) error {
	raw, err := s.fetcher.FetchRates(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch exchange rates")
	}

	next := make(map[portfolio.Currency]float64, len(portfolio.Currencies))
	for _, c := range portfolio.Currencies {
		def, _ := portfolio.DefaultRates.Rate(c)
		next[c] = def
	}
	for code, v := range raw {
		c := portfolio.Currency(strings.ToUpper(code))
		if c.IsValid() && v > 0 {
			next[c] = v
		}
	}
	next[portfolio.USD] = 1

	s.cache.Replace(next)
	s.logger.Debug("exchange rates refreshed", "brl", next[portfolio.BRL], "eur", next[portfolio.EUR], "gbp", next[portfolio.GBP])
	return nil
}

// Current returns the cached table without touching the network.
func (s *ExchangeRateService) Current() portfolio.Rates {
	rates := portfolio.DefaultRates
	for c, v := range s.cache.Snapshot() {
		rates = rates.With(c, v)
	}
	return rates
}

// Latest refreshes first and falls back to the cached table on error.
func (s *ExchangeRateService) Latest(ctx context.Context) portfolio.Rates {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("using cached exchange rates", "error", err)
	}
	return s.Current()
}
