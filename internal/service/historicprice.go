package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"crescer/internal/portfolio"
	"crescer/pkg/types/prices"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var ErrInvalidHistoricPriceConfig = errors.New("invalid historic price service config")

const (
	historicWindow          = time.Hour
	historicCacheExpiration = time.Hour
	historicCacheCleanup    = 10 * time.Minute
	defaultHistoricThrottle = 500 * time.Millisecond
)

type SpotProvider interface {
	Current(c portfolio.Currency) (float64, error)
}

// HistoricPriceService answers "what was bitcoin worth at this minute". Upstream
// calls are throttled and cached per minute; any miss falls back to spot.
type HistoricPriceService struct {
	logger   *slog.Logger
	fetcher  prices.HistoricalFetcher
	rates    RatesProvider
	spot     SpotProvider
	throttle time.Duration
	now      func() time.Time

	limiter *rate.Limiter
	cache   *cache.Cache
}

type HistoricPriceOption func(*HistoricPriceService)

func WithHistoricPriceLogger(l *slog.Logger) HistoricPriceOption {
	return func(s *HistoricPriceService) {
		s.logger = l
	}
}

func WithHistoricPriceFetcher(f prices.HistoricalFetcher) HistoricPriceOption {
	return func(s *HistoricPriceService) {
		s.fetcher = f
	}
}

func WithHistoricPriceRates(r RatesProvider) HistoricPriceOption {
	return func(s *HistoricPriceService) {
		s.rates = r
	}
}

func WithHistoricPriceSpot(p SpotProvider) HistoricPriceOption {
	return func(s *HistoricPriceService) {
		s.spot = p
	}
}

// WithHistoricPriceThrottle sets the minimum spacing between upstream requests.
func WithHistoricPriceThrottle(d time.Duration) HistoricPriceOption {
	return func(s *HistoricPriceService) {
		s.throttle = d
	}
}

func WithHistoricPriceClock(now func() time.Time) HistoricPriceOption {
	return func(s *HistoricPriceService) {
		s.now = now
	}
}

func (s *HistoricPriceService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidHistoricPriceConfig, "logger cannot be nil")
	case s.fetcher == nil:
		return errors.Wrap(ErrInvalidHistoricPriceConfig, "historical fetcher cannot be nil")
	case s.rates == nil:
		return errors.Wrap(ErrInvalidHistoricPriceConfig, "rates provider cannot be nil")
	case s.spot == nil:
		return errors.Wrap(ErrInvalidHistoricPriceConfig, "spot provider cannot be nil")
	case s.throttle < 0:
		return errors.Wrap(ErrInvalidHistoricPriceConfig, "throttle cannot be negative")
	case s.now == nil:
		return errors.Wrap(ErrInvalidHistoricPriceConfig, "clock cannot be nil")
	default:
		return nil
	}
}

func NewHistoricPriceService(opts ...HistoricPriceOption) (*HistoricPriceService, error) {
	s := &HistoricPriceService{
		throttle: defaultHistoricThrottle,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if s.throttle > 0 {
		limit = rate.Every(s.throttle)
	}
	s.limiter = rate.NewLimiter(limit, 1)
	s.cache = cache.New(historicCacheExpiration, historicCacheCleanup)

	return s, nil
}

// PriceAt returns the bitcoin price in c closest to t.
func (s *HistoricPriceService) PriceAt(ctx context.Context, t time.Time, c portfolio.Currency) (float64, error) {
	if !c.IsValid() {
		return 0, errors.Wrapf(portfolio.ErrUnsupportedCurrency, "%q", c)
	}
	if t.IsZero() || t.After(s.now()) {
		return s.spot.Current(c)
	}

	usd, err := s.usdAt(ctx, t)
	if err != nil {
		s.logger.Warn("historical price lookup failed, using spot", "at", t, "error", err)
		return s.spot.Current(c)
	}

	return portfolio.Convert(usd, portfolio.USD, c, s.rates.Current()), nil
}

func (s *HistoricPriceService) usdAt(ctx context.Context, t time.Time) (float64, error) {
	minute := t.Truncate(time.Minute)
	key := strconv.FormatInt(minute.Unix(), 10)
	if v, ok := s.cache.Get(key); ok {
		return v.(float64), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "throttled")
	}

	samples, err := s.fetcher.FetchRange(ctx, prices.Bitcoin, t.Add(-historicWindow), t.Add(historicWindow))
	if err != nil {
		return 0, err
	}

	value, ok := closestSample(samples, t)
	if !ok {
		return 0, errors.Wrap(ErrPriceUnavailable, "no samples around requested time")
	}

	s.cache.Set(key, value, cache.DefaultExpiration)
	return value, nil
}

func closestSample(samples []prices.Sample, t time.Time) (float64, bool) {
	var (
		best  float64
		found bool
		gap   time.Duration
	)
	for _, sm := range samples {
		if sm.Value <= 0 {
			continue
		}
		d := sm.Timestamp.Sub(t).Abs()
		if !found || d < gap {
			best, gap, found = sm.Value, d, true
		}
	}
	return best, found
}
