package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"crescer/internal/portfolio"
	"crescer/internal/repo"
	"crescer/pkg/types/prices"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestRepo(t *testing.T) *repo.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	r, err := repo.New(db)
	require.NoError(t, err)
	require.NoError(t, r.Migrate())
	return r
}

type fakeRates struct {
	rates  portfolio.Rates
	latest int
}

func (f *fakeRates) Current() portfolio.Rates {
	return f.rates
}

func (f *fakeRates) Latest(context.Context) portfolio.Rates {
	f.latest++
	return f.rates
}

type fakeSpot struct {
	prices map[portfolio.Currency]float64
}

func (f *fakeSpot) Current(c portfolio.Currency) (float64, error) {
	v, ok := f.prices[c]
	if !ok || v <= 0 {
		return 0, ErrPriceUnavailable
	}
	return v, nil
}

type fakeHistoric struct {
	price float64
	err   error
	calls int
	at    time.Time
}

func (f *fakeHistoric) PriceAt(_ context.Context, t time.Time, _ portfolio.Currency) (float64, error) {
	f.calls++
	f.at = t
	return f.price, f.err
}

type fakePriceFetcher struct {
	mu     sync.Mutex
	value  float64
	err    error
	calls  int
	source string
}

func (f *fakePriceFetcher) Fetch(_ context.Context, p *prices.Price) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	p.Value = f.value
	p.Source = "fake"
	p.Timestamp = time.Now()
	return nil
}

func (f *fakePriceFetcher) FetchBySource(ctx context.Context, name string, p *prices.Price) error {
	f.mu.Lock()
	f.source = name
	f.mu.Unlock()
	return f.Fetch(ctx, p)
}

type fakeRatesFetcher struct {
	rates map[string]float64
	err   error
}

func (f *fakeRatesFetcher) FetchRates(context.Context) (map[string]float64, error) {
	return f.rates, f.err
}

type fakeHistoricalFetcher struct {
	mu      sync.Mutex
	samples []prices.Sample
	err     error
	calls   int
	from    time.Time
	to      time.Time
}

func (f *fakeHistoricalFetcher) FetchRange(_ context.Context, _ prices.Asset, from, to time.Time) ([]prices.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.from, f.to = from, to
	return f.samples, f.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (p *recordingPublisher) Publish(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, data)
	return nil
}

func (p *recordingPublisher) Messages() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.msgs...)
}
