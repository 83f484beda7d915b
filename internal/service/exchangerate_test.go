package service

import (
	"errors"
	"testing"

	"crescer/internal/portfolio"
	"crescer/pkg/integrations/memcache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExchangeRateService(t *testing.T, fetcher *fakeRatesFetcher) *ExchangeRateService {
	t.Helper()
	svc, err := NewExchangeRateService(
		WithExchangeRateContext(testContext(t)),
		WithExchangeRateLogger(discardLogger),
		WithExchangeRateCache(memcache.New[portfolio.Currency, float64]()),
		WithExchangeRateFetcher(fetcher),
	)
	require.NoError(t, err)
	return svc
}

func TestExchangeRateService_InvalidConfig(t *testing.T) {
	_, err := NewExchangeRateService(
		WithExchangeRateContext(testContext(t)),
		WithExchangeRateLogger(discardLogger),
		WithExchangeRateFetcher(&fakeRatesFetcher{}),
	)
	assert.ErrorIs(t, err, ErrInvalidExchangeRateConfig)

	_, err = NewExchangeRateService(
		WithExchangeRateContext(testContext(t)),
		WithExchangeRateLogger(discardLogger),
		WithExchangeRateCache(memcache.New[portfolio.Currency, float64]()),
		WithExchangeRateFetcher(&fakeRatesFetcher{}),
		WithExchangeRateInterval(0),
	)
	assert.ErrorIs(t, err, ErrInvalidExchangeRateConfig)
}

func TestExchangeRateService_DefaultsBeforeRefresh(t *testing.T) {
	svc := newExchangeRateService(t, &fakeRatesFetcher{})
	assert.Equal(t, portfolio.DefaultRates, svc.Current())
}

func TestExchangeRateService_Refresh(t *testing.T) {
	svc := newExchangeRateService(t, &fakeRatesFetcher{rates: map[string]float64{
		"BRL": 5.43, "EUR": 0.87, "JPY": 150, "USD": 1,
	}})

	require.NoError(t, svc.Refresh(testContext(t)))

	rates := svc.Current()
	assert.Equal(t, 5.43, rates.BRL)
	assert.Equal(t, 0.87, rates.EUR)
	assert.Equal(t, 1.0, rates.USD)
	// GBP missing from the response keeps its default.
	assert.Equal(t, portfolio.DefaultRates.GBP, rates.GBP)
	assert.True(t, rates.Complete())
}

func TestExchangeRateService_FailureKeepsLastGoodTable(t *testing.T) {
	fetcher := &fakeRatesFetcher{rates: map[string]float64{"BRL": 6, "EUR": 0.9, "GBP": 0.75}}
	svc := newExchangeRateService(t, fetcher)
	require.NoError(t, svc.Refresh(testContext(t)))

	fetcher.rates, fetcher.err = nil, errors.New("offline")
	assert.Error(t, svc.Refresh(testContext(t)))

	rates := svc.Latest(testContext(t))
	assert.Equal(t, 6.0, rates.BRL)
	assert.Equal(t, 0.75, rates.GBP)
}

func TestExchangeRateService_IgnoresNonPositiveRates(t *testing.T) {
	svc := newExchangeRateService(t, &fakeRatesFetcher{rates: map[string]float64{"BRL": 0, "EUR": -1}})
	require.NoError(t, svc.Refresh(testContext(t)))

	rates := svc.Current()
	assert.Equal(t, portfolio.DefaultRates.BRL, rates.BRL)
	assert.Equal(t, portfolio.DefaultRates.EUR, rates.EUR)
}
