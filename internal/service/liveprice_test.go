package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"crescer/internal/portfolio"
	"crescer/pkg/integrations/memcache"
	"crescer/pkg/integrations/wmPubsub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivePriceService_InvalidConfig(t *testing.T) {
	ctx := testContext(t)
	cache := memcache.New[portfolio.Currency, float64]()
	fetcher := &fakePriceFetcher{value: 100}
	rates := &fakeRates{rates: portfolio.DefaultRates}
	pub := &recordingPublisher{}

	tests := []struct {
		name string
		opts []LivePriceOption
	}{
		{"no context", []LivePriceOption{
			WithLivePriceLogger(discardLogger),
			WithLivePriceCache(cache),
			WithLivePriceFetcher(fetcher),
			WithLivePriceRates(rates),
			WithLivePricePublisher(pub),
		}},
		{"no logger", []LivePriceOption{
			WithLivePriceContext(ctx),
			WithLivePriceCache(cache),
			WithLivePriceFetcher(fetcher),
			WithLivePriceRates(rates),
			WithLivePricePublisher(pub),
		}},
		{"no cache", []LivePriceOption{
			WithLivePriceContext(ctx),
			WithLivePriceLogger(discardLogger),
			WithLivePriceFetcher(fetcher),
			WithLivePriceRates(rates),
			WithLivePricePublisher(pub),
		}},
		{"no fetcher", []LivePriceOption{
			WithLivePriceContext(ctx),
			WithLivePriceLogger(discardLogger),
			WithLivePriceCache(cache),
			WithLivePriceRates(rates),
			WithLivePricePublisher(pub),
		}},
		{"no rates", []LivePriceOption{
			WithLivePriceContext(ctx),
			WithLivePriceLogger(discardLogger),
			WithLivePriceCache(cache),
			WithLivePriceFetcher(fetcher),
			WithLivePricePublisher(pub),
		}},
		{"no publisher", []LivePriceOption{
			WithLivePriceContext(ctx),
			WithLivePriceLogger(discardLogger),
			WithLivePriceCache(cache),
			WithLivePriceFetcher(fetcher),
			WithLivePriceRates(rates),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLivePriceService(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidLivePriceConfig)
		})
	}
}

func newLivePriceService(t *testing.T, fetcher *fakePriceFetcher, pub *recordingPublisher, extra ...LivePriceOption) *LivePriceService {
	t.Helper()
	opts := []LivePriceOption{
		WithLivePriceContext(testContext(t)),
		WithLivePriceLogger(discardLogger),
		WithLivePriceCache(memcache.New[portfolio.Currency, float64]()),
		WithLivePriceFetcher(fetcher),
		WithLivePriceRates(&fakeRates{rates: portfolio.Rates{BRL: 5, USD: 1, EUR: 0.9, GBP: 0.8}}),
		WithLivePricePublisher(pub),
	}
	svc, err := NewLivePriceService(append(opts, extra...)...)
	require.NoError(t, err)
	return svc
}

func TestLivePriceService_RefreshConvertsAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newLivePriceService(t, &fakePriceFetcher{value: 100_000}, pub)

	_, err := svc.Current(portfolio.USD)
	require.ErrorIs(t, err, ErrPriceUnavailable)
	assert.Nil(t, svc.Quote())

	require.NoError(t, svc.Refresh(testContext(t)))

	usd, err := svc.Current(portfolio.USD)
	require.NoError(t, err)
	assert.Equal(t, 100_000.0, usd)

	brl, err := svc.Current(portfolio.BRL)
	require.NoError(t, err)
	assert.InDelta(t, 500_000.0, brl, 1e-6)

	gbp, err := svc.Current(portfolio.GBP)
	require.NoError(t, err)
	assert.InDelta(t, 80_000.0, gbp, 1e-6)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	var quote SpotQuote
	require.NoError(t, json.Unmarshal(msgs[0], &quote))
	assert.InDelta(t, 90_000.0, quote.Prices[portfolio.EUR], 1e-6)
	assert.Equal(t, "fake", quote.Source)
	assert.Equal(t, "fake", svc.Quote().Source)
}

func TestLivePriceService_RefreshFailureKeepsLastQuote(t *testing.T) {
	fetcher := &fakePriceFetcher{value: 100_000}
	pub := &recordingPublisher{}
	svc := newLivePriceService(t, fetcher, pub)

	require.NoError(t, svc.Refresh(testContext(t)))

	fetcher.err = errors.New("boom")
	require.Error(t, svc.Refresh(testContext(t)))

	usd, err := svc.Current(portfolio.USD)
	require.NoError(t, err)
	assert.Equal(t, 100_000.0, usd)
	assert.Len(t, pub.Messages(), 1)
}

func TestLivePriceService_RefreshRejectsZeroPrice(t *testing.T) {
	svc := newLivePriceService(t, &fakePriceFetcher{value: 0}, &recordingPublisher{})

	err := svc.Refresh(testContext(t))
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestLivePriceService_PinnedSource(t *testing.T) {
	fetcher := &fakePriceFetcher{value: 1}
	svc := newLivePriceService(t, fetcher, &recordingPublisher{}, WithLivePriceSource("kraken"))

	require.NoError(t, svc.Refresh(testContext(t)))
	assert.Equal(t, "kraken", fetcher.source)
}

func TestLivePriceService_StartPublishesThroughPubSub(t *testing.T) {
	ps, err := wmPubsub.New(
		wmPubsub.WithContext(testContext(t)),
		wmPubsub.WithLogger(discardLogger),
		wmPubsub.WithTopic("prices"),
		wmPubsub.WithReplayLast(),
	)
	require.NoError(t, err)

	svc, err := NewLivePriceService(
		WithLivePriceContext(testContext(t)),
		WithLivePriceLogger(discardLogger),
		WithLivePriceCache(memcache.New[portfolio.Currency, float64]()),
		WithLivePriceFetcher(&fakePriceFetcher{value: 50_000}),
		WithLivePriceRates(&fakeRates{rates: portfolio.DefaultRates}),
		WithLivePricePublisher(ps),
		WithLivePriceInterval(time.Hour),
	)
	require.NoError(t, err)

	ch, unsubscribe, err := ps.Subscribe()
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, svc.Start())
	defer svc.Stop()

	select {
	case data := <-ch:
		var quote SpotQuote
		require.NoError(t, json.Unmarshal(data, &quote))
		assert.Equal(t, 50_000.0, quote.Prices[portfolio.USD])
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive published quote")
	}
}
