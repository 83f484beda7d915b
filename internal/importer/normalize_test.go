package importer

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"crescer/internal/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(
		WithLogger(discardLogger),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return n
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrInvalidNormalizerConfig)

	_, err = New(WithLogger(discardLogger), WithLocation(nil))
	assert.ErrorIs(t, err, ErrInvalidNormalizerConfig)
}

func TestNormalize_FiltersToBTC(t *testing.T) {
	data := []byte("symbol,action,amount,assetPriceUSD,timestamp\n" +
		"WBTC,Supply,1.0,60000,1700000000\n" +
		"ETH,Supply,3.0,2000,1700000000\n")
	rows, err := Parse(data, CSV)
	require.NoError(t, err)

	res := newTestNormalizer(t).Normalize(rows, "user_1", portfolio.DefaultRates)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Matched)
	require.Len(t, res.Transactions, 1)

	tx := res.Transactions[0]
	assert.Equal(t, portfolio.Buy, tx.Type)
	assert.Equal(t, 1.0, tx.BitcoinAmount)
	assert.Equal(t, int64(100_000_000), tx.Satoshis)
	assert.Equal(t, 60000.0, tx.FiatAmount)
	assert.Equal(t, 60000.0, tx.BitcoinPrice)
	assert.Equal(t, portfolio.USD, tx.FiatCurrency)
	assert.Equal(t, "user_1", tx.UserID)
	assert.Equal(t, "2023-11-14", tx.Date)
	assert.Equal(t, "22:13", tx.Time)
	assert.Equal(t, fixedNow, tx.CreatedAt)
	require.NotNil(t, tx.ExchangeRates)
	assert.Equal(t, portfolio.DefaultRates, *tx.ExchangeRates)
	assert.NoError(t, tx.Validate())
}

func TestNormalize_CollateralSwapUsesToAmount(t *testing.T) {
	rows := []Row{{
		"action":        "CowCollateralSwap",
		"reserve":       map[string]any{"symbol": "WBTC"},
		"amount":        "5000",
		"toAmount":      "0.05",
		"assetPriceUSD": "50000",
		"timestamp":     "1700000000",
	}}

	res := newTestNormalizer(t).Normalize(rows, "u", portfolio.DefaultRates)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, 0.05, res.Transactions[0].BitcoinAmount)
	assert.Equal(t, int64(5_000_000), res.Transactions[0].Satoshis)
	assert.Equal(t, 2500.0, res.Transactions[0].FiatAmount)
}

func TestNormalize_ActionMustMatchExactly(t *testing.T) {
	rows := []Row{
		{"symbol": "WBTC", "action": "Borrow", "amount": "1", "assetPriceUSD": "1", "timestamp": "1700000000"},
		{"symbol": "WBTC", "action": "supply", "amount": "1", "assetPriceUSD": "1", "timestamp": "1700000000"},
		{"symbol": "wbtc", "action": "Supply", "amount": "1", "assetPriceUSD": "1", "timestamp": "1700000000"},
	}

	res := newTestNormalizer(t).Normalize(rows, "u", portfolio.DefaultRates)
	assert.Equal(t, 1, res.Matched)
	assert.Len(t, res.Transactions, 1)
}

func TestNormalize_SkipsNonPositiveQuantities(t *testing.T) {
	rows := []Row{
		{"symbol": "WBTC", "action": "Supply", "amount": "0", "assetPriceUSD": "1", "timestamp": "1700000000"},
		{"symbol": "WBTC", "action": "Supply", "amount": "abc", "assetPriceUSD": "1", "timestamp": "1700000000"},
		{"symbol": "WBTC", "action": "CowCollateralSwap", "amount": "2", "assetPriceUSD": "1", "timestamp": "1700000000"},
		{"symbol": "WBTC", "action": "Supply", "amount": "1", "assetPriceUSD": "1", "timestamp": ""},
	}

	res := newTestNormalizer(t).Normalize(rows, "u", portfolio.DefaultRates)
	assert.Equal(t, 4, res.Matched)
	assert.Empty(t, res.Transactions)
	require.Len(t, res.Skipped, 4)
	assert.Equal(t, "amount", res.Skipped[0].Field)
	assert.Equal(t, "toAmount", res.Skipped[2].Field)
	assert.Equal(t, "timestamp", res.Skipped[3].Field)
	assert.Equal(t, 1, res.Skipped[0].Row)
}

func TestNormalize_GroupedThousands(t *testing.T) {
	data := []byte("symbol,action,amount,assetPriceUSD,timestamp\n" +
		`WBTC,Supply,0.5,"61,000.00",1700000000` + "\n")
	rows, err := Parse(data, CSV)
	require.NoError(t, err)

	res := newTestNormalizer(t).Normalize(rows, "u", portfolio.DefaultRates)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, 61000.0, res.Transactions[0].BitcoinPrice)
	assert.Equal(t, 30500.0, res.Transactions[0].FiatAmount)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(Row{"symbol": "BTCB", "action": "Supply"}))
	assert.True(t, Matches(Row{"reserve.symbol": "tBTC", "action": "CowCollateralSwap"}))
	assert.False(t, Matches(Row{"symbol": "ETH", "action": "Supply"}))
	assert.False(t, Matches(Row{"action": "Supply"}))
}
