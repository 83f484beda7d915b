package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crescer/internal/portfolio"
	"crescer/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerUser = "user_1_testtest1"

type ledgerFixture struct {
	svc      *LedgerService
	repo     *repo.Repository
	rates    *fakeRates
	spot     *fakeSpot
	historic *fakeHistoric
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		repo:  setupTestRepo(t),
		rates: &fakeRates{rates: portfolio.Rates{BRL: 5, USD: 1, EUR: 0.9, GBP: 0.8}},
		spot: &fakeSpot{prices: map[portfolio.Currency]float64{
			portfolio.BRL: 600_000,
			portfolio.USD: 120_000,
			portfolio.EUR: 108_000,
			portfolio.GBP: 96_000,
		}},
		historic: &fakeHistoric{price: 250_000},
	}
	svc, err := NewLedgerService(
		WithLedgerLogger(discardLogger),
		WithLedgerRepo(f.repo),
		WithLedgerRates(f.rates),
		WithLedgerSpot(f.spot),
		WithLedgerHistoric(f.historic),
		WithLedgerLocation(time.UTC),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *ledgerFixture) buy(t *testing.T, date string, amountBRL, price float64) portfolio.Transaction {
	t.Helper()
	tx, err := f.svc.AddTransaction(testContext(t), ledgerUser, TradeInput{
		Type:         portfolio.Buy,
		Date:         date,
		Time:         "10:00",
		Currency:     "BRL",
		Mode:         portfolio.InputFiat,
		Amount:       amountBRL,
		BitcoinPrice: price,
	})
	require.NoError(t, err)
	return tx
}

func TestLedgerService_InvalidConfig(t *testing.T) {
	_, err := NewLedgerService(WithLedgerLogger(discardLogger))
	assert.ErrorIs(t, err, ErrInvalidLedgerConfig)
}

func TestLedgerService_AddBuyInFiat(t *testing.T) {
	f := newLedgerFixture(t)

	tx := f.buy(t, "2024-01-10", 1000, 500_000)

	assert.Regexp(t, `^tx_\d+_[0-9a-f]{9}$`, tx.ID)
	assert.Equal(t, ledgerUser, tx.UserID)
	assert.Equal(t, 0.002, tx.BitcoinAmount)
	assert.Equal(t, int64(200_000), tx.Satoshis)
	assert.Equal(t, 1000.0, tx.FiatAmount)
	assert.Equal(t, portfolio.BRL, tx.FiatCurrency)
	require.NotNil(t, tx.ExchangeRates)
	assert.Equal(t, 5.0, tx.ExchangeRates.BRL)
	assert.Equal(t, 1, f.rates.latest)
	assert.Zero(t, f.historic.calls)

	stored, err := f.repo.GetTransactions(ledgerUser)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, tx.ID, stored[0].ID)
}

func TestLedgerService_AddUsesHistoricPriceWhenMissing(t *testing.T) {
	f := newLedgerFixture(t)

	tx, err := f.svc.AddTransaction(testContext(t), ledgerUser, TradeInput{
		Type:     portfolio.Buy,
		Date:     "2024-03-05",
		Time:     "14:30",
		Currency: "BRL",
		Mode:     portfolio.InputSatoshis,
		Amount:   1_000_000,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.historic.calls)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), f.historic.at)
	assert.Equal(t, 250_000.0, tx.BitcoinPrice)
	assert.Equal(t, 0.01, tx.BitcoinAmount)
	assert.InDelta(t, 2500.0, tx.FiatAmount, 1e-9)
}

func TestLedgerService_SellGuard(t *testing.T) {
	f := newLedgerFixture(t)
	f.buy(t, "2024-01-10", 1000, 500_000)

	_, err := f.svc.AddTransaction(testContext(t), ledgerUser, TradeInput{
		Type:         portfolio.Sell,
		Date:         "2024-02-01",
		Currency:     "BRL",
		Mode:         portfolio.InputSatoshis,
		Amount:       200_001,
		BitcoinPrice: 550_000,
	})
	require.ErrorIs(t, err, portfolio.ErrInsufficientBalance)

	stored, err := f.repo.GetTransactions(ledgerUser)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	sell, err := f.svc.AddTransaction(testContext(t), ledgerUser, TradeInput{
		Type:         portfolio.Sell,
		Date:         "2024-02-01",
		Currency:     "BRL",
		Mode:         portfolio.InputSatoshis,
		Amount:       200_000,
		BitcoinPrice: 550_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), sell.Satoshis)

	summary, err := f.svc.Summary(testContext(t), ledgerUser, portfolio.BRL)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalSatoshis)
}

func TestLedgerService_SellWithoutPrice(t *testing.T) {
	f := newLedgerFixture(t)
	f.buy(t, "2024-01-10", 1000, 500_000)
	f.historic.price, f.historic.err = 0, errors.New("unavailable")

	_, err := f.svc.AddTransaction(testContext(t), ledgerUser, TradeInput{
		Type:     portfolio.Sell,
		Date:     "2024-02-01",
		Currency: "BRL",
		Mode:     portfolio.InputBitcoin,
		Amount:   0.001,
	})
	assert.ErrorIs(t, err, portfolio.ErrMissingPrice)
}

func TestLedgerService_AddValidation(t *testing.T) {
	f := newLedgerFixture(t)

	tests := []struct {
		name string
		in   TradeInput
		want error
	}{
		{"bad currency", TradeInput{Type: portfolio.Buy, Date: "2024-01-01", Currency: "JPY", Mode: portfolio.InputBitcoin, Amount: 1, BitcoinPrice: 1}, portfolio.ErrUnsupportedCurrency},
		{"bad type", TradeInput{Type: "swap", Date: "2024-01-01", Currency: "USD", Mode: portfolio.InputBitcoin, Amount: 1, BitcoinPrice: 1}, portfolio.ErrInvalidTransaction},
		{"bad date", TradeInput{Type: portfolio.Buy, Date: "01/01/2024", Currency: "USD", Mode: portfolio.InputBitcoin, Amount: 1, BitcoinPrice: 1}, portfolio.ErrInvalidTransaction},
		{"zero amount", TradeInput{Type: portfolio.Buy, Date: "2024-01-01", Currency: "USD", Mode: portfolio.InputBitcoin, Amount: 0, BitcoinPrice: 1}, portfolio.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddTransaction(testContext(t), ledgerUser, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored, err := f.repo.GetTransactions(ledgerUser)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLedgerService_Update(t *testing.T) {
	f := newLedgerFixture(t)
	first := f.buy(t, "2024-01-10", 1000, 500_000)
	f.buy(t, "2024-01-11", 500, 500_000)

	updated, err := f.svc.UpdateTransaction(testContext(t), ledgerUser, first.ID, TradeInput{
		Date:         "2024-01-09",
		Time:         "08:00",
		Currency:     "BRL",
		Mode:         portfolio.InputFiat,
		Amount:       2000,
		BitcoinPrice: 500_000,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.True(t, first.CreatedAt.Equal(updated.CreatedAt))
	assert.Equal(t, portfolio.Buy, updated.Type)
	assert.Equal(t, int64(400_000), updated.Satoshis)
	assert.Equal(t, first.ExchangeRates, updated.ExchangeRates)

	// Turning the only other buy into a sale larger than what remains must fail.
	stored, err := f.repo.GetTransactions(ledgerUser)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	_, err = f.svc.UpdateTransaction(testContext(t), ledgerUser, stored[1].ID, TradeInput{
		Type:         portfolio.Sell,
		Date:         "2024-01-12",
		Currency:     "BRL",
		Mode:         portfolio.InputSatoshis,
		Amount:       400_001,
		BitcoinPrice: 500_000,
	})
	assert.ErrorIs(t, err, portfolio.ErrInsufficientBalance)

	_, err = f.svc.UpdateTransaction(testContext(t), ledgerUser, "tx_missing", TradeInput{Type: portfolio.Buy})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestLedgerService_Delete(t *testing.T) {
	f := newLedgerFixture(t)
	tx := f.buy(t, "2024-01-10", 1000, 500_000)

	require.NoError(t, f.svc.DeleteTransaction(testContext(t), ledgerUser, tx.ID))
	assert.ErrorIs(t, f.svc.DeleteTransaction(testContext(t), ledgerUser, tx.ID), ErrTransactionNotFound)

	stored, err := f.repo.GetTransactions(ledgerUser)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLedgerService_ListNewestFirstWithProfitLoss(t *testing.T) {
	f := newLedgerFixture(t)
	f.buy(t, "2024-01-10", 1000, 500_000)
	_, err := f.svc.AddTransaction(testContext(t), ledgerUser, TradeInput{
		Type:         portfolio.Sell,
		Date:         "2024-02-01",
		Currency:     "BRL",
		Mode:         portfolio.InputSatoshis,
		Amount:       50_000,
		BitcoinPrice: 550_000,
	})
	require.NoError(t, err)

	views, err := f.svc.List(testContext(t), ledgerUser, portfolio.BRL)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, portfolio.Sell, views[0].Type)
	assert.Nil(t, views[0].ProfitLoss)

	buy := views[1]
	assert.Equal(t, portfolio.Buy, buy.Type)
	assert.Equal(t, portfolio.BRL, buy.DisplayCurrency)
	assert.InDelta(t, 1000.0, buy.DisplayAmount, 1e-9)
	assert.InDelta(t, 1200.0, buy.CurrentValue, 1e-9)
	require.NotNil(t, buy.ProfitLoss)
	assert.InDelta(t, 200.0, buy.ProfitLoss.Profit, 1e-9)
	assert.InDelta(t, 20.0, buy.ProfitLoss.Percentage, 1e-9)

	usd, err := f.svc.List(testContext(t), ledgerUser, portfolio.USD)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, usd[1].DisplayAmount, 1e-9)
}

func TestLedgerService_ListWithoutSpotPrice(t *testing.T) {
	f := newLedgerFixture(t)
	f.buy(t, "2024-01-10", 1000, 500_000)
	f.spot.prices = nil

	views, err := f.svc.List(testContext(t), ledgerUser, portfolio.BRL)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].ProfitLoss)
	assert.Zero(t, views[0].CurrentValue)
}

func TestLedgerService_SummaryAndPerformance(t *testing.T) {
	f := newLedgerFixture(t)
	f.buy(t, "2024-02-10", 500, 500_000)
	f.buy(t, "2024-01-10", 1000, 500_000)

	summary, err := f.svc.Summary(testContext(t), ledgerUser, portfolio.BRL)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), summary.TotalSatoshis)
	assert.InDelta(t, 1500.0, summary.TotalInvested, 1e-9)
	assert.InDelta(t, 500_000.0, summary.AverageBuyPrice, 1e-6)
	assert.Equal(t, 600_000.0, summary.CurrentPrice)
	assert.InDelta(t, 1800.0, summary.CurrentValue, 1e-6)
	assert.InDelta(t, 20.0, summary.ProfitPercentage, 1e-6)
	assert.Equal(t, 2, summary.BuyCount)

	points, err := f.svc.Performance(testContext(t), ledgerUser, portfolio.BRL)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-01-10", points[0].Date)
	assert.Equal(t, int64(200_000), points[0].TotalSatoshis)
	assert.InDelta(t, 1000.0, points[0].TotalInvested, 1e-9)
	assert.Equal(t, "2024-02-10", points[1].Date)
	assert.Equal(t, int64(300_000), points[1].TotalSatoshis)
	assert.InDelta(t, 1800.0, points[1].CurrentValue, 1e-6)
}

type blockingRates struct {
	fakeRates
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRates) Latest(ctx context.Context) portfolio.Rates {
	close(b.entered)
	<-b.release
	return b.fakeRates.Latest(ctx)
}

func TestLedgerService_AppendDuringAddIsKept(t *testing.T) {
	f := newLedgerFixture(t)
	rates := &blockingRates{
		fakeRates: fakeRates{rates: f.rates.rates},
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	svc, err := NewLedgerService(
		WithLedgerLogger(discardLogger),
		WithLedgerRepo(f.repo),
		WithLedgerRates(rates),
		WithLedgerSpot(f.spot),
		WithLedgerHistoric(f.historic),
		WithLedgerLocation(time.UTC),
	)
	require.NoError(t, err)

	added := make(chan error, 1)
	go func() {
		_, err := svc.AddTransaction(context.Background(), ledgerUser, TradeInput{
			Type:         portfolio.Buy,
			Date:         "2024-01-10",
			Currency:     "BRL",
			Mode:         portfolio.InputFiat,
			Amount:       1000,
			BitcoinPrice: 500_000,
		})
		added <- err
	}()
	<-rates.entered

	imported := portfolio.Transaction{
		ID:            "tx_imported",
		UserID:        ledgerUser,
		Type:          portfolio.Buy,
		Date:          "2024-01-09",
		BitcoinAmount: 0.01,
		FiatAmount:    600,
		FiatCurrency:  portfolio.USD,
		BitcoinPrice:  60_000,
	}
	imported.Normalize()

	appended := make(chan error, 1)
	go func() { appended <- svc.AppendTransaction(context.Background(), ledgerUser, imported) }()
	select {
	case err := <-appended:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("append blocked while exchange rates were loading")
	}

	close(rates.release)
	require.NoError(t, <-added)

	stored, err := f.repo.GetTransactions(ledgerUser)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "tx_imported", stored[0].ID)
	assert.Equal(t, portfolio.Buy, stored[1].Type)
}
