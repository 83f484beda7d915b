package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"crescer/internal/portfolio"

	"github.com/pkg/errors"
)

var (
	ErrInvalidLedgerConfig = errors.New("invalid ledger service config")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type LedgerRepository interface {
	GetTransactions(userID string) ([]portfolio.Transaction, error)
	SaveTransactions(userID string, txs []portfolio.Transaction) error
	AppendTransaction(userID string, tx portfolio.Transaction) error
}

type HistoricProvider interface {
	PriceAt(ctx context.Context, t time.Time, c portfolio.Currency) (float64, error)
}

// TradeInput is what the buy/sell forms submit. A zero BitcoinPrice asks for
// the historical price at Date/Time.
type TradeInput struct {
	Type         portfolio.TransactionType `json:"type"`
	Date         string                    `json:"date"`
	Time         string                    `json:"time"`
	Currency     string                    `json:"currency"`
	Mode         portfolio.InputMode       `json:"mode"`
	Amount       float64                   `json:"amount"`
	BitcoinPrice float64                   `json:"bitcoinPrice"`
}

// TransactionView is a stored transaction plus values derived for one display currency.
type TransactionView struct {
	portfolio.Transaction
	DisplayCurrency portfolio.Currency    `json:"displayCurrency"`
	DisplayAmount   float64               `json:"displayAmount"`
	CurrentValue    float64               `json:"currentValue"`
	ProfitLoss      *portfolio.ProfitLoss `json:"profitLoss,omitempty"`
}

// PerformancePoint is the running position after each transaction, valued at today's price.
type PerformancePoint struct {
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	TotalSatoshis int64   `json:"total_satoshis"`
	TotalBitcoin  float64 `json:"total_bitcoin"`
	TotalInvested float64 `json:"total_invested"`
	CurrentValue  float64 `json:"current_value"`
}

type LedgerService struct {
	logger   *slog.Logger
	repo     LedgerRepository
	rates    RatesProvider
	spot     SpotProvider
	historic HistoricProvider
	location *time.Location
	now      func() time.Time

	mu sync.Mutex
}

type LedgerOption func(*LedgerService)

func WithLedgerLogger(l *slog.Logger) LedgerOption {
	return func(s *LedgerService) {
		s.logger = l
	}
}

func WithLedgerRepo(r LedgerRepository) LedgerOption {
	return func(s *LedgerService) {
		s.repo = r
	}
}

func WithLedgerRates(r RatesProvider) LedgerOption {
	return func(s *LedgerService) {
		s.rates = r
	}
}

func WithLedgerSpot(p SpotProvider) LedgerOption {
	return func(s *LedgerService) {
		s.spot = p
	}
}

func WithLedgerHistoric(h HistoricProvider) LedgerOption {
	return func(s *LedgerService) {
		s.historic = h
	}
}

func WithLedgerLocation(loc *time.Location) LedgerOption {
	return func(s *LedgerService) {
		s.location = loc
	}
}

func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) {
		s.now = now
	}
}

func (s *LedgerService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidLedgerConfig, "logger cannot be nil")
	case s.repo == nil:
		return errors.Wrap(ErrInvalidLedgerConfig, "repo cannot be nil")
	case s.rates == nil:
		return errors.Wrap(ErrInvalidLedgerConfig, "rates provider cannot be nil")
	case s.spot == nil:
		return errors.Wrap(ErrInvalidLedgerConfig, "spot provider cannot be nil")
	case s.historic == nil:
		return errors.Wrap(ErrInvalidLedgerConfig, "historic provider cannot be nil")
	case s.location == nil:
		return errors.Wrap(ErrInvalidLedgerConfig, "location cannot be nil")
	case s.now == nil:
		return errors.Wrap(ErrInvalidLedgerConfig, "clock cannot be nil")
	default:
		return nil
	}
}

func NewLedgerService(opts ...LedgerOption) (*LedgerService, error) {
	s := &LedgerService{
		location: time.Local,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}

	return s, nil
}

// AddTransaction records a buy or sell. Sells larger than the current balance
// are rejected before anything is written.
func (s *LedgerService) AddTransaction(ctx context.Context, userID string, in TradeInput) (portfolio.Transaction, error) {
	tx, err := s.build(ctx, userID, in)
	if err != nil {
		return portfolio.Transaction{}, err
	}
	rates := s.rates.Latest(ctx)
	tx.ExchangeRates = &rates

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.repo.GetTransactions(userID)
	if err != nil {
		return portfolio.Transaction{}, errors.Wrap(err, "failed to load transactions")
	}
	if tx.Type == portfolio.Sell {
		if err := portfolio.ValidateSell(txs, tx.Satoshis); err != nil {
			return portfolio.Transaction{}, err
		}
	}

	tx.ID = portfolio.NewID("tx")
	tx.CreatedAt = s.now().UTC()

	if err := s.repo.SaveTransactions(userID, append(txs, tx)); err != nil {
		return portfolio.Transaction{}, errors.Wrap(err, "failed to save transaction")
	}

	s.logger.Info("transaction added", "user_id", userID, "id", tx.ID, "type", tx.Type, "satoshis", tx.Satoshis)
	return tx, nil
}

// UpdateTransaction replaces the editable fields of an existing transaction.
// A sell is checked against the balance of every other transaction.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, in TradeInput) (portfolio.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.repo.GetTransactions(userID)
	if err != nil {
		return portfolio.Transaction{}, errors.Wrap(err, "failed to load transactions")
	}
	idx := indexOf(txs, id)
	if idx < 0 {
		return portfolio.Transaction{}, ErrTransactionNotFound
	}
	existing := txs[idx]

	if in.Type == "" {
		in.Type = existing.Type
	}
	tx, err := s.build(ctx, userID, in)
	if err != nil {
		return portfolio.Transaction{}, err
	}

	others := make([]portfolio.Transaction, 0, len(txs)-1)
	others = append(others, txs[:idx]...)
	others = append(others, txs[idx+1:]...)
	if tx.Type == portfolio.Sell {
		if err := portfolio.ValidateSell(others, tx.Satoshis); err != nil {
			return portfolio.Transaction{}, err
		}
	}

	tx.ID = existing.ID
	tx.CreatedAt = existing.CreatedAt
	tx.ExchangeRates = existing.ExchangeRates
	if tx.ExchangeRates == nil {
		rates := s.rates.Current()
		tx.ExchangeRates = &rates
	}
	txs[idx] = tx

	if err := s.repo.SaveTransactions(userID, txs); err != nil {
		return portfolio.Transaction{}, errors.Wrap(err, "failed to save transaction")
	}

	s.logger.Info("transaction updated", "user_id", userID, "id", id)
	return tx, nil
}

func (s *LedgerService) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.repo.GetTransactions(userID)
	if err != nil {
		return errors.Wrap(err, "failed to load transactions")
	}
	idx := indexOf(txs, id)
	if idx < 0 {
		return ErrTransactionNotFound
	}

	if err := s.repo.SaveTransactions(userID, append(txs[:idx], txs[idx+1:]...)); err != nil {
		return errors.Wrap(err, "failed to save transactions")
	}

	s.logger.Info("transaction deleted", "user_id", userID, "id", id)
	return nil
}

// AppendTransaction stores an already built transaction, such as an imported
// row, holding the same lock as the manual writes.
func (s *LedgerService) AppendTransaction(_ context.Context, userID string, tx portfolio.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.AppendTransaction(userID, tx); err != nil {
		return errors.Wrap(err, "failed to append transaction")
	}
	return nil
}

// Transactions returns the stored ledger, oldest first.
func (s *LedgerService) Transactions(_ context.Context, userID string) ([]portfolio.Transaction, error) {
	txs, err := s.repo.GetTransactions(userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load transactions")
	}
	s.sortChronological(txs)
	return txs, nil
}

// List returns the ledger newest first, valued in display.
func (s *LedgerService) List(ctx context.Context, userID string, display portfolio.Currency) ([]TransactionView, error) {
	txs, err := s.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	live := s.rates.Current()
	current := s.currentPrice(display)

	views := make([]TransactionView, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		view := TransactionView{
			Transaction:     tx,
			DisplayCurrency: display,
			DisplayAmount:   portfolio.Convert(tx.FiatAmount, tx.FiatCurrency, display, portfolio.RatesFor(tx, live)),
			CurrentValue:    tx.BitcoinAmount * current,
		}
		if tx.Type == portfolio.Buy && current > 0 {
			pl := portfolio.EvaluateProfitLoss(tx, current, display, live)
			view.ProfitLoss = &pl
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *LedgerService) Summary(ctx context.Context, userID string, display portfolio.Currency) (portfolio.Summary, error) {
	txs, err := s.Transactions(ctx, userID)
	if err != nil {
		return portfolio.Summary{}, err
	}
	return portfolio.Summarize(txs, display, s.currentPrice(display), s.rates.Current()), nil
}

// Performance replays the ledger and reports the running position after each transaction.
func (s *LedgerService) Performance(ctx context.Context, userID string, display portfolio.Currency) ([]PerformancePoint, error) {
	txs, err := s.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	live := s.rates.Current()
	current := s.currentPrice(display)

	points := make([]PerformancePoint, 0, len(txs))
	for i, tx := range txs {
		prefix := txs[:i+1]
		sats := portfolio.TotalSatoshis(prefix)
		btc := portfolio.BTCFromSatoshis(sats)
		points = append(points, PerformancePoint{
			Date:          tx.Date,
			Time:          tx.Time,
			TotalSatoshis: sats,
			TotalBitcoin:  btc,
			TotalInvested: portfolio.TotalInvested(prefix, display, live),
			CurrentValue:  btc * current,
		})
	}
	return points, nil
}

// build turns form input into a normalized, validated transaction without an ID.
func (s *LedgerService) build(ctx context.Context, userID string, in TradeInput) (portfolio.Transaction, error) {
	if !in.Type.IsValid() {
		return portfolio.Transaction{}, errors.Wrapf(portfolio.ErrInvalidTransaction, "unknown type %q", in.Type)
	}
	currency, err := portfolio.ParseCurrency(in.Currency)
	if err != nil {
		return portfolio.Transaction{}, err
	}

	tx := portfolio.Transaction{
		UserID:       userID,
		Type:         in.Type,
		Date:         in.Date,
		Time:         in.Time,
		FiatCurrency: currency,
	}
	ts, err := tx.Timestamp(s.location)
	if err != nil {
		return portfolio.Transaction{}, err
	}

	price := in.BitcoinPrice
	if price <= 0 {
		price, err = s.historic.PriceAt(ctx, ts, currency)
		if err != nil {
			s.logger.Warn("no price available for transaction", "user_id", userID, "at", ts, "error", err)
			price = 0
		}
	}
	if price <= 0 && (in.Type == portfolio.Sell || in.Mode == portfolio.InputFiat) {
		return portfolio.Transaction{}, portfolio.ErrMissingPrice
	}

	btc, fiat, err := portfolio.Quantify(in.Mode, in.Amount, price)
	if err != nil {
		return portfolio.Transaction{}, err
	}
	tx.BitcoinAmount = btc
	tx.FiatAmount = fiat
	tx.BitcoinPrice = price
	tx.Normalize()

	if err := tx.Validate(); err != nil {
		return portfolio.Transaction{}, err
	}
	return tx, nil
}

func (s *LedgerService) currentPrice(display portfolio.Currency) float64 {
	price, err := s.spot.Current(display)
	if err != nil {
		return 0
	}
	return price
}

func (s *LedgerService) sortChronological(txs []portfolio.Transaction) {
	key := func(tx portfolio.Transaction) time.Time {
		ts, err := tx.Timestamp(s.location)
		if err != nil {
			return tx.CreatedAt
		}
		return ts
	}
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := key(txs[i]), key(txs[j])
		if a.Equal(b) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return a.Before(b)
	})
}

func indexOf(txs []portfolio.Transaction, id string) int {
	for i, tx := range txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}
