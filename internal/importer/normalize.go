package importer

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"crescer/internal/portfolio"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidNormalizerConfig = errors.New("invalid normalizer config")
	ErrNoMatchingRows          = errors.New("no BTC Supply or CowCollateralSwap rows found")
)

const (
	ActionSupply         = "Supply"
	ActionCollateralSwap = "CowCollateralSwap"
	symbolMarker         = "BTC"
	importIDPrefix       = "import"
	fieldAction          = "action"
	fieldNestedSymbol    = "reserve.symbol"
	fieldSymbol          = "symbol"
	fieldAmount          = "amount"
	fieldToAmount        = "toAmount"
	fieldAssetPriceUSD   = "assetPriceUSD"
	fieldTimestamp       = "timestamp"
)

// RowError describes a row that matched the filter but could not be turned into a transaction.
type RowError struct {
	Row     int             `json:"row"`
	Data    json.RawMessage `json:"data"`
	Field   string          `json:"field,omitempty"`
	Message string          `json:"message"`
}

// Result is the outcome of normalizing one export file.
type Result struct {
	Transactions []portfolio.Transaction `json:"transactions"`
	Total        int                     `json:"total"`
	Matched      int                     `json:"matched"`
	Skipped      []RowError              `json:"skipped,omitempty"`
}

type Normalizer struct {
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

type Option func(*Normalizer)

func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = l
	}
}

// WithLocation sets the zone used to derive date and time from row timestamps.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		n.location = loc
	}
}

func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

func (n *Normalizer) IsValid() error {
	switch {
	case n.logger == nil:
		return errors.Wrap(ErrInvalidNormalizerConfig, "logger cannot be nil")
	case n.location == nil:
		return errors.Wrap(ErrInvalidNormalizerConfig, "location cannot be nil")
	case n.now == nil:
		return errors.Wrap(ErrInvalidNormalizerConfig, "clock cannot be nil")
	default:
		return nil
	}
}

func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.IsValid(); err != nil {
		return nil, err
	}
	return n, nil
}

// Matches reports whether the row is a BTC-acquiring Supply or CowCollateralSwap.
func Matches(row Row) bool {
	symbol := row.String(fieldNestedSymbol)
	if symbol == "" {
		symbol = row.String(fieldSymbol)
	}
	if !strings.Contains(strings.ToUpper(symbol), symbolMarker) {
		return false
	}
	action := row.String(fieldAction)
	return action == ActionSupply || action == ActionCollateralSwap
}

// Normalize maps every matching row to a buy priced in USD and stamped with rates.
// Rows that match but carry unusable numbers are reported in Skipped.
func (n *Normalizer) Normalize(rows []Row, userID string, rates portfolio.Rates) Result {
	res := Result{Total: len(rows)}
	for i, row := range rows {
		if !Matches(row) {
			continue
		}
		res.Matched++

		tx, field, err := n.toTransaction(row, userID, rates)
		if err != nil {
			data, _ := json.Marshal(row)
			n.logger.Warn("skipping import row", "row", i+1, "field", field, "error", err)
			res.Skipped = append(res.Skipped, RowError{
				Row:     i + 1,
				Data:    data,
				Field:   field,
				Message: err.Error(),
			})
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res
}

func (n *Normalizer) toTransaction(row Row, userID string, rates portfolio.Rates) (portfolio.Transaction, string, error) {
	quantityField := fieldAmount
	if row.String(fieldAction) == ActionCollateralSwap {
		quantityField = fieldToAmount
	}

	quantity, err := parseDecimal(row.String(quantityField))
	if err != nil || !quantity.IsPositive() {
		return portfolio.Transaction{}, quantityField, errors.Errorf("quantity %q is not a positive number", row.String(quantityField))
	}

	price, err := parseDecimal(row.String(fieldAssetPriceUSD))
	if err != nil || price.IsNegative() {
		return portfolio.Transaction{}, fieldAssetPriceUSD, errors.Errorf("asset price %q is not a valid number", row.String(fieldAssetPriceUSD))
	}

	seconds, err := parseDecimal(row.String(fieldTimestamp))
	if err != nil || !seconds.IsPositive() {
		return portfolio.Transaction{}, fieldTimestamp, errors.Errorf("timestamp %q is not unix seconds", row.String(fieldTimestamp))
	}
	at := time.Unix(seconds.IntPart(), 0).In(n.location)

	snapshot := rates
	tx := portfolio.Transaction{
		ID:            portfolio.NewID(importIDPrefix),
		UserID:        userID,
		Type:          portfolio.Buy,
		Date:          at.Format(portfolio.DateLayout),
		Time:          at.Format(portfolio.TimeLayout),
		BitcoinAmount: quantity.InexactFloat64(),
		FiatAmount:    quantity.Mul(price).InexactFloat64(),
		FiatCurrency:  portfolio.USD,
		BitcoinPrice:  price.InexactFloat64(),
		CreatedAt:     n.now().UTC(),
		ExchangeRates: &snapshot,
	}
	tx.Normalize()
	if tx.Satoshis <= 0 {
		return portfolio.Transaction{}, quantityField, errors.Errorf("quantity %s is below one satoshi", quantity)
	}
	return tx, "", nil
}

// parseDecimal accepts plain and thousands-grouped numbers ("1,234.5").
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, errors.New("empty value")
	}
	return decimal.NewFromString(s)
}
