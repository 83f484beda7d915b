package portfolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	SatoshisPerBitcoin = 100_000_000

	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrMissingPrice       = errors.New("bitcoin price is required")
)

type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

func (t TransactionType) IsValid() bool {
	return t == Buy || t == Sell
}

// Transaction is a single buy or sell, stored as-is inside the user's ledger document.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Type          TransactionType `json:"type"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	BitcoinAmount float64         `json:"bitcoinAmount"`
	Satoshis      int64           `json:"satoshis"`
	FiatAmount    float64         `json:"fiatAmount"`
	FiatCurrency  Currency        `json:"fiatCurrency"`
	BitcoinPrice  float64         `json:"bitcoinPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExchangeRates *Rates          `json:"exchangeRates,omitempty"`
}

// SatoshisFromBTC rounds half away from zero, matching Math.round for positive amounts.
func SatoshisFromBTC(btc float64) int64 {
	return decimal.NewFromFloat(btc).Shift(8).Round(0).IntPart()
}

func BTCFromSatoshis(sats int64) float64 {
	return decimal.New(sats, -8).InexactFloat64()
}

// RoundBTC truncates float noise past the eighth decimal.
func RoundBTC(btc float64) float64 {
	return decimal.NewFromFloat(btc).Round(8).InexactFloat64()
}

// NewID builds "<prefix>_<unix millis>_<9 random chars>".
func NewID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}

// Timestamp parses Date and Time in loc. A missing time means midnight.
func (tx Transaction) Timestamp(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	clock := tx.Time
	if clock == "" {
		clock = "00:00"
	}
	ts, err := time.ParseInLocation(DateLayout+" "+TimeLayout, tx.Date+" "+clock, loc)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrInvalidTransaction, "date must be YYYY-MM-DD and time HH:MM")
	}
	return ts, nil
}

// Normalize makes bitcoinAmount canonical: it is rounded to 8 decimals and satoshis re-derived from it.
func (tx *Transaction) Normalize() {
	tx.BitcoinAmount = RoundBTC(tx.BitcoinAmount)
	tx.Satoshis = SatoshisFromBTC(tx.BitcoinAmount)
}

func (tx Transaction) Validate() error {
	switch {
	case !tx.Type.IsValid():
		return errors.Wrapf(ErrInvalidTransaction, "unknown type %q", tx.Type)
	case !tx.FiatCurrency.IsValid():
		return errors.Wrapf(ErrUnsupportedCurrency, "%q", tx.FiatCurrency)
	case tx.BitcoinAmount <= 0 || tx.Satoshis <= 0:
		return ErrInvalidQuantity
	case tx.Satoshis != SatoshisFromBTC(tx.BitcoinAmount):
		return errors.Wrap(ErrInvalidTransaction, "satoshis do not match bitcoinAmount")
	case tx.FiatAmount < 0:
		return errors.Wrap(ErrInvalidTransaction, "fiatAmount cannot be negative")
	}
	if _, err := tx.Timestamp(time.UTC); err != nil {
		return err
	}
	return nil
}

// InputMode says which unit the user typed the quantity in.
type InputMode string

const (
	InputFiat     InputMode = "fiat"
	InputBitcoin  InputMode = "btc"
	InputSatoshis InputMode = "sats"
)

// Quantify turns an amount typed in any unit into the (bitcoin, fiat) pair at price.
func Quantify(mode InputMode, amount, price float64) (btc float64, fiat float64, err error) {
	if amount <= 0 {
		return 0, 0, ErrInvalidQuantity
	}
	switch mode {
	case InputFiat:
		if price <= 0 {
			return 0, 0, ErrMissingPrice
		}
		return RoundBTC(amount / price), amount, nil
	case InputSatoshis:
		btc = BTCFromSatoshis(decimal.NewFromFloat(amount).Round(0).IntPart())
	case InputBitcoin, "":
		btc = RoundBTC(amount)
	default:
		return 0, 0, errors.Wrapf(ErrInvalidTransaction, "unknown input mode %q", mode)
	}
	if btc <= 0 {
		return 0, 0, ErrInvalidQuantity
	}
	return btc, btc * price, nil
}
