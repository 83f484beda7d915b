package portfolio

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Currency is one of the fiat codes the ledger can be valued in.
type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

var Currencies = []Currency{BRL, USD, EUR, GBP}

func (c Currency) IsValid() bool {
	switch c {
	case BRL, USD, EUR, GBP:
		return true
	default:
		return false
	}
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalizes user input and rejects anything outside the four supported codes.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", errors.Wrapf(ErrUnsupportedCurrency, "%q", s)
	}
	return c, nil
}

// Rates holds units of each currency per one USD.
type Rates struct {
	BRL float64 `json:"BRL"`
	USD float64 `json:"USD"`
	EUR float64 `json:"EUR"`
	GBP float64 `json:"GBP"`
}

// DefaultRates are used until the first successful rate refresh.
var DefaultRates = Rates{BRL: 5.0, USD: 1, EUR: 0.92, GBP: 0.79}

func (r Rates) Rate(c Currency) (float64, bool) {
	var v float64
	switch c {
	case BRL:
		v = r.BRL
	case USD:
		v = r.USD
	case EUR:
		v = r.EUR
	case GBP:
		v = r.GBP
	default:
		return 0, false
	}
	return v, v > 0
}

// Complete reports whether every supported currency has a usable rate.
func (r Rates) Complete() bool {
	for _, c := range Currencies {
		if _, ok := r.Rate(c); !ok {
			return false
		}
	}
	return true
}

func (r Rates) With(c Currency, v float64) Rates {
	switch c {
	case BRL:
		r.BRL = v
	case USD:
		r.USD = v
	case EUR:
		r.EUR = v
	case GBP:
		r.GBP = v
	}
	return r
}

// Convert moves amount from one currency to another through USD.
// Unknown codes or missing rates produce NaN; callers validate codes with ParseCurrency first.
func Convert(amount float64, from, to Currency, rates Rates) float64 {
	if from == to {
		return amount
	}
	fromRate, ok := rates.Rate(from)
	if !ok {
		return math.NaN()
	}
	toRate, ok := rates.Rate(to)
	if !ok {
		return math.NaN()
	}
	return amount / fromRate * toRate
}

// RatesFor returns the snapshot stored on the transaction, or live when it has none.
func RatesFor(tx Transaction, live Rates) Rates {
	if tx.ExchangeRates != nil && tx.ExchangeRates.Complete() {
		return *tx.ExchangeRates
	}
	return live
}
