package portfolio

import "github.com/pkg/errors"

var ErrInsufficientBalance = errors.New("sell amount exceeds current balance")

type ProfitLoss struct {
	Profit     float64 `json:"profit"`
	Percentage float64 `json:"percentage"`
}

// EvaluateProfitLoss returns the unrealized result of a buy at currentPrice
// (already in display). Sells and a zero price give the zero value, which
// means "not applicable" rather than break-even.
func EvaluateProfitLoss(tx Transaction, currentPrice float64, display Currency, live Rates) ProfitLoss {
	if tx.Type != Buy || currentPrice == 0 {
		return ProfitLoss{}
	}
	currentValue := tx.BitcoinAmount * currentPrice
	originalValue := Convert(tx.FiatAmount, tx.FiatCurrency, display, RatesFor(tx, live))
	profit := currentValue - originalValue
	return ProfitLoss{
		Profit:     profit,
		Percentage: percentage(profit, originalValue),
	}
}

// percentage is 0 when base is 0 so results stay JSON-encodable.
func percentage(delta, base float64) float64 {
	if base == 0 {
		return 0
	}
	return delta / base * 100
}

// ValidateSell rejects a sell larger than the balance accumulated in txs.
func ValidateSell(txs []Transaction, satoshis int64) error {
	balance := TotalSatoshis(txs)
	if satoshis > balance {
		return errors.Wrapf(ErrInsufficientBalance, "requested %d sats, available %d sats", satoshis, balance)
	}
	return nil
}
