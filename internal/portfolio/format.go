package portfolio

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatFiat renders amount with the currency's symbol and separators.
func FormatFiat(amount float64, c Currency) string {
	cur := money.GetCurrency(string(c))
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, c)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

func FormatBTC(btc float64) string {
	return decimal.NewFromFloat(btc).StringFixed(8) + " BTC"
}

func FormatPercent(p float64) string {
	return fmt.Sprintf("%+.2f%%", p)
}
