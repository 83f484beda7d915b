package portfolio

// sign is +1 for buys and -1 for sells.
func sign(t TransactionType) float64 {
	if t == Sell {
		return -1
	}
	return 1
}

// TotalSatoshis folds the ledger into a running balance. It never clamps, so
// a ledger with oversized sells yields a negative balance.
func TotalSatoshis(txs []Transaction) int64 {
	var total int64
	for _, tx := range txs {
		switch tx.Type {
		case Buy:
			total += tx.Satoshis
		case Sell:
			total -= tx.Satoshis
		}
	}
	return total
}

func TotalBitcoin(txs []Transaction) float64 {
	return BTCFromSatoshis(TotalSatoshis(txs))
}

// TotalInvested is the net fiat put in, valued in display using each
// transaction's own rate snapshot where available.
func TotalInvested(txs []Transaction, display Currency, live Rates) float64 {
	var total float64
	for _, tx := range txs {
		if !tx.Type.IsValid() {
			continue
		}
		total += sign(tx.Type) * Convert(tx.FiatAmount, tx.FiatCurrency, display, RatesFor(tx, live))
	}
	return total
}

// Summary is the derived view of a ledger at a given spot price.
type Summary struct {
	Currency         Currency `json:"currency"`
	TotalSatoshis    int64    `json:"total_satoshis"`
	TotalBitcoin     float64  `json:"total_bitcoin"`
	TotalInvested    float64  `json:"total_invested"`
	AverageBuyPrice  float64  `json:"average_buy_price"`
	AverageSellPrice float64  `json:"average_sell_price"`
	CurrentPrice     float64  `json:"current_price"`
	CurrentValue     float64  `json:"current_value"`
	Profit           float64  `json:"profit"`
	ProfitPercentage float64  `json:"profit_percentage"`
	BuyCount         int      `json:"buy_count"`
	SellCount        int      `json:"sell_count"`
}

// Summarize computes every portfolio metric in one pass over the helpers.
// currentPrice must already be expressed in display.
func Summarize(txs []Transaction, display Currency, currentPrice float64, live Rates) Summary {
	s := Summary{
		Currency:         display,
		TotalSatoshis:    TotalSatoshis(txs),
		TotalInvested:    TotalInvested(txs, display, live),
		AverageBuyPrice:  AverageBuyPrice(txs, display, live),
		AverageSellPrice: AverageSellPrice(txs, display, live),
		CurrentPrice:     currentPrice,
	}
	s.TotalBitcoin = BTCFromSatoshis(s.TotalSatoshis)
	for _, tx := range txs {
		switch tx.Type {
		case Buy:
			s.BuyCount++
		case Sell:
			s.SellCount++
		}
	}
	if currentPrice > 0 {
		s.CurrentValue = s.TotalBitcoin * currentPrice
		s.Profit = s.CurrentValue - s.TotalInvested
		// Once sells have returned more than was put in there is no base
		// to take a percentage of.
		if s.TotalInvested > 0 {
			s.ProfitPercentage = percentage(s.Profit, s.TotalInvested)
		}
	}
	return s
}
