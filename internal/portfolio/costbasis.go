package portfolio

func AverageBuyPrice(txs []Transaction, display Currency, live Rates) float64 {
	return averagePrice(txs, Buy, display, live)
}

func AverageSellPrice(txs []Transaction, display Currency, live Rates) float64 {
	return averagePrice(txs, Sell, display, live)
}

// averagePrice is the quantity-weighted mean unit price over one side of the ledger.
// An empty side returns 0.
func averagePrice(txs []Transaction, side TransactionType, display Currency, live Rates) float64 {
	var fiat float64
	var sats int64
	for _, tx := range txs {
		if tx.Type != side {
			continue
		}
		fiat += Convert(tx.FiatAmount, tx.FiatCurrency, display, RatesFor(tx, live))
		sats += tx.Satoshis
	}
	if sats == 0 {
		return 0
	}
	return fiat / BTCFromSatoshis(sats)
}
