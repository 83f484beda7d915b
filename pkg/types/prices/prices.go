package prices

import (
	"context"
	"time"
)

const (
	SourceBinance       = "binance"
	SourceKraken        = "kraken"
	SourceCoinGecko     = "coingecko"
	SourceCryptoCompare = "cryptocompare"
	SourceDefiLlama     = "defillama"
	SourceExchangeRate  = "exchangerate-api"
)

type Asset struct {
	Name   string
	Symbol string
}

// Price is a USD quote for one asset.
type Price struct {
	Asset     Asset
	Value     float64
	Source    string
	Timestamp time.Time
}

// Sample is one point of a historical price series.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

type PriceFetcher interface {
	Fetch(ctx context.Context, price *Price) error
}

type HistoricalFetcher interface {
	FetchRange(ctx context.Context, asset Asset, from, to time.Time) ([]Sample, error)
}

// RatesFetcher returns units of each currency per one USD, keyed by ISO code.
type RatesFetcher interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

var Bitcoin = Asset{Name: "Bitcoin", Symbol: "BTC"}
