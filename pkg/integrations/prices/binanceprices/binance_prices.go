package binanceprices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crescer/pkg/types/prices"
)

var (
	_ prices.PriceFetcher = (*PriceFetcher)(nil)
)

type PriceFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewPriceFetcher() *PriceFetcher {
	return &PriceFetcher{
		BaseURL: "https://api.binance.com/api/v3",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch quotes the asset against USDT, which Binance lists for BTC.
func (b *PriceFetcher) Fetch(ctx context.Context, price *prices.Price) error {
	pair := strings.ToUpper(price.Asset.Symbol) + "USDT"
	endpoint := fmt.Sprintf("%s/ticker/price?symbol=%s", b.BaseURL, pair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("invalid trading pair: %s", pair)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	priceValue, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		return fmt.Errorf("invalid price format: %w", err)
	}
	if priceValue <= 0 {
		return fmt.Errorf("non-positive price for %s", pair)
	}

	price.Value = priceValue
	price.Source = prices.SourceBinance
	price.Timestamp = time.Now()
	return nil
}
