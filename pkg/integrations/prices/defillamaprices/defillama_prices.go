package defillamaprices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crescer/pkg/types/prices"
)

var (
	_ prices.PriceFetcher      = (*PriceFetcher)(nil)
	_ prices.HistoricalFetcher = (*PriceFetcher)(nil)
)

type PriceFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewPriceFetcher() *PriceFetcher {
	return &PriceFetcher{
		BaseURL: "https://coins.llama.fi",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type coinsResponse struct {
	Coins map[string]struct {
		Price     float64 `json:"price"`
		Symbol    string  `json:"symbol"`
		Timestamp int64   `json:"timestamp"`
	} `json:"coins"`
}

// DefiLlama keys assets by "<chain>:<address>"; the coingecko namespace covers BTC.
func identifier(asset prices.Asset) string {
	return "coingecko:" + strings.ToLower(asset.Name)
}

func (d *PriceFetcher) get(ctx context.Context, endpoint, id string) (float64, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, time.Time{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result coinsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to decode response: %w", err)
	}

	coin, ok := result.Coins[id]
	if !ok || coin.Price <= 0 {
		return 0, time.Time{}, fmt.Errorf("price not found for %s", id)
	}
	return coin.Price, time.Unix(coin.Timestamp, 0), nil
}

func (d *PriceFetcher) Fetch(ctx context.Context, price *prices.Price) error {
	id := identifier(price.Asset)
	value, at, err := d.get(ctx, fmt.Sprintf("%s/prices/current/%s", d.BaseURL, id), id)
	if err != nil {
		return err
	}
	price.Value = value
	price.Source = prices.SourceDefiLlama
	price.Timestamp = at
	return nil
}

// FetchRange asks for the single point closest to the middle of the window.
func (d *PriceFetcher) FetchRange(ctx context.Context, asset prices.Asset, from, to time.Time) ([]prices.Sample, error) {
	id := identifier(asset)
	half := to.Sub(from) / 2
	mid := from.Add(half)
	endpoint := fmt.Sprintf("%s/prices/historical/%d/%s?searchWidth=%ds", d.BaseURL, mid.Unix(), id, int64(half.Seconds()))

	value, at, err := d.get(ctx, endpoint, id)
	if err != nil {
		return nil, err
	}
	return []prices.Sample{{Timestamp: at, Value: value}}, nil
}
