package coingeckoprices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
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
	APIKey  string
	Client  *http.Client
}

func NewPriceFetcher() *PriceFetcher {
	return &PriceFetcher{
		BaseURL: "https://api.coingecko.com/api/v3",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func coinID(asset prices.Asset) string {
	return strings.ToLower(asset.Name)
}

func (c *PriceFetcher) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *PriceFetcher) Fetch(ctx context.Context, price *prices.Price) error {
	id := coinID(price.Asset)
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.BaseURL, url.QueryEscape(id))

	var result map[string]map[string]float64
	if err := c.get(ctx, endpoint, &result); err != nil {
		return err
	}

	priceValue, ok := result[id]["usd"]
	if !ok {
		return fmt.Errorf("price not found for asset: %s", price.Asset.Name)
	}

	price.Value = priceValue
	price.Source = prices.SourceCoinGecko
	price.Timestamp = time.Now()
	return nil
}

// FetchRange returns the USD samples CoinGecko holds between from and to, oldest first.
func (c *PriceFetcher) FetchRange(ctx context.Context, asset prices.Asset, from, to time.Time) ([]prices.Sample, error) {
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?vs_currency=usd&from=%d&to=%d",
		c.BaseURL,
		url.PathEscape(coinID(asset)),
		from.Unix(),
		to.Unix(),
	)

	var result struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	samples := make([]prices.Sample, 0, len(result.Prices))
	for _, p := range result.Prices {
		samples = append(samples, prices.Sample{
			Timestamp: time.UnixMilli(int64(p[0])),
			Value:     p[1],
		})
	}
	return samples, nil
}
