package cryptocompareprices

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

// histominute returns at most this many candles per call.
const maxMinutes = 2000

type PriceFetcher struct {
	BaseURL string
	Client  *http.Client
	APIKey  string
}

func NewPriceFetcher() *PriceFetcher {
	return &PriceFetcher{
		BaseURL: "https://min-api.cryptocompare.com/data",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func NewPriceFetcherWithKey(apiKey string) *PriceFetcher {
	f := NewPriceFetcher()
	f.APIKey = apiKey
	return f
}

func (c *PriceFetcher) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("authorization", "Apikey "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
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
	symbol := strings.ToUpper(price.Asset.Symbol)
	endpoint := fmt.Sprintf("%s/price?fsym=%s&tsyms=USD", c.BaseURL, symbol)

	var result map[string]float64
	if err := c.get(ctx, endpoint, &result); err != nil {
		return err
	}

	usd, ok := result["USD"]
	if !ok {
		return fmt.Errorf("price not found for %s", symbol)
	}
	price.Value = usd
	price.Source = prices.SourceCryptoCompare
	price.Timestamp = time.Now()
	return nil
}

type histoResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     struct {
		Data []struct {
			Time  int64   `json:"time"`
			Close float64 `json:"close"`
		} `json:"Data"`
	} `json:"Data"`
}

// FetchRange returns minute closes between from and to, oldest first.
func (c *PriceFetcher) FetchRange(ctx context.Context, asset prices.Asset, from, to time.Time) ([]prices.Sample, error) {
	limit := int(to.Sub(from) / time.Minute)
	if limit < 1 {
		limit = 1
	}
	if limit > maxMinutes {
		limit = maxMinutes
	}

	endpoint := fmt.Sprintf("%s/v2/histominute?fsym=%s&tsym=USD&limit=%d&toTs=%d",
		c.BaseURL,
		strings.ToUpper(asset.Symbol),
		limit,
		to.Unix(),
	)

	var result histoResponse
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	if result.Response == "Error" {
		return nil, fmt.Errorf("cryptocompare API error: %s", result.Message)
	}

	samples := make([]prices.Sample, 0, len(result.Data.Data))
	for _, p := range result.Data.Data {
		if p.Close <= 0 {
			continue
		}
		samples = append(samples, prices.Sample{Timestamp: time.Unix(p.Time, 0), Value: p.Close})
	}
	return samples, nil
}
