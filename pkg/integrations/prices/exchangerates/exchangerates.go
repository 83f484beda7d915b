package exchangerates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crescer/pkg/types/prices"
)

var (
	_ prices.RatesFetcher = (*RatesFetcher)(nil)
)

// RatesFetcher reads USD-based cross rates from exchangerate-api.com.
type RatesFetcher struct {
	BaseURL string
	Base    string
	Client  *http.Client
}

func NewRatesFetcher() *RatesFetcher {
	return &RatesFetcher{
		BaseURL: "https://api.exchangerate-api.com/v4",
		Base:    "USD",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *RatesFetcher) FetchRates(ctx context.Context) (map[string]float64, error) {
	endpoint := fmt.Sprintf("%s/latest/%s", f.BaseURL, f.Base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("empty rates for base %s", f.Base)
	}

	return result.Rates, nil
}
