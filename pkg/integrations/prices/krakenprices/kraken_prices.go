package krakenprices

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
		BaseURL: "https://api.kraken.com/0/public",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type tickerResponse struct {
	Error  []string                     `json:"error"`
	Result map[string]tickerResultEntry `json:"result"`
}

type tickerResultEntry struct {
	Close []string `json:"c"` // [price, lot_volume] of the last trade
}

func (k *PriceFetcher) Fetch(ctx context.Context, price *prices.Price) error {
	pair := toKrakenPair(price.Asset.Symbol)
	endpoint := fmt.Sprintf("%s/Ticker?pair=%s", k.BaseURL, pair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := k.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Error) > 0 {
		return fmt.Errorf("kraken API error: %s", strings.Join(result.Error, ", "))
	}

	for _, entry := range result.Result {
		if len(entry.Close) == 0 {
			continue
		}
		priceValue, err := strconv.ParseFloat(entry.Close[0], 64)
		if err != nil {
			return fmt.Errorf("invalid price format: %w", err)
		}
		price.Value = priceValue
		price.Source = prices.SourceKraken
		price.Timestamp = time.Now()
		return nil
	}

	return fmt.Errorf("no price found for %s", pair)
}

// Kraken keeps legacy X/Z prefixed names for its oldest markets.
func toKrakenPair(symbol string) string {
	switch symbol = strings.ToUpper(symbol); symbol {
	case "BTC", "XBT":
		return "XXBTZUSD"
	case "ETH":
		return "XETHZUSD"
	default:
		return symbol + "USD"
	}
}
