package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

var baseURL = envOr("CRESCER_URL", "http://localhost:8080") + "/api"

type session struct {
	Token string `json:"token"`
}

type trade struct {
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Currency     string  `json:"currency"`
	Mode         string  `json:"mode"`
	Amount       float64 `json:"amount"`
	BitcoinPrice float64 `json:"bitcoinPrice"`
}

// Seeds a demo account with a small DCA history.
func main() {
	token := register("demo", "demo123")

	buys := []trade{
		{Date: "2024-01-05", Time: "09:30", Currency: "BRL", Mode: "fiat", Amount: 1000, BitcoinPrice: 215000},
		{Date: "2024-02-05", Time: "09:30", Currency: "BRL", Mode: "fiat", Amount: 1000, BitcoinPrice: 212000},
		{Date: "2024-03-05", Time: "09:30", Currency: "USD", Mode: "sats", Amount: 250000, BitcoinPrice: 67000},
		{Date: "2024-04-05", Time: "09:30", Currency: "EUR", Mode: "btc", Amount: 0.01, BitcoinPrice: 62000},
	}
	for _, b := range buys {
		post("/transactions/buy", token, b)
	}
	post("/transactions/sell", token, trade{
		Date: "2024-05-10", Time: "14:00", Currency: "BRL", Mode: "sats", Amount: 100000, BitcoinPrice: 330000,
	})

	fmt.Println("seeded user demo / demo123")
}

func register(username, password string) string {
	body := map[string]string{"username": username, "password": password, "confirmPassword": password}
	var s session
	if err := json.Unmarshal(post("/auth/register", "", body), &s); err != nil {
		log.Fatal(err)
	}
	return s.Token
}

func post(path, token string, body any) []byte {
	data, err := json.Marshal(body)
	if err != nil {
		log.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("%s: %d %s", path, resp.StatusCode, buf.String())
	}
	fmt.Printf("%s -> %d\n", path, resp.StatusCode)
	return buf.Bytes()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
