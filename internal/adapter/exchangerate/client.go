// Package exchangerate implements the outbound client for the
// ExchangeRate-API open endpoint, used by the currency agent.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nodus-labs/agentpool/internal/resilience"
)

// Rates is the decoded response for one base currency.
type Rates struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// latestResponse matches the /v4/latest/{base} shape.
type latestResponse struct {
	Base     string             `json:"base"`
	BaseCode string             `json:"base_code"`
	Date     string             `json:"date"`
	Rates    map[string]float64 `json:"rates"`
}

// Client calls the exchange rate API.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.Breaker
	observe func(ctx context.Context, api string, failed bool)
}

// New creates a Client. breaker may be nil to disable circuit breaking;
// observe may be nil to disable call metrics.
func New(baseURL string, timeout time.Duration, breaker *resilience.Breaker, observe func(ctx context.Context, api string, failed bool)) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		observe: observe,
	}
}

// Latest fetches the current rates for the given base currency.
func (c *Client) Latest(ctx context.Context, base string) (*Rates, error) {
	var decoded latestResponse
	call := func() error {
		return c.get(ctx, c.baseURL+"/"+strings.ToUpper(base), &decoded)
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if c.observe != nil {
		c.observe(ctx, "exchange-rate", err != nil)
	}
	if err != nil {
		return nil, err
	}

	if len(decoded.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate API returned no rates for %s", base)
	}

	date := decoded.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return &Rates{
		Base:  strings.ToUpper(base),
		Date:  date,
		Rates: decoded.Rates,
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("exchange rate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("exchange rate API returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rates: %w", err)
	}
	return nil
}
