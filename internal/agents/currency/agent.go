// Package currency implements the conversion agent backed by ExchangeRate-API.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nodus-labs/agentpool/internal/adapter/exchangerate"
	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/port/agent"
	"github.com/nodus-labs/agentpool/internal/port/cache"
	"github.com/nodus-labs/agentpool/internal/resilience"
)

// Ref is the factory reference used in pool configuration.
const Ref = "agentpool/currency"

func init() {
	agent.Register(Ref, New)
}

var supportedCurrencies = []string{
	"EUR", "USD", "GBP", "JPY", "CHF", "CAD", "AUD", "CNY", "INR", "BRL",
	"MXN", "ZAR", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "RON", "BGN",
	"HRK", "ISK", "TRY", "RUB", "KRW", "HKD", "SGD", "NZD", "THB", "MYR",
}

func supported(code string) bool {
	for _, c := range supportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// ConversionResult is the convert response payload.
type ConversionResult struct {
	FromCurrency    string  `json:"from_currency"`
	ToCurrency      string  `json:"to_currency"`
	Amount          float64 `json:"amount"`
	Rate            float64 `json:"rate"`
	ConvertedAmount float64 `json:"converted_amount"`
	Date            string  `json:"date"`
	Source          string  `json:"source"`
	Timestamp       string  `json:"timestamp"`
}

// Conversion is one entry of a convert_multiple result.
type Conversion struct {
	ToCurrency      string  `json:"to_currency"`
	Rate            float64 `json:"rate,omitempty"`
	ConvertedAmount float64 `json:"converted_amount,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// MultiResult is the convert_multiple response payload.
type MultiResult struct {
	FromCurrency string       `json:"from_currency"`
	Amount       float64      `json:"amount"`
	Conversions  []Conversion `json:"conversions"`
	Date         string       `json:"date"`
	Source       string       `json:"source"`
	Timestamp    string       `json:"timestamp"`
}

// Agent converts between the supported currency codes.
type Agent struct {
	name     string
	client   *exchangerate.Client
	cache    cache.Cache
	cacheTTL time.Duration
}

// New creates the currency agent. Config keys: api_url (string) overrides the
// pool-level ExchangeRate-API URL.
func New(deps agent.Deps, config map[string]any) (agent.Agent, error) {
	apiURL := deps.Upstream.CurrencyURL
	if v, ok := config["api_url"].(string); ok && v != "" {
		apiURL = v
	}
	if apiURL == "" {
		return nil, fmt.Errorf("currency: no API URL configured")
	}

	var breaker *resilience.Breaker
	if deps.Upstream.BreakerMaxFailures > 0 {
		breaker = resilience.NewBreaker(deps.Upstream.BreakerMaxFailures, deps.Upstream.BreakerTimeout)
	}

	return &Agent{
		name:     "currency_agent",
		client:   exchangerate.New(apiURL, deps.Upstream.Timeout, breaker, deps.Upstream.Observe),
		cache:    deps.Cache,
		cacheTTL: deps.Upstream.RateTTL,
	}, nil
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) Card(baseURL string) a2a.Card {
	return a2a.NewCard(
		a.name,
		"Real-time currency conversion using ExchangeRate-API (stable, free)",
		baseURL+"/a2a",
		map[string]a2a.Capability{
			"convert": {
				Description: "Convert amount from one currency to another",
				Parameters: map[string]any{
					"from_currency": map[string]any{
						"type":        "string",
						"description": "Source currency code (e.g., EUR, USD)",
						"enum":        supportedCurrencies,
					},
					"to_currency": map[string]any{
						"type":        "string",
						"description": "Target currency code",
						"enum":        supportedCurrencies,
					},
					"amount": map[string]any{
						"type":        "number",
						"description": "Amount to convert",
						"default":     1.0,
						"minimum":     0.01,
					},
				},
				Returns: map[string]any{
					"rate":             "Exchange rate",
					"converted_amount": "Converted amount",
				},
			},
			"convert_multiple": {
				Description: "Convert to multiple currencies at once",
				Parameters: map[string]any{
					"from_currency": map[string]any{
						"type":        "string",
						"description": "Source currency code",
						"enum":        supportedCurrencies,
					},
					"to_currencies": map[string]any{
						"type":        "array",
						"description": "List of target currency codes",
						"items":       map[string]any{"type": "string", "enum": supportedCurrencies},
					},
					"amount": map[string]any{
						"type":        "number",
						"description": "Amount to convert",
						"default":     1.0,
					},
				},
				Returns: map[string]any{
					"conversions": "Array of conversion results",
				},
			},
			"supported_currencies": {
				Description: "Get list of supported currencies",
				Parameters:  map[string]any{},
				Returns: map[string]any{
					"currencies": "Array of currency codes",
				},
			},
		},
	)
}

func (a *Agent) Dispatch(ctx context.Context, method string, params a2a.Params) (any, error) {
	switch method {
	case "convert":
		return a.convert(ctx, params)
	case "convert_multiple":
		return a.convertMultiple(ctx, params)
	case "supported_currencies":
		return map[string]any{
			"currencies": supportedCurrencies,
			"count":      len(supportedCurrencies),
		}, nil
	default:
		return nil, a2a.MethodNotFound(method)
	}
}

func (a *Agent) convert(ctx context.Context, params a2a.Params) (any, error) {
	from, err := params.String("from_currency", "EUR")
	if err != nil {
		return nil, err
	}
	to, err := params.String("to_currency", "USD")
	if err != nil {
		return nil, err
	}
	amount, err := params.Float("amount", 1.0)
	if err != nil {
		return nil, err
	}

	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if !supported(from) {
		return nil, unsupportedCurrency(from)
	}
	if !supported(to) {
		return nil, unsupportedCurrency(to)
	}

	rates, err := a.latest(ctx, from)
	if err != nil {
		slog.Error("exchange rate fetch failed", "from", from, "error", err)
		return nil, a2a.AgentErrorf("Failed to fetch exchange rate: %v", err)
	}

	rate, ok := rates.Rates[to]
	if !ok {
		return nil, a2a.AgentErrorf("Currency '%s' not found in rates", to)
	}

	return ConversionResult{
		FromCurrency:    from,
		ToCurrency:      to,
		Amount:          amount,
		Rate:            rate,
		ConvertedAmount: amount * rate,
		Date:            rates.Date,
		Source:          "ExchangeRate-API",
		Timestamp:       time.Now().Format(time.RFC3339),
	}, nil
}

func (a *Agent) convertMultiple(ctx context.Context, params a2a.Params) (any, error) {
	from, err := params.String("from_currency", "EUR")
	if err != nil {
		return nil, err
	}
	targets, err := params.StringSlice("to_currencies", []string{"USD", "GBP"})
	if err != nil {
		return nil, err
	}
	amount, err := params.Float("amount", 1.0)
	if err != nil {
		return nil, err
	}

	from = strings.ToUpper(from)
	if !supported(from) {
		return nil, unsupportedCurrency(from)
	}

	rates, err := a.latest(ctx, from)
	if err != nil {
		slog.Error("exchange rate fetch failed", "from", from, "error", err)
		return nil, a2a.AgentErrorf("Failed to convert: %v", err)
	}

	conversions := make([]Conversion, 0, len(targets))
	for _, target := range targets {
		target = strings.ToUpper(target)
		rate, ok := rates.Rates[target]
		if !ok {
			conversions = append(conversions, Conversion{
				ToCurrency: target,
				Error:      fmt.Sprintf("Currency '%s' not found", target),
			})
			continue
		}
		conversions = append(conversions, Conversion{
			ToCurrency:      target,
			Rate:            rate,
			ConvertedAmount: amount * rate,
		})
	}

	return MultiResult{
		FromCurrency: from,
		Amount:       amount,
		Conversions:  conversions,
		Date:         rates.Date,
		Source:       "ExchangeRate-API",
		Timestamp:    time.Now().Format(time.RFC3339),
	}, nil
}

// latest fetches rates for a base currency, memoized in the shared cache.
func (a *Agent) latest(ctx context.Context, base string) (*exchangerate.Rates, error) {
	cacheKey := "rates:" + base
	if a.cache != nil && a.cacheTTL > 0 {
		if data, ok, err := a.cache.Get(ctx, cacheKey); err == nil && ok {
			var r exchangerate.Rates
			if err := json.Unmarshal(data, &r); err == nil {
				return &r, nil
			}
		}
	}

	rates, err := a.client.Latest(ctx, base)
	if err != nil {
		return nil, err
	}

	if a.cache != nil && a.cacheTTL > 0 {
		if data, err := json.Marshal(rates); err == nil {
			if err := a.cache.Set(ctx, cacheKey, data, a.cacheTTL); err != nil {
				slog.Debug("rates cache set failed", "base", base, "error", err)
			}
		}
	}
	return rates, nil
}

func unsupportedCurrency(code string) *a2a.Error {
	return a2a.AgentErrorf("Currency '%s' not supported. Available: %s...",
		code, strings.Join(supportedCurrencies[:10], ", "))
}
