package currency

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/port/agent"
)

func fakeExchangeRateAPI(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		base := strings.TrimPrefix(r.URL.Path, "/")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"base_code": base,
			"date":      "2026-08-23",
			"rates": map[string]float64{
				"USD": 1.1710,
				"GBP": 0.8620,
				"JPY": 172.40,
				"EUR": 1.0,
			},
		})
	}))
	return srv, &calls
}

func newAgent(t *testing.T, apiURL string, withCache bool) agent.Agent {
	t.Helper()
	deps := agent.Deps{
		Upstream: agent.Upstream{CurrencyURL: apiURL, Timeout: 5 * time.Second},
	}
	if withCache {
		deps.Cache = newMemCache()
		deps.Upstream.RateTTL = time.Minute
	}
	a, err := New(deps, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return a
}

func TestConvertSelfConsistency(t *testing.T) {
	srv, _ := fakeExchangeRateAPI(t)
	defer srv.Close()

	a := newAgent(t, srv.URL, false)
	res, err := a.Dispatch(context.Background(), "convert", a2a.Params{
		"from_currency": "EUR",
		"to_currency":   "USD",
		"amount":        100.0,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	result := res.(ConversionResult)
	if result.ConvertedAmount != result.Amount*result.Rate {
		t.Fatalf("converted_amount %v != amount %v * rate %v", result.ConvertedAmount, result.Amount, result.Rate)
	}
	if result.Rate != 1.1710 {
		t.Fatalf("expected rate 1.1710, got %v", result.Rate)
	}
	if result.Date != "2026-08-23" {
		t.Fatalf("unexpected date: %s", result.Date)
	}
}

func TestConvertDefaults(t *testing.T) {
	srv, _ := fakeExchangeRateAPI(t)
	defer srv.Close()

	a := newAgent(t, srv.URL, false)
	res, err := a.Dispatch(context.Background(), "convert", a2a.Params{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	result := res.(ConversionResult)
	if result.FromCurrency != "EUR" || result.ToCurrency != "USD" || result.Amount != 1.0 {
		t.Fatalf("unexpected defaults: %+v", result)
	}
}

func TestConvertUnsupportedCurrency(t *testing.T) {
	srv, _ := fakeExchangeRateAPI(t)
	defer srv.Close()

	a := newAgent(t, srv.URL, false)
	_, err := a.Dispatch(context.Background(), "convert", a2a.Params{
		"from_currency": "XYZ",
		"to_currency":   "USD",
	})
	var envErr *a2a.Error
	if !errors.As(err, &envErr) || envErr.Code != a2a.CodeAgentError {
		t.Fatalf("expected -32000, got %v", err)
	}
}

func TestConvertMultiple(t *testing.T) {
	srv, _ := fakeExchangeRateAPI(t)
	defer srv.Close()

	a := newAgent(t, srv.URL, false)
	res, err := a.Dispatch(context.Background(), "convert_multiple", a2a.Params{
		"from_currency": "EUR",
		"to_currencies": []any{"USD", "GBP", "THB"},
		"amount":        1000.0,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	result := res.(MultiResult)
	if len(result.Conversions) != 3 {
		t.Fatalf("expected 3 conversions, got %d", len(result.Conversions))
	}
	if result.Conversions[0].ConvertedAmount != 1171.0 {
		t.Fatalf("expected 1171, got %v", result.Conversions[0].ConvertedAmount)
	}
	// THB is in the allow-list but missing from the fake response.
	if result.Conversions[2].Error == "" {
		t.Fatal("missing rate should produce a per-entry error")
	}
}

func TestSupportedCurrencies(t *testing.T) {
	srv, _ := fakeExchangeRateAPI(t)
	defer srv.Close()

	a := newAgent(t, srv.URL, false)
	res, err := a.Dispatch(context.Background(), "supported_currencies", a2a.Params{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	result := res.(map[string]any)
	if result["count"] != 30 {
		t.Fatalf("expected 30 currencies, got %v", result["count"])
	}
}

func TestRatesCached(t *testing.T) {
	srv, calls := fakeExchangeRateAPI(t)
	defer srv.Close()

	a := newAgent(t, srv.URL, true)
	for i := 0; i < 3; i++ {
		if _, err := a.Dispatch(context.Background(), "convert", a2a.Params{
			"from_currency": "EUR",
			"to_currency":   "USD",
		}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	if *calls != 1 {
		t.Fatalf("expected 1 upstream call with warm cache, got %d", *calls)
	}
}

// memCache is a minimal in-process cache for tests.
type memCache struct {
	items map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.items[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.items, key)
	return nil
}
