package weather

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

func fakeOpenMeteo(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		days := 1
		if r.URL.Query().Get("forecast_days") == "3" {
			days = 3
		}
		daily := map[string]any{
			"time":                          []string{"2026-08-23", "2026-08-24", "2026-08-25"}[:days],
			"temperature_2m_max":            []float64{31.2, 30.1, 29.0}[:days],
			"temperature_2m_min":            []float64{22.4, 21.8, 21.0}[:days],
			"precipitation_probability_max": []float64{5, 10, 40}[:days],
			"wind_speed_10m_max":            []float64{14.2, 12.0, 18.5}[:days],
			"weather_code":                  []int{0, 2, 61}[:days],
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"latitude":  41.38,
			"longitude": 2.17,
			"timezone":  "Europe/Madrid",
			"daily":     daily,
		})
	}))
}

func newAgent(t *testing.T, apiURL string) agent.Agent {
	t.Helper()
	a, err := New(agent.Deps{
		Upstream: agent.Upstream{WeatherURL: apiURL, Timeout: 5 * time.Second},
	}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return a
}

func TestGetForecast(t *testing.T) {
	srv := fakeOpenMeteo(t)
	defer srv.Close()

	a := newAgent(t, srv.URL)
	res, err := a.Dispatch(context.Background(), "get_forecast", a2a.Params{"city": "Barcelona", "days": 3.0})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	result, ok := res.(Result)
	if !ok {
		t.Fatalf("unexpected result type %T", res)
	}
	if result.City != "Barcelona" {
		t.Fatalf("city not echoed: %s", result.City)
	}
	if len(result.Forecasts) != 3 {
		t.Fatalf("expected 3 forecasts, got %d", len(result.Forecasts))
	}
	if result.Forecasts[0].Condition != "clear sky" {
		t.Fatalf("WMO code 0 should map to clear sky, got %s", result.Forecasts[0].Condition)
	}
	if result.Forecasts[2].Condition != "light rain" {
		t.Fatalf("WMO code 61 should map to light rain, got %s", result.Forecasts[2].Condition)
	}
	if result.Source != "Open-Meteo API" {
		t.Fatalf("unexpected source: %s", result.Source)
	}
}

func TestGetForecastDefaults(t *testing.T) {
	srv := fakeOpenMeteo(t)
	defer srv.Close()

	a := newAgent(t, srv.URL)
	res, err := a.Dispatch(context.Background(), "get_forecast", a2a.Params{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	result := res.(Result)
	if result.City != "barcelona" {
		t.Fatalf("expected default city barcelona, got %s", result.City)
	}
	if len(result.Forecasts) != 1 {
		t.Fatalf("expected default 1 forecast, got %d", len(result.Forecasts))
	}
}

func TestGetForecastUnknownCity(t *testing.T) {
	srv := fakeOpenMeteo(t)
	defer srv.Close()

	a := newAgent(t, srv.URL)
	_, err := a.Dispatch(context.Background(), "get_forecast", a2a.Params{"city": "atlantis"})
	var envErr *a2a.Error
	if !errors.As(err, &envErr) || envErr.Code != a2a.CodeAgentError {
		t.Fatalf("expected -32000, got %v", err)
	}
	if !strings.Contains(envErr.Message, "barcelona") {
		t.Fatalf("error should list available cities: %s", envErr.Message)
	}
}

func TestGetForecastObservesUpstreamCalls(t *testing.T) {
	srv := fakeOpenMeteo(t)
	defer srv.Close()

	type call struct {
		api    string
		failed bool
	}
	var calls []call
	a, err := New(agent.Deps{
		Upstream: agent.Upstream{
			WeatherURL: srv.URL,
			Timeout:    5 * time.Second,
			Observe: func(_ context.Context, api string, failed bool) {
				calls = append(calls, call{api, failed})
			},
		},
	}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := a.Dispatch(context.Background(), "get_forecast", a2a.Params{"city": "madrid"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(calls) != 1 || calls[0].api != "open-meteo" || calls[0].failed {
		t.Fatalf("expected one successful open-meteo observation, got %v", calls)
	}
}

func TestGetForecastTruncatedSeries(t *testing.T) {
	// Three dates but single-element sibling arrays must surface as an
	// agent error, not an index panic.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"latitude":  41.38,
			"longitude": 2.17,
			"timezone":  "Europe/Madrid",
			"daily": map[string]any{
				"time":                          []string{"2026-08-23", "2026-08-24", "2026-08-25"},
				"temperature_2m_max":            []float64{31.2},
				"temperature_2m_min":            []float64{22.4},
				"precipitation_probability_max": []float64{5},
				"wind_speed_10m_max":            []float64{14.2},
				"weather_code":                  []int{0},
			},
		})
	}))
	defer srv.Close()

	a := newAgent(t, srv.URL)
	_, err := a.Dispatch(context.Background(), "get_forecast", a2a.Params{"city": "barcelona", "days": 3.0})
	var envErr *a2a.Error
	if !errors.As(err, &envErr) || envErr.Code != a2a.CodeAgentError {
		t.Fatalf("truncated series must surface as -32000, got %v", err)
	}
}

func TestGetForecastUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := newAgent(t, srv.URL)
	_, err := a.Dispatch(context.Background(), "get_forecast", a2a.Params{"city": "madrid"})
	var envErr *a2a.Error
	if !errors.As(err, &envErr) || envErr.Code != a2a.CodeAgentError {
		t.Fatalf("upstream failure must surface as -32000, got %v", err)
	}
}
