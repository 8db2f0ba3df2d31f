// Package openmeteo implements the outbound client for the Open-Meteo
// forecast API, used by the weather agent.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nodus-labs/agentpool/internal/resilience"
)

// Forecast is the decoded daily forecast for one location.
type Forecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Daily     Daily   `json:"daily"`
}

// Daily holds parallel per-day arrays as returned by the API.
type Daily struct {
	Time             []string  `json:"time"`
	TempMax          []float64 `json:"temperature_2m_max"`
	TempMin          []float64 `json:"temperature_2m_min"`
	PrecipitationMax []float64 `json:"precipitation_probability_max"`
	WindSpeedMax     []float64 `json:"wind_speed_10m_max"`
	WeatherCode      []int     `json:"weather_code"`
}

// validate rejects responses whose parallel arrays disagree in length;
// per-day indexing is only safe when every series covers every date.
func (d Daily) validate() error {
	n := len(d.Time)
	if len(d.TempMax) != n || len(d.TempMin) != n || len(d.PrecipitationMax) != n ||
		len(d.WindSpeedMax) != n || len(d.WeatherCode) != n {
		return fmt.Errorf("inconsistent daily series: %d dates, %d/%d temps, %d precip, %d wind, %d codes",
			n, len(d.TempMax), len(d.TempMin), len(d.PrecipitationMax), len(d.WindSpeedMax), len(d.WeatherCode))
	}
	return nil
}

// Client calls the Open-Meteo forecast endpoint.
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
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		observe: observe,
	}
}

// Forecast fetches the daily forecast for the given coordinates over the
// next days days.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, days int) (*Forecast, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,wind_speed_10m_max,weather_code")
	q.Set("timezone", "Europe/Madrid")
	q.Set("forecast_days", strconv.Itoa(days))

	var fc Forecast
	call := func() error {
		if err := c.get(ctx, c.baseURL+"?"+q.Encode(), &fc); err != nil {
			return err
		}
		return fc.Daily.validate()
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if c.observe != nil {
		c.observe(ctx, "open-meteo", err != nil)
	}
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("open-meteo returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode forecast: %w", err)
	}
	return nil
}
