// Package weather implements the forecast agent backed by the Open-Meteo API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nodus-labs/agentpool/internal/adapter/openmeteo"
	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/port/agent"
	"github.com/nodus-labs/agentpool/internal/port/cache"
	"github.com/nodus-labs/agentpool/internal/resilience"
)

// Ref is the factory reference used in pool configuration.
const Ref = "agentpool/weather"

func init() {
	agent.Register(Ref, New)
}

type coords struct {
	Lat, Lon float64
}

var cityCoords = map[string]coords{
	"barcelona": {41.3879, 2.1699},
	"madrid":    {40.4168, -3.7038},
	"valencia":  {39.4699, -0.3763},
	"sevilla":   {37.3891, -5.9845},
	"bilbao":    {43.2627, -2.9253},
}

// WMO weather interpretation codes.
var conditions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	61: "light rain",
	63: "moderate rain",
	65: "heavy rain",
	71: "light snow",
	73: "moderate snow",
	75: "heavy snow",
	80: "light rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	95: "thunderstorm",
}

// DayForecast is one day of the forecast result.
type DayForecast struct {
	Date              string  `json:"date"`
	TempMax           float64 `json:"temp_max"`
	TempMin           float64 `json:"temp_min"`
	Condition         string  `json:"condition"`
	PrecipitationProb float64 `json:"precipitation_prob"`
	WindSpeed         float64 `json:"wind_speed"`
}

// Result is the get_forecast response payload.
type Result struct {
	City      string        `json:"city"`
	Forecasts []DayForecast `json:"forecasts"`
	Source    string        `json:"source"`
	Timestamp string        `json:"timestamp"`
}

// Agent serves weather forecasts for a fixed set of Spanish cities.
type Agent struct {
	name     string
	client   *openmeteo.Client
	cache    cache.Cache
	cacheTTL time.Duration
}

// New creates the weather agent. Config keys: api_url (string) overrides the
// pool-level Open-Meteo URL.
func New(deps agent.Deps, config map[string]any) (agent.Agent, error) {
	apiURL := deps.Upstream.WeatherURL
	if v, ok := config["api_url"].(string); ok && v != "" {
		apiURL = v
	}
	if apiURL == "" {
		return nil, fmt.Errorf("weather: no API URL configured")
	}

	var breaker *resilience.Breaker
	if deps.Upstream.BreakerMaxFailures > 0 {
		breaker = resilience.NewBreaker(deps.Upstream.BreakerMaxFailures, deps.Upstream.BreakerTimeout)
	}

	return &Agent{
		name:     "weather_agent",
		client:   openmeteo.New(apiURL, deps.Upstream.Timeout, breaker, deps.Upstream.Observe),
		cache:    deps.Cache,
		cacheTTL: deps.Upstream.WeatherTTL,
	}, nil
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) Card(baseURL string) a2a.Card {
	return a2a.NewCard(
		a.name,
		"Real-time weather forecasts for Spanish cities using Open-Meteo API",
		baseURL+"/a2a",
		map[string]a2a.Capability{
			"get_forecast": {
				Description: "Get weather forecast for a city",
				Parameters: map[string]any{
					"city": map[string]any{
						"type":        "string",
						"description": "City name",
						"enum":        cityNames(),
					},
					"days": map[string]any{
						"type":        "integer",
						"description": "Number of forecast days (1-7)",
						"default":     1,
						"minimum":     1,
						"maximum":     7,
					},
				},
				Returns: map[string]any{
					"forecasts": "Array of daily forecasts with temp, condition, precipitation",
				},
			},
		},
	)
}

func (a *Agent) Dispatch(ctx context.Context, method string, params a2a.Params) (any, error) {
	switch method {
	case "get_forecast":
		return a.getForecast(ctx, params)
	default:
		return nil, a2a.MethodNotFound(method)
	}
}

func (a *Agent) getForecast(ctx context.Context, params a2a.Params) (any, error) {
	city, err := params.String("city", "barcelona")
	if err != nil {
		return nil, err
	}
	days, err := params.Int("days", 1)
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = 1
	}
	if days > 7 {
		days = 7
	}

	key := strings.ToLower(strings.TrimSpace(city))
	c, ok := cityCoords[key]
	if !ok {
		return nil, a2a.AgentErrorf("City '%s' not found. Available: %s", city, strings.Join(cityNames(), ", "))
	}

	cacheKey := fmt.Sprintf("weather:%s:%d", key, days)
	if cached, ok := a.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	fc, err := a.client.Forecast(ctx, c.Lat, c.Lon, days)
	if err != nil {
		slog.Error("forecast fetch failed", "city", city, "error", err)
		return nil, a2a.AgentErrorf("Failed to fetch weather: %v", err)
	}

	n := days
	if len(fc.Daily.Time) < n {
		n = len(fc.Daily.Time)
	}
	forecasts := make([]DayForecast, 0, n)
	for i := 0; i < n; i++ {
		condition, ok := conditions[fc.Daily.WeatherCode[i]]
		if !ok {
			condition = "unknown"
		}
		forecasts = append(forecasts, DayForecast{
			Date:              fc.Daily.Time[i],
			TempMax:           fc.Daily.TempMax[i],
			TempMin:           fc.Daily.TempMin[i],
			Condition:         condition,
			PrecipitationProb: fc.Daily.PrecipitationMax[i],
			WindSpeed:         fc.Daily.WindSpeedMax[i],
		})
	}

	result := Result{
		City:      city,
		Forecasts: forecasts,
		Source:    "Open-Meteo API",
		Timestamp: time.Now().Format(time.RFC3339),
	}
	a.cachePut(ctx, cacheKey, result)
	return result, nil
}

func (a *Agent) cacheGet(ctx context.Context, key string) (*Result, bool) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return nil, false
	}
	data, ok, err := a.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}
	return &r, true
}

func (a *Agent) cachePut(ctx context.Context, key string, r Result) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.cacheTTL); err != nil {
		slog.Debug("forecast cache set failed", "key", key, "error", err)
	}
}

func cityNames() []string {
	names := make([]string, 0, len(cityCoords))
	for name := range cityCoords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
