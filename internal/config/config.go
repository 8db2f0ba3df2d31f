// Package config provides hierarchical configuration loading for AgentPool.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the agent pool process.
type Config struct {
	Server    Server    `yaml:"server"`
	Pool      Pool      `yaml:"pool"`
	Upstream  Upstream  `yaml:"upstream"`
	Cache     Cache     `yaml:"cache"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	HITL      HITL      `yaml:"hitl"`
	NATS      NATS      `yaml:"nats"`
	Telemetry Telemetry `yaml:"telemetry"`
	Logging   Logging   `yaml:"logging"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Pool holds agent registry configuration.
type Pool struct {
	ConfigPath string `yaml:"config_path"` // JSON agent listing, optional
	BaseURL    string `yaml:"base_url"`    // external base URL used in agent cards
}

// Upstream holds outbound API configuration for the bundled agents.
type Upstream struct {
	WeatherURL  string        `yaml:"weather_url"`
	CurrencyURL string        `yaml:"currency_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds shared L1 cache configuration.
type Cache struct {
	MaxSizeMB  int64         `yaml:"max_size_mb"`
	RateTTL    time.Duration `yaml:"rate_ttl"`    // exchange-rate cache TTL
	WeatherTTL time.Duration `yaml:"weather_ttl"` // forecast cache TTL
}

// Breaker holds circuit breaker configuration for outbound calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds per-IP rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// HITL holds approval lifecycle configuration.
type HITL struct {
	TTL           time.Duration `yaml:"ttl"`            // pending approval time-to-live
	SweepInterval time.Duration `yaml:"sweep_interval"` // background expiry sweep
}

// NATS holds the optional event broker configuration. Empty URL disables it.
type NATS struct {
	URL string `yaml:"url"`
}

// Telemetry holds OpenTelemetry export configuration. Empty endpoint disables it.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8000",
			CORSOrigin: "http://localhost:3000",
		},
		Pool: Pool{
			ConfigPath: "config/agents.json",
			BaseURL:    "http://localhost:8000",
		},
		Upstream: Upstream{
			WeatherURL:  "https://api.open-meteo.com/v1/forecast",
			CurrencyURL: "https://api.exchangerate-api.com/v4/latest",
			Timeout:     10 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB:  64,
			RateTTL:    5 * time.Minute,
			WeatherTTL: 10 * time.Minute,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		HITL: HITL{
			TTL:           10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "agentpool",
		},
	}
}
