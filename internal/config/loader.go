package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agentpool.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AGENTPOOL_PORT")
	setString(&cfg.Server.CORSOrigin, "AGENTPOOL_CORS_ORIGIN")
	setString(&cfg.Pool.ConfigPath, "AGENTPOOL_CONFIG_PATH")
	setString(&cfg.Pool.BaseURL, "AGENTPOOL_BASE_URL")
	setString(&cfg.Upstream.WeatherURL, "AGENTPOOL_WEATHER_URL")
	setString(&cfg.Upstream.CurrencyURL, "AGENTPOOL_CURRENCY_URL")
	setDuration(&cfg.Upstream.Timeout, "AGENTPOOL_UPSTREAM_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "AGENTPOOL_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.RateTTL, "AGENTPOOL_CACHE_RATE_TTL")
	setDuration(&cfg.Cache.WeatherTTL, "AGENTPOOL_CACHE_WEATHER_TTL")
	setInt(&cfg.Breaker.MaxFailures, "AGENTPOOL_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "AGENTPOOL_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "AGENTPOOL_RATE_RPS")
	setInt(&cfg.Rate.Burst, "AGENTPOOL_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "AGENTPOOL_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "AGENTPOOL_RATE_MAX_IDLE_TIME")
	setDuration(&cfg.HITL.TTL, "AGENTPOOL_HITL_TTL")
	setDuration(&cfg.HITL.SweepInterval, "AGENTPOOL_HITL_SWEEP_INTERVAL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "AGENTPOOL_OTLP_INSECURE")
	setString(&cfg.Logging.Level, "AGENTPOOL_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGENTPOOL_LOG_SERVICE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Pool.BaseURL == "" {
		return errors.New("pool.base_url is required")
	}
	if cfg.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be > 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.HITL.TTL <= 0 {
		return errors.New("hitl.ttl must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
