// Package config provides configuration loading and validation for the medianizer service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDecimals is the fixed-point scale used when a leaf feed sets none.
	DefaultDecimals = 18
	// DefaultLookback is the history depth used when a leaf feed sets none.
	DefaultLookback = Duration(time.Hour)
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration, expanding environment variables and
// applying defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.WebSocket.Enabled && cfg.Server.WebSocket.Addr == "" {
		cfg.Server.WebSocket.Addr = ":8081"
	}

	if cfg.Update.Schedule == "" {
		cfg.Update.Schedule = "@every 30s"
	}
	if cfg.Update.Timeout.ToDuration() == 0 {
		cfg.Update.Timeout = Duration(10 * time.Second)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for i := range cfg.Feeds {
		applyFeedDefaults(&cfg.Feeds[i])
	}
}

func applyFeedDefaults(fc *FeedConfig) {
	if strings.EqualFold(fc.Type, FeedTypeMedianizer) {
		if fc.Mode == "" {
			fc.Mode = "median"
		}
		for i := range fc.Feeds {
			applyFeedDefaults(&fc.Feeds[i])
		}
		return
	}

	if fc.Decimals == nil {
		decimals := int32(DefaultDecimals)
		fc.Decimals = &decimals
	}
	if fc.Lookback == 0 {
		fc.Lookback = DefaultLookback
	}
}

// GetString retrieves a string value from the feed configuration.
func (fc *FeedConfig) GetString(key, defaultValue string) string {
	if val, ok := fc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetInt retrieves an integer from feed config.
func (fc *FeedConfig) GetInt(key string, defaultValue int) int {
	if val, ok := fc.Config[key]; ok {
		if i, ok := val.(int); ok {
			return i
		}
	}
	return defaultValue
}

// GetDecimal retrieves a number from feed config. Strings are preferred so
// that no precision is lost in YAML parsing.
func (fc *FeedConfig) GetDecimal(key string) (decimal.Decimal, bool) {
	switch v := fc.Config[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case float64:
		return decimal.NewFromFloat(v), true
	default:
		return decimal.Zero, false
	}
}

// GetDuration retrieves a duration string (e.g. "5s") from feed config.
func (fc *FeedConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if s := fc.GetString(key, ""); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return defaultValue
}
