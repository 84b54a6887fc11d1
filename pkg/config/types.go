package config

import "time"

// Feed types understood by the feed factory.
const (
	FeedTypeMedianizer = "medianizer"
	FeedTypeStatic     = "static"
	FeedTypeHTTP       = "http"
)

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Update  UpdateConfig  `yaml:"update"`
	Feeds   []FeedConfig  `yaml:"feeds"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the API server
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures the WebSocket server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// UpdateConfig configures when the top-level feeds are updated
type UpdateConfig struct {
	Schedule string   `yaml:"schedule"` // cron spec, e.g. "@every 30s"
	Timeout  Duration `yaml:"timeout"`  // per-cycle deadline
}

// FeedConfig configures a price feed. Medianizers list their children in
// Feeds; leaf feeds put type-specific settings in Config.
type FeedConfig struct {
	Type     string                 `yaml:"type"`
	Name     string                 `yaml:"name"`
	Mode     string                 `yaml:"mode"`     // medianizer: median (default) or mean
	Feeds    []FeedConfig           `yaml:"feeds"`    // medianizer children
	Decimals *int32                 `yaml:"decimals"` // leaf fixed-point scale, nil until defaulted
	Lookback Duration               `yaml:"lookback"` // leaf history depth
	Config   map[string]interface{} `yaml:"config"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Scale returns the configured fixed-point scale, or DefaultDecimals when
// the key was absent.
func (fc *FeedConfig) Scale() int32 {
	if fc.Decimals == nil {
		return DefaultDecimals
	}
	return *fc.Decimals
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// Seconds returns the duration in whole seconds.
func (d Duration) Seconds() int64 {
	return int64(time.Duration(d) / time.Second)
}
