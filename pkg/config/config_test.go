package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
update:
  schedule: "@every 15s"
  timeout: 5s
metrics:
  enabled: true
logging:
  level: debug
feeds:
  - name: LUNC/USD
    type: medianizer
    mode: mean
    feeds:
      - type: static
        name: pinned
        config:
          price: "0.00012"
      - type: http
        name: oracle-a
        decimals: 18
        lookback: 30m
        config:
          url: ${ORACLE_A_URL}
          symbol: LUNC/USD
          timeout: 2s
      - type: medianizer
        name: nested
        feeds:
          - type: static
            name: nested-pinned
            config:
              price: 0.00013
`

func TestParse_Defaults(t *testing.T) {
	t.Setenv("ORACLE_A_URL", "http://oracle-a:8080")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTP.Addr)
	assert.Equal(t, "@every 15s", cfg.Update.Schedule)
	assert.Equal(t, 5*time.Second, cfg.Update.Timeout.ToDuration())
	assert.Equal(t, ":9091", cfg.Metrics.Addr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.Len(t, cfg.Feeds, 1)
	root := cfg.Feeds[0]
	assert.Equal(t, "mean", root.Mode)
	require.Len(t, root.Feeds, 3)

	pinned := root.Feeds[0]
	require.NotNil(t, pinned.Decimals)
	assert.Equal(t, int32(DefaultDecimals), *pinned.Decimals)
	assert.Equal(t, int64(3600), pinned.Lookback.Seconds())
	price, ok := pinned.GetDecimal("price")
	require.True(t, ok)
	assert.Equal(t, "0.00012", price.String())

	oracle := root.Feeds[1]
	assert.Equal(t, "http://oracle-a:8080", oracle.GetString("url", ""))
	assert.Equal(t, 2*time.Second, oracle.GetDuration("timeout", time.Second))
	assert.Equal(t, int64(1800), oracle.Lookback.Seconds())

	nested := root.Feeds[2]
	assert.Equal(t, "median", nested.Mode)
	assert.Equal(t, int32(DefaultDecimals), nested.Feeds[0].Scale())

	require.NoError(t, Validate(cfg))
}

func TestParse_ExplicitZeroDecimals(t *testing.T) {
	cfg, err := Parse([]byte(`
feeds:
  - name: whole-units
    type: static
    decimals: 0
    config:
      price: "7"
  - name: defaulted
    type: static
    config:
      price: "7"
`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	require.NotNil(t, cfg.Feeds[0].Decimals)
	assert.Equal(t, int32(0), *cfg.Feeds[0].Decimals)
	assert.Equal(t, int32(0), cfg.Feeds[0].Scale())
	assert.Equal(t, int32(DefaultDecimals), cfg.Feeds[1].Scale())
}

func TestParse_MedianizerTypeIsCaseInsensitive(t *testing.T) {
	cfg, err := Parse([]byte(`
feeds:
  - name: A
    type: Medianizer
    feeds:
      - type: static
        name: child
        config:
          price: "1"
`))
	require.NoError(t, err)

	root := cfg.Feeds[0]
	assert.Equal(t, "median", root.Mode)
	assert.Nil(t, root.Decimals)
	assert.Equal(t, int64(3600), root.Feeds[0].Lookback.Seconds())
	require.NoError(t, Validate(cfg))
}

func TestLoad_File(t *testing.T) {
	t.Setenv("ORACLE_A_URL", "http://localhost:1")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Feeds, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Parse([]byte(`
feeds:
  - name: A
    type: static
    config:
      price: "1"
`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	return cfg
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr error
	}{
		{
			name:    "no feeds",
			mutate:  func(cfg *Config) { cfg.Feeds = nil },
			wantErr: ErrNoFeedsConfigured,
		},
		{
			name:    "missing name",
			mutate:  func(cfg *Config) { cfg.Feeds[0].Name = "" },
			wantErr: ErrFeedNameRequired,
		},
		{
			name:    "duplicate name",
			mutate:  func(cfg *Config) { cfg.Feeds = append(cfg.Feeds, cfg.Feeds[0]) },
			wantErr: ErrDuplicateFeedName,
		},
		{
			name:    "missing type",
			mutate:  func(cfg *Config) { cfg.Feeds[0].Type = "" },
			wantErr: ErrFeedTypeRequired,
		},
		{
			name:    "unknown type",
			mutate:  func(cfg *Config) { cfg.Feeds[0].Type = "cex" },
			wantErr: ErrUnknownFeedType,
		},
		{
			name:    "bad price",
			mutate:  func(cfg *Config) { cfg.Feeds[0].Config["price"] = "abc" },
			wantErr: ErrPriceRequired,
		},
		{
			name: "negative decimals",
			mutate: func(cfg *Config) {
				negative := int32(-1)
				cfg.Feeds[0].Decimals = &negative
			},
			wantErr: ErrInvalidDecimals,
		},
		{
			name:    "zero lookback",
			mutate:  func(cfg *Config) { cfg.Feeds[0].Lookback = 0 },
			wantErr: ErrInvalidLookback,
		},
		{
			name: "http without url",
			mutate: func(cfg *Config) {
				cfg.Feeds[0].Type = FeedTypeHTTP
				cfg.Feeds[0].Config = map[string]interface{}{"symbol": "A/USD"}
			},
			wantErr: ErrURLRequired,
		},
		{
			name: "http without symbol",
			mutate: func(cfg *Config) {
				cfg.Feeds[0].Type = FeedTypeHTTP
				cfg.Feeds[0].Config = map[string]interface{}{"url": "http://x"}
			},
			wantErr: ErrSymbolRequired,
		},
		{
			name: "medianizer without children",
			mutate: func(cfg *Config) {
				cfg.Feeds[0] = FeedConfig{Type: FeedTypeMedianizer, Name: "M", Mode: "median"}
			},
			wantErr: ErrNoChildFeeds,
		},
		{
			name: "medianizer bad mode",
			mutate: func(cfg *Config) {
				child := cfg.Feeds[0]
				cfg.Feeds[0] = FeedConfig{Type: FeedTypeMedianizer, Name: "M", Mode: "tvwap", Feeds: []FeedConfig{child}}
			},
			wantErr: ErrInvalidAggregateMode,
		},
		{
			name: "invalid child",
			mutate: func(cfg *Config) {
				child := cfg.Feeds[0]
				child.Type = "bogus"
				cfg.Feeds[0] = FeedConfig{Type: FeedTypeMedianizer, Name: "M", Mode: "median", Feeds: []FeedConfig{child}}
			},
			wantErr: ErrUnknownFeedType,
		},
		{
			name:    "bad schedule",
			mutate:  func(cfg *Config) { cfg.Update.Schedule = "every now and then" },
			wantErr: ErrInvalidSchedule,
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
