package pricefeed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/medianizer-go/pkg/config"
	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
)

func TestCreate_MedianizerTree(t *testing.T) {
	cfg, err := config.Parse([]byte(`
feeds:
  - name: LUNC/USD
    type: medianizer
    mode: mean
    feeds:
      - { type: static, name: a, config: { price: "1" } }
      - { type: static, name: b, config: { price: "2" } }
      - type: medianizer
        feeds:
          - { type: static, name: c, config: { price: "3" } }
          - { type: static, name: d, config: { price: "5" } }
`))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	feed, err := pricefeed.Create(cfg.Feeds[0], logging.NewNoopLogger())
	require.NoError(t, err)

	m, ok := feed.(*pricefeed.Medianizer)
	require.True(t, ok)
	assert.Equal(t, pricefeed.ModeMean, m.Mode())
	require.Len(t, m.Feeds(), 3)
	assert.Equal(t, "LUNC/USD[2]", pricefeed.NameOf(m.Feeds()[2], ""))

	assert.False(t, m.CurrentPrice().Valid)
	require.NoError(t, m.Update(context.Background()))

	// Nested median of {3, 5} is 4; mean of {1, 2, 4} is 7/3 truncated at 18 decimals.
	price := m.CurrentPrice()
	require.True(t, price.Valid)
	assert.Equal(t, "2.333333333333333333", pricefeed.FromFixed(price.Decimal, 18).String())

	decimals, err := m.Decimals()
	require.NoError(t, err)
	assert.Equal(t, int32(18), decimals)
	assert.Equal(t, int64(3600), m.Lookback())
}

func TestCreate_ZeroDecimalsKept(t *testing.T) {
	cfg, err := config.Parse([]byte(`
feeds:
  - { type: static, name: whole, decimals: 0, config: { price: "7" } }
`))
	require.NoError(t, err)

	feed, err := pricefeed.Create(cfg.Feeds[0], nil)
	require.NoError(t, err)
	require.NoError(t, feed.Update(context.Background()))

	decimals, err := feed.Decimals()
	require.NoError(t, err)
	assert.Equal(t, int32(0), decimals)
	assert.Equal(t, "7", feed.CurrentPrice().Decimal.String())
}

func TestCreate_HTTPMaxFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	feed, err := pricefeed.Create(config.FeedConfig{
		Type: config.FeedTypeHTTP,
		Name: "flaky",
		Config: map[string]interface{}{
			"url":          server.URL,
			"symbol":       "LUNC",
			"max_failures": 1,
		},
	}, nil)
	require.NoError(t, err)

	httpFeed, ok := feed.(*pricefeed.HTTPFeed)
	require.True(t, ok)

	assert.Error(t, httpFeed.Update(context.Background()))
	assert.Equal(t, gobreaker.StateOpen, httpFeed.BreakerState())
}

func TestCreate_UnknownType(t *testing.T) {
	_, err := pricefeed.Create(config.FeedConfig{Type: "cex", Name: "x"}, nil)
	assert.ErrorIs(t, err, pricefeed.ErrUnknownFeedType)
}

func TestCreate_ChildErrorIsWrapped(t *testing.T) {
	_, err := pricefeed.Create(config.FeedConfig{
		Type: config.FeedTypeMedianizer,
		Name: "root",
		Feeds: []config.FeedConfig{
			{Type: config.FeedTypeStatic, Name: "no-price"},
		},
	}, nil)
	assert.ErrorIs(t, err, pricefeed.ErrInvalidFeedConfig)
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"http", "medianizer", "static"}, pricefeed.List())
}
