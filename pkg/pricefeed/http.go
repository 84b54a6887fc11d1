package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/version"
)

// HTTPFeedConfig configures an HTTPFeed.
type HTTPFeedConfig struct {
	Name     string
	BaseURL  string
	Symbol   string
	Decimals int32
	Lookback int64
	Timeout  time.Duration
	// MaxFailures is the number of consecutive failures that opens the
	// circuit breaker. Defaults to 3.
	MaxFailures int
}

// upstreamPrice is one entry of a price server's /v1/prices response.
type upstreamPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// HTTPFeed reads one symbol from a price server's /v1/prices endpoint each
// time Update is called. Requests go through a circuit breaker so a failing
// upstream is not hammered by every update cycle.
type HTTPFeed struct {
	*BaseFeed
	url     string
	symbol  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ PriceFeed = (*HTTPFeed)(nil)

// NewHTTPFeed creates an HTTP feed.
func NewHTTPFeed(cfg HTTPFeedConfig, logger *logging.Logger) (*HTTPFeed, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidFeedConfig, cfg.Name)
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: %s: symbol is required", ErrInvalidFeedConfig, cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	maxFailures := uint32(cfg.MaxFailures) // #nosec G115 -- checked positive above

	base := NewBaseFeed(cfg.Name, cfg.Decimals, cfg.Lookback, logger)
	f := &HTTPFeed{
		BaseFeed: base,
		url:      strings.TrimRight(cfg.BaseURL, "/") + "/v1/prices",
		symbol:   cfg.Symbol,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			base.Logger().Info("Circuit breaker state changed",
				"feed", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	return f, nil
}

// Update fetches the current price and records it.
func (f *HTTPFeed) Update(ctx context.Context) error {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", f.Name(), err)
	}

	price := ToFixed(result.(decimal.Decimal), f.decimals)
	f.Record(f.Now().Unix(), price)
	f.Logger().Debug("Price feed updated", "feed", f.Name(), "symbol", f.symbol, "price", price.String())
	return nil
}

func (f *HTTPFeed) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var prices []upstreamPrice
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, p := range prices {
		if strings.EqualFold(p.Symbol, f.symbol) {
			return p.Price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPriceForSymbol, f.symbol)
}

// BreakerState returns the circuit breaker's state.
func (f *HTTPFeed) BreakerState() gobreaker.State {
	return f.breaker.State()
}
