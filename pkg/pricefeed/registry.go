package pricefeed

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/StrathCole/medianizer-go/pkg/config"
	"github.com/StrathCole/medianizer-go/pkg/logging"
)

// Factory builds a feed from its configuration.
type Factory func(cfg config.FeedConfig, logger *logging.Logger) (PriceFeed, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

func init() {
	Register(config.FeedTypeMedianizer, newMedianizerFromConfig)
	Register(config.FeedTypeStatic, newStaticFromConfig)
	Register(config.FeedTypeHTTP, newHTTPFromConfig)
}

// Register adds a feed factory to the registry
func Register(feedType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(feedType)] = factory
}

// Create builds a feed, recursing into medianizer children.
func Create(cfg config.FeedConfig, logger *logging.Logger) (PriceFeed, error) {
	mu.RLock()
	factory, ok := registry[strings.ToLower(cfg.Type)]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeedType, cfg.Type)
	}
	return factory(cfg, logger)
}

// List returns all registered feed types
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func newMedianizerFromConfig(cfg config.FeedConfig, logger *logging.Logger) (PriceFeed, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	children := make([]PriceFeed, 0, len(cfg.Feeds))
	for i, childCfg := range cfg.Feeds {
		if childCfg.Name == "" {
			childCfg.Name = cfg.Name + "[" + strconv.Itoa(i) + "]"
		}
		child, err := Create(childCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: child %d: %w", cfg.Name, i, err)
		}
		children = append(children, child)
	}

	return NewMedianizer(cfg.Name, children, mode, logger)
}

func newStaticFromConfig(cfg config.FeedConfig, logger *logging.Logger) (PriceFeed, error) {
	price, ok := cfg.GetDecimal("price")
	if !ok {
		return nil, fmt.Errorf("%w: %s: price is required", ErrInvalidFeedConfig, cfg.Name)
	}
	return NewStaticFeed(cfg.Name, price, cfg.Scale(), cfg.Lookback.Seconds(), logger), nil
}

func newHTTPFromConfig(cfg config.FeedConfig, logger *logging.Logger) (PriceFeed, error) {
	return NewHTTPFeed(HTTPFeedConfig{
		Name:        cfg.Name,
		BaseURL:     cfg.GetString("url", ""),
		Symbol:      cfg.GetString("symbol", ""),
		Decimals:    cfg.Scale(),
		Lookback:    cfg.Lookback.Seconds(),
		Timeout:     cfg.GetDuration("timeout", 5*time.Second),
		MaxFailures: cfg.GetInt("max_failures", 3),
	}, logger)
}
