package pricefeed

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/metrics"
)

// sample is a fixed-point price observed at an epoch second.
type sample struct {
	ts    int64
	price decimal.Decimal
}

// BaseFeed holds the in-memory state shared by leaf feeds: the latest price,
// the last update time and a history bounded by the lookback window.
type BaseFeed struct {
	name     string
	decimals int32
	lookback int64
	logger   *logging.Logger
	now      func() time.Time

	mu         sync.RWMutex
	current    decimal.NullDecimal
	lastUpdate int64
	updated    bool
	history    []sample
}

// NewBaseFeed creates a base feed. lookback is in seconds.
func NewBaseFeed(name string, decimals int32, lookback int64, logger *logging.Logger) *BaseFeed {
	if logger == nil {
		logger = logging.Global()
	}
	return &BaseFeed{
		name:     name,
		decimals: decimals,
		lookback: lookback,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for update times and lookback checks.
func (b *BaseFeed) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Now returns the current time from the feed's clock.
func (b *BaseFeed) Now() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.now()
}

// Name returns the feed name
func (b *BaseFeed) Name() string {
	return b.name
}

// Logger returns the logger
func (b *BaseFeed) Logger() *logging.Logger {
	return b.logger
}

// Decimals returns the configured fixed-point scale.
func (b *BaseFeed) Decimals() (int32, error) {
	return b.decimals, nil
}

// Lookback returns the configured lookback in seconds.
func (b *BaseFeed) Lookback() int64 {
	return b.lookback
}

// CurrentPrice returns the most recently recorded price.
func (b *BaseFeed) CurrentPrice() decimal.NullDecimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// LastUpdateTime returns the time of the most recent Record call.
func (b *BaseFeed) LastUpdateTime() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate, b.updated
}

// Record stores price as observed at ts, makes it the current price and
// prunes history that fell out of the lookback window.
func (b *BaseFeed) Record(ts int64, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := sort.Search(len(b.history), func(i int) bool {
		return b.history[i].ts > ts
	})
	b.history = append(b.history, sample{})
	copy(b.history[idx+1:], b.history[idx:])
	b.history[idx] = sample{ts: ts, price: price}

	if !b.updated || ts >= b.lastUpdate {
		b.current = decimal.NewNullDecimal(price)
		b.lastUpdate = ts
	}
	b.updated = true

	b.pruneLocked(b.now().Unix())
	metrics.RecordFeedLastUpdate(b.name, b.lastUpdate)
}

// pruneLocked drops samples older than the lookback window, always keeping
// the newest one.
func (b *BaseFeed) pruneLocked(now int64) {
	cutoff := now - b.lookback
	drop := sort.Search(len(b.history), func(i int) bool {
		return b.history[i].ts >= cutoff
	})
	if drop >= len(b.history) {
		drop = len(b.history) - 1
	}
	if drop > 0 {
		b.history = append(b.history[:0], b.history[drop:]...)
	}
}

// HistoricalPrice returns the latest recorded price at or before ts. A feed
// that has never been updated returns no price and no error.
func (b *BaseFeed) HistoricalPrice(ts int64) (decimal.NullDecimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.updated {
		return decimal.NullDecimal{}, nil
	}
	if err := b.checkLookbackLocked(ts); err != nil {
		return decimal.NullDecimal{}, err
	}

	idx := sort.Search(len(b.history), func(i int) bool {
		return b.history[i].ts > ts
	}) - 1
	if idx < 0 {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s at %d", ErrNoHistoryForTimestamp, b.name, ts)
	}
	return decimal.NewNullDecimal(b.history[idx].price), nil
}

func (b *BaseFeed) checkLookbackLocked(ts int64) error {
	if oldest := b.now().Unix() - b.lookback; ts < oldest {
		return fmt.Errorf("%w: %s at %d (oldest %d)", ErrTimestampOutsideLookback, b.name, ts, oldest)
	}
	return nil
}

// HistorySize returns the number of retained samples.
func (b *BaseFeed) HistorySize() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.history)
}
