package pricefeed

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/medianizer-go/pkg/logging"
)

// StaticFeed reports a fixed price. It is useful for pinning a reference
// value inside a medianizer and for dry runs.
type StaticFeed struct {
	*BaseFeed
	price decimal.Decimal
}

var _ PriceFeed = (*StaticFeed)(nil)

// NewStaticFeed creates a static feed for a human readable price; it is
// scaled to fixed point using decimals.
func NewStaticFeed(name string, price decimal.Decimal, decimals int32, lookback int64, logger *logging.Logger) *StaticFeed {
	return &StaticFeed{
		BaseFeed: NewBaseFeed(name, decimals, lookback, logger),
		price:    ToFixed(price, decimals),
	}
}

// Update marks the fixed price as observed now.
func (s *StaticFeed) Update(_ context.Context) error {
	s.Record(s.Now().Unix(), s.price)
	return nil
}

// HistoricalPrice returns the fixed price for any timestamp inside the
// lookback window once the feed has been updated.
func (s *StaticFeed) HistoricalPrice(ts int64) (decimal.NullDecimal, error) {
	if _, ok := s.LastUpdateTime(); !ok {
		return decimal.NullDecimal{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkLookbackLocked(ts); err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(s.price), nil
}
