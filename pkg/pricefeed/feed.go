// Package pricefeed defines the PriceFeed capability and the Medianizer that
// combines several feeds into one.
package pricefeed

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceFeed is a source of fixed-point prices. Prices are integral decimals
// scaled by 10^Decimals.
type PriceFeed interface {
	// Update refreshes the feed's in-memory state.
	Update(ctx context.Context) error

	// CurrentPrice returns the latest price. Valid is false when unknown.
	CurrentPrice() decimal.NullDecimal

	// HistoricalPrice returns the price at or before ts (epoch seconds).
	// An error means the feed cannot answer; an invalid value with a nil
	// error means the feed silently has nothing.
	HistoricalPrice(ts int64) (decimal.NullDecimal, error)

	// LastUpdateTime returns the epoch seconds of the last successful
	// update, or false if the feed was never updated.
	LastUpdateTime() (int64, bool)

	// Decimals returns the fixed-point scale of every price the feed reports.
	Decimals() (int32, error)

	// Lookback returns how many seconds of history the feed can answer for.
	Lookback() int64
}

// Named is implemented by feeds that carry a human readable name.
type Named interface {
	Name() string
}

// NameOf returns the feed's name, or fallback if it has none.
func NameOf(feed PriceFeed, fallback string) string {
	if n, ok := feed.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fallback
}

// ToFixed scales a human readable price to its fixed-point representation,
// truncating digits beyond decimals.
func ToFixed(price decimal.Decimal, decimals int32) decimal.Decimal {
	return price.Shift(decimals).Truncate(0)
}

// FromFixed converts a fixed-point price back to a human readable value.
func FromFixed(price decimal.Decimal, decimals int32) decimal.Decimal {
	return price.Shift(-decimals)
}
