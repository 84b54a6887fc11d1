package pricefeed

import (
	"strconv"
	"time"
)

// Snapshot is a point-in-time view of a feed's query surface.
type Snapshot struct {
	Name           string    `json:"name"`
	Price          *string   `json:"price"`           // fixed-point integer
	Value          *string   `json:"value,omitempty"` // price scaled by decimals
	LastUpdateTime *int64    `json:"last_update_time"`
	Lookback       int64     `json:"lookback"`
	Decimals       *int32    `json:"decimals,omitempty"`
	DecimalsError  string    `json:"decimals_error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// TakeSnapshot queries every read method of feed once.
func TakeSnapshot(name string, feed PriceFeed, now time.Time) Snapshot {
	snap := Snapshot{
		Name:      name,
		Lookback:  feed.Lookback(),
		Timestamp: now.UTC(),
	}

	decimals, decErr := feed.Decimals()
	if decErr != nil {
		snap.DecimalsError = decErr.Error()
	} else {
		snap.Decimals = &decimals
	}

	if price := feed.CurrentPrice(); price.Valid {
		raw := price.Decimal.String()
		snap.Price = &raw
		if decErr == nil {
			value := FromFixed(price.Decimal, decimals).String()
			snap.Value = &value
		}
	}

	if ts, ok := feed.LastUpdateTime(); ok {
		snap.LastUpdateTime = &ts
	}

	return snap
}

// TakeSnapshots snapshots every feed in order.
func TakeSnapshots(feeds []PriceFeed, now time.Time) []Snapshot {
	snaps := make([]Snapshot, 0, len(feeds))
	for i, feed := range feeds {
		snaps = append(snaps, TakeSnapshot(NameOf(feed, "feed["+strconv.Itoa(i)+"]"), feed, now))
	}
	return snaps
}
