package pricefeed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects how a Medianizer reduces its children's prices.
type Mode string

const (
	// ModeMedian takes the middle value, averaging the two middle values for even counts.
	ModeMedian Mode = "median"
	// ModeMean takes the arithmetic mean.
	ModeMean Mode = "mean"
)

// ParseMode parses a mode name. The empty string selects ModeMedian; "average"
// is accepted as an alias of ModeMean.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeMedian):
		return ModeMedian, nil
	case string(ModeMean), "average":
		return ModeMean, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: median, mean)", ErrUnknownMode, s)
	}
}

// Reduce combines values according to mode. values must not be empty.
func (m Mode) Reduce(values []decimal.Decimal) decimal.Decimal {
	if m == ModeMean {
		return mean(values)
	}
	return median(values)
}

// median computes the median of values without modifying the slice. Even
// counts use the integer midpoint of the two middle values.
func median(values []decimal.Decimal) decimal.Decimal {
	n := len(values)
	if n == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	if n%2 == 0 {
		return intDiv(sorted[n/2-1].Add(sorted[n/2]), 2)
	}
	return sorted[n/2]
}

// mean computes sum/n with integer division.
func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return intDiv(sum, int64(len(values)))
}

// intDiv divides exactly, keeping only the integral quotient.
func intDiv(d decimal.Decimal, n int64) decimal.Decimal {
	q, _ := d.QuoRem(decimal.NewFromInt(n), 0)
	return q
}
