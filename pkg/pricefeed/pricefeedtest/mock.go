// Package pricefeedtest provides a configurable in-memory PriceFeed for tests.
package pricefeedtest

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
)

// ErrExpected is returned by HistoricalPrice after SetHistoricalPriceReturnError.
var ErrExpected = errors.New("PriceFeedMock expected error thrown")

const (
	// DefaultDecimals is the scale reported when none is configured.
	DefaultDecimals = 18
	// DefaultLookback is the lookback reported when none is configured.
	DefaultLookback = 3600
)

// Mock is a PriceFeed whose answers are set directly. Nil pointers model a
// feed that has no data.
type Mock struct {
	mu sync.Mutex

	name            string
	currentPrice    *decimal.Decimal
	historicalPrice *decimal.Decimal
	lastUpdateTime  *int64
	decimals        int32
	lookback        int64

	historicalErr error
	updateErr     error
	updateCalled  int
}

var _ pricefeed.PriceFeed = (*Mock)(nil)

// New returns a mock with 18 decimals and a 3600 second lookback.
func New(current, historical *decimal.Decimal, lastUpdate *int64) *Mock {
	return &Mock{
		currentPrice:    current,
		historicalPrice: historical,
		lastUpdateTime:  lastUpdate,
		decimals:        DefaultDecimals,
		lookback:        DefaultLookback,
	}
}

// Empty returns a mock that reports no data at all.
func Empty() *Mock {
	return New(nil, nil, nil)
}

// Wei returns whole * 10^18 as a pointer, the usual fixed-point test value.
func Wei(whole string) *decimal.Decimal {
	d := pricefeed.ToFixed(decimal.RequireFromString(whole), DefaultDecimals)
	return &d
}

// Time returns a pointer to ts.
func Time(ts int64) *int64 {
	return &ts
}

// WithName sets the name reported through pricefeed.Named.
func (m *Mock) WithName(name string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithDecimals sets the reported decimals.
func (m *Mock) WithDecimals(decimals int32) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decimals = decimals
	return m
}

// WithLookback sets the reported lookback.
func (m *Mock) WithLookback(lookback int64) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookback = lookback
	return m
}

// SetHistoricalPriceReturnError makes HistoricalPrice fail with ErrExpected.
func (m *Mock) SetHistoricalPriceReturnError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historicalErr = ErrExpected
}

// SetUpdateError makes Update fail with err.
func (m *Mock) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr = err
}

// SetCurrentPrice replaces the current price.
func (m *Mock) SetCurrentPrice(price *decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentPrice = price
}

// UpdateCalled returns how many times Update ran.
func (m *Mock) UpdateCalled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCalled
}

// Name implements pricefeed.Named.
func (m *Mock) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

func (m *Mock) Update(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalled++
	return m.updateErr
}

func (m *Mock) CurrentPrice() decimal.NullDecimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentPrice == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*m.currentPrice)
}

func (m *Mock) HistoricalPrice(_ int64) (decimal.NullDecimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historicalErr != nil {
		return decimal.NullDecimal{}, m.historicalErr
	}
	if m.historicalPrice == nil {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(*m.historicalPrice), nil
}

func (m *Mock) LastUpdateTime() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastUpdateTime == nil {
		return 0, false
	}
	return *m.lastUpdateTime, true
}

func (m *Mock) Decimals() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decimals, nil
}

func (m *Mock) Lookback() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookback
}
