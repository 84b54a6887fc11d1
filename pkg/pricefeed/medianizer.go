package pricefeed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/metrics"
)

// Medianizer combines several price feeds into one by median or mean. It
// holds no aggregate state: every query is recomputed from its children.
type Medianizer struct {
	name   string
	feeds  []PriceFeed
	mode   Mode
	logger *logging.Logger
}

// Ensure Medianizer implements PriceFeed so medianizers can be nested.
var _ PriceFeed = (*Medianizer)(nil)

// NewMedianizer creates a medianizer over feeds. The slice is copied.
func NewMedianizer(name string, feeds []PriceFeed, mode Mode, logger *logging.Logger) (*Medianizer, error) {
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPriceFeeds, name)
	}
	if mode == "" {
		mode = ModeMedian
	}
	if mode != ModeMedian && mode != ModeMean {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if logger == nil {
		logger = logging.Global()
	}

	owned := make([]PriceFeed, len(feeds))
	copy(owned, feeds)

	m := &Medianizer{
		name:   name,
		feeds:  owned,
		mode:   mode,
		logger: logger,
	}
	if shortest, diverged := m.lookbacks(); diverged {
		logger.Warn("Price feeds report different lookbacks, using the shortest",
			"medianizer", name,
			"lookback", shortest)
	}
	return m, nil
}

// Name returns the medianizer's name.
func (m *Medianizer) Name() string {
	return m.name
}

// Mode returns the reduction mode.
func (m *Medianizer) Mode() Mode {
	return m.mode
}

// Feeds returns a copy of the child feeds in order.
func (m *Medianizer) Feeds() []PriceFeed {
	feeds := make([]PriceFeed, len(m.feeds))
	copy(feeds, m.feeds)
	return feeds
}

// Update forwards the update to every child concurrently. Every child is
// attempted; failures are collected into an *UpdateError.
func (m *Medianizer) Update(ctx context.Context) error {
	errs := make([]error, len(m.feeds))

	var g errgroup.Group
	for i, feed := range m.feeds {
		g.Go(func() error {
			errs[i] = safeUpdate(ctx, feed)
			return nil
		})
	}
	_ = g.Wait()

	var failed []*FeedError
	for i, err := range errs {
		name := m.childName(i)
		metrics.RecordFeedUpdate(name, err == nil)
		if err == nil {
			continue
		}
		m.logger.Warn("Price feed update failed", "medianizer", m.name, "feed", name, "index", i, "error", err)
		failed = append(failed, &FeedError{Index: i, Feed: name, Err: err})
	}

	if len(failed) > 0 {
		return &UpdateError{Errors: failed}
	}
	return nil
}

// safeUpdate turns a panicking child into an error so siblings still complete.
func safeUpdate(ctx context.Context, feed PriceFeed) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrUpdateFailed, r)
		}
	}()
	return feed.Update(ctx)
}

// CurrentPrice reduces the children's current prices. If any child has no
// current price the result is invalid.
func (m *Medianizer) CurrentPrice() decimal.NullDecimal {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation(string(m.mode), time.Since(start))
	}()

	values := make([]decimal.Decimal, 0, len(m.feeds))
	for i, feed := range m.feeds {
		price := feed.CurrentPrice()
		if !price.Valid {
			m.logger.Debug("Missing current price", "medianizer", m.name, "feed", m.childName(i))
			metrics.RecordMissingData("current_price")
			return decimal.NullDecimal{}
		}
		values = append(values, price.Decimal)
	}

	return decimal.NewNullDecimal(m.mode.Reduce(values))
}

// HistoricalPrice reduces the children's prices at ts. Every child is
// queried; if any fails the result is a *HistoricalPriceError holding one
// error per failing child in order. A child that returns no price without an
// error contributes ErrMissingHistoricalPrice.
func (m *Medianizer) HistoricalPrice(ts int64) (decimal.NullDecimal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation(string(m.mode), time.Since(start))
	}()

	values := make([]decimal.Decimal, 0, len(m.feeds))
	var errs []error
	for i, feed := range m.feeds {
		price, err := feed.HistoricalPrice(ts)
		switch {
		case err != nil:
			errs = append(errs, err)
		case !price.Valid:
			errs = append(errs, ErrMissingHistoricalPrice)
		default:
			values = append(values, price.Decimal)
			continue
		}
		m.logger.Debug("Historical price unavailable",
			"medianizer", m.name,
			"feed", m.childName(i),
			"timestamp", ts,
			"error", errs[len(errs)-1])
	}

	if len(errs) > 0 {
		metrics.RecordHistoricalFailure()
		return decimal.NullDecimal{}, &HistoricalPriceError{Timestamp: ts, Errors: errs}
	}

	return decimal.NewNullDecimal(m.mode.Reduce(values)), nil
}

// LastUpdateTime returns the most recent child update time, or false if any
// child was never updated.
func (m *Medianizer) LastUpdateTime() (int64, bool) {
	var latest int64
	for i, feed := range m.feeds {
		ts, ok := feed.LastUpdateTime()
		if !ok {
			m.logger.Debug("Missing last update time", "medianizer", m.name, "feed", m.childName(i))
			metrics.RecordMissingData("last_update_time")
			return 0, false
		}
		if i == 0 || ts > latest {
			latest = ts
		}
	}
	return latest, true
}

// Lookback returns the shortest child lookback.
func (m *Medianizer) Lookback() int64 {
	shortest, _ := m.lookbacks()
	return shortest
}

// lookbacks returns the shortest child lookback and whether children differ.
func (m *Medianizer) lookbacks() (int64, bool) {
	var shortest int64
	diverged := false
	for i, feed := range m.feeds {
		lb := feed.Lookback()
		if i > 0 && lb != shortest {
			diverged = true
		}
		if i == 0 || lb < shortest {
			shortest = lb
		}
	}
	return shortest, diverged
}

// Decimals returns the decimals shared by every child. Children that
// disagree yield a *DecimalsMismatchError.
func (m *Medianizer) Decimals() (int32, error) {
	expected, err := m.feeds[0].Decimals()
	if err != nil {
		return 0, &FeedError{Index: 0, Feed: m.childName(0), Err: err}
	}

	for i := 1; i < len(m.feeds); i++ {
		got, err := m.feeds[i].Decimals()
		if err != nil {
			return 0, &FeedError{Index: i, Feed: m.childName(i), Err: err}
		}
		if got != expected {
			mismatch := &DecimalsMismatchError{
				Index:    i,
				Feed:     m.childName(i),
				Expected: expected,
				Got:      got,
			}
			m.logger.Error("Price feed decimals mismatch", "medianizer", m.name, "error", mismatch)
			metrics.RecordDecimalsMismatch()
			return 0, mismatch
		}
	}

	return expected, nil
}

func (m *Medianizer) childName(i int) string {
	return NameOf(m.feeds[i], m.name+"["+strconv.Itoa(i)+"]")
}
