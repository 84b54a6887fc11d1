package pricefeed

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingHistoricalPrice indicates that a feed returned no historical price.
	ErrMissingHistoricalPrice = errors.New("Missing historical price")
	// ErrDecimalsMismatch indicates that child feeds disagree on decimals.
	ErrDecimalsMismatch = errors.New("price feed decimals mismatch")
	// ErrNoPriceFeeds indicates that a medianizer was built without children.
	ErrNoPriceFeeds = errors.New("no price feeds provided")
	// ErrUnknownMode indicates that the aggregation mode is unknown.
	ErrUnknownMode = errors.New("unknown aggregation mode")
	// ErrUnknownFeedType indicates that no factory is registered for a feed type.
	ErrUnknownFeedType = errors.New("unknown feed type")
	// ErrUpdateFailed indicates that one or more feeds failed to update.
	ErrUpdateFailed = errors.New("price feed update failed")
	// ErrNoPriceForSymbol indicates that the upstream response lacked the configured symbol.
	ErrNoPriceForSymbol = errors.New("no price for symbol")
	// ErrNoHistoryForTimestamp indicates that no sample exists at or before the timestamp.
	ErrNoHistoryForTimestamp = errors.New("no price history for timestamp")
	// ErrTimestampOutsideLookback indicates that the timestamp is older than the lookback window.
	ErrTimestampOutsideLookback = errors.New("timestamp outside lookback window")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidFeedConfig indicates an invalid feed configuration.
	ErrInvalidFeedConfig = errors.New("invalid feed configuration")
)

// HistoricalPriceError collects one error per child feed that could not
// answer a historical price query, in child order.
type HistoricalPriceError struct {
	Timestamp int64
	Errors    []error
}

func (e *HistoricalPriceError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("historical price at %d unavailable from %d feed(s): %s",
		e.Timestamp, len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the per-feed causes to errors.Is and errors.As.
func (e *HistoricalPriceError) Unwrap() []error {
	return e.Errors
}

// Len returns the number of failing feeds.
func (e *HistoricalPriceError) Len() int {
	return len(e.Errors)
}

// DecimalsMismatchError reports the first child whose decimals differ from
// the first child's.
type DecimalsMismatchError struct {
	Index    int
	Feed     string
	Expected int32
	Got      int32
}

func (e *DecimalsMismatchError) Error() string {
	return fmt.Sprintf("%s: feed %d (%s) reports %d decimals, expected %d",
		ErrDecimalsMismatch, e.Index, e.Feed, e.Got, e.Expected)
}

// Is matches ErrDecimalsMismatch.
func (e *DecimalsMismatchError) Is(target error) bool {
	return target == ErrDecimalsMismatch
}

// FeedError attributes an error to a child feed.
type FeedError struct {
	Index int
	Feed  string
	Err   error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %d (%s): %v", e.Index, e.Feed, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// UpdateError collects the failures of an Update fan-out, in child order.
type UpdateError struct {
	Errors []*FeedError
}

func (e *UpdateError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s: %s", ErrUpdateFailed, strings.Join(msgs, "; "))
}

// Unwrap exposes the per-feed causes to errors.Is and errors.As.
func (e *UpdateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors)+1)
	errs = append(errs, ErrUpdateFailed)
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}
