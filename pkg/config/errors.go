// Package config provides configuration loading and validation for the medianizer service.
package config

import "errors"

var (
	// ErrNoFeedsConfigured indicates that no price feeds are configured.
	ErrNoFeedsConfigured = errors.New("at least one price feed must be configured")
	// ErrFeedNameRequired indicates that a top-level feed has no name.
	ErrFeedNameRequired = errors.New("feed name is required")
	// ErrDuplicateFeedName indicates that two top-level feeds share a name.
	ErrDuplicateFeedName = errors.New("duplicate feed name")
	// ErrFeedTypeRequired indicates that feed type is required.
	ErrFeedTypeRequired = errors.New("feed type is required")
	// ErrUnknownFeedType indicates that the feed type is unknown.
	ErrUnknownFeedType = errors.New("unknown feed type")
	// ErrInvalidAggregateMode indicates that the medianizer mode is invalid.
	ErrInvalidAggregateMode = errors.New("invalid mode")
	// ErrNoChildFeeds indicates that a medianizer has no children.
	ErrNoChildFeeds = errors.New("medianizer must have at least one child feed")
	// ErrInvalidDecimals indicates a negative decimals value.
	ErrInvalidDecimals = errors.New("decimals must be >= 0")
	// ErrInvalidLookback indicates a non-positive lookback.
	ErrInvalidLookback = errors.New("lookback must be > 0")
	// ErrPriceRequired indicates that a static feed has no valid price.
	ErrPriceRequired = errors.New("static feed requires a valid price")
	// ErrURLRequired indicates that an http feed has no url.
	ErrURLRequired = errors.New("http feed requires url")
	// ErrSymbolRequired indicates that an http feed has no symbol.
	ErrSymbolRequired = errors.New("http feed requires symbol")
	// ErrInvalidSchedule indicates that the update schedule cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid update schedule")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
