package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if len(cfg.Feeds) == 0 {
		return fmt.Errorf("%w", ErrNoFeedsConfigured)
	}

	seen := make(map[string]bool, len(cfg.Feeds))
	for i := range cfg.Feeds {
		feed := &cfg.Feeds[i]
		if feed.Name == "" {
			return fmt.Errorf("feed %d: %w", i, ErrFeedNameRequired)
		}
		if seen[feed.Name] {
			return fmt.Errorf("feed %d: %w: %s", i, ErrDuplicateFeedName, feed.Name)
		}
		seen[feed.Name] = true

		if err := validateFeedConfig(feed); err != nil {
			return fmt.Errorf("feed %s: %w", feed.Name, err)
		}
	}

	if _, err := cron.ParseStandard(cfg.Update.Schedule); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, cfg.Update.Schedule, err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateFeedConfig(cfg *FeedConfig) error {
	switch strings.ToLower(cfg.Type) {
	case "":
		return fmt.Errorf("%w", ErrFeedTypeRequired)

	case FeedTypeMedianizer:
		mode := strings.ToLower(cfg.Mode)
		if mode != "median" && mode != "mean" && mode != "average" {
			return fmt.Errorf("%w: %s (must be 'median' or 'mean')", ErrInvalidAggregateMode, cfg.Mode)
		}
		if len(cfg.Feeds) == 0 {
			return fmt.Errorf("%w", ErrNoChildFeeds)
		}
		for i := range cfg.Feeds {
			if err := validateFeedConfig(&cfg.Feeds[i]); err != nil {
				return fmt.Errorf("child %d (%s): %w", i, cfg.Feeds[i].Name, err)
			}
		}
		return nil

	case FeedTypeStatic:
		if _, ok := cfg.GetDecimal("price"); !ok {
			return fmt.Errorf("%w", ErrPriceRequired)
		}

	case FeedTypeHTTP:
		if cfg.GetString("url", "") == "" {
			return fmt.Errorf("%w", ErrURLRequired)
		}
		if cfg.GetString("symbol", "") == "" {
			return fmt.Errorf("%w", ErrSymbolRequired)
		}

	default:
		return fmt.Errorf("%w: %s (must be one of: medianizer, static, http)", ErrUnknownFeedType, cfg.Type)
	}

	if cfg.Scale() < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, cfg.Scale())
	}
	if cfg.Lookback.Seconds() <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLookback, cfg.Lookback.ToDuration())
	}

	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
