package tracker

import (
	"fmt"
	"time"

	"github.com/relaymon/relaymon/internal/errors"
)

// Config tunes the polling policy. The core algorithm (bounded retry,
// advance, reset) is fixed; these knobs only move its thresholds.
type Config struct {
	// ResolverOrder overrides the platform default resolver order.
	// Empty means use the default for the current platform.
	ResolverOrder []string

	// MinInterval is the starting poll interval and its floor.
	MinInterval time.Duration

	// MaxInterval caps adaptive interval growth.
	MaxInterval time.Duration

	// RetryLimit is how many consecutive query failures one resolver may
	// accumulate before the selector advances past it.
	RetryLimit int

	// SampleWindow is the longest history span the store must cover.
	SampleWindow time.Duration

	// ConnectionCache is how long an on-demand connection set stays fresh.
	ConnectionCache time.Duration

	// QueryTimeout bounds every individual resolver call.
	QueryTimeout time.Duration

	// DegradedRetest is how often a degraded capability re-probes
	// resolver availability.
	DegradedRetest time.Duration
}

// DefaultConfig returns the stock polling policy.
func DefaultConfig() Config {
	return Config{
		MinInterval:     time.Second,
		MaxInterval:     30 * time.Second,
		RetryLimit:      3,
		SampleWindow:    10 * time.Minute,
		ConnectionCache: 5 * time.Second,
		QueryTimeout:    5 * time.Second,
		DegradedRetest:  30 * time.Second,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinInterval == 0 {
		c.MinInterval = def.MinInterval
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = def.MaxInterval
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = def.RetryLimit
	}
	if c.SampleWindow == 0 {
		c.SampleWindow = def.SampleWindow
	}
	if c.ConnectionCache == 0 {
		c.ConnectionCache = def.ConnectionCache
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = def.QueryTimeout
	}
	if c.DegradedRetest == 0 {
		c.DegradedRetest = def.DegradedRetest
	}
	return c
}

// Validate checks the polling policy for contradictions.
func (c Config) Validate() error {
	if c.MinInterval <= 0 {
		return errors.New(errors.ErrConfig,
			"tracker min_interval must be positive",
			"Set tracker.min_interval to a duration like 1s")
	}
	if c.MaxInterval < c.MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("tracker max_interval %s is below min_interval %s", c.MaxInterval, c.MinInterval),
			"Raise tracker.max_interval or lower tracker.min_interval")
	}
	if c.RetryLimit < 1 {
		return errors.New(errors.ErrConfig,
			"tracker retry_limit must be at least 1",
			"Set tracker.retry_limit to 3 (the default) or higher")
	}
	return nil
}

// storeCapacity sizes the sample ring to cover the configured window at the
// fastest poll rate, bounded so a misconfigured window cannot balloon memory.
func (c Config) storeCapacity() int {
	const maxCapacity = 4096

	capacity := int(c.SampleWindow/c.MinInterval) + 1
	if capacity < 2 {
		capacity = 2
	}
	if capacity > maxCapacity {
		capacity = maxCapacity
	}
	return capacity
}
