package resilience

import "time"

// Config carries the retry budget and circuit-breaker thresholds shared by
// every backend call site. Zero values fall back to the defaults below, so
// callers only spell out the knobs they actually tune.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

const (
	defaultRetryAttempts  = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 400 * time.Millisecond
	defaultMultiplier     = 2.0
	defaultMinRequests    = 10
	defaultFailureRatio   = 0.5
	defaultOpenTimeout    = 30 * time.Second
	defaultHalfOpenBudget = 2
)

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    defaultRetryAttempts,
		RetryInitialBackoff: defaultInitialBackoff,
		RetryMaxBackoff:     defaultMaxBackoff,
		RetryMultiplier:     defaultMultiplier,

		BreakerEnabled:          true,
		BreakerMinRequests:      defaultMinRequests,
		BreakerFailureRatio:     defaultFailureRatio,
		BreakerOpenTimeout:      defaultOpenTimeout,
		BreakerHalfOpenMaxCalls: defaultHalfOpenBudget,
	}
}

// withDefaults fills unset or nonsensical fields. The max backoff is raised
// to the initial backoff when the two are inverted.
func (c Config) withDefaults() Config {
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = defaultRetryAttempts
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = defaultInitialBackoff
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = defaultMaxBackoff
	}
	if c.RetryMaxBackoff < c.RetryInitialBackoff {
		c.RetryMaxBackoff = c.RetryInitialBackoff
	}
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = defaultMultiplier
	}

	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = defaultMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = defaultFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = defaultOpenTimeout
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = defaultHalfOpenBudget
	}
	return c
}
