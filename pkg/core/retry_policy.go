package core

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how many drain rounds are spent on unprocessed items and
// how long to wait between them.
type RetryPolicy struct {
	// MaxRetries is the maximum number of drain rounds after the first one.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// InitialDelay is the base delay between rounds.
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`
	// MaxDelay caps the exponential backoff delay.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
	// BackoffFactor controls how quickly the delay grows between rounds.
	BackoffFactor float64 `json:"backoff_factor" yaml:"backoff_factor"`
	// Jitter adds randomness (as a percentage between 0 and 1) to each delay to avoid thundering herds.
	Jitter float64 `json:"jitter" yaml:"jitter"`
}

// DefaultRetryPolicy returns a conservative retry policy suitable for most batch operations.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.25,
	}
}

// Clone returns a deep copy of the policy so callers can modify it without affecting the original.
func (p *RetryPolicy) Clone() *RetryPolicy {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Delay returns the wait before the given retry round (1-based).
func (p *RetryPolicy) Delay(round int) time.Duration {
	if p == nil || p.InitialDelay <= 0 || round < 1 {
		return 0
	}

	delay := float64(p.InitialDelay)
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	for i := 1; i < round; i++ {
		delay *= factor
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
			break
		}
	}

	if p.Jitter > 0 {
		jitter := p.Jitter
		if jitter > 1 {
			jitter = 1
		}
		// spread evenly over [delay*(1-jitter), delay*(1+jitter))
		delay += delay * jitter * (2*rand.Float64() - 1)
	}

	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}
