package core

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy defines exponential backoff settings for batch writes that
// leave unprocessed items behind.
type RetryPolicy struct {
	// MaxRetries is the number of resends after the first attempt.
	MaxRetries int
	// InitialDelay is the backoff ceiling before the first resend.
	InitialDelay time.Duration
	// MaxDelay caps the backoff ceiling. Zero leaves it uncapped.
	MaxDelay time.Duration
	// BackoffFactor grows the ceiling between resends.
	BackoffFactor float64
}

// DefaultRetryPolicy returns a policy with a 100ms floor that doubles after
// every wait.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// Clone returns a copy of the policy so callers can modify it without affecting the original.
func (p *RetryPolicy) Clone() *RetryPolicy {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Ceiling returns the backoff ceiling before resend number retry (0-based).
func (p *RetryPolicy) Ceiling(retry int) time.Duration {
	ceiling := float64(p.InitialDelay)
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	for i := 0; i < retry; i++ {
		ceiling *= factor
		if p.MaxDelay > 0 && ceiling >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(ceiling) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(ceiling)
}

// Delay returns a full-jitter wait in [0, Ceiling(retry)]. A nil rng uses the
// package-level source.
func (p *RetryPolicy) Delay(retry int, rng *rand.Rand) time.Duration {
	ceiling := p.Ceiling(retry)
	if ceiling <= 0 {
		return 0
	}
	if rng == nil {
		return time.Duration(rand.Int64N(int64(ceiling) + 1))
	}
	return time.Duration(rng.Int64N(int64(ceiling) + 1))
}
