package app

import (
	"math/rand"
	"time"
)

// Default retry configuration values.
const (
	DefaultRetryDelay      = 3 * time.Second
	DefaultRetryMaxDelay   = time.Minute
	DefaultRetryMultiplier = 2.0
	DefaultRetryJitter     = 0.2
)

// RetryPolicy controls how transient write failures are retried.
// MaxAttempts of zero retries forever. Multiplier 1 with Jitter 0 gives a
// fixed delay between attempts. Jitter only lengthens a delay, so no attempt
// waits less than Delay.
type RetryPolicy struct {
	Delay       time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
	MaxAttempts int
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Delay:       DefaultRetryDelay,
		MaxDelay:    DefaultRetryMaxDelay,
		Multiplier:  DefaultRetryMultiplier,
		Jitter:      DefaultRetryJitter,
		MaxAttempts: 10,
	}
}

// backoff yields growing delays with additive jitter.
type backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	current    time.Duration
}

func newBackoff(p RetryPolicy) *backoff {
	b := &backoff{
		initial:    p.Delay,
		max:        p.MaxDelay,
		multiplier: p.Multiplier,
		jitter:     p.Jitter,
	}
	if b.multiplier < 1 {
		b.multiplier = 1
	}
	if b.max < b.initial {
		b.max = b.initial
	}
	b.current = b.initial
	return b
}

// Next returns the delay to wait before the next attempt and grows the
// following one.
func (b *backoff) Next() time.Duration {
	d := b.current
	if b.jitter > 0 {
		d += time.Duration(float64(d) * b.jitter * rand.Float64())
	}

	b.current = time.Duration(float64(b.current) * b.multiplier)
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the undecorated delay of the next attempt.
func (b *backoff) Current() time.Duration {
	return b.current
}
