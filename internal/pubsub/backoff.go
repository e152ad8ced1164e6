package pubsub

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// newBackoff returns a jitter-free exponential schedule: base, 2*base, ...
// capped at max.
func newBackoff(base, max time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}
