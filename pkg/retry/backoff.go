package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ExponentialBackoffWithMaxElapsed stops once maxElapsed has passed; zero
// means never.
func ExponentialBackoffWithMaxElapsed(initialInterval, maxInterval, maxElapsed time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if initialInterval > 0 {
		exp.InitialInterval = initialInterval
	}
	if maxInterval > 0 {
		exp.MaxInterval = maxInterval
	}
	if multiplier > 0 {
		exp.Multiplier = multiplier
	}
	exp.MaxElapsedTime = maxElapsed
	exp.Reset()
	return exp
}
