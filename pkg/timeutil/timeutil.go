package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// DurationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest duration among durations, or 0 for
// an empty slice.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	max := durations[0]
	for _, d := range durations[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

// ComputeJitter returns a pseudo-random duration in [0, max) drawn
// from rng, or 0 when max is not strictly positive.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes the retry strategy's delay for
// attempt n (1-based): min(d * b^(n-1), D), with an added uniform
// jitter in [0, jitter) drawn from rng.
func ExponentialBackoffDelay(attempt int, jitter time.Duration, rng rand.Rand, param BackoffParam) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exponent := float64(attempt - 1)
	delay := float64(param.InitialDuration()) * math.Pow(param.Multiplier(), exponent)
	if max := float64(param.MaxDuration()); max > 0 && delay > max {
		delay = max
	}

	delay += float64(ComputeJitter(jitter, rng))

	return time.Duration(delay)
}
