package ingestion

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is an exponential backoff schedule for a batch write.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultRetryPolicy waits 0.5s, doubling up to 10s, for at most 6 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 6,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
	}
}

// Delays returns the waits between consecutive attempts.
func (p RetryPolicy) Delays() []time.Duration {
	b := p.exponential()
	delays := make([]time.Duration, 0, max(p.MaxAttempts-1, 0))
	for i := 1; i < p.MaxAttempts; i++ {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// newBackOff stops after MaxAttempts-1 retries or when ctx is done.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOffContext {
	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(p.exponential(), retries), ctx)
}

func (p RetryPolicy) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
