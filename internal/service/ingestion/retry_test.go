package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryPolicy_Schedule(t *testing.T) {
	got := DefaultRetryPolicy().Delays()
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}, got)
}

func TestRetryPolicy_DelayIsCapped(t *testing.T) {
	p := DefaultRetryPolicy()
	p.MaxAttempts = 9
	got := p.Delays()
	assert.Len(t, got, 8)
	assert.Equal(t, 10*time.Second, got[5])
	assert.Equal(t, 10*time.Second, got[7])
}

func TestRetryPolicy_BackOffStopsAfterBudget(t *testing.T) {
	b := DefaultRetryPolicy().newBackOff(context.Background())
	for i := 0; i < 5; i++ {
		assert.NotEqual(t, backoff.Stop, b.NextBackOff(), "retry %d", i)
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestRetryPolicy_BackOffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := DefaultRetryPolicy().newBackOff(ctx)
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
