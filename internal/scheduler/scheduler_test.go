package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/salmon-fce/internal/service/ingestion"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) TopUp(context.Context) (ingestion.Result, error) {
	r.calls.Add(1)
	return ingestion.Result{Records: 1}, r.err
}

func TestStart_InvalidSpec(t *testing.T) {
	s := NewScheduler("not a cron", nil, &countingRunner{}, nil)
	require.Error(t, s.Start())
}

func TestStart_RunsJob(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler("@every 1s", time.UTC, runner, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunTopUp_ErrorIsLogged(t *testing.T) {
	runner := &countingRunner{err: errors.New("store down")}
	s := NewScheduler("@daily", nil, runner, nil)

	s.runTopUp()
	assert.Equal(t, int32(1), runner.calls.Load())
}

type blockingRunner struct {
	started chan struct{}
	err     chan error
}

func (r *blockingRunner) TopUp(ctx context.Context) (ingestion.Result, error) {
	select {
	case r.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	select {
	case r.err <- ctx.Err():
	default:
	}
	return ingestion.Result{}, ctx.Err()
}

func TestStop_CancelsRunningTopUp(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}, 1), err: make(chan error, 1)}
	s := NewScheduler("@every 1s", time.UTC, runner, nil)
	require.NoError(t, s.Start())

	select {
	case <-runner.started:
	case <-time.After(3 * time.Second):
		t.Fatal("top-up never ran")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a running top-up")
	}
	assert.ErrorIs(t, <-runner.err, context.Canceled)
}
