package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/service/ingestion"
)

// TopUpRunner ingests the days missing since the last stored record.
type TopUpRunner interface {
	TopUp(ctx context.Context) (ingestion.Result, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	runner  TopUpRunner
	spec    string
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler running the top-up on a standard
// 5-field cron spec, evaluated in loc.
func NewScheduler(spec string, loc *time.Location, runner TopUpRunner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		runner:  runner,
		spec:    spec,
		timeout: 30 * time.Minute,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the top-up job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.runTopUp); err != nil {
		return fmt.Errorf("schedule top-up %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler, cancels a running job and waits for it to
// return.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
}

func (s *Scheduler) runTopUp() {
	s.logger.Info("running scheduled top-up")
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	res, err := s.runner.TopUp(ctx)
	if err != nil {
		s.logger.Error("scheduled top-up failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled top-up complete",
		zap.Int("records", res.Records),
		zap.Int("batches", res.Batches),
		zap.Int("retries", res.Retries))
}
