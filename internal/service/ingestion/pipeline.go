package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/repository/mongodb"
)

var (
	// ErrBatchExhausted means a batch kept failing with transient store errors
	// until the retry budget ran out.
	ErrBatchExhausted = errors.New("batch write retries exhausted")
	// ErrBatchRejected means the store refused a batch with a non-retryable error.
	ErrBatchRejected = errors.New("batch write rejected")
)

// BatchWriter is the storage surface the pipeline writes through.
type BatchWriter interface {
	EnsureIndexes(ctx context.Context) error
	BulkUpsert(ctx context.Context, records []models.DailyRecord) (mongodb.UpsertResult, error)
}

// PipelineConfig tunes batching, pacing and retries. Pacing is the pause
// between the end of one successful batch and the start of the next.
type PipelineConfig struct {
	BatchSize int
	Pacing    time.Duration
	Retry     RetryPolicy
}

// DefaultPipelineConfig writes batches of 25 with a 250ms pause between them.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize: 25,
		Pacing:    250 * time.Millisecond,
		Retry:     DefaultRetryPolicy(),
	}
}

// Result summarizes one pipeline run.
type Result struct {
	Records  int
	Batches  int
	Retries  int
	Matched  int64
	Modified int64
	Upserted int64
	Duration time.Duration
}

// Pipeline upserts merged records by (date, site) in paced, retried batches.
type Pipeline struct {
	store       BatchWriter
	cfg         PipelineConfig
	logger      *zap.Logger
	isTransient func(error) bool
}

// NewPipeline wires an upsert pipeline.
func NewPipeline(store BatchWriter, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultPipelineConfig().BatchSize
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Pipeline{
		store:       store,
		cfg:         cfg,
		logger:      logger,
		isTransient: mongodb.IsTransient,
	}
}

// Upsert ensures the unique index then writes records in order, one batch at
// a time. Batches already written stay written when a later batch fails.
func (p *Pipeline) Upsert(ctx context.Context, records []models.DailyRecord) (Result, error) {
	started := time.Now()
	result := Result{Records: len(records)}

	if err := p.store.EnsureIndexes(ctx); err != nil {
		return result, fmt.Errorf("ensure indexes: %w", err)
	}

	for start := 0; start < len(records); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(records))
		batch := records[start:end]

		if start > 0 {
			if err := pause(ctx, p.cfg.Pacing); err != nil {
				result.Duration = time.Since(started)
				return result, fmt.Errorf("pacing before batch %d: %w", result.Batches, err)
			}
		}

		res, retries, err := p.writeBatch(ctx, result.Batches, batch)
		result.Retries += retries
		if err != nil {
			result.Duration = time.Since(started)
			return result, err
		}

		result.Batches++
		result.Matched += res.Matched
		result.Modified += res.Modified
		result.Upserted += res.Upserted

		p.logger.Debug("batch upserted",
			zap.Int("batch", result.Batches),
			zap.Int("size", len(batch)),
			zap.String("first_date", batch[0].Date),
			zap.Int64("upserted", res.Upserted),
			zap.Int64("modified", res.Modified))
	}

	result.Duration = time.Since(started)
	p.logger.Info("upsert complete",
		zap.Int("records", result.Records),
		zap.Int("batches", result.Batches),
		zap.Int("retries", result.Retries),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (p *Pipeline) writeBatch(ctx context.Context, index int, batch []models.DailyRecord) (mongodb.UpsertResult, int, error) {
	var (
		res      mongodb.UpsertResult
		attempts int
		lastErr  error
	)

	op := func() error {
		attempts++
		var err error
		res, err = p.store.BulkUpsert(ctx, batch)
		if err == nil {
			return nil
		}
		lastErr = err
		if !p.isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("transient batch failure, retrying",
			zap.Int("batch", index),
			zap.Int("attempt", attempts),
			zap.Duration("delay", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(op, p.cfg.Retry.newBackOff(ctx), notify)
	retries := max(attempts-1, 0)
	switch {
	case err == nil:
		return res, retries, nil
	case ctx.Err() != nil:
		return res, retries, fmt.Errorf("batch %d interrupted after %d attempts: %w", index, attempts, ctx.Err())
	case lastErr != nil && !p.isTransient(lastErr):
		return res, retries, fmt.Errorf("%w: batch %d: %w", ErrBatchRejected, index, lastErr)
	default:
		return res, retries, fmt.Errorf("%w: batch %d after %d attempts: %w", ErrBatchExhausted, index, attempts, err)
	}
}

// pause blocks for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
