package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bizdesk/internal/jobs"
)

// KeyCleaner deletes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyPurgeJob trims the idempotency key table.
type IdempotencyPurgeJob struct {
	Store   KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyPurgeJob wires the purge handler.
func NewIdempotencyPurgeJob(store KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyPurgeJob {
	return &IdempotencyPurgeJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskIdempotencyPurge tasks.
func (j *IdempotencyPurgeJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency purge: handler not configured")
	}
	var payload IdempotencyPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("idempotency purge: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Retention <= 0 {
		payload.Retention = DefaultIdempotencyRetention
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	run := metrics.Start(TaskIdempotencyPurge)
	defer func() {
		resultErr = run.Finish(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removed, err := j.Store.Cleanup(ctx, payload.Retention)
	if err != nil {
		logger.Error("purge idempotency keys", slog.Any("error", err))
		return err
	}
	metrics.AddPurgedKeys(removed)
	logger.Info("idempotency keys purged", slog.Duration("retention", payload.Retention), slog.Int64("removed", removed))
	return nil
}
