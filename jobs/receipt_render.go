package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bizdesk/internal/jobs"
	"github.com/odyssey-erp/bizdesk/internal/sales"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReceiptRenderer renders a receipt and refreshes its cache entry.
type ReceiptRenderer interface {
	Render(ctx context.Context, ownerID, invoiceID string) ([]byte, error)
}

// ReceiptRenderJob pre-renders receipts after checkout.
type ReceiptRenderJob struct {
	Receipts ReceiptRenderer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewReceiptRenderJob wires dependencies for the receipt handler.
func NewReceiptRenderJob(receipts ReceiptRenderer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReceiptRenderJob {
	return &ReceiptRenderJob{Receipts: receipts, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRenderReceipt tasks.
func (j *ReceiptRenderJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Receipts == nil {
		return errors.New("receipt render: handler not configured")
	}
	var payload RenderReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("receipt render: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OwnerID == "" || payload.InvoiceID == "" {
		return fmt.Errorf("receipt render: empty payload: %w", asynq.SkipRetry)
	}

	metrics := j.metrics()
	run := metrics.Start(TaskRenderReceipt)
	defer func() {
		resultErr = run.Finish(resultErr)
	}()

	logger := j.logger().With(slog.String("invoice_id", payload.InvoiceID))
	pdf, err := j.Receipts.Render(ctx, payload.OwnerID, payload.InvoiceID)
	if err != nil {
		if errors.Is(err, sales.ErrNotFound) {
			logger.Warn("receipt invoice missing")
			return fmt.Errorf("receipt render: %v: %w", err, asynq.SkipRetry)
		}
		logger.Error("render receipt", slog.Any("error", err))
		return err
	}
	metrics.ObserveReceipt(len(pdf))
	logger.Info("receipt rendered", slog.Int("bytes", len(pdf)))
	return nil
}

func (j *ReceiptRenderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReceiptRenderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
