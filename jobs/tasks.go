package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Queues. Receipts are customer-facing and get most of the worker's time.
const (
	QueueReceipts    = "receipts"
	QueueMaintenance = "maintenance"
)

// QueuePriorities are the weights the worker polls queues with.
var QueuePriorities = map[string]int{
	QueueReceipts:    6,
	QueueMaintenance: 1,
}

// QueueNames lists the queues in reporting order.
func QueueNames() []string {
	return []string{QueueReceipts, QueueMaintenance}
}

const (
	// TaskRenderReceipt renders an invoice receipt into the receipt cache.
	TaskRenderReceipt = "sales:receipt.render"
	// TaskIdempotencyPurge removes expired idempotency keys.
	TaskIdempotencyPurge = "maintenance:idempotency.purge"
)

// DefaultIdempotencyRetention is how long checkout keys are remembered.
const DefaultIdempotencyRetention = 72 * time.Hour

// RenderReceiptPayload identifies the invoice to render.
type RenderReceiptPayload struct {
	OwnerID   string `json:"owner_id"`
	InvoiceID string `json:"invoice_id"`
}

// NewRenderReceiptTask constructs a receipt task. The task id is derived from
// the invoice so a receipt is queued at most once at a time.
func NewRenderReceiptTask(ownerID, invoiceID string) (*asynq.Task, error) {
	if ownerID == "" || invoiceID == "" {
		return nil, errors.New("jobs: owner and invoice required")
	}
	body, err := json.Marshal(RenderReceiptPayload{OwnerID: ownerID, InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRenderReceipt, body,
		asynq.Queue(QueueReceipts),
		asynq.TaskID("receipt:"+invoiceID),
		asynq.MaxRetry(5),
	), nil
}

// IdempotencyPurgePayload carries the retention window.
type IdempotencyPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyPurgeTask constructs the cleanup task.
func NewIdempotencyPurgeTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	body, err := json.Marshal(IdempotencyPurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyPurge, body, asynq.Queue(QueueMaintenance)), nil
}
