package cli

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bizdesk/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// RenderReceipt queues receipt rendering for one invoice.
func (c *JobsCLI) RenderReceipt(ctx context.Context, ownerID, invoiceID string) error {
	if c == nil || c.client == nil {
		return errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueReceipt(ctx, ownerID, invoiceID)
}

// InspectQueues reports the backlog of every worker queue.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]jobs.QueueDepth, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	return jobs.InspectQueues(c.inspector)
}
