package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-lavado/internal/events"
)

// Enqueuer is the subset of *asynq.Client used to publish tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReportInvalidator is an events.Notifier that schedules report cache
// invalidation whenever an invoice changes.
type ReportInvalidator struct {
	Client Enqueuer
}

// Notify enqueues a report:invalidate task for invoice topics and ignores the rest.
func (n ReportInvalidator) Notify(ctx context.Context, ev events.Event) error {
	if !isInvoiceTopic(ev.Topic) {
		return nil
	}
	if n.Client == nil {
		return errors.New("queue: task client not configured")
	}
	task, err := NewReportInvalidateTask(ReportInvalidatePayload{
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID,
		OccurredAt:  ev.OccurredAt,
	})
	if err != nil {
		return err
	}
	if _, err := n.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", TypeReportInvalidate, err)
	}
	return nil
}

func isInvoiceTopic(topic string) bool {
	for _, t := range events.InvoiceTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
