package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeReportInvalidate drops cached sales reports after invoices change.
	TypeReportInvalidate = "report:invalidate"
	// QueueReports is the asynq queue for reporting housekeeping.
	QueueReports = "reports"
)

// ReportInvalidatePayload identifies the change that made reports stale.
type ReportInvalidatePayload struct {
	Topic       string    `json:"topic"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewReportInvalidateTask builds the asynq task for p.
func NewReportInvalidateTask(p ReportInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReportInvalidate, data, asynq.Queue(QueueReports), asynq.MaxRetry(5)), nil
}
