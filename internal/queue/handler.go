package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Purger drops every cached entry it owns.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// ReportInvalidationHandler processes report:invalidate tasks.
type ReportInvalidationHandler struct {
	Cache  Purger
	Logger *zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h ReportInvalidationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ReportInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		TasksProcessedTotal.WithLabelValues(t.Type(), "invalid").Inc()
		return fmt.Errorf("queue: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	start := time.Now()
	deleted, err := h.Cache.Purge(ctx)
	PurgeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		TasksProcessedTotal.WithLabelValues(t.Type(), "error").Inc()
		return err
	}
	TasksProcessedTotal.WithLabelValues(t.Type(), "ok").Inc()
	ReportKeysPurgedTotal.Add(float64(deleted))
	if h.Logger != nil {
		h.Logger.Info().
			Str("topic", p.Topic).
			Str("aggregate_id", p.AggregateID).
			Int("keys", deleted).
			Msg("report cache invalidated")
	}
	return nil
}
