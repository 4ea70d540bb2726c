package events

import (
	"context"

	"github.com/noah-isme/backend-lavado/internal/db"
)

// PGStore writes events to the domain_events table.
type PGStore struct {
	DB db.DBTX
}

// InsertDomainEvent stores event and returns the persisted row.
func (s PGStore) InsertDomainEvent(ctx context.Context, event Event) (Event, error) {
	var out Event
	err := s.DB.QueryRow(ctx, `
INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, topic, aggregate_id, payload, occurred_at`,
		event.ID, event.Topic, event.AggregateID, []byte(event.Payload), event.OccurredAt,
	).Scan(&out.ID, &out.Topic, &out.AggregateID, &out.Payload, &out.OccurredAt)
	return out, err
}
