package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a persisted domain event.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// EventStore appends events to the domain_events table.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, event Event) (Event, error)
}

// Notifier reacts to a stored event, e.g. by queueing a report cache purge.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus stores each event before any notifier sees it, so a notifier failure
// never loses the record of a sale.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
	Now       func() time.Time
}

var (
	errNoStore     = errors.New("events: store not configured")
	errNoTopic     = errors.New("events: topic is required")
	errNoAggregate = errors.New("events: aggregate id is required")
)

// Emit stores the event and then notifies every notifier. The stored event
// is returned even when notifiers fail; their errors are joined.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errNoStore
	}
	ev := Event{
		ID:          uuid.New(),
		Topic:       strings.TrimSpace(topic),
		AggregateID: strings.TrimSpace(aggregateID),
		OccurredAt:  b.now(),
	}
	switch {
	case ev.Topic == "":
		return Event{}, errNoTopic
	case ev.AggregateID == "":
		return Event{}, errNoAggregate
	}
	var err error
	if ev.Payload, err = encodePayload(payload); err != nil {
		return Event{}, fmt.Errorf("events: encode %s payload: %w", ev.Topic, err)
	}

	stored, err := b.Store.InsertDomainEvent(ctx, ev)
	if err != nil {
		return Event{}, fmt.Errorf("events: persist %s: %w", ev.Topic, err)
	}
	return stored, b.notify(ctx, stored)
}

func (b *Bus) notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range b.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("events: notify %s: %w", ev.Topic, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

// encodePayload marshals payload; raw JSON must already be valid and nil
// becomes an empty object.
func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("raw payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	default:
		return json.Marshal(v)
	}
}
