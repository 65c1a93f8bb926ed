package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeReleaseCompleted   = "release.completed"
	TypeRiderCarOffRent    = "rider_car.off_rent"
	TypeAmendmentActivated = "amendment.activated"
)

// Event is a post-commit domain notification. Consumers must tolerate loss.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Actor      string         `json:"actor,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

func NewEvent(eventType, entityType string, entityID uuid.UUID, actor string, at time.Time, data map[string]any) Event {
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, onEvent func(ev Event)) error
	Close() error
}

// NoopBus drops every event. Used when REDIS_ADDR is unset.
type NoopBus struct{}

func (NoopBus) Publish(context.Context, Event) error { return nil }
func (NoopBus) Subscribe(context.Context, func(ev Event)) error { return nil }
func (NoopBus) Close() error { return nil }
