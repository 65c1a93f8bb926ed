package services

import (
	"context"

	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

// EventPublisher forwards domain events to the bus without surfacing failures.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event)
}

type eventPublisher struct {
	bus     events.Bus
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewEventPublisher(bus events.Bus, baseLog *logger.Logger, metrics *observability.Metrics) EventPublisher {
	if bus == nil {
		bus = events.NoopBus{}
	}
	return &eventPublisher{
		bus:     bus,
		log:     baseLog.With("service", "EventPublisher"),
		metrics: metrics,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, ev events.Event) {
	if err := p.bus.Publish(ctx, ev); err != nil {
		p.metrics.IncEventPublished(ev.Type, "error")
		p.metrics.IncSideEffectFailure(EffectKindEvent)
		p.log.Warn("event publish failed", "type", ev.Type, "entity_id", ev.EntityID, "error", err)
		return
	}
	p.metrics.IncEventPublished(ev.Type, "ok")
}
