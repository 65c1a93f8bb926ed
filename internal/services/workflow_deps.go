package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/ledger"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

// Side-effect kinds, used as metric labels and log fields.
const (
	EffectKindLedger     = "ledger"
	EffectKindEvent      = "event"
	EffectKindAlert      = "alert"
	EffectKindIdlePeriod = "idle_period"
	EffectKindTriage     = "triage_spawn"
)

// WorkflowDeps are the collaborators shared by every workflow service. Ledger,
// Events and Alerts are called only after the domain transaction committed.
type WorkflowDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Ledger  ledger.Ledger
	Events  EventPublisher
	Alerts  AlertService
	Metrics *observability.Metrics
	Now     func() time.Time
}

func (d WorkflowDeps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// attempt runs post-commit work; a failure is logged and counted, never returned.
func (d WorkflowDeps) attempt(log *logger.Logger, kind, op string, entityID uuid.UUID, fn func() error) {
	if err := fn(); err != nil {
		d.Metrics.IncSideEffectFailure(kind)
		log.Warn("side effect failed", "kind", kind, "op", op, "entity_id", entityID, "error", err)
	}
}

// record writes a ledger entry when a ledger is configured.
func (d WorkflowDeps) record(ctx context.Context, in ledger.RecordInput) *ledger.Entry {
	if d.Ledger == nil {
		return nil
	}
	return d.Ledger.Record(ctx, in)
}

func (d WorkflowDeps) publish(ctx context.Context, ev events.Event) {
	if d.Events == nil {
		return
	}
	d.Events.Publish(ctx, ev)
}

func (d WorkflowDeps) alert(ctx context.Context, log *logger.Logger, op string, in AlertInput) {
	if d.Alerts == nil {
		return
	}
	entityID := uuid.Nil
	if in.EntityID != nil {
		entityID = *in.EntityID
	}
	d.attempt(log, EffectKindAlert, op, entityID, func() error {
		_, err := d.Alerts.CreateAlert(ctx, in)
		return err
	})
}

func strPtr(s string) *string { return &s }
