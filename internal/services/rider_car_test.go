package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	repotest "github.com/yungbote/railfleet-backend/internal/data/repos/testutil"
	types "github.com/yungbote/railfleet-backend/internal/domain"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/ledger"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

var yardCrew = ledger.Actor{ID: "svc-yard"}

func TestRiderCarOffRentSpawnsTriageAndIdlePeriod(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carID := uuid.New()
	carNumber := repotest.CarNumber("GATX")
	rc := repotest.SeedRiderCar(t, ctx, h.db, rider.ID, carID, carNumber, fleet.RiderCarStatusOnRent)

	if _, err := h.riderCars.Transition(ctx, rc.ID, fleet.RiderCarStatusReleasing, yardCrew); err != nil {
		t.Fatalf("releasing: %v", err)
	}
	got, err := h.riderCars.Transition(ctx, rc.ID, fleet.RiderCarStatusOffRent, yardCrew)
	if err != nil {
		t.Fatalf("off_rent: %v", err)
	}
	if got.Status != fleet.RiderCarStatusOffRent || got.IsActive {
		t.Fatalf("rider car: status=%s active=%v", got.Status, got.IsActive)
	}

	dbc := dbctx.Context{Ctx: ctx}
	idle, err := h.idleRepo.GetOpenByCar(dbc, carID)
	if err != nil || idle == nil {
		t.Fatalf("open idle period: row=%v err=%v", idle, err)
	}
	if idle.Reason != fleet.IdleReasonBetweenLeases {
		t.Fatalf("idle reason: got=%s", idle.Reason)
	}

	open, err := h.triage.List(ctx, repos.TriageFilter{CarNumber: carNumber, State: fleet.TriageStateOpen})
	if err != nil {
		t.Fatalf("List triage: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open triage entries: want=1 got=%d", len(open))
	}
	entry := open[0]
	if entry.Reason != fleet.TriageReasonCustomerReturn || entry.Priority != 2 {
		t.Fatalf("triage entry: reason=%s priority=%d", entry.Reason, entry.Priority)
	}
	if entry.SourceReferenceID == nil || *entry.SourceReferenceID != rc.ID {
		t.Fatalf("triage source reference: %v", entry.SourceReferenceID)
	}

	last, err := h.ledger.LastTransition(ctx, ledger.ProcessRiderCar, rc.ID)
	if err != nil || last == nil {
		t.Fatalf("LastTransition: entry=%v err=%v", last, err)
	}
	if last.ToState != fleet.RiderCarStatusOffRent || last.ActorID != yardCrew.ID {
		t.Fatalf("last transition: %+v", last)
	}
	effects := last.Effects()
	if len(effects) != 1 || effects[0].Type != ledger.EffectCreated || effects[0].EntityID != entry.ID {
		t.Fatalf("side effects: %+v", effects)
	}

	triageHist, _ := h.ledger.History(ctx, ledger.ProcessTriage, entry.ID)
	if len(triageHist) != 1 || triageHist[0].FromState != nil {
		t.Fatalf("triage creation entry: %+v", triageHist)
	}
	if got := h.bus.types(); len(got) != 1 || got[0] != events.TypeRiderCarOffRent {
		t.Fatalf("events: %v", got)
	}
}

func TestRiderCarOffRentKeepsGoingWhenTriageAlreadyOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carID := uuid.New()
	carNumber := repotest.CarNumber("GATX")
	rc := repotest.SeedRiderCar(t, ctx, h.db, rider.ID, carID, carNumber, fleet.RiderCarStatusReleasing)
	existing := repotest.SeedTriageEntry(t, ctx, h.db, carID, carNumber, fleet.TriageReasonBadOrder, 1)

	if _, err := h.riderCars.Transition(ctx, rc.ID, fleet.RiderCarStatusOffRent, yardCrew); err != nil {
		t.Fatalf("off_rent must succeed despite triage conflict: %v", err)
	}
	if n := h.metrics.SideEffectFailures(EffectKindTriage); n != 1 {
		t.Fatalf("triage spawn failures: want=1 got=%v", n)
	}

	open, _ := h.triage.List(ctx, repos.TriageFilter{CarNumber: carNumber, State: fleet.TriageStateOpen})
	if len(open) != 1 || open[0].ID != existing.ID {
		t.Fatalf("open triage entries: %d", len(open))
	}
	last, _ := h.ledger.LastTransition(ctx, ledger.ProcessRiderCar, rc.ID)
	if last == nil || len(last.Effects()) != 0 {
		t.Fatalf("ledger entry must carry no side effects: %+v", last)
	}
}

func TestRiderCarOnRentClosesIdlePeriod(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carID := uuid.New()
	carNumber := repotest.CarNumber("GATX")

	started := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if err := h.db.WithContext(ctx).Create(&types.IdlePeriod{
		ID:        uuid.New(),
		CarID:     carID,
		CarNumber: carNumber,
		Reason:    fleet.IdleReasonStorage,
		StartedAt: started,
		CreatedAt: started,
		UpdatedAt: started,
	}).Error; err != nil {
		t.Fatalf("seed idle period: %v", err)
	}

	rc, err := h.riderCars.Create(ctx, CreateRiderCarRequest{RiderID: rider.ID, CarID: carID, CarNumber: carNumber, Actor: yardCrew})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rc.Status != fleet.RiderCarStatusDecided {
		t.Fatalf("status: want=decided got=%s", rc.Status)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := h.riderCars.Transition(ctx, rc.ID, fleet.RiderCarStatusPrepRequired, yardCrew); err != nil {
		t.Fatalf("prep_required: %v", err)
	}
	if open, _ := h.idleRepo.GetOpenByCar(dbc, carID); open == nil {
		t.Fatalf("idle period closed before the car went on rent")
	}
	if _, err := h.riderCars.Transition(ctx, rc.ID, fleet.RiderCarStatusOnRent, yardCrew); err != nil {
		t.Fatalf("on_rent: %v", err)
	}
	if open, _ := h.idleRepo.GetOpenByCar(dbc, carID); open != nil {
		t.Fatalf("idle period still open: %+v", open)
	}

	hist, _ := h.ledger.History(ctx, ledger.ProcessRiderCar, rc.ID)
	if len(hist) != 3 {
		t.Fatalf("ledger history: want=3 got=%d", len(hist))
	}
	wantTo := []string{fleet.RiderCarStatusDecided, fleet.RiderCarStatusPrepRequired, fleet.RiderCarStatusOnRent}
	for i, want := range wantTo {
		if hist[i].ToState != want {
			t.Fatalf("history[%d]: want=%s got=%s", i, want, hist[i].ToState)
		}
	}
	if hist[0].FromState != nil || *hist[2].FromState != fleet.RiderCarStatusPrepRequired {
		t.Fatalf("from states: %v -> %v", hist[0].FromState, hist[2].FromState)
	}
}

func TestRiderCarIllegalTransitionWritesNoLedgerEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	rc := repotest.SeedRiderCar(t, ctx, h.db, rider.ID, uuid.New(), repotest.CarNumber("GATX"), fleet.RiderCarStatusDecided)

	_, err := h.riderCars.Transition(ctx, rc.ID, fleet.RiderCarStatusOffRent, yardCrew)
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("decided -> off_rent: got=%v", err)
	}
	hist, _ := h.ledger.History(ctx, ledger.ProcessRiderCar, rc.ID)
	if len(hist) != 0 {
		t.Fatalf("ledger entries: want=0 got=%d", len(hist))
	}
}
