package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	repotest "github.com/yungbote/railfleet-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestLedger(t *testing.T, db *gorm.DB, m *observability.Metrics) Ledger {
	t.Helper()
	clock := &stepClock{t: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)}
	return New(Deps{
		DB:      db,
		Log:     repotest.Logger(t),
		Metrics: m,
		Now:     clock.Now,
	})
}

func strPtr(s string) *string { return &s }

func record(t *testing.T, l Ledger, process ProcessType, id uuid.UUID, from *string, to string, effects ...SideEffect) *Entry {
	t.Helper()
	e := l.Record(context.Background(), RecordInput{
		Process:     process,
		EntityID:    id,
		FromState:   from,
		ToState:     to,
		Actor:       Actor{Email: "planner@example.com"},
		SideEffects: effects,
	})
	if e == nil {
		t.Fatalf("Record %s -> %s returned nil", stateLabel(from), to)
	}
	return e
}

func TestPolicyTable(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		process ProcessType
		from    *string
		to      string
		want    bool
	}{
		{ProcessRelease, nil, "INITIATED", true},
		{ProcessRelease, strPtr("INITIATED"), "APPROVED", true},
		{ProcessRelease, strPtr("APPROVED"), "EXECUTING", false},
		{ProcessRelease, strPtr("EXECUTING"), "COMPLETED", false},
		{ProcessRelease, strPtr("APPROVED"), "CANCELLED", false},
		{ProcessRelease, strPtr("APPROVED"), "INITIATED", false},
		{ProcessRiderCar, strPtr("releasing"), "on_rent", true},
		{ProcessRiderCar, strPtr("prep_required"), "on_rent", false},
		{ProcessRiderCar, strPtr("releasing"), "off_rent", false},
		{ProcessAmendment, strPtr("Pending"), "Approved", true},
		{ProcessAmendment, strPtr("Approved"), "Active", false},
		{ProcessTriage, strPtr("open"), "resolved", true},
		{ProcessTriage, strPtr("resolved"), "open", false},
	}
	for _, tc := range cases {
		if got := p.Reversible(tc.process, tc.from, tc.to); got != tc.want {
			t.Fatalf("%s %s -> %s: want=%v got=%v", tc.process, stateLabel(tc.from), tc.to, tc.want, got)
		}
	}
}

func TestRecordAndHistoryOrdering(t *testing.T) {
	db := repotest.DB(t)
	l := newTestLedger(t, db, nil)
	id := uuid.New()

	first := record(t, l, ProcessRelease, id, nil, "INITIATED")
	second := record(t, l, ProcessRelease, id, strPtr("INITIATED"), "APPROVED")
	third := record(t, l, ProcessRelease, id, strPtr("APPROVED"), "EXECUTING")
	if !first.IsReversible || !second.IsReversible || third.IsReversible {
		t.Fatalf("reversibility: got %v %v %v", first.IsReversible, second.IsReversible, third.IsReversible)
	}

	hist, err := l.History(context.Background(), ProcessRelease, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 3 || hist[0].ID != first.ID || hist[2].ID != third.ID {
		t.Fatalf("history order: got %d entries", len(hist))
	}
	last, err := l.LastTransition(context.Background(), ProcessRelease, id)
	if err != nil {
		t.Fatalf("LastTransition: %v", err)
	}
	if last == nil || last.ID != third.ID {
		t.Fatalf("last: want=%s got=%v", third.ID, last)
	}
	other, _ := l.History(context.Background(), ProcessRiderCar, id)
	if len(other) != 0 {
		t.Fatalf("history leaked across process types: %d", len(other))
	}
}

func TestRecordOverridesPolicy(t *testing.T) {
	db := repotest.DB(t)
	l := newTestLedger(t, db, nil)
	no := false
	e := l.Record(context.Background(), RecordInput{
		Process: ProcessTriage, EntityID: uuid.New(), ToState: "open", Reversible: &no,
	})
	if e == nil || e.IsReversible {
		t.Fatalf("override ignored: %+v", e)
	}
}

type failingEntries struct {
	repos.TransitionLogRepo
}

func (failingEntries) Create(dbctx.Context, []*Entry) ([]*Entry, error) {
	return nil, errors.New("disk full")
}

func TestRecordFailureIsSwallowedAndCounted(t *testing.T) {
	db := repotest.DB(t)
	m := observability.NewMetrics()
	l := New(Deps{DB: db, Log: repotest.Logger(t), Entries: failingEntries{}, Metrics: m})

	if e := l.Record(context.Background(), RecordInput{Process: ProcessRelease, EntityID: uuid.New(), ToState: "INITIATED"}); e != nil {
		t.Fatalf("expected nil entry on failure")
	}
	if e := l.Record(context.Background(), RecordInput{Process: "nope", EntityID: uuid.New(), ToState: "x"}); e != nil {
		t.Fatalf("expected nil entry for invalid process")
	}
	if got := m.LedgerFailures(string(ProcessRelease)); got != 1 {
		t.Fatalf("ledger failures: want=1 got=%v", got)
	}
}

func TestCanRevertNoHistory(t *testing.T) {
	db := repotest.DB(t)
	l := newTestLedger(t, db, nil)
	res, err := l.CanRevert(context.Background(), ProcessRelease, uuid.New())
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if res.Allowed || len(res.Blockers) != 1 || res.Blockers[0] != "no history" {
		t.Fatalf("result: %+v", res)
	}
}

func TestCanRevertFollowsCurrentState(t *testing.T) {
	db := repotest.DB(t)
	m := observability.NewMetrics()
	l := newTestLedger(t, db, m)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, db)
	rc := repotest.SeedRiderCar(t, ctx, db, rider.ID, uuid.New(), repotest.CarNumber("UTLX"), fleet.RiderCarStatusOnRent)

	entry := record(t, l, ProcessRiderCar, rc.ID, strPtr(fleet.RiderCarStatusReleasing), fleet.RiderCarStatusOnRent)
	res, err := l.CanRevert(ctx, ProcessRiderCar, rc.ID)
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected allowed, blockers=%v", res.Blockers)
	}
	if res.TransitionID == nil || *res.TransitionID != entry.ID || res.PreviousState == nil || *res.PreviousState != fleet.RiderCarStatusReleasing {
		t.Fatalf("result: %+v", res)
	}

	// The row moved without a ledger entry.
	if err := db.Model(rc).Update("status", fleet.RiderCarStatusReleasing).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	res, err = l.CanRevert(ctx, ProcessRiderCar, rc.ID)
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if res.Allowed || len(res.Blockers) != 1 || !strings.Contains(res.Blockers[0], "current state is releasing") {
		t.Fatalf("result after move: %+v", res)
	}
}

func TestCanRevertIrreversibleRegardlessOfState(t *testing.T) {
	db := repotest.DB(t)
	l := newTestLedger(t, db, nil)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, db)
	rc := repotest.SeedRiderCar(t, ctx, db, rider.ID, uuid.New(), repotest.CarNumber("UTLX"), fleet.RiderCarStatusOnRent)

	record(t, l, ProcessRiderCar, rc.ID, strPtr(fleet.RiderCarStatusPrepRequired), fleet.RiderCarStatusOnRent)
	res, err := l.CanRevert(ctx, ProcessRiderCar, rc.ID)
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if res.Allowed || !strings.Contains(res.Blockers[0], "irreversible") {
		t.Fatalf("result: %+v", res)
	}
}

func TestCanRevertChecksSideEffects(t *testing.T) {
	db := repotest.DB(t)
	l := newTestLedger(t, db, nil)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, db)
	carID := uuid.New()
	carNumber := repotest.CarNumber("UTLX")
	rc := repotest.SeedRiderCar(t, ctx, db, rider.ID, carID, carNumber, fleet.RiderCarStatusOnRent)
	entry := repotest.SeedTriageEntry(t, ctx, db, carID, carNumber, fleet.TriageReasonCustomerReturn, 2)

	yes := true
	recordWith := func(effects ...SideEffect) {
		t.Helper()
		if e := l.Record(ctx, RecordInput{
			Process: ProcessRiderCar, EntityID: rc.ID, FromState: strPtr(fleet.RiderCarStatusReleasing),
			ToState: fleet.RiderCarStatusOnRent, Reversible: &yes, SideEffects: effects,
		}); e == nil {
			t.Fatalf("Record returned nil")
		}
	}

	recordWith(SideEffect{Type: EffectCreated, EntityType: EntityTriageEntry, EntityID: entry.ID})
	res, _ := l.CanRevert(ctx, ProcessRiderCar, rc.ID)
	if !res.Allowed {
		t.Fatalf("pristine triage entry should allow: %v", res.Blockers)
	}

	now := time.Now().UTC()
	if err := db.Model(entry).Updates(map[string]any{"resolved_at": now, "resolution": "assigned"}).Error; err != nil {
		t.Fatalf("resolve: %v", err)
	}
	res, _ = l.CanRevert(ctx, ProcessRiderCar, rc.ID)
	if res.Allowed || !strings.Contains(res.Blockers[0], "has advanced to resolved") {
		t.Fatalf("resolved triage entry should block: %+v", res)
	}

	recordWith(
		SideEffect{Type: "painted", EntityType: "car", EntityID: uuid.New()},
		SideEffect{Type: EffectCompleted, EntityType: EntityCarAssignment, EntityID: uuid.New()},
	)
	res, _ = l.CanRevert(ctx, ProcessRiderCar, rc.ID)
	if res.Allowed || len(res.Blockers) != 2 {
		t.Fatalf("unknown and missing side effects should block: %+v", res)
	}
	if !strings.Contains(res.Blockers[0], "no state accessor") || !strings.Contains(res.Blockers[1], "no longer exists") {
		t.Fatalf("blockers: %v", res.Blockers)
	}
}

func TestMarkRevertedOnce(t *testing.T) {
	db := repotest.DB(t)
	l := newTestLedger(t, db, nil)
	ctx := context.Background()
	id := uuid.New()
	first := record(t, l, ProcessRelease, id, nil, "INITIATED")
	second := record(t, l, ProcessRelease, id, strPtr("INITIATED"), "APPROVED")
	reversal := record(t, l, ProcessRelease, id, strPtr("APPROVED"), "INITIATED")

	if err := l.MarkReverted(ctx, second.ID, "ops", &reversal.ID); err != nil {
		t.Fatalf("MarkReverted: %v", err)
	}
	err := l.MarkReverted(ctx, second.ID, "ops", &reversal.ID)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("second MarkReverted: want conflict got=%v", err)
	}
	if err := l.MarkReverted(ctx, uuid.New(), "ops", nil); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing transition: want not_found got=%v", err)
	}

	last, _ := l.LastTransition(ctx, ProcessRelease, id)
	if last == nil || last.ID != reversal.ID {
		t.Fatalf("last after revert: want=%s got=%v", reversal.ID, last)
	}
	hist, _ := l.History(ctx, ProcessRelease, id)
	if len(hist) != 3 || hist[1].ReversedAt == nil || hist[1].ReversalTransitionID == nil || *hist[1].ReversalTransitionID != reversal.ID {
		t.Fatalf("history after revert: %+v", hist)
	}
	if hist[0].ID != first.ID || hist[0].ReversedAt != nil {
		t.Fatalf("first entry touched: %+v", hist[0])
	}
}

func TestCanRevertMany(t *testing.T) {
	db := repotest.DB(t)
	l := newTestLedger(t, db, nil)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, db)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		rc := repotest.SeedRiderCar(t, ctx, db, rider.ID, uuid.New(), repotest.CarNumber("UTLX"), fleet.RiderCarStatusOnRent)
		from := fleet.RiderCarStatusReleasing
		if i%2 == 1 {
			from = fleet.RiderCarStatusPrepRequired
		}
		record(t, l, ProcessRiderCar, rc.ID, &from, fleet.RiderCarStatusOnRent)
		ids = append(ids, rc.ID)
	}
	out, err := l.CanRevertMany(ctx, ProcessRiderCar, ids)
	if err != nil {
		t.Fatalf("CanRevertMany: %v", err)
	}
	if len(out) != len(ids) {
		t.Fatalf("results: want=%d got=%d", len(ids), len(out))
	}
	for i, id := range ids {
		if want := i%2 == 0; out[id].Allowed != want {
			t.Fatalf("entity %d allowed: want=%v got=%v", i, want, out[id].Allowed)
		}
	}
}
