package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	aggtest "github.com/yungbote/railfleet-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/railfleet-backend/internal/data/repos"
	repotest "github.com/yungbote/railfleet-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/ledger"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

var planner = ledger.Actor{ID: "u-17", Email: "planner@example.com"}

func TestReleaseEndToEndCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carID := uuid.New()
	rc := repotest.SeedRiderCar(t, ctx, h.db, rider.ID, carID, "UTLX123456", fleet.RiderCarStatusOnRent)
	assign1 := repotest.SeedAssignment(t, ctx, h.db, carID, "UTLX123456", fleet.AssignmentStatusPlanned)

	rel, err := h.releases.Initiate(ctx, InitiateReleaseRequest{
		CarNumber:    "UTLX123456",
		RiderID:      rider.ID,
		ReleaseType:  fleet.ReleaseTypeLeaseExpiry,
		AssignmentID: &assign1.ID,
		Actor:        planner,
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, err := h.releases.Approve(ctx, rel.ID, planner, "ok to release"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := h.releases.Execute(ctx, rel.ID, planner); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	done, err := h.releases.Complete(ctx, rel.ID, planner, "")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != fleet.ReleaseStatusCompleted {
		t.Fatalf("release status: want=COMPLETED got=%s", done.Status)
	}

	dbc := dbctx.Context{Ctx: ctx}
	gotRC, _ := h.riderCarRepo.GetByID(dbc, rc.ID)
	if gotRC.IsActive || gotRC.RemovedDate == nil {
		t.Fatalf("rider car: active=%v removed=%v", gotRC.IsActive, gotRC.RemovedDate)
	}
	if y1, m1, d1 := gotRC.RemovedDate.Date(); y1 != 2026 || m1 != 3 || d1 != 2 {
		t.Fatalf("removed_date: got=%s", gotRC.RemovedDate)
	}
	gotAsg, _ := h.assignmentRepo.GetByID(dbc, assign1.ID)
	if gotAsg.Status != fleet.AssignmentStatusComplete {
		t.Fatalf("assignment status: want=Complete got=%s", gotAsg.Status)
	}

	hist, err := h.ledger.History(ctx, ledger.ProcessRelease, rel.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	wantStates := []string{"INITIATED", "APPROVED", "EXECUTING", "COMPLETED"}
	if len(hist) != len(wantStates) {
		t.Fatalf("ledger entries: want=%d got=%d", len(wantStates), len(hist))
	}
	for i, e := range hist {
		if e.ToState != wantStates[i] {
			t.Fatalf("entry %d: want=%s got=%s", i, wantStates[i], e.ToState)
		}
		if e.ActorEmail != planner.Email {
			t.Fatalf("entry %d actor: got=%s", i, e.ActorEmail)
		}
	}
	if hist[0].FromState != nil {
		t.Fatalf("creation entry from_state: want=nil got=%v", *hist[0].FromState)
	}
	last := hist[3]
	if last.IsReversible {
		t.Fatalf("completion entry must be irreversible")
	}
	effects := last.Effects()
	if len(effects) != 1 || effects[0].EntityType != ledger.EntityCarAssignment || effects[0].EntityID != assign1.ID {
		t.Fatalf("completion side effects: %+v", effects)
	}

	if got := h.bus.types(); len(got) != 1 || got[0] != events.TypeReleaseCompleted {
		t.Fatalf("events: %v", got)
	}
	alerts, _ := h.alerts.ListForEntity(ctx, "car_release", rel.ID)
	if len(alerts) != 1 {
		t.Fatalf("alerts: want=1 got=%d", len(alerts))
	}

	check, err := h.ledger.CanRevert(ctx, ledger.ProcessRelease, rel.ID)
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if check.Allowed {
		t.Fatalf("completed release must not be revertable")
	}
}

func TestReleaseSecondInitiateNamesExistingStatus(t *testing.T) {
	hooks := &aggtest.HooksRecorder{}
	h := newHarness(t, withAggregateHooks(hooks))
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carNumber := repotest.CarNumber("UTLX")
	repotest.SeedRiderCar(t, ctx, h.db, rider.ID, uuid.New(), carNumber, fleet.RiderCarStatusOnRent)

	rel, err := h.releases.Initiate(ctx, InitiateReleaseRequest{CarNumber: carNumber, RiderID: rider.ID, ReleaseType: fleet.ReleaseTypeVoluntary, Actor: planner})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, err := h.releases.Approve(ctx, rel.ID, planner, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	_, err = h.releases.Initiate(ctx, InitiateReleaseRequest{CarNumber: carNumber, RiderID: rider.ID, ReleaseType: fleet.ReleaseTypeVoluntary, Actor: planner})
	if !domainagg.IsCode(err, domainagg.CodeConflict) || !strings.Contains(domainagg.MessageOf(err), "APPROVED") {
		t.Fatalf("second initiate: got=%v", err)
	}
	if n := hooks.Conflicts("Fleet.Release.Initiate"); n != 1 {
		t.Fatalf("initiate conflicts: want=1 got=%d", n)
	}
	if got := hooks.StatusOf("Fleet.Release.Transition"); got != "success" {
		t.Fatalf("approve status: want=success got=%s", got)
	}

	open, err := h.releases.List(ctx, repos.ReleaseFilter{CarNumber: carNumber, Statuses: fleet.OpenReleaseStatuses})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 1 || open[0].ID != rel.ID {
		t.Fatalf("open releases: got %d", len(open))
	}
}

func TestReleaseRevertApproval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carNumber := repotest.CarNumber("UTLX")
	repotest.SeedRiderCar(t, ctx, h.db, rider.ID, uuid.New(), carNumber, fleet.RiderCarStatusOnRent)

	rel, err := h.releases.Initiate(ctx, InitiateReleaseRequest{CarNumber: carNumber, RiderID: rider.ID, ReleaseType: fleet.ReleaseTypeVoluntary, Actor: planner})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if _, err := h.releases.Approve(ctx, rel.ID, planner, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	out, err := h.releases.RevertLastTransition(ctx, rel.ID, planner)
	if err != nil {
		t.Fatalf("RevertLastTransition: %v", err)
	}
	if out.Release.Status != fleet.ReleaseStatusInitiated || out.Release.ApprovedAt != nil {
		t.Fatalf("release after revert: status=%s approved_at=%v", out.Release.Status, out.Release.ApprovedAt)
	}
	if out.ReversalTransitionID == nil {
		t.Fatalf("expected reversal transition id")
	}

	hist, _ := h.ledger.History(ctx, ledger.ProcessRelease, rel.ID)
	if len(hist) != 3 {
		t.Fatalf("ledger entries: want=3 got=%d", len(hist))
	}
	approval := hist[1]
	if approval.ID != out.RevertedTransitionID || approval.ReversedAt == nil || approval.ReversedBy != planner.Email {
		t.Fatalf("approval entry after revert: %+v", approval)
	}
	if approval.ReversalTransitionID == nil || *approval.ReversalTransitionID != *out.ReversalTransitionID {
		t.Fatalf("reversal link: %v", approval.ReversalTransitionID)
	}

	// The reversal itself is irreversible, so a second revert is refused.
	_, err = h.releases.RevertLastTransition(ctx, rel.ID, planner)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) || !strings.Contains(domainagg.MessageOf(err), "irreversible") {
		t.Fatalf("second revert: got=%v", err)
	}

	// The release can move forward again.
	if _, err := h.releases.Approve(ctx, rel.ID, planner, "re-approved"); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
}

func TestReleaseRevertRefusedAfterExecute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carNumber := repotest.CarNumber("UTLX")
	repotest.SeedRiderCar(t, ctx, h.db, rider.ID, uuid.New(), carNumber, fleet.RiderCarStatusOnRent)

	rel, _ := h.releases.Initiate(ctx, InitiateReleaseRequest{CarNumber: carNumber, RiderID: rider.ID, ReleaseType: fleet.ReleaseTypeVoluntary, Actor: planner})
	if _, err := h.releases.Approve(ctx, rel.ID, planner, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := h.releases.Execute(ctx, rel.ID, planner); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	_, err := h.releases.RevertLastTransition(ctx, rel.ID, planner)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("revert after execute: got=%v", err)
	}
	got, _ := h.releases.Get(ctx, rel.ID)
	if got.Status != fleet.ReleaseStatusExecuting {
		t.Fatalf("status: want=EXECUTING got=%s", got.Status)
	}
}

func TestReleaseRevertRefusesCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carNumber := repotest.CarNumber("UTLX")
	repotest.SeedRiderCar(t, ctx, h.db, rider.ID, uuid.New(), carNumber, fleet.RiderCarStatusOnRent)

	rel, _ := h.releases.Initiate(ctx, InitiateReleaseRequest{CarNumber: carNumber, RiderID: rider.ID, ReleaseType: fleet.ReleaseTypeVoluntary, Actor: planner})
	_, err := h.releases.RevertLastTransition(ctx, rel.ID, planner)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) || !strings.Contains(domainagg.MessageOf(err), "cancel") {
		t.Fatalf("revert creation: got=%v", err)
	}
}

func TestReleaseWorkflowSurvivesSideEffectFailures(t *testing.T) {
	h := newHarness(t, withLedgerEntries(failingLedgerRepo{}))
	h.bus.err = errors.New("redis down")
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, h.db)
	carNumber := repotest.CarNumber("UTLX")
	repotest.SeedRiderCar(t, ctx, h.db, rider.ID, uuid.New(), carNumber, fleet.RiderCarStatusOnRent)

	rel, err := h.releases.Initiate(ctx, InitiateReleaseRequest{CarNumber: carNumber, RiderID: rider.ID, ReleaseType: fleet.ReleaseTypeVoluntary, Actor: planner})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	for _, step := range []func() error{
		func() error { _, err := h.releases.Approve(ctx, rel.ID, planner, ""); return err },
		func() error { _, err := h.releases.Execute(ctx, rel.ID, planner); return err },
		func() error { _, err := h.releases.Complete(ctx, rel.ID, planner, ""); return err },
	} {
		if err := step(); err != nil {
			t.Fatalf("workflow step failed on side-effect outage: %v", err)
		}
	}
	got, _ := h.releases.Get(ctx, rel.ID)
	if got.Status != fleet.ReleaseStatusCompleted {
		t.Fatalf("status: want=COMPLETED got=%s", got.Status)
	}
	if n := h.metrics.LedgerFailures(string(ledger.ProcessRelease)); n != 4 {
		t.Fatalf("ledger failures: want=4 got=%v", n)
	}
	if n := h.metrics.SideEffectFailures(EffectKindEvent); n != 1 {
		t.Fatalf("event failures: want=1 got=%v", n)
	}
}
