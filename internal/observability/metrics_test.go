package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	repotest "github.com/yungbote/railfleet-backend/internal/data/repos/testutil"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAggregateOperation("op", "ok", time.Millisecond)
	m.IncLedgerFailed("release")
	m.IncSideEffectFailure("event")
	m.IncRevertCheck("release", true)
	if got := m.SideEffectFailures("event"); got != 0 {
		t.Fatalf("nil SideEffectFailures: got=%v", got)
	}
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestCountersAndExposition(t *testing.T) {
	m := NewMetrics()
	m.IncLedgerFailed("release")
	m.IncLedgerFailed("release")
	m.IncLedgerFailed("")
	m.IncSideEffectFailure("triage_spawn")
	m.IncRevertCheck("release", false)
	m.ObserveAggregateOperation("Fleet.Release.Complete", "ok", 30*time.Millisecond)

	if got := m.LedgerFailures("release"); got != 2 {
		t.Fatalf("ledger failures: want=2 got=%v", got)
	}
	if got := m.LedgerFailures(""); got != 1 {
		t.Fatalf("unlabelled failures fold into unknown: got=%v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`fleet_ledger_writes_failed_total{process="release"} 2.000000`,
		`fleet_side_effect_failures_total{kind="triage_spawn"} 1.000000`,
		`fleet_revert_checks_total{process="release",outcome="blocked"} 1.000000`,
		"# TYPE fleet_aggregate_operation_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestCollectWorkflowCountsOpenWork(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, db)
	carID := uuid.New()
	carNumber := repotest.CarNumber("UTLX")
	rc := repotest.SeedRiderCar(t, ctx, db, rider.ID, carID, carNumber, fleet.RiderCarStatusOnRent)
	now := time.Now().UTC()
	if err := db.Create(&fleet.CarRelease{
		ID:          uuid.New(),
		CarNumber:   carNumber,
		CarID:       carID,
		RiderID:     rider.ID,
		RiderCarID:  rc.ID,
		ReleaseType: fleet.ReleaseTypeVoluntary,
		Status:      fleet.ReleaseStatusApproved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error; err != nil {
		t.Fatalf("seed release: %v", err)
	}
	repotest.SeedTriageEntry(t, ctx, db, carID, carNumber, fleet.TriageReasonManual, 3)

	m := NewMetrics()
	m.collectWorkflow(ctx, repotest.Logger(t), db)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`fleet_open_releases{status="APPROVED"} 1.000000`,
		`fleet_open_releases{status="INITIATED"} 0.000000`,
		"fleet_open_triage_entries 1.000000",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q in:\n%s", want, out)
		}
	}
}
