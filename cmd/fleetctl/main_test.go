package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/railfleet-backend/internal/app"
	fleetdb "github.com/yungbote/railfleet-backend/internal/data/db"
	repotest "github.com/yungbote/railfleet-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type fixture struct {
	t       *testing.T
	factory appFactory
}

func newFixture(t *testing.T) (*fixture, *app.App) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cfg := app.Config{
		AutoMigrate: true,
		Database: fleetdb.Config{
			Driver:       fleetdb.DriverSQLite,
			SQLitePath:   filepath.Join(t.TempDir(), "fleet.db"),
			MaxOpenConns: 1,
		},
		Actor:                 "fleetctl-test",
		RevertScanConcurrency: 2,
	}
	factory := func(ctx context.Context) (*app.App, error) {
		return app.NewWithConfig(ctx, log, cfg)
	}
	seed, err := factory(context.Background())
	if err != nil {
		t.Fatalf("open seed app: %v", err)
	}
	t.Cleanup(seed.Close)
	return &fixture{t: t, factory: factory}, seed
}

func (f *fixture) run(args ...string) ([]byte, error) {
	f.t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr, f.factory)
	return stdout.Bytes(), err
}

func (f *fixture) mustRun(out any, args ...string) {
	f.t.Helper()
	raw, err := f.run(args...)
	if err != nil {
		f.t.Fatalf("fleetctl %s: %v", strings.Join(args, " "), err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			f.t.Fatalf("decode %s output: %v\n%s", args[0], err, raw)
		}
	}
}

func TestReleaseApproveRevertThroughCLI(t *testing.T) {
	f, seed := newFixture(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, seed.DB)
	carNumber := repotest.CarNumber("UTLX")
	repotest.SeedRiderCar(t, ctx, seed.DB, rider.ID, uuid.New(), carNumber, fleet.RiderCarStatusOnRent)

	var rel fleet.CarRelease
	f.mustRun(&rel, "release", "initiate", "--car", carNumber, "--rider", rider.ID.String(), "--type", fleet.ReleaseTypeLeaseExpiry)
	if rel.Status != fleet.ReleaseStatusInitiated || rel.InitiatedBy != "fleetctl-test" {
		t.Fatalf("initiated release: %+v", rel)
	}
	f.mustRun(&rel, "--actor-email", "planner@example.com", "release", "approve", rel.ID.String())
	if rel.Status != fleet.ReleaseStatusApproved || rel.ApprovedBy != "planner@example.com" {
		t.Fatalf("approved release: %+v", rel)
	}

	var check struct {
		Allowed  bool     `json:"allowed"`
		Blockers []string `json:"blockers"`
	}
	f.mustRun(&check, "ledger", "can-revert", "release", rel.ID.String())
	if !check.Allowed {
		t.Fatalf("approval should be revertable: %+v", check)
	}

	var outcome struct {
		Release fleet.CarRelease `json:"release"`
	}
	f.mustRun(&outcome, "release", "revert", rel.ID.String())
	if outcome.Release.Status != fleet.ReleaseStatusInitiated {
		t.Fatalf("status after revert: %s", outcome.Release.Status)
	}

	var hist []struct {
		ToState    string  `json:"to_state"`
		ReversedBy string  `json:"reversed_by"`
		FromState  *string `json:"from_state"`
	}
	f.mustRun(&hist, "ledger", "history", "release", rel.ID.String())
	if len(hist) != 3 || hist[1].ReversedBy != "fleetctl-test" {
		t.Fatalf("ledger history: %+v", hist)
	}

	var listed []fleet.CarRelease
	f.mustRun(&listed, "release", "list", "--car", carNumber, "--status", fleet.ReleaseStatusInitiated)
	if len(listed) != 1 || listed[0].ID != rel.ID {
		t.Fatalf("release list: %+v", listed)
	}
}

func TestCLIErrorsCarryExitCodes(t *testing.T) {
	f, seed := newFixture(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, seed.DB)

	_, err := f.run("release", "approve", "not-a-uuid")
	if exitCode(err) != 2 {
		t.Fatalf("bad id: want exit=2 got=%d (%v)", exitCode(err), err)
	}

	_, err = f.run("release", "initiate", "--car", "NOPE000001", "--rider", rider.ID.String(), "--type", fleet.ReleaseTypeVoluntary)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) || exitCode(err) != 5 {
		t.Fatalf("car not on rider: got=%v exit=%d", err, exitCode(err))
	}

	_, err = f.run("ledger", "history", "shipment", uuid.NewString())
	if exitCode(err) != 2 {
		t.Fatalf("unknown process: want exit=2 got=%d", exitCode(err))
	}
}

func TestTriageAndAmendmentThroughCLI(t *testing.T) {
	f, seed := newFixture(t)
	ctx := context.Background()
	_, rider := repotest.SeedActiveRider(t, ctx, seed.DB)

	carID := uuid.New()
	carNumber := repotest.CarNumber("TILX")
	var entry fleet.TriageEntry
	f.mustRun(&entry, "triage", "create", "--car-id", carID.String(), "--car", carNumber, "--reason", fleet.TriageReasonBadOrder, "--priority", "1")
	if entry.Priority != 1 || entry.State() != fleet.TriageStateOpen {
		t.Fatalf("triage entry: %+v", entry)
	}
	var open []fleet.TriageEntry
	f.mustRun(&open, "triage", "list", "--car", carNumber)
	if len(open) != 1 {
		t.Fatalf("open entries: want=1 got=%d", len(open))
	}
	f.mustRun(&entry, "triage", "resolve", entry.ID.String(), "--resolution", "scrap")
	if entry.ResolvedAt == nil {
		t.Fatalf("entry not resolved: %+v", entry)
	}

	var am fleet.LeaseAmendment
	f.mustRun(&am, "amendment", "create", "--rider", rider.ID.String(), "--number", "AMD-7", "--type", "rate_change", "--rate", "910.5", "--effective", "2026-05-01")
	if am.NewRate == nil || *am.NewRate != 910.5 || am.Status != fleet.AmendmentStatusDraft {
		t.Fatalf("created amendment: %+v", am)
	}
	f.mustRun(&am, "amendment", "submit", am.ID.String())
	f.mustRun(&am, "amendment", "reject", am.ID.String(), "--reason", "wrong rate")
	if am.Status != fleet.AmendmentStatusDraft {
		t.Fatalf("rejected amendment: %s", am.Status)
	}
	f.mustRun(&am, "amendment", "submit", am.ID.String())
	f.mustRun(&am, "amendment", "approve", am.ID.String())
	f.mustRun(&am, "amendment", "activate", am.ID.String())
	if am.Status != fleet.AmendmentStatusActive {
		t.Fatalf("activated amendment: %s", am.Status)
	}
}
