package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/aggregates"
	"github.com/yungbote/railfleet-backend/internal/data/repos"
	repotest "github.com/yungbote/railfleet-backend/internal/data/repos/testutil"
	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/ledger"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

// Now advances one second per call so ledger ordering is deterministic.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (b *recordingBus) Publish(_ context.Context, ev events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, func(ev events.Event)) error { return nil }
func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

type failingLedgerRepo struct {
	repos.TransitionLogRepo
}

func (failingLedgerRepo) Create(dbctx.Context, []*ledger.Entry) ([]*ledger.Entry, error) {
	return nil, errors.New("ledger table unavailable")
}

type harness struct {
	db      *gorm.DB
	clock   *testClock
	bus     *recordingBus
	metrics *observability.Metrics
	ledger  ledger.Ledger

	riderCarRepo   repos.RiderCarRepo
	releaseRepo    repos.ReleaseRepo
	assignmentRepo repos.AssignmentRepo
	triageRepo     repos.TriageRepo
	idleRepo       repos.IdlePeriodRepo
	alertRepo      repos.AlertRepo

	releases   ReleaseService
	riderCars  RiderCarService
	amendments AmendmentService
	triage     TriageService
	alerts     AlertService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	ledgerEntries repos.TransitionLogRepo
	hooks         aggregates.Hooks
}

func withLedgerEntries(r repos.TransitionLogRepo) harnessOption {
	return func(c *harnessConfig) { c.ledgerEntries = r }
}

func withAggregateHooks(h aggregates.Hooks) harnessOption {
	return func(c *harnessConfig) { c.hooks = h }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	db := repotest.DB(t)
	log := repotest.Logger(t)
	clock := &testClock{t: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)}
	metrics := observability.NewMetrics()
	bus := &recordingBus{}

	h := &harness{
		db:             db,
		clock:          clock,
		bus:            bus,
		metrics:        metrics,
		riderCarRepo:   repos.NewRiderCarRepo(db, log),
		releaseRepo:    repos.NewReleaseRepo(db, log),
		assignmentRepo: repos.NewAssignmentRepo(db, log),
		triageRepo:     repos.NewTriageRepo(db, log),
		idleRepo:       repos.NewIdlePeriodRepo(db, log),
		alertRepo:      repos.NewAlertRepo(db, log),
	}
	h.ledger = ledger.New(ledger.Deps{
		DB:      db,
		Log:     log,
		Entries: cfg.ledgerEntries,
		Metrics: metrics,
		Now:     clock.Now,
	})
	h.alerts = NewAlertService(db, log, h.alertRepo)

	deps := WorkflowDeps{
		DB:      db,
		Log:     log,
		Ledger:  h.ledger,
		Events:  NewEventPublisher(bus, log, metrics),
		Alerts:  h.alerts,
		Metrics: metrics,
		Now:     clock.Now,
	}
	hooks := cfg.hooks
	if hooks == nil {
		hooks = aggregates.NewObservabilityHooks(metrics)
	}
	base := aggregates.BaseDeps{
		DB:       db,
		Log:      log,
		Hooks:    hooks,
		CASGuard: aggregates.NewCASGuard(db),
	}
	riders := repos.NewLeaseRiderRepo(db, log)
	amendmentRepo := repos.NewAmendmentRepo(db, log)

	h.triage = NewTriageService(deps, aggregates.NewTriageAggregate(aggregates.TriageAggregateDeps{
		Base:    base,
		Entries: h.triageRepo,
	}), h.triageRepo)
	h.riderCars = NewRiderCarService(deps, aggregates.NewRiderCarAggregate(aggregates.RiderCarAggregateDeps{
		Base:      base,
		RiderCars: h.riderCarRepo,
		Riders:    riders,
		Leases:    repos.NewLeaseRepo(db, log),
		OnRent:    repos.NewOnRentHistoryRepo(db, log),
	}), h.riderCarRepo, NewIdlePeriodService(db, log, h.idleRepo), h.triage)
	h.amendments = NewAmendmentService(deps, aggregates.NewAmendmentAggregate(aggregates.AmendmentAggregateDeps{
		Base:        base,
		Amendments:  amendmentRepo,
		Riders:      riders,
		RateHistory: repos.NewRateHistoryRepo(db, log),
		RiderCars:   h.riderCarRepo,
	}), amendmentRepo)
	h.releases = NewReleaseService(deps, aggregates.NewReleaseAggregate(aggregates.ReleaseAggregateDeps{
		Base:             base,
		Releases:         h.releaseRepo,
		RiderCars:        h.riderCarRepo,
		Riders:           riders,
		Assignments:      h.assignmentRepo,
		LeaseTransitions: repos.NewLeaseTransitionRepo(db, log),
	}), h.releaseRepo)
	return h
}
