package aggregates

import (
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	repotest "github.com/yungbote/railfleet-backend/internal/data/repos/testutil"
)

type fleetFixture struct {
	db   *gorm.DB
	base BaseDeps

	leases           repos.LeaseRepo
	riders           repos.LeaseRiderRepo
	rateHistory      repos.RateHistoryRepo
	riderCars        repos.RiderCarRepo
	onRent           repos.OnRentHistoryRepo
	releases         repos.ReleaseRepo
	assignments      repos.AssignmentRepo
	leaseTransitions repos.LeaseTransitionRepo
	amendments       repos.AmendmentRepo
	triage           repos.TriageRepo
}

func newFleetFixture(t *testing.T) *fleetFixture {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	return &fleetFixture{
		db: db,
		base: BaseDeps{
			DB:       db,
			Log:      log,
			Runner:   NewGormTxRunner(db),
			CASGuard: NewCASGuard(db),
		},
		leases:           repos.NewLeaseRepo(db, log),
		riders:           repos.NewLeaseRiderRepo(db, log),
		rateHistory:      repos.NewRateHistoryRepo(db, log),
		riderCars:        repos.NewRiderCarRepo(db, log),
		onRent:           repos.NewOnRentHistoryRepo(db, log),
		releases:         repos.NewReleaseRepo(db, log),
		assignments:      repos.NewAssignmentRepo(db, log),
		leaseTransitions: repos.NewLeaseTransitionRepo(db, log),
		amendments:       repos.NewAmendmentRepo(db, log),
		triage:           repos.NewTriageRepo(db, log),
	}
}

func (f *fleetFixture) releaseAggregate() *releaseAggregate {
	return NewReleaseAggregate(ReleaseAggregateDeps{
		Base:             f.base,
		Releases:         f.releases,
		RiderCars:        f.riderCars,
		Riders:           f.riders,
		Assignments:      f.assignments,
		LeaseTransitions: f.leaseTransitions,
	}).(*releaseAggregate)
}

func (f *fleetFixture) riderCarAggregate() *riderCarAggregate {
	return NewRiderCarAggregate(RiderCarAggregateDeps{
		Base:      f.base,
		RiderCars: f.riderCars,
		Riders:    f.riders,
		Leases:    f.leases,
		OnRent:    f.onRent,
	}).(*riderCarAggregate)
}

func (f *fleetFixture) amendmentAggregate() *amendmentAggregate {
	return NewAmendmentAggregate(AmendmentAggregateDeps{
		Base:        f.base,
		Amendments:  f.amendments,
		Riders:      f.riders,
		RateHistory: f.rateHistory,
		RiderCars:   f.riderCars,
	}).(*amendmentAggregate)
}

func (f *fleetFixture) triageAggregate() *triageAggregate {
	return NewTriageAggregate(TriageAggregateDeps{
		Base:    f.base,
		Entries: f.triage,
	}).(*triageAggregate)
}

func (f *fleetFixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
