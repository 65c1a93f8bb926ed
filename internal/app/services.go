package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/aggregates"
	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/ledger"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
	"github.com/yungbote/railfleet-backend/internal/services"
)

type Services struct {
	Ledger ledger.Ledger

	Releases    services.ReleaseService
	RiderCars   services.RiderCarService
	Amendments  services.AmendmentService
	Triage      services.TriageService
	Alerts      services.AlertService
	IdlePeriods services.IdlePeriodService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, bus events.Bus, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	now := func() time.Time { return time.Now().UTC() }

	ledg := ledger.New(ledger.Deps{
		DB:              db,
		Log:             log,
		Entries:         reposet.TransitionLog,
		Registry:        ledger.DefaultRegistry(),
		Policy:          ledger.DefaultPolicy(),
		Metrics:         metrics,
		ScanConcurrency: cfg.RevertScanConcurrency,
		Now:             now,
	})
	alerts := services.NewAlertService(db, log, reposet.Alert)
	idle := services.NewIdlePeriodService(db, log, reposet.IdlePeriod)

	deps := services.WorkflowDeps{
		DB:      db,
		Log:     log,
		Ledger:  ledg,
		Events:  services.NewEventPublisher(bus, log, metrics),
		Alerts:  alerts,
		Metrics: metrics,
		Now:     now,
	}
	base := aggregates.BaseDeps{
		DB:       db,
		Log:      log,
		Hooks:    aggregates.NewObservabilityHooks(metrics),
		CASGuard: aggregates.NewCASGuard(db),
	}

	triageAgg := aggregates.NewTriageAggregate(aggregates.TriageAggregateDeps{
		Base:    base,
		Entries: reposet.Triage,
	})
	riderCarAgg := aggregates.NewRiderCarAggregate(aggregates.RiderCarAggregateDeps{
		Base:      base,
		RiderCars: reposet.RiderCar,
		Riders:    reposet.LeaseRider,
		Leases:    reposet.Lease,
		OnRent:    reposet.OnRentHistory,
	})
	amendmentAgg := aggregates.NewAmendmentAggregate(aggregates.AmendmentAggregateDeps{
		Base:        base,
		Amendments:  reposet.Amendment,
		Riders:      reposet.LeaseRider,
		RateHistory: reposet.RateHistory,
		RiderCars:   reposet.RiderCar,
	})
	releaseAgg := aggregates.NewReleaseAggregate(aggregates.ReleaseAggregateDeps{
		Base:             base,
		Releases:         reposet.Release,
		RiderCars:        reposet.RiderCar,
		Riders:           reposet.LeaseRider,
		Assignments:      reposet.Assignment,
		LeaseTransitions: reposet.LeaseTransition,
	})
	if err := aggregates.CheckContracts(triageAgg, riderCarAgg, amendmentAgg, releaseAgg); err != nil {
		return Services{}, fmt.Errorf("wire aggregates: %w", err)
	}

	triage := services.NewTriageService(deps, triageAgg, reposet.Triage)
	riderCars := services.NewRiderCarService(deps, riderCarAgg, reposet.RiderCar, idle, triage)
	amendments := services.NewAmendmentService(deps, amendmentAgg, reposet.Amendment)
	releases := services.NewReleaseService(deps, releaseAgg, reposet.Release)

	return Services{
		Ledger:      ledg,
		Releases:    releases,
		RiderCars:   riderCars,
		Amendments:  amendments,
		Triage:      triage,
		Alerts:      alerts,
		IdlePeriods: idle,
	}, nil
}
