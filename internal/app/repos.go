package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type Repos struct {
	Lease           repos.LeaseRepo
	LeaseRider      repos.LeaseRiderRepo
	RateHistory     repos.RateHistoryRepo
	RiderCar        repos.RiderCarRepo
	OnRentHistory   repos.OnRentHistoryRepo
	IdlePeriod      repos.IdlePeriodRepo
	Release         repos.ReleaseRepo
	Assignment      repos.AssignmentRepo
	LeaseTransition repos.LeaseTransitionRepo
	Amendment       repos.AmendmentRepo
	Triage          repos.TriageRepo
	Alert           repos.AlertRepo
	TransitionLog   repos.TransitionLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Lease:           repos.NewLeaseRepo(db, log),
		LeaseRider:      repos.NewLeaseRiderRepo(db, log),
		RateHistory:     repos.NewRateHistoryRepo(db, log),
		RiderCar:        repos.NewRiderCarRepo(db, log),
		OnRentHistory:   repos.NewOnRentHistoryRepo(db, log),
		IdlePeriod:      repos.NewIdlePeriodRepo(db, log),
		Release:         repos.NewReleaseRepo(db, log),
		Assignment:      repos.NewAssignmentRepo(db, log),
		LeaseTransition: repos.NewLeaseTransitionRepo(db, log),
		Amendment:       repos.NewAmendmentRepo(db, log),
		Triage:          repos.NewTriageRepo(db, log),
		Alert:           repos.NewAlertRepo(db, log),
		TransitionLog:   repos.NewTransitionLogRepo(db, log),
	}
}
