package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/repos/fleet"
	"github.com/yungbote/railfleet-backend/internal/data/repos/ledger"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type LeaseRepo = fleet.LeaseRepo
type LeaseRiderRepo = fleet.LeaseRiderRepo
type RateHistoryRepo = fleet.RateHistoryRepo

type RiderCarRepo = fleet.RiderCarRepo
type OnRentHistoryRepo = fleet.OnRentHistoryRepo
type IdlePeriodRepo = fleet.IdlePeriodRepo

type ReleaseRepo = fleet.ReleaseRepo
type ReleaseFilter = fleet.ReleaseFilter
type AssignmentRepo = fleet.AssignmentRepo
type LeaseTransitionRepo = fleet.LeaseTransitionRepo

type AmendmentRepo = fleet.AmendmentRepo

type TriageRepo = fleet.TriageRepo
type TriageFilter = fleet.TriageFilter
type AlertRepo = fleet.AlertRepo

type TransitionLogRepo = ledger.TransitionLogRepo

func NewLeaseRepo(db *gorm.DB, baseLog *logger.Logger) LeaseRepo {
	return fleet.NewLeaseRepo(db, baseLog)
}
func NewLeaseRiderRepo(db *gorm.DB, baseLog *logger.Logger) LeaseRiderRepo {
	return fleet.NewLeaseRiderRepo(db, baseLog)
}
func NewRateHistoryRepo(db *gorm.DB, baseLog *logger.Logger) RateHistoryRepo {
	return fleet.NewRateHistoryRepo(db, baseLog)
}

func NewRiderCarRepo(db *gorm.DB, baseLog *logger.Logger) RiderCarRepo {
	return fleet.NewRiderCarRepo(db, baseLog)
}
func NewOnRentHistoryRepo(db *gorm.DB, baseLog *logger.Logger) OnRentHistoryRepo {
	return fleet.NewOnRentHistoryRepo(db, baseLog)
}
func NewIdlePeriodRepo(db *gorm.DB, baseLog *logger.Logger) IdlePeriodRepo {
	return fleet.NewIdlePeriodRepo(db, baseLog)
}

func NewReleaseRepo(db *gorm.DB, baseLog *logger.Logger) ReleaseRepo {
	return fleet.NewReleaseRepo(db, baseLog)
}
func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return fleet.NewAssignmentRepo(db, baseLog)
}
func NewLeaseTransitionRepo(db *gorm.DB, baseLog *logger.Logger) LeaseTransitionRepo {
	return fleet.NewLeaseTransitionRepo(db, baseLog)
}

func NewAmendmentRepo(db *gorm.DB, baseLog *logger.Logger) AmendmentRepo {
	return fleet.NewAmendmentRepo(db, baseLog)
}

func NewTriageRepo(db *gorm.DB, baseLog *logger.Logger) TriageRepo {
	return fleet.NewTriageRepo(db, baseLog)
}
func NewAlertRepo(db *gorm.DB, baseLog *logger.Logger) AlertRepo {
	return fleet.NewAlertRepo(db, baseLog)
}

func NewTransitionLogRepo(db *gorm.DB, baseLog *logger.Logger) TransitionLogRepo {
	return ledger.NewTransitionLogRepo(db, baseLog)
}
