package domain

import (
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/domain/ledger"
)

type (
	Lease              = fleet.Lease
	LeaseRider         = fleet.LeaseRider
	RiderRateHistory   = fleet.RiderRateHistory
	RiderCar           = fleet.RiderCar
	OnRentHistory      = fleet.OnRentHistory
	IdlePeriod         = fleet.IdlePeriod
	CarRelease         = fleet.CarRelease
	CarAssignment      = fleet.CarAssignment
	CarLeaseTransition = fleet.CarLeaseTransition
	LeaseAmendment     = fleet.LeaseAmendment
	TriageEntry        = fleet.TriageEntry
	Alert              = fleet.Alert

	TransitionLogEntry = ledger.TransitionLogEntry
	SideEffect         = ledger.SideEffect
	Actor              = ledger.Actor
	ProcessType        = ledger.ProcessType
)

// AllModels lists every persisted row type in migration order.
func AllModels() []any {
	return []any{
		&Lease{},
		&LeaseRider{},
		&RiderRateHistory{},
		&RiderCar{},
		&OnRentHistory{},
		&IdlePeriod{},
		&CarAssignment{},
		&CarLeaseTransition{},
		&CarRelease{},
		&LeaseAmendment{},
		&TriageEntry{},
		&Alert{},
		&TransitionLogEntry{},
	}
}
