package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	types "github.com/yungbote/railfleet-backend/internal/domain"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

// riderCarEdges is the full legal transition table; off_rent and cancelled are terminal.
var riderCarEdges = map[string][]string{
	fleet.RiderCarStatusDecided:      {fleet.RiderCarStatusPrepRequired, fleet.RiderCarStatusCancelled},
	fleet.RiderCarStatusPrepRequired: {fleet.RiderCarStatusOnRent, fleet.RiderCarStatusCancelled},
	fleet.RiderCarStatusOnRent:       {fleet.RiderCarStatusReleasing},
	fleet.RiderCarStatusReleasing:    {fleet.RiderCarStatusOffRent, fleet.RiderCarStatusOnRent},
	fleet.RiderCarStatusOffRent:      nil,
	fleet.RiderCarStatusCancelled:    nil,
}

// RiderCarTransitionAllowed reports whether from -> to is a legal lifecycle edge.
func RiderCarTransitionAllowed(from, to string) bool {
	for _, s := range riderCarEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isRiderCarStatus(s string) bool {
	_, ok := riderCarEdges[s]
	return ok
}

type RiderCarAggregateDeps struct {
	Base BaseDeps

	RiderCars repos.RiderCarRepo
	Riders    repos.LeaseRiderRepo
	Leases    repos.LeaseRepo
	OnRent    repos.OnRentHistoryRepo
}

type riderCarAggregate struct {
	deps RiderCarAggregateDeps
}

func NewRiderCarAggregate(deps RiderCarAggregateDeps) domainagg.RiderCarAggregate {
	deps.Base = deps.Base.withDefaults()
	return &riderCarAggregate{deps: deps}
}

func (a *riderCarAggregate) Contract() domainagg.Contract {
	return domainagg.RiderCarAggregateContract
}

func (a *riderCarAggregate) configured() bool {
	return a.deps.RiderCars != nil && a.deps.Riders != nil && a.deps.Leases != nil && a.deps.OnRent != nil
}

func (a *riderCarAggregate) Create(ctx context.Context, in domainagg.CreateRiderCarInput) (domainagg.RiderCarTransitionResult, error) {
	const op = "Fleet.RiderCar.Create"
	var out domainagg.RiderCarTransitionResult
	carNumber := strings.TrimSpace(in.CarNumber)
	switch {
	case in.RiderID == uuid.Nil:
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing rider_id", nil)
	case in.CarID == uuid.Nil:
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing car_id", nil)
	case carNumber == "":
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing car_number", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "rider car aggregate repos not configured", nil)
	}
	id := in.RiderCarID
	if id == uuid.Nil {
		id = uuid.New()
	}
	at := nowOr(in.CreatedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rider, err := a.deps.Riders.GetByID(dbc, in.RiderID)
		if err != nil {
			return err
		}
		if rider == nil {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op,
				fmt.Sprintf("rider not found: %s", in.RiderID), nil)
		}
		existing, err := a.deps.RiderCars.GetActiveOnRider(dbc, carNumber, in.RiderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainagg.NewError(domainagg.CodeConflict, op,
				fmt.Sprintf("Car %s is already on rider %s in status %s", carNumber, rider.RiderNumber, existing.Status), nil)
		}
		row := &types.RiderCar{
			ID:        id,
			RiderID:   in.RiderID,
			CarID:     in.CarID,
			CarNumber: carNumber,
			Status:    fleet.RiderCarStatusDecided,
			IsActive:  true,
			AddedDate: at,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if _, err := a.deps.RiderCars.Create(dbc, []*types.RiderCar{row}); err != nil {
			return err
		}
		out = domainagg.RiderCarTransitionResult{
			RiderCarID:   id,
			RiderID:      in.RiderID,
			CarID:        in.CarID,
			CarNumber:    carNumber,
			ToStatus:     fleet.RiderCarStatusDecided,
			TransitionAt: at,
		}
		return nil
	})
	return out, err
}

func (a *riderCarAggregate) Transition(ctx context.Context, in domainagg.TransitionRiderCarInput) (domainagg.RiderCarTransitionResult, error) {
	const op = "Fleet.RiderCar.Transition"
	var out domainagg.RiderCarTransitionResult
	to := strings.TrimSpace(in.ToStatus)
	if in.RiderCarID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing rider_car_id", nil)
	}
	if !isRiderCarStatus(to) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown rider car status %q", to), nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "rider car aggregate repos not configured", nil)
	}
	actor := actorOr(in.ActorLabel)
	at := nowOr(in.TransitionAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rc, err := a.deps.RiderCars.LockByID(dbc, in.RiderCarID)
		if err != nil {
			return err
		}
		if rc == nil {
			return notFound(op, "rider car", in.RiderCarID.String())
		}
		if !RiderCarTransitionAllowed(rc.Status, to) {
			return domainagg.NewError(domainagg.CodeInvariantViolation, op,
				fmt.Sprintf("Cannot transition rider car from %s to %s", rc.Status, to), nil)
		}

		if to == fleet.RiderCarStatusOnRent {
			if err := a.requireParentsActive(dbc, op, rc); err != nil {
				return err
			}
			other, err := a.deps.RiderCars.GetOnRentByCar(dbc, rc.CarID, rc.ID)
			if err != nil {
				return err
			}
			if other != nil {
				return onRentConflict(op, rc.CarNumber)
			}
		}

		updates := map[string]any{
			"status":     to,
			"updated_at": at,
		}
		switch to {
		case fleet.RiderCarStatusOnRent:
			updates["on_rent_at"] = at
		case fleet.RiderCarStatusReleasing:
			updates["releasing_at"] = at
		case fleet.RiderCarStatusOffRent:
			updates["off_rent_at"] = at
			updates["is_active"] = false
			updates["removed_date"] = at
		case fleet.RiderCarStatusCancelled:
			updates["cancelled_at"] = at
			updates["is_active"] = false
			updates["removed_date"] = at
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.RiderCar{}.TableName(), rc.ID, []string{rc.Status}, updates)
		if err != nil {
			if IsUniqueViolation(err) {
				return onRentConflict(op, rc.CarNumber)
			}
			return err
		}
		if err := RequireCASSuccess(ok, "rider car changed while transitioning"); err != nil {
			return err
		}

		out = domainagg.RiderCarTransitionResult{
			RiderCarID:   rc.ID,
			RiderID:      rc.RiderID,
			CarID:        rc.CarID,
			CarNumber:    rc.CarNumber,
			FromStatus:   rc.Status,
			ToStatus:     to,
			TransitionAt: at,
		}

		if to == fleet.RiderCarStatusOnRent || to == fleet.RiderCarStatusOffRent {
			h := &types.OnRentHistory{
				ID:          uuid.New(),
				RiderCarID:  rc.ID,
				RiderID:     rc.RiderID,
				CarID:       rc.CarID,
				CarNumber:   rc.CarNumber,
				IsOnRent:    to == fleet.RiderCarStatusOnRent,
				EffectiveAt: at,
				ChangedBy:   actor,
				CreatedAt:   at,
			}
			if _, err := a.deps.OnRent.Create(dbc, []*types.OnRentHistory{h}); err != nil {
				return err
			}
			hid := h.ID
			out.OnRentHistoryID = &hid

			n, err := a.deps.RiderCars.CountBillableByRider(dbc, rc.RiderID)
			if err != nil {
				return err
			}
			if err := a.deps.Riders.UpdateFields(dbc, rc.RiderID, map[string]interface{}{
				"active_car_count": n,
				"updated_at":       at,
			}); err != nil {
				return err
			}
			count := int(n)
			out.ActiveCarCount = &count
		}
		return nil
	})
	return out, err
}

// requireParentsActive locks the rider and its lease so neither can leave Active
// while the car goes on rent.
func (a *riderCarAggregate) requireParentsActive(dbc dbctx.Context, op string, rc *types.RiderCar) error {
	rider, err := a.deps.Riders.LockByID(dbc, rc.RiderID)
	if err != nil {
		return err
	}
	if rider == nil {
		return domainagg.NewError(domainagg.CodePreconditionFailed, op,
			fmt.Sprintf("Cannot put car %s on rent: rider %s not found", rc.CarNumber, rc.RiderID), nil)
	}
	if rider.Status != fleet.RiderStatusActive {
		return domainagg.NewError(domainagg.CodePreconditionFailed, op,
			fmt.Sprintf("Cannot put car %s on rent: rider %s is %s", rc.CarNumber, rider.RiderNumber, rider.Status), nil)
	}
	lease, err := a.deps.Leases.LockByID(dbc, rider.LeaseID)
	if err != nil {
		return err
	}
	if lease == nil {
		return domainagg.NewError(domainagg.CodePreconditionFailed, op,
			fmt.Sprintf("Cannot put car %s on rent: lease %s not found", rc.CarNumber, rider.LeaseID), nil)
	}
	if lease.Status != fleet.LeaseStatusActive {
		return domainagg.NewError(domainagg.CodePreconditionFailed, op,
			fmt.Sprintf("Cannot put car %s on rent: lease %s is %s", rc.CarNumber, lease.LeaseNumber, lease.Status), nil)
	}
	return nil
}

func onRentConflict(op, carNumber string) error {
	return domainagg.NewError(domainagg.CodeConflict, op,
		fmt.Sprintf("Car %s is already on rent on another rider", carNumber), nil)
}
