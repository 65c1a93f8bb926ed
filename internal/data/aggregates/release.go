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

type ReleaseAggregateDeps struct {
	Base BaseDeps

	Releases         repos.ReleaseRepo
	RiderCars        repos.RiderCarRepo
	Riders           repos.LeaseRiderRepo
	Assignments      repos.AssignmentRepo
	LeaseTransitions repos.LeaseTransitionRepo
}

type releaseAggregate struct {
	deps ReleaseAggregateDeps
}

func NewReleaseAggregate(deps ReleaseAggregateDeps) domainagg.ReleaseAggregate {
	deps.Base = deps.Base.withDefaults()
	return &releaseAggregate{deps: deps}
}

func (a *releaseAggregate) Contract() domainagg.Contract {
	return domainagg.ReleaseAggregateContract
}

func (a *releaseAggregate) configured() bool {
	return a.deps.Releases != nil && a.deps.RiderCars != nil && a.deps.Riders != nil && a.deps.Assignments != nil && a.deps.LeaseTransitions != nil
}

func (a *releaseAggregate) Initiate(ctx context.Context, in domainagg.InitiateReleaseInput) (domainagg.ReleaseTransitionResult, error) {
	const op = "Fleet.Release.Initiate"
	var out domainagg.ReleaseTransitionResult
	carNumber := strings.TrimSpace(in.CarNumber)
	if carNumber == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing car_number", nil)
	}
	if in.RiderID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing rider_id", nil)
	}
	releaseType := strings.TrimSpace(in.ReleaseType)
	if releaseType == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing release_type", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "release aggregate repos not configured", nil)
	}
	releaseID := in.ReleaseID
	if releaseID == uuid.Nil {
		releaseID = uuid.New()
	}
	at := nowOr(in.InitiatedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rc, err := a.deps.RiderCars.GetActiveOnRider(dbc, carNumber, in.RiderID)
		if err != nil {
			return err
		}
		if rc == nil {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op,
				fmt.Sprintf("Car %s is not active on rider %s", carNumber, in.RiderID), nil)
		}

		existing, err := a.deps.Releases.GetOpenByCarNumber(dbc, carNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return openReleaseConflict(op, carNumber, existing.Status)
		}

		if in.AssignmentID != nil && *in.AssignmentID != uuid.Nil {
			asg, err := a.deps.Assignments.GetByID(dbc, *in.AssignmentID)
			if err != nil {
				return err
			}
			if asg == nil {
				return domainagg.NewError(domainagg.CodePreconditionFailed, op,
					fmt.Sprintf("assignment not found: %s", in.AssignmentID), nil)
			}
		}
		if in.LeaseTransitionID != nil && *in.LeaseTransitionID != uuid.Nil {
			lt, err := a.deps.LeaseTransitions.GetByID(dbc, *in.LeaseTransitionID)
			if err != nil {
				return err
			}
			if lt == nil {
				return domainagg.NewError(domainagg.CodePreconditionFailed, op,
					fmt.Sprintf("lease transition not found: %s", in.LeaseTransitionID), nil)
			}
		}

		row := &types.CarRelease{
			ID:                releaseID,
			CarNumber:         carNumber,
			CarID:             rc.CarID,
			RiderID:           in.RiderID,
			RiderCarID:        rc.ID,
			ReleaseType:       releaseType,
			Status:            fleet.ReleaseStatusInitiated,
			AssignmentID:      nonNilID(in.AssignmentID),
			LeaseTransitionID: nonNilID(in.LeaseTransitionID),
			InitiatedBy:       actorOr(in.ActorLabel),
			Notes:             strings.TrimSpace(in.Notes),
			CreatedAt:         at,
			UpdatedAt:         at,
		}
		if _, err := a.deps.Releases.Create(dbc, []*types.CarRelease{row}); err != nil {
			// A concurrent initiate won the partial unique index.
			if IsUniqueViolation(err) {
				return openReleaseConflict(op, carNumber, "")
			}
			return err
		}

		out = domainagg.ReleaseTransitionResult{
			ReleaseID:    releaseID,
			CarNumber:    carNumber,
			ToStatus:     fleet.ReleaseStatusInitiated,
			TransitionAt: at,
		}
		return nil
	})
	return out, err
}

func (a *releaseAggregate) Transition(ctx context.Context, in domainagg.TransitionReleaseInput) (domainagg.ReleaseTransitionResult, error) {
	const op = "Fleet.Release.Transition"
	var out domainagg.ReleaseTransitionResult
	if in.ReleaseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing release_id", nil)
	}
	if len(in.FromStatuses) == 0 || strings.TrimSpace(in.ToStatus) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing from/to status", nil)
	}
	if in.ToStatus == fleet.ReleaseStatusCancelled && strings.TrimSpace(in.Reason) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "cancellation reason is required", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "release aggregate repos not configured", nil)
	}
	action := strings.TrimSpace(in.Action)
	if action == "" {
		action = "transition"
	}
	actor := actorOr(in.ActorLabel)
	at := nowOr(in.TransitionAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rel, err := a.deps.Releases.LockByID(dbc, in.ReleaseID)
		if err != nil {
			return err
		}
		if rel == nil {
			return notFound(op, "release", in.ReleaseID.String())
		}
		if err := RequireStatusAllowed(op, action, "release", rel.Status, in.FromStatuses...); err != nil {
			return err
		}

		updates := map[string]any{
			"status":     in.ToStatus,
			"updated_at": at,
		}
		switch in.ToStatus {
		case fleet.ReleaseStatusApproved:
			updates["approved_by"] = actor
			updates["approved_at"] = at
		case fleet.ReleaseStatusExecuting:
			updates["executed_by"] = actor
			updates["executed_at"] = at
		case fleet.ReleaseStatusCancelled:
			updates["cancelled_by"] = actor
			updates["cancelled_at"] = at
			updates["cancellation_reason"] = strings.TrimSpace(in.Reason)
		case fleet.ReleaseStatusInitiated:
			// reverting an approval
			updates["approved_by"] = ""
			updates["approved_at"] = nil
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			updates["notes"] = notes
		}

		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.CarRelease{}.TableName(), rel.ID, []string{rel.Status}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "release changed while transitioning"); err != nil {
			return err
		}

		out = domainagg.ReleaseTransitionResult{
			ReleaseID:    rel.ID,
			CarNumber:    rel.CarNumber,
			FromStatus:   rel.Status,
			ToStatus:     in.ToStatus,
			TransitionAt: at,
		}
		return nil
	})
	return out, err
}

func (a *releaseAggregate) Complete(ctx context.Context, in domainagg.CompleteReleaseInput) (domainagg.CompleteReleaseResult, error) {
	const op = "Fleet.Release.Complete"
	var out domainagg.CompleteReleaseResult
	if in.ReleaseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing release_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "release aggregate repos not configured", nil)
	}
	actor := actorOr(in.ActorLabel)
	at := nowOr(in.CompletedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rel, err := a.deps.Releases.LockByID(dbc, in.ReleaseID)
		if err != nil {
			return err
		}
		if rel == nil {
			return notFound(op, "release", in.ReleaseID.String())
		}
		if err := RequireStatusAllowed(op, "complete", "release", rel.Status, fleet.ReleaseStatusExecuting); err != nil {
			return err
		}

		updates := map[string]any{
			"status":       fleet.ReleaseStatusCompleted,
			"completed_by": actor,
			"completed_at": at,
			"updated_at":   at,
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			updates["notes"] = notes
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.CarRelease{}.TableName(), rel.ID, []string{fleet.ReleaseStatusExecuting}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "release changed while completing"); err != nil {
			return err
		}

		rc, err := a.deps.RiderCars.LockByID(dbc, rel.RiderCarID)
		if err != nil {
			return err
		}
		if rc == nil {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op,
				fmt.Sprintf("rider car %s for release %s no longer exists", rel.RiderCarID, rel.ID), nil)
		}
		if err := a.deps.RiderCars.UpdateFields(dbc, rc.ID, map[string]interface{}{
			"is_active":    false,
			"removed_date": at,
			"updated_at":   at,
		}); err != nil {
			return err
		}
		// Billing stops with the release; the rider's count drops the car.
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

		out = domainagg.CompleteReleaseResult{
			ReleaseTransitionResult: domainagg.ReleaseTransitionResult{
				ReleaseID:    rel.ID,
				CarNumber:    rel.CarNumber,
				FromStatus:   fleet.ReleaseStatusExecuting,
				ToStatus:     fleet.ReleaseStatusCompleted,
				TransitionAt: at,
			},
			RiderCarID:     rc.ID,
			CarID:          rel.CarID,
			RiderID:        rel.RiderID,
			ActiveCarCount: count,
		}

		if rel.AssignmentID != nil {
			asg, err := a.deps.Assignments.LockByID(dbc, *rel.AssignmentID)
			if err != nil {
				return err
			}
			if asg != nil && !fleet.IsTerminalAssignmentStatus(asg.Status) {
				if err := a.deps.Assignments.UpdateFields(dbc, asg.ID, map[string]interface{}{
					"status":       fleet.AssignmentStatusComplete,
					"completed_at": at,
					"updated_at":   at,
				}); err != nil {
					return err
				}
				id := asg.ID
				out.CompletedAssignmentID = &id
			}
		}
		if rel.LeaseTransitionID != nil {
			lt, err := a.deps.LeaseTransitions.LockByID(dbc, *rel.LeaseTransitionID)
			if err != nil {
				return err
			}
			if lt != nil && !fleet.IsTerminalLeaseTransitionStatus(lt.Status) {
				if err := a.deps.LeaseTransitions.UpdateFields(dbc, lt.ID, map[string]interface{}{
					"status":       fleet.LeaseTransitionStatusComplete,
					"completed_at": at,
					"updated_at":   at,
				}); err != nil {
					return err
				}
				id := lt.ID
				out.CompletedLeaseTransitionID = &id
			}
		}
		return nil
	})
	return out, err
}

func openReleaseConflict(op, carNumber, status string) error {
	msg := fmt.Sprintf("Car %s already has an open release", carNumber)
	if status != "" {
		msg = fmt.Sprintf("Car %s already has an open release in status %s", carNumber, status)
	}
	return domainagg.NewError(domainagg.CodeConflict, op, msg, nil)
}

func nonNilID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}
