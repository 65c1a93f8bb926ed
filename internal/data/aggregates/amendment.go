package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	types "github.com/yungbote/railfleet-backend/internal/domain"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

type AmendmentAggregateDeps struct {
	Base BaseDeps

	Amendments  repos.AmendmentRepo
	Riders      repos.LeaseRiderRepo
	RateHistory repos.RateHistoryRepo
	RiderCars   repos.RiderCarRepo
}

type amendmentAggregate struct {
	deps AmendmentAggregateDeps
}

func NewAmendmentAggregate(deps AmendmentAggregateDeps) domainagg.AmendmentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &amendmentAggregate{deps: deps}
}

func (a *amendmentAggregate) Contract() domainagg.Contract {
	return domainagg.AmendmentAggregateContract
}

func (a *amendmentAggregate) configured() bool {
	return a.deps.Amendments != nil && a.deps.Riders != nil && a.deps.RateHistory != nil && a.deps.RiderCars != nil
}

func (a *amendmentAggregate) Create(ctx context.Context, in domainagg.CreateAmendmentInput) (domainagg.AmendmentTransitionResult, error) {
	const op = "Fleet.Amendment.Create"
	var out domainagg.AmendmentTransitionResult
	number := strings.TrimSpace(in.AmendmentNumber)
	if in.RiderID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing rider_id", nil)
	}
	if number == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing amendment_number", nil)
	}
	if in.NewRate != nil && *in.NewRate < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "new_rate must be >= 0", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "amendment aggregate repos not configured", nil)
	}
	id := in.AmendmentID
	if id == uuid.Nil {
		id = uuid.New()
	}
	at := nowOr(in.CreatedAt)
	effective := in.EffectiveDate.UTC()
	if in.EffectiveDate.IsZero() {
		effective = at
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rider, err := a.deps.Riders.GetByID(dbc, in.RiderID)
		if err != nil {
			return err
		}
		if rider == nil {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op,
				fmt.Sprintf("rider not found: %s", in.RiderID), nil)
		}
		row := &types.LeaseAmendment{
			ID:              id,
			RiderID:         in.RiderID,
			AmendmentNumber: number,
			AmendmentType:   strings.TrimSpace(in.AmendmentType),
			Summary:         strings.TrimSpace(in.Summary),
			Status:          fleet.AmendmentStatusDraft,
			NewRate:         in.NewRate,
			EffectiveDate:   effective,
			CreatedBy:       actorOr(in.ActorLabel),
			CreatedAt:       at,
			UpdatedAt:       at,
		}
		if _, err := a.deps.Amendments.Create(dbc, []*types.LeaseAmendment{row}); err != nil {
			return err
		}
		out = domainagg.AmendmentTransitionResult{
			AmendmentID:     id,
			RiderID:         in.RiderID,
			AmendmentNumber: number,
			ToStatus:        fleet.AmendmentStatusDraft,
			TransitionAt:    at,
		}
		return nil
	})
	return out, err
}

func (a *amendmentAggregate) Transition(ctx context.Context, in domainagg.TransitionAmendmentInput) (domainagg.AmendmentTransitionResult, error) {
	const op = "Fleet.Amendment.Transition"
	var out domainagg.AmendmentTransitionResult
	if in.AmendmentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing amendment_id", nil)
	}
	switch {
	case in.FromStatus == fleet.AmendmentStatusDraft && in.ToStatus == fleet.AmendmentStatusPending:
	case in.FromStatus == fleet.AmendmentStatusPending && in.ToStatus == fleet.AmendmentStatusApproved:
	case in.FromStatus == fleet.AmendmentStatusPending && in.ToStatus == fleet.AmendmentStatusDraft:
		if strings.TrimSpace(in.Reason) == "" {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "rejection reason is required", nil)
		}
	default:
		return out, domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("unsupported amendment transition %s -> %s", in.FromStatus, in.ToStatus), nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "amendment aggregate repos not configured", nil)
	}
	action := strings.TrimSpace(in.Action)
	if action == "" {
		action = "transition"
	}
	actor := actorOr(in.ActorLabel)
	at := nowOr(in.TransitionAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		am, err := a.deps.Amendments.LockByID(dbc, in.AmendmentID)
		if err != nil {
			return err
		}
		if am == nil {
			return notFound(op, "amendment", in.AmendmentID.String())
		}
		if err := RequireStatusAllowed(op, action, "amendment", am.Status, in.FromStatus); err != nil {
			return err
		}

		updates := map[string]any{
			"status":     in.ToStatus,
			"updated_at": at,
		}
		switch in.ToStatus {
		case fleet.AmendmentStatusPending:
			updates["submitted_by"] = actor
			updates["submitted_at"] = at
			updates["rejection_reason"] = ""
		case fleet.AmendmentStatusApproved:
			updates["approved_by"] = actor
			updates["approved_at"] = at
		case fleet.AmendmentStatusDraft:
			updates["rejection_reason"] = strings.TrimSpace(in.Reason)
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.LeaseAmendment{}.TableName(), am.ID, []string{am.Status}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "amendment changed while transitioning"); err != nil {
			return err
		}

		if in.ToStatus == fleet.AmendmentStatusPending || in.ToStatus == fleet.AmendmentStatusDraft {
			if err := a.refreshRiderCarFlags(dbc, am.RiderID, at); err != nil {
				return err
			}
		}

		out = domainagg.AmendmentTransitionResult{
			AmendmentID:     am.ID,
			RiderID:         am.RiderID,
			AmendmentNumber: am.AmendmentNumber,
			FromStatus:      am.Status,
			ToStatus:        in.ToStatus,
			TransitionAt:    at,
		}
		return nil
	})
	return out, err
}

// refreshRiderCarFlags marks the rider's active cars as having an amendment in
// flight; more than one in flight is flagged as a conflict.
func (a *amendmentAggregate) refreshRiderCarFlags(dbc dbctx.Context, riderID uuid.UUID, at time.Time) error {
	all, err := a.deps.Amendments.ListByRider(dbc, riderID)
	if err != nil {
		return err
	}
	inFlight := 0
	for _, am := range all {
		if am.Status == fleet.AmendmentStatusPending || am.Status == fleet.AmendmentStatusApproved {
			inFlight++
		}
	}
	_, err = a.deps.RiderCars.SetAmendmentFlags(dbc, riderID, inFlight > 0, inFlight > 1, at)
	return err
}

func (a *amendmentAggregate) Activate(ctx context.Context, in domainagg.ActivateAmendmentInput) (domainagg.ActivateAmendmentResult, error) {
	const op = "Fleet.Amendment.Activate"
	var out domainagg.ActivateAmendmentResult
	if in.AmendmentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing amendment_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "amendment aggregate repos not configured", nil)
	}
	actor := actorOr(in.ActorLabel)
	at := nowOr(in.ActivatedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		am, err := a.deps.Amendments.LockByID(dbc, in.AmendmentID)
		if err != nil {
			return err
		}
		if am == nil {
			return notFound(op, "amendment", in.AmendmentID.String())
		}
		if err := RequireStatusAllowed(op, "activate", "amendment", am.Status, fleet.AmendmentStatusApproved); err != nil {
			return err
		}

		res := domainagg.ActivateAmendmentResult{
			AmendmentTransitionResult: domainagg.AmendmentTransitionResult{
				AmendmentID:     am.ID,
				RiderID:         am.RiderID,
				AmendmentNumber: am.AmendmentNumber,
				FromStatus:      fleet.AmendmentStatusApproved,
				ToStatus:        fleet.AmendmentStatusActive,
				TransitionAt:    at,
			},
		}

		// Supersede first so the one-Active-per-rider index never sees two rows.
		prior, err := a.deps.Amendments.LockActiveByRider(dbc, am.RiderID, am.ID)
		if err != nil {
			return err
		}
		if prior != nil {
			ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.LeaseAmendment{}.TableName(), prior.ID, []string{fleet.AmendmentStatusActive}, map[string]any{
				"status":           fleet.AmendmentStatusSuperseded,
				"superseded_at":    at,
				"superseded_by_id": am.ID,
				"updated_at":       at,
			})
			if err != nil {
				return err
			}
			if err := RequireCASSuccess(ok, "prior active amendment changed while superseding"); err != nil {
				return err
			}
			pid := prior.ID
			res.SupersededID = &pid
			res.SupersededNumber = prior.AmendmentNumber
		}

		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.LeaseAmendment{}.TableName(), am.ID, []string{fleet.AmendmentStatusApproved}, map[string]any{
			"status":       fleet.AmendmentStatusActive,
			"activated_by": actor,
			"activated_at": at,
			"updated_at":   at,
		})
		if err != nil {
			if IsUniqueViolation(err) {
				return domainagg.NewError(domainagg.CodeConflict, op,
					fmt.Sprintf("rider %s already has an active amendment", am.RiderID), err)
			}
			return err
		}
		if err := RequireCASSuccess(ok, "amendment changed while activating"); err != nil {
			return err
		}

		if am.NewRate != nil {
			rider, err := a.deps.Riders.LockByID(dbc, am.RiderID)
			if err != nil {
				return err
			}
			if rider == nil {
				return domainagg.NewError(domainagg.CodePreconditionFailed, op,
					fmt.Sprintf("rider not found: %s", am.RiderID), nil)
			}
			prev := rider.Rate
			if err := a.deps.Riders.UpdateFields(dbc, rider.ID, map[string]interface{}{
				"rate":       *am.NewRate,
				"updated_at": at,
			}); err != nil {
				return err
			}
			amID := am.ID
			h := &types.RiderRateHistory{
				ID:            uuid.New(),
				RiderID:       rider.ID,
				AmendmentID:   &amID,
				PreviousRate:  &prev,
				NewRate:       *am.NewRate,
				EffectiveDate: am.EffectiveDate,
				ChangedBy:     actor,
				CreatedAt:     at,
			}
			if _, err := a.deps.RateHistory.Create(dbc, []*types.RiderRateHistory{h}); err != nil {
				return err
			}
			hid := h.ID
			newRate := *am.NewRate
			res.RateHistoryID = &hid
			res.PreviousRate = &prev
			res.NewRate = &newRate
		}

		cleared, err := a.deps.RiderCars.SetAmendmentFlags(dbc, am.RiderID, false, false, at)
		if err != nil {
			return err
		}
		res.ClearedRiderCars = cleared

		out = res
		return nil
	})
	return out, err
}
