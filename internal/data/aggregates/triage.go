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

const (
	TriagePriorityHighest = 1
	TriagePriorityLowest  = 5
	TriagePriorityDefault = 3
)

type TriageAggregateDeps struct {
	Base BaseDeps

	Entries repos.TriageRepo
}

type triageAggregate struct {
	deps TriageAggregateDeps
}

func NewTriageAggregate(deps TriageAggregateDeps) domainagg.TriageAggregate {
	deps.Base = deps.Base.withDefaults()
	return &triageAggregate{deps: deps}
}

func (a *triageAggregate) Contract() domainagg.Contract {
	return domainagg.TriageAggregateContract
}

func (a *triageAggregate) Create(ctx context.Context, in domainagg.CreateTriageEntryInput) (domainagg.TriageEntryResult, error) {
	const op = "Fleet.Triage.Create"
	var out domainagg.TriageEntryResult
	carNumber := strings.TrimSpace(in.CarNumber)
	reason := strings.TrimSpace(in.Reason)
	switch {
	case in.CarID == uuid.Nil:
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing car_id", nil)
	case carNumber == "":
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing car_number", nil)
	case reason == "":
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing reason", nil)
	}
	priority := in.Priority
	if priority == 0 {
		priority = TriagePriorityDefault
	}
	if priority < TriagePriorityHighest || priority > TriagePriorityLowest {
		return out, domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("priority must be between %d and %d", TriagePriorityHighest, TriagePriorityLowest), nil)
	}
	if a.deps.Entries == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "triage aggregate repos not configured", nil)
	}
	id := in.EntryID
	if id == uuid.Nil {
		id = uuid.New()
	}
	at := nowOr(in.CreatedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row := &types.TriageEntry{
			ID:                id,
			CarID:             in.CarID,
			CarNumber:         carNumber,
			Reason:            reason,
			Priority:          priority,
			Notes:             strings.TrimSpace(in.Notes),
			SourceReferenceID: nonNilID(in.SourceReferenceID),
			CreatedBy:         strings.TrimSpace(in.ActorLabel),
			CreatedAt:         at,
			UpdatedAt:         at,
		}
		open, err := a.deps.Entries.GetOpenByCar(dbc, in.CarID)
		if err != nil {
			return err
		}
		if open != nil {
			return domainagg.NewError(domainagg.CodeConflict, op,
				fmt.Sprintf("Car %s already has an open triage entry (%s, priority %d)", carNumber, open.Reason, open.Priority), nil)
		}
		// The open-entry unique index still decides concurrent creates.
		if _, err := a.deps.Entries.Create(dbc, []*types.TriageEntry{row}); err != nil {
			if IsUniqueViolation(err) {
				return domainagg.NewError(domainagg.CodeConflict, op,
					fmt.Sprintf("Car %s already has an open triage entry", carNumber), err)
			}
			return err
		}
		out = domainagg.TriageEntryResult{
			EntryID:   id,
			CarID:     in.CarID,
			CarNumber: carNumber,
			Reason:    reason,
			Priority:  priority,
			State:     fleet.TriageStateOpen,
			At:        at,
		}
		return nil
	})
	return out, err
}

func (a *triageAggregate) Resolve(ctx context.Context, in domainagg.ResolveTriageEntryInput) (domainagg.TriageEntryResult, error) {
	const op = "Fleet.Triage.Resolve"
	var out domainagg.TriageEntryResult
	resolution := strings.TrimSpace(in.Resolution)
	if in.EntryID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing entry_id", nil)
	}
	if resolution == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing resolution", nil)
	}
	if a.deps.Entries == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "triage aggregate repos not configured", nil)
	}
	at := nowOr(in.ResolvedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		e, err := a.deps.Entries.LockByID(dbc, in.EntryID)
		if err != nil {
			return err
		}
		if e == nil {
			return notFound(op, "triage entry", in.EntryID.String())
		}
		if e.ResolvedAt != nil {
			return domainagg.IllegalTransition(op, "resolve", "triage entry", e.State())
		}
		updates := map[string]interface{}{
			"resolved_at":      at,
			"resolution":       resolution,
			"resolved_by":      actorOr(in.ResolvedBy),
			"resolution_notes": strings.TrimSpace(in.Notes),
			"updated_at":       at,
		}
		if ref := nonNilID(in.ResolutionReferenceID); ref != nil {
			updates["resolution_reference_id"] = *ref
		}
		if err := a.deps.Entries.UpdateFields(dbc, e.ID, updates); err != nil {
			return err
		}
		out = domainagg.TriageEntryResult{
			EntryID:    e.ID,
			CarID:      e.CarID,
			CarNumber:  e.CarNumber,
			Reason:     e.Reason,
			Priority:   e.Priority,
			State:      fleet.TriageStateResolved,
			Resolution: resolution,
			At:         at,
		}
		return nil
	})
	return out, err
}
