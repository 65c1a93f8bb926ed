package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	types "github.com/yungbote/railfleet-backend/internal/domain"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/events"
	"github.com/yungbote/railfleet-backend/internal/ledger"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type InitiateReleaseRequest struct {
	CarNumber         string
	RiderID           uuid.UUID
	ReleaseType       string
	AssignmentID      *uuid.UUID
	LeaseTransitionID *uuid.UUID
	Notes             string
	Actor             ledger.Actor
}

// RevertOutcome describes an applied revert.
type RevertOutcome struct {
	Release              *types.CarRelease `json:"release"`
	RevertedTransitionID uuid.UUID         `json:"reverted_transition_id"`
	ReversalTransitionID *uuid.UUID        `json:"reversal_transition_id,omitempty"`
}

type ReleaseService interface {
	Initiate(ctx context.Context, req InitiateReleaseRequest) (*types.CarRelease, error)
	Approve(ctx context.Context, id uuid.UUID, actor ledger.Actor, notes string) (*types.CarRelease, error)
	Execute(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.CarRelease, error)
	Complete(ctx context.Context, id uuid.UUID, actor ledger.Actor, notes string) (*types.CarRelease, error)
	Cancel(ctx context.Context, id uuid.UUID, actor ledger.Actor, reason string) (*types.CarRelease, error)

	// RevertLastTransition undoes the latest release transition when the ledger
	// reports it safe. Only approval can be undone this way.
	RevertLastTransition(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*RevertOutcome, error)

	Get(ctx context.Context, id uuid.UUID) (*types.CarRelease, error)
	List(ctx context.Context, filter repos.ReleaseFilter) ([]*types.CarRelease, error)
}

type releaseService struct {
	deps     WorkflowDeps
	log      *logger.Logger
	agg      domainagg.ReleaseAggregate
	releases repos.ReleaseRepo
}

func NewReleaseService(deps WorkflowDeps, agg domainagg.ReleaseAggregate, releases repos.ReleaseRepo) ReleaseService {
	return &releaseService{
		deps:     deps,
		log:      deps.Log.With("service", "ReleaseService"),
		agg:      agg,
		releases: releases,
	}
}

func (s *releaseService) Initiate(ctx context.Context, req InitiateReleaseRequest) (*types.CarRelease, error) {
	res, err := s.agg.Initiate(ctx, domainagg.InitiateReleaseInput{
		CarNumber:         req.CarNumber,
		RiderID:           req.RiderID,
		ReleaseType:       req.ReleaseType,
		AssignmentID:      req.AssignmentID,
		LeaseTransitionID: req.LeaseTransitionID,
		Notes:             req.Notes,
		ActorLabel:        req.Actor.Label(),
		InitiatedAt:       s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("initiate release: %w", err)
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessRelease,
		EntityID:     res.ReleaseID,
		EntityNumber: res.CarNumber,
		ToState:      fleet.ReleaseStatusInitiated,
		Actor:        req.Actor,
		Notes:        req.Notes,
	})
	return s.Get(ctx, res.ReleaseID)
}

func (s *releaseService) Approve(ctx context.Context, id uuid.UUID, actor ledger.Actor, notes string) (*types.CarRelease, error) {
	return s.transition(ctx, domainagg.TransitionReleaseInput{
		ReleaseID:    id,
		Action:       "approve",
		FromStatuses: []string{fleet.ReleaseStatusInitiated},
		ToStatus:     fleet.ReleaseStatusApproved,
		Notes:        notes,
	}, actor)
}

func (s *releaseService) Execute(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.CarRelease, error) {
	return s.transition(ctx, domainagg.TransitionReleaseInput{
		ReleaseID:    id,
		Action:       "execute",
		FromStatuses: []string{fleet.ReleaseStatusApproved},
		ToStatus:     fleet.ReleaseStatusExecuting,
	}, actor)
}

func (s *releaseService) Cancel(ctx context.Context, id uuid.UUID, actor ledger.Actor, reason string) (*types.CarRelease, error) {
	return s.transition(ctx, domainagg.TransitionReleaseInput{
		ReleaseID:    id,
		Action:       "cancel",
		FromStatuses: fleet.OpenReleaseStatuses,
		ToStatus:     fleet.ReleaseStatusCancelled,
		Reason:       reason,
	}, actor)
}

func (s *releaseService) transition(ctx context.Context, in domainagg.TransitionReleaseInput, actor ledger.Actor) (*types.CarRelease, error) {
	in.ActorLabel = actor.Label()
	in.TransitionAt = s.deps.now()
	res, err := s.agg.Transition(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s release: %w", in.Action, err)
	}
	notes := in.Notes
	if in.Reason != "" {
		notes = in.Reason
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessRelease,
		EntityID:     res.ReleaseID,
		EntityNumber: res.CarNumber,
		FromState:    strPtr(res.FromStatus),
		ToState:      res.ToStatus,
		Actor:        actor,
		Notes:        notes,
	})
	return s.Get(ctx, res.ReleaseID)
}

func (s *releaseService) Complete(ctx context.Context, id uuid.UUID, actor ledger.Actor, notes string) (*types.CarRelease, error) {
	const op = "ReleaseService.Complete"
	res, err := s.agg.Complete(ctx, domainagg.CompleteReleaseInput{
		ReleaseID:   id,
		ActorLabel:  actor.Label(),
		Notes:       notes,
		CompletedAt: s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("complete release: %w", err)
	}

	var effects []ledger.SideEffect
	if res.CompletedAssignmentID != nil {
		effects = append(effects, ledger.SideEffect{
			Type: ledger.EffectCompleted, EntityType: ledger.EntityCarAssignment, EntityID: *res.CompletedAssignmentID,
		})
	}
	if res.CompletedLeaseTransitionID != nil {
		effects = append(effects, ledger.SideEffect{
			Type: ledger.EffectCompleted, EntityType: ledger.EntityCarLeaseTransition, EntityID: *res.CompletedLeaseTransitionID,
		})
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessRelease,
		EntityID:     res.ReleaseID,
		EntityNumber: res.CarNumber,
		FromState:    strPtr(res.FromStatus),
		ToState:      res.ToStatus,
		Actor:        actor,
		SideEffects:  effects,
		Notes:        notes,
	})

	s.deps.publish(ctx, events.NewEvent(events.TypeReleaseCompleted, types.CarRelease{}.TableName(), res.ReleaseID,
		actor.Label(), res.TransitionAt, map[string]any{
			"car_number":   res.CarNumber,
			"rider_id":     res.RiderID,
			"rider_car_id": res.RiderCarID,
		}))
	releaseID := res.ReleaseID
	s.deps.alert(ctx, s.log, op, AlertInput{
		AlertType:  "release_completed",
		Severity:   AlertSeverityInfo,
		Title:      fmt.Sprintf("Car %s released", res.CarNumber),
		Message:    fmt.Sprintf("Release %s completed by %s", res.ReleaseID, actor.Label()),
		EntityType: types.CarRelease{}.TableName(),
		EntityID:   &releaseID,
	})
	return s.Get(ctx, res.ReleaseID)
}

func (s *releaseService) RevertLastTransition(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*RevertOutcome, error) {
	const op = "ReleaseService.RevertLastTransition"
	if s.deps.Ledger == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "transition ledger not configured", nil)
	}
	check, err := s.deps.Ledger.CanRevert(ctx, ledger.ProcessRelease, id)
	if err != nil {
		return nil, fmt.Errorf("revert release: %w", err)
	}
	if !check.Allowed {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op,
			"Cannot revert release: "+strings.Join(check.Blockers, "; "), nil)
	}
	if check.PreviousState == nil {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op,
			"Cannot revert release creation; cancel the release instead", nil)
	}
	last, err := s.deps.Ledger.LastTransition(ctx, ledger.ProcessRelease, id)
	if err != nil {
		return nil, fmt.Errorf("revert release: %w", err)
	}
	if last == nil || check.TransitionID == nil || last.ID != *check.TransitionID {
		return nil, domainagg.NewError(domainagg.CodeConflict, op, "release history changed while reverting", nil)
	}
	if *check.PreviousState != fleet.ReleaseStatusInitiated || last.ToState != fleet.ReleaseStatusApproved {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op,
			fmt.Sprintf("Cannot revert release transition %s -> %s", *check.PreviousState, last.ToState), nil)
	}

	res, err := s.agg.Transition(ctx, domainagg.TransitionReleaseInput{
		ReleaseID:    id,
		Action:       "revert",
		FromStatuses: []string{fleet.ReleaseStatusApproved},
		ToStatus:     fleet.ReleaseStatusInitiated,
		ActorLabel:   actor.Label(),
		TransitionAt: s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("revert release: %w", err)
	}

	out := &RevertOutcome{RevertedTransitionID: last.ID}
	reversal := s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessRelease,
		EntityID:     res.ReleaseID,
		EntityNumber: res.CarNumber,
		FromState:    strPtr(res.FromStatus),
		ToState:      res.ToStatus,
		Actor:        actor,
		Notes:        "revert of transition " + last.ID.String(),
	})
	if reversal != nil {
		rid := reversal.ID
		out.ReversalTransitionID = &rid
	}
	s.deps.attempt(s.log, EffectKindLedger, op, id, func() error {
		return s.deps.Ledger.MarkReverted(ctx, last.ID, actor.Label(), out.ReversalTransitionID)
	})

	rel, err := s.Get(ctx, res.ReleaseID)
	if err != nil {
		return nil, err
	}
	out.Release = rel
	return out, nil
}

func (s *releaseService) Get(ctx context.Context, id uuid.UUID) (*types.CarRelease, error) {
	row, err := s.releases.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "ReleaseService.Get", "release not found: "+id.String(), nil)
	}
	return row, nil
}

func (s *releaseService) List(ctx context.Context, filter repos.ReleaseFilter) ([]*types.CarRelease, error) {
	return s.releases.List(dbctx.Context{Ctx: ctx}, filter)
}
