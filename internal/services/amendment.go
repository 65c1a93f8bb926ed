package services

import (
	"context"
	"fmt"
	"time"

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

type CreateAmendmentRequest struct {
	RiderID         uuid.UUID
	AmendmentNumber string
	AmendmentType   string
	Summary         string
	NewRate         *float64
	EffectiveDate   time.Time
	Actor           ledger.Actor
}

type AmendmentService interface {
	Create(ctx context.Context, req CreateAmendmentRequest) (*types.LeaseAmendment, error)
	Submit(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.LeaseAmendment, error)
	Approve(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.LeaseAmendment, error)
	Reject(ctx context.Context, id uuid.UUID, actor ledger.Actor, reason string) (*types.LeaseAmendment, error)
	Activate(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.LeaseAmendment, error)
	Get(ctx context.Context, id uuid.UUID) (*types.LeaseAmendment, error)
}

type amendmentService struct {
	deps       WorkflowDeps
	log        *logger.Logger
	agg        domainagg.AmendmentAggregate
	amendments repos.AmendmentRepo
}

func NewAmendmentService(deps WorkflowDeps, agg domainagg.AmendmentAggregate, amendments repos.AmendmentRepo) AmendmentService {
	return &amendmentService{
		deps:       deps,
		log:        deps.Log.With("service", "AmendmentService"),
		agg:        agg,
		amendments: amendments,
	}
}

func (s *amendmentService) Create(ctx context.Context, req CreateAmendmentRequest) (*types.LeaseAmendment, error) {
	res, err := s.agg.Create(ctx, domainagg.CreateAmendmentInput{
		RiderID:         req.RiderID,
		AmendmentNumber: req.AmendmentNumber,
		AmendmentType:   req.AmendmentType,
		Summary:         req.Summary,
		NewRate:         req.NewRate,
		EffectiveDate:   req.EffectiveDate,
		ActorLabel:      req.Actor.Label(),
		CreatedAt:       s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create amendment: %w", err)
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessAmendment,
		EntityID:     res.AmendmentID,
		EntityNumber: res.AmendmentNumber,
		ToState:      fleet.AmendmentStatusDraft,
		Actor:        req.Actor,
	})
	return s.Get(ctx, res.AmendmentID)
}

func (s *amendmentService) Submit(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.LeaseAmendment, error) {
	return s.transition(ctx, id, "submit", fleet.AmendmentStatusDraft, fleet.AmendmentStatusPending, actor, "")
}

func (s *amendmentService) Approve(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.LeaseAmendment, error) {
	return s.transition(ctx, id, "approve", fleet.AmendmentStatusPending, fleet.AmendmentStatusApproved, actor, "")
}

func (s *amendmentService) Reject(ctx context.Context, id uuid.UUID, actor ledger.Actor, reason string) (*types.LeaseAmendment, error) {
	return s.transition(ctx, id, "reject", fleet.AmendmentStatusPending, fleet.AmendmentStatusDraft, actor, reason)
}

func (s *amendmentService) transition(ctx context.Context, id uuid.UUID, action, from, to string, actor ledger.Actor, reason string) (*types.LeaseAmendment, error) {
	res, err := s.agg.Transition(ctx, domainagg.TransitionAmendmentInput{
		AmendmentID:  id,
		Action:       action,
		FromStatus:   from,
		ToStatus:     to,
		ActorLabel:   actor.Label(),
		Reason:       reason,
		TransitionAt: s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s amendment: %w", action, err)
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessAmendment,
		EntityID:     res.AmendmentID,
		EntityNumber: res.AmendmentNumber,
		FromState:    strPtr(res.FromStatus),
		ToState:      res.ToStatus,
		Actor:        actor,
		Notes:        reason,
	})
	return s.Get(ctx, res.AmendmentID)
}

func (s *amendmentService) Activate(ctx context.Context, id uuid.UUID, actor ledger.Actor) (*types.LeaseAmendment, error) {
	const op = "AmendmentService.Activate"
	res, err := s.agg.Activate(ctx, domainagg.ActivateAmendmentInput{
		AmendmentID: id,
		ActorLabel:  actor.Label(),
		ActivatedAt: s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("activate amendment: %w", err)
	}

	var effects []ledger.SideEffect
	if res.SupersededID != nil {
		s.deps.record(ctx, ledger.RecordInput{
			Process:      ledger.ProcessAmendment,
			EntityID:     *res.SupersededID,
			EntityNumber: res.SupersededNumber,
			FromState:    strPtr(fleet.AmendmentStatusActive),
			ToState:      fleet.AmendmentStatusSuperseded,
			Actor:        actor,
			Notes:        "superseded by " + res.AmendmentNumber,
		})
		effects = append(effects, ledger.SideEffect{
			Type:       ledger.EffectSuperseded,
			EntityType: ledger.EntityLeaseAmendment,
			EntityID:   *res.SupersededID,
		})
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessAmendment,
		EntityID:     res.AmendmentID,
		EntityNumber: res.AmendmentNumber,
		FromState:    strPtr(res.FromStatus),
		ToState:      res.ToStatus,
		Actor:        actor,
		SideEffects:  effects,
	})

	data := map[string]any{
		"amendment_number": res.AmendmentNumber,
		"rider_id":         res.RiderID,
	}
	if res.NewRate != nil {
		data["new_rate"] = *res.NewRate
		data["previous_rate"] = *res.PreviousRate
		riderID := res.RiderID
		s.deps.alert(ctx, s.log, op, AlertInput{
			AlertType:  "rider_rate_changed",
			Severity:   AlertSeverityInfo,
			Title:      fmt.Sprintf("Rider rate changed by amendment %s", res.AmendmentNumber),
			Message:    fmt.Sprintf("Rate %.2f -> %.2f", *res.PreviousRate, *res.NewRate),
			EntityType: types.LeaseRider{}.TableName(),
			EntityID:   &riderID,
		})
	}
	s.deps.publish(ctx, events.NewEvent(events.TypeAmendmentActivated, types.LeaseAmendment{}.TableName(),
		res.AmendmentID, actor.Label(), res.TransitionAt, data))
	return s.Get(ctx, res.AmendmentID)
}

func (s *amendmentService) Get(ctx context.Context, id uuid.UUID) (*types.LeaseAmendment, error) {
	row, err := s.amendments.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "AmendmentService.Get", "amendment not found: "+id.String(), nil)
	}
	return row, nil
}
