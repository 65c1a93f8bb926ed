package services

import (
	"context"
	"fmt"

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

// Triage entries spawned by a car going off rent.
const offRentTriagePriority = 2

type CreateRiderCarRequest struct {
	RiderID   uuid.UUID
	CarID     uuid.UUID
	CarNumber string
	Actor     ledger.Actor
}

type RiderCarService interface {
	Create(ctx context.Context, req CreateRiderCarRequest) (*types.RiderCar, error)
	Transition(ctx context.Context, riderCarID uuid.UUID, toStatus string, actor ledger.Actor) (*types.RiderCar, error)
	Get(ctx context.Context, id uuid.UUID) (*types.RiderCar, error)
}

type riderCarService struct {
	deps      WorkflowDeps
	log       *logger.Logger
	agg       domainagg.RiderCarAggregate
	riderCars repos.RiderCarRepo
	idle      IdlePeriodService
	triage    TriageService
}

func NewRiderCarService(
	deps WorkflowDeps,
	agg domainagg.RiderCarAggregate,
	riderCars repos.RiderCarRepo,
	idle IdlePeriodService,
	triage TriageService,
) RiderCarService {
	return &riderCarService{
		deps:      deps,
		log:       deps.Log.With("service", "RiderCarService"),
		agg:       agg,
		riderCars: riderCars,
		idle:      idle,
		triage:    triage,
	}
}

func (s *riderCarService) Create(ctx context.Context, req CreateRiderCarRequest) (*types.RiderCar, error) {
	res, err := s.agg.Create(ctx, domainagg.CreateRiderCarInput{
		RiderID:   req.RiderID,
		CarID:     req.CarID,
		CarNumber: req.CarNumber,
		CreatedAt: s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create rider car: %w", err)
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessRiderCar,
		EntityID:     res.RiderCarID,
		EntityNumber: res.CarNumber,
		ToState:      fleet.RiderCarStatusDecided,
		Actor:        req.Actor,
	})
	return s.Get(ctx, res.RiderCarID)
}

func (s *riderCarService) Transition(ctx context.Context, riderCarID uuid.UUID, toStatus string, actor ledger.Actor) (*types.RiderCar, error) {
	const op = "RiderCarService.Transition"
	res, err := s.agg.Transition(ctx, domainagg.TransitionRiderCarInput{
		RiderCarID:   riderCarID,
		ToStatus:     toStatus,
		ActorLabel:   actor.Label(),
		TransitionAt: s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("transition rider car: %w", err)
	}

	var effects []ledger.SideEffect
	switch res.ToStatus {
	case fleet.RiderCarStatusOnRent:
		if s.idle != nil {
			s.deps.attempt(s.log, EffectKindIdlePeriod, op, res.RiderCarID, func() error {
				_, err := s.idle.Close(ctx, res.CarID, res.TransitionAt)
				return err
			})
		}
	case fleet.RiderCarStatusOffRent:
		if s.idle != nil {
			s.deps.attempt(s.log, EffectKindIdlePeriod, op, res.RiderCarID, func() error {
				_, err := s.idle.Open(ctx, res.CarID, res.CarNumber, fleet.IdleReasonBetweenLeases, res.TransitionAt)
				return err
			})
		}
		if s.triage != nil {
			sourceID := res.RiderCarID
			s.deps.attempt(s.log, EffectKindTriage, op, res.RiderCarID, func() error {
				entry, err := s.triage.CreateEntry(ctx, CreateTriageRequest{
					CarID:             res.CarID,
					CarNumber:         res.CarNumber,
					Reason:            fleet.TriageReasonCustomerReturn,
					Priority:          offRentTriagePriority,
					SourceReferenceID: &sourceID,
					Actor:             actor,
				})
				if err != nil {
					return err
				}
				effects = append(effects, ledger.SideEffect{
					Type:       ledger.EffectCreated,
					EntityType: ledger.EntityTriageEntry,
					EntityID:   entry.ID,
				})
				return nil
			})
		}
		s.deps.publish(ctx, events.NewEvent(events.TypeRiderCarOffRent, types.RiderCar{}.TableName(), res.RiderCarID,
			actor.Label(), res.TransitionAt, map[string]any{
				"car_number": res.CarNumber,
				"rider_id":   res.RiderID,
			}))
	}

	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessRiderCar,
		EntityID:     res.RiderCarID,
		EntityNumber: res.CarNumber,
		FromState:    strPtr(res.FromStatus),
		ToState:      res.ToStatus,
		Actor:        actor,
		SideEffects:  effects,
	})
	return s.Get(ctx, res.RiderCarID)
}

func (s *riderCarService) Get(ctx context.Context, id uuid.UUID) (*types.RiderCar, error) {
	row, err := s.riderCars.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "RiderCarService.Get", "rider car not found: "+id.String(), nil)
	}
	return row, nil
}
