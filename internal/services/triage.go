package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	types "github.com/yungbote/railfleet-backend/internal/domain"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/ledger"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type CreateTriageRequest struct {
	CarID             uuid.UUID
	CarNumber         string
	Reason            string
	Priority          int
	Notes             string
	SourceReferenceID *uuid.UUID
	Actor             ledger.Actor
}

type ResolveTriageRequest struct {
	EntryID               uuid.UUID
	Resolution            string
	Notes                 string
	ResolutionReferenceID *uuid.UUID
	Actor                 ledger.Actor
}

type TriageService interface {
	CreateEntry(ctx context.Context, req CreateTriageRequest) (*types.TriageEntry, error)
	Resolve(ctx context.Context, req ResolveTriageRequest) (*types.TriageEntry, error)
	Get(ctx context.Context, id uuid.UUID) (*types.TriageEntry, error)
	List(ctx context.Context, filter repos.TriageFilter) ([]*types.TriageEntry, error)
}

type triageService struct {
	deps    WorkflowDeps
	log     *logger.Logger
	agg     domainagg.TriageAggregate
	entries repos.TriageRepo
}

func NewTriageService(deps WorkflowDeps, agg domainagg.TriageAggregate, entries repos.TriageRepo) TriageService {
	return &triageService{
		deps:    deps,
		log:     deps.Log.With("service", "TriageService"),
		agg:     agg,
		entries: entries,
	}
}

func (s *triageService) CreateEntry(ctx context.Context, req CreateTriageRequest) (*types.TriageEntry, error) {
	res, err := s.agg.Create(ctx, domainagg.CreateTriageEntryInput{
		CarID:             req.CarID,
		CarNumber:         req.CarNumber,
		Reason:            req.Reason,
		Priority:          req.Priority,
		Notes:             req.Notes,
		ActorLabel:        req.Actor.Label(),
		SourceReferenceID: req.SourceReferenceID,
		CreatedAt:         s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create triage entry: %w", err)
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessTriage,
		EntityID:     res.EntryID,
		EntityNumber: res.CarNumber,
		ToState:      fleet.TriageStateOpen,
		Actor:        req.Actor,
		Notes:        res.Reason,
	})
	return s.Get(ctx, res.EntryID)
}

func (s *triageService) Resolve(ctx context.Context, req ResolveTriageRequest) (*types.TriageEntry, error) {
	res, err := s.agg.Resolve(ctx, domainagg.ResolveTriageEntryInput{
		EntryID:               req.EntryID,
		Resolution:            req.Resolution,
		ResolvedBy:            req.Actor.Label(),
		Notes:                 req.Notes,
		ResolutionReferenceID: req.ResolutionReferenceID,
		ResolvedAt:            s.deps.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("resolve triage entry: %w", err)
	}
	s.deps.record(ctx, ledger.RecordInput{
		Process:      ledger.ProcessTriage,
		EntityID:     res.EntryID,
		EntityNumber: res.CarNumber,
		FromState:    strPtr(fleet.TriageStateOpen),
		ToState:      fleet.TriageStateResolved,
		Actor:        req.Actor,
		Notes:        res.Resolution,
	})
	return s.Get(ctx, res.EntryID)
}

func (s *triageService) Get(ctx context.Context, id uuid.UUID) (*types.TriageEntry, error) {
	row, err := s.entries.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "TriageService.Get", "triage entry not found: "+id.String(), nil)
	}
	return row, nil
}

func (s *triageService) List(ctx context.Context, filter repos.TriageFilter) ([]*types.TriageEntry, error) {
	return s.entries.List(dbctx.Context{Ctx: ctx}, filter)
}
