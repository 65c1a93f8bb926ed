package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	ledgertypes "github.com/yungbote/railfleet-backend/internal/domain/ledger"
	"github.com/yungbote/railfleet-backend/internal/observability"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type (
	ProcessType = ledgertypes.ProcessType
	SideEffect  = ledgertypes.SideEffect
	Actor       = ledgertypes.Actor
	Entry       = ledgertypes.TransitionLogEntry
)

const (
	ProcessRelease   = ledgertypes.ProcessRelease
	ProcessRiderCar  = ledgertypes.ProcessRiderCar
	ProcessAmendment = ledgertypes.ProcessAmendment
	ProcessTriage    = ledgertypes.ProcessTriage

	EffectCreated    = ledgertypes.EffectCreated
	EffectCompleted  = ledgertypes.EffectCompleted
	EffectSuperseded = ledgertypes.EffectSuperseded

	EntityTriageEntry        = ledgertypes.EntityTriageEntry
	EntityCarAssignment      = ledgertypes.EntityCarAssignment
	EntityCarLeaseTransition = ledgertypes.EntityCarLeaseTransition
	EntityLeaseAmendment     = ledgertypes.EntityLeaseAmendment
)

const defaultScanConcurrency = 8

// Ledger is the shared transition audit log and revert-eligibility check.
//
// Record never returns an error: a failed write is logged and counted, and the
// caller's committed state is unaffected.
type Ledger interface {
	Record(ctx context.Context, in RecordInput) *Entry
	LastTransition(ctx context.Context, process ProcessType, entityID uuid.UUID) (*Entry, error)
	History(ctx context.Context, process ProcessType, entityID uuid.UUID) ([]*Entry, error)
	CanRevert(ctx context.Context, process ProcessType, entityID uuid.UUID) (RevertCheck, error)
	CanRevertMany(ctx context.Context, process ProcessType, entityIDs []uuid.UUID) (map[uuid.UUID]RevertCheck, error)
	MarkReverted(ctx context.Context, transitionID uuid.UUID, reversedBy string, reversalTransitionID *uuid.UUID) error
}

type RecordInput struct {
	Process      ProcessType
	EntityID     uuid.UUID
	EntityNumber string
	// FromState is nil for the entry that creates the entity.
	FromState *string
	ToState   string
	// Reversible overrides the policy table when set.
	Reversible  *bool
	Actor       Actor
	SideEffects []SideEffect
	Notes       string
}

// RevertCheck is the advisory answer to "can the last transition be undone".
type RevertCheck struct {
	Allowed       bool       `json:"allowed"`
	Blockers      []string   `json:"blockers"`
	PreviousState *string    `json:"previous_state,omitempty"`
	TransitionID  *uuid.UUID `json:"transition_id,omitempty"`
}

type Deps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Entries  repos.TransitionLogRepo
	Registry *Registry
	Policy   *Policy
	Metrics  *observability.Metrics
	// ScanConcurrency bounds CanRevertMany. Zero uses a default.
	ScanConcurrency int
	Now             func() time.Time
}

type ledgerService struct {
	db       *gorm.DB
	log      *logger.Logger
	entries  repos.TransitionLogRepo
	registry *Registry
	policy   *Policy
	metrics  *observability.Metrics
	scanConc int
	now      func() time.Time
}

func New(deps Deps) Ledger {
	s := &ledgerService{
		db:       deps.DB,
		log:      deps.Log.With("service", "TransitionLedger"),
		entries:  deps.Entries,
		registry: deps.Registry,
		policy:   deps.Policy,
		metrics:  deps.Metrics,
		scanConc: deps.ScanConcurrency,
		now:      deps.Now,
	}
	if s.entries == nil {
		s.entries = repos.NewTransitionLogRepo(deps.DB, deps.Log)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	if s.policy == nil {
		s.policy = DefaultPolicy()
	}
	if s.scanConc <= 0 {
		s.scanConc = defaultScanConcurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *ledgerService) Record(ctx context.Context, in RecordInput) *Entry {
	process := string(in.Process)
	s.metrics.IncLedgerAttempted(process)
	if !in.Process.Valid() || in.EntityID == uuid.Nil || strings.TrimSpace(in.ToState) == "" {
		s.metrics.IncLedgerFailed(process)
		s.log.Warn("ledger record skipped: incomplete input",
			"process_type", process, "entity_id", in.EntityID, "to_state", in.ToState)
		return nil
	}
	reversible := s.policy.Reversible(in.Process, in.FromState, in.ToState)
	if in.Reversible != nil {
		reversible = *in.Reversible
	}
	entry := &Entry{
		ID:           uuid.New(),
		ProcessType:  in.Process,
		EntityID:     in.EntityID,
		EntityNumber: strings.TrimSpace(in.EntityNumber),
		FromState:    in.FromState,
		ToState:      in.ToState,
		IsReversible: reversible,
		SideEffects:  ledgertypes.EncodeSideEffects(in.SideEffects),
		ActorID:      strings.TrimSpace(in.Actor.ID),
		ActorEmail:   strings.TrimSpace(in.Actor.Email),
		Notes:        strings.TrimSpace(in.Notes),
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.entries.Create(dbctx.Context{Ctx: ctx}, []*Entry{entry}); err != nil {
		s.metrics.IncLedgerFailed(process)
		s.log.Warn("ledger record failed",
			"process_type", process, "entity_id", in.EntityID, "to_state", in.ToState, "error", err)
		return nil
	}
	s.metrics.IncLedgerWritten(process)
	return entry
}

func (s *ledgerService) LastTransition(ctx context.Context, process ProcessType, entityID uuid.UUID) (*Entry, error) {
	if err := validateTarget("Ledger.LastTransition", process, entityID); err != nil {
		return nil, err
	}
	return s.entries.Last(dbctx.Context{Ctx: ctx}, process, entityID)
}

func (s *ledgerService) History(ctx context.Context, process ProcessType, entityID uuid.UUID) ([]*Entry, error) {
	if err := validateTarget("Ledger.History", process, entityID); err != nil {
		return nil, err
	}
	return s.entries.ListByEntity(dbctx.Context{Ctx: ctx}, process, entityID)
}

func (s *ledgerService) CanRevert(ctx context.Context, process ProcessType, entityID uuid.UUID) (RevertCheck, error) {
	const op = "Ledger.CanRevert"
	if err := validateTarget(op, process, entityID); err != nil {
		return RevertCheck{}, err
	}
	ctx, span := observability.StartSpan(ctx, op,
		attribute.String("ledger.process_type", string(process)),
		attribute.String("ledger.entity_id", entityID.String()),
	)
	defer span.End()

	out, err := s.canRevert(dbctx.Context{Ctx: ctx}, process, entityID)
	if err != nil {
		span.RecordError(err)
		return RevertCheck{}, err
	}
	span.SetAttributes(attribute.Bool("ledger.revert_allowed", out.Allowed))
	s.metrics.IncRevertCheck(string(process), out.Allowed)
	return out, nil
}

func (s *ledgerService) canRevert(dbc dbctx.Context, process ProcessType, entityID uuid.UUID) (RevertCheck, error) {
	out := RevertCheck{Blockers: []string{}}
	last, err := s.entries.Last(dbc, process, entityID)
	if err != nil {
		return out, err
	}
	if last == nil {
		out.Blockers = append(out.Blockers, "no history")
		return out, nil
	}
	tid := last.ID
	out.TransitionID = &tid
	out.PreviousState = last.FromState
	if !last.IsReversible {
		out.Blockers = append(out.Blockers,
			fmt.Sprintf("transition %s -> %s is irreversible", stateLabel(last.FromState), last.ToState))
		return out, nil
	}

	accessor, ok := s.registry.Process(process)
	if !ok {
		out.Blockers = append(out.Blockers, fmt.Sprintf("no state accessor registered for %s", process))
		return out, nil
	}
	current, found, err := accessor.Current(dbc, s.db, entityID)
	if err != nil {
		return out, err
	}
	switch {
	case !found:
		out.Blockers = append(out.Blockers, fmt.Sprintf("%s %s no longer exists", process, entityID))
	case current != last.ToState:
		out.Blockers = append(out.Blockers,
			fmt.Sprintf("entity has moved on: current state is %s, expected %s", current, last.ToState))
	}

	for _, eff := range last.Effects() {
		key := SideEffectKey{Type: eff.Type, EntityType: eff.EntityType}
		ea, ok := s.registry.SideEffect(key)
		if !ok {
			out.Blockers = append(out.Blockers,
				fmt.Sprintf("side effect %s %s cannot be verified: no state accessor", key, eff.EntityID))
			continue
		}
		state, found, err := ea.Current(dbc, s.db, eff.EntityID)
		if err != nil {
			return out, err
		}
		if !found {
			out.Blockers = append(out.Blockers,
				fmt.Sprintf("side effect %s %s no longer exists", key, eff.EntityID))
			continue
		}
		if state != ea.Pristine {
			out.Blockers = append(out.Blockers,
				fmt.Sprintf("side effect %s %s has advanced to %s", key, eff.EntityID, state))
		}
	}
	out.Allowed = len(out.Blockers) == 0
	return out, nil
}

func (s *ledgerService) CanRevertMany(ctx context.Context, process ProcessType, entityIDs []uuid.UUID) (map[uuid.UUID]RevertCheck, error) {
	out := make(map[uuid.UUID]RevertCheck, len(entityIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scanConc)
	for _, id := range entityIDs {
		id := id
		g.Go(func() error {
			res, err := s.CanRevert(gctx, process, id)
			if err != nil {
				return fmt.Errorf("can revert %s %s: %w", process, id, err)
			}
			mu.Lock()
			out[id] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ledgerService) MarkReverted(ctx context.Context, transitionID uuid.UUID, reversedBy string, reversalTransitionID *uuid.UUID) error {
	const op = "Ledger.MarkReverted"
	if transitionID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing transition_id", nil)
	}
	by := strings.TrimSpace(reversedBy)
	if by == "" {
		by = "system"
	}
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.entries.MarkReverted(dbc, transitionID, by, reversalTransitionID, s.now().UTC())
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if ok {
		return nil
	}
	existing, err := s.entries.GetByID(dbc, transitionID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if existing == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, "transition not found: "+transitionID.String(), nil)
	}
	return domainagg.NewError(domainagg.CodeConflict, op,
		fmt.Sprintf("transition %s was already reverted by %s", transitionID, existing.ReversedBy), nil)
}

func validateTarget(op string, process ProcessType, entityID uuid.UUID) error {
	if !process.Valid() {
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown process type %q", process), nil)
	}
	if entityID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing entity_id", nil)
	}
	return nil
}

func stateLabel(s *string) string {
	if s == nil {
		return "(new)"
	}
	return *s
}
