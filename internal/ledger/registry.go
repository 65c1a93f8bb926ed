package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

// StateAccessor reads the current state of one row by id.
type StateAccessor struct {
	Table string
	// StateExpr is a column name or a SQL expression over the row.
	StateExpr string
}

// Current returns the row's state, with found=false when the row is gone.
func (a StateAccessor) Current(dbc dbctx.Context, db *gorm.DB, id uuid.UUID) (state string, found bool, err error) {
	var rows []struct {
		State string
	}
	err = dbc.Conn(db).
		Table(a.Table).
		Select(a.StateExpr+" AS state").
		Where("id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].State, true, nil
}

type SideEffectKey struct {
	Type       string
	EntityType string
}

func (k SideEffectKey) String() string { return k.Type + "/" + k.EntityType }

// SideEffectAccessor pairs a state lookup with the state the row must still be
// in for the originating transition to be undone.
type SideEffectAccessor struct {
	StateAccessor
	Pristine string
}

// Registry maps process types and side-effect kinds to their state accessors.
type Registry struct {
	mu        sync.RWMutex
	processes map[ProcessType]StateAccessor
	effects   map[SideEffectKey]SideEffectAccessor
}

func NewRegistry() *Registry {
	return &Registry{
		processes: make(map[ProcessType]StateAccessor),
		effects:   make(map[SideEffectKey]SideEffectAccessor),
	}
}

func (r *Registry) RegisterProcess(p ProcessType, a StateAccessor) error {
	if !p.Valid() {
		return fmt.Errorf("unknown process type %q", p)
	}
	if strings.TrimSpace(a.Table) == "" || strings.TrimSpace(a.StateExpr) == "" {
		return fmt.Errorf("accessor for %s needs table and state expression", p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processes[p]; exists {
		return fmt.Errorf("state accessor already registered for process_type=%s", p)
	}
	r.processes[p] = a
	return nil
}

func (r *Registry) RegisterSideEffect(key SideEffectKey, a SideEffectAccessor) error {
	if key.Type == "" || key.EntityType == "" {
		return fmt.Errorf("side effect key needs type and entity type")
	}
	if strings.TrimSpace(a.Table) == "" || strings.TrimSpace(a.StateExpr) == "" {
		return fmt.Errorf("accessor for %s needs table and state expression", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.effects[key]; exists {
		return fmt.Errorf("state accessor already registered for side effect %s", key)
	}
	r.effects[key] = a
	return nil
}

func (r *Registry) Process(p ProcessType) (StateAccessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.processes[p]
	return a, ok
}

func (r *Registry) SideEffect(key SideEffectKey) (SideEffectAccessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.effects[key]
	return a, ok
}

const triageStateExpr = "CASE WHEN resolved_at IS NULL THEN 'open' ELSE 'resolved' END"

// DefaultRegistry wires the fleet tables. It panics only on a programming error
// in the table below.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(r.RegisterProcess(ProcessRelease, StateAccessor{Table: "car_release", StateExpr: "status"}))
	must(r.RegisterProcess(ProcessRiderCar, StateAccessor{Table: "rider_car", StateExpr: "status"}))
	must(r.RegisterProcess(ProcessAmendment, StateAccessor{Table: "lease_amendment", StateExpr: "status"}))
	must(r.RegisterProcess(ProcessTriage, StateAccessor{Table: "triage_entry", StateExpr: triageStateExpr}))

	must(r.RegisterSideEffect(SideEffectKey{Type: EffectCreated, EntityType: EntityTriageEntry}, SideEffectAccessor{
		StateAccessor: StateAccessor{Table: "triage_entry", StateExpr: triageStateExpr},
		Pristine:      "open",
	}))
	must(r.RegisterSideEffect(SideEffectKey{Type: EffectCompleted, EntityType: EntityCarAssignment}, SideEffectAccessor{
		StateAccessor: StateAccessor{Table: "car_assignment", StateExpr: "status"},
		Pristine:      "Complete",
	}))
	must(r.RegisterSideEffect(SideEffectKey{Type: EffectCompleted, EntityType: EntityCarLeaseTransition}, SideEffectAccessor{
		StateAccessor: StateAccessor{Table: "car_lease_transition", StateExpr: "status"},
		Pristine:      "Complete",
	}))
	must(r.RegisterSideEffect(SideEffectKey{Type: EffectSuperseded, EntityType: EntityLeaseAmendment}, SideEffectAccessor{
		StateAccessor: StateAccessor{Table: "lease_amendment", StateExpr: "status"},
		Pristine:      "Superseded",
	}))
	return r
}
