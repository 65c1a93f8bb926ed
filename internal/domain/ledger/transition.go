package ledger

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProcessType identifies the workflow that owns an entity's transitions.
type ProcessType string

const (
	ProcessRelease   ProcessType = "release"
	ProcessRiderCar  ProcessType = "rider_car"
	ProcessAmendment ProcessType = "amendment"
	ProcessTriage    ProcessType = "triage"
)

func (p ProcessType) Valid() bool {
	switch p {
	case ProcessRelease, ProcessRiderCar, ProcessAmendment, ProcessTriage:
		return true
	default:
		return false
	}
}

// Side-effect types.
const (
	EffectCreated    = "created"
	EffectCompleted  = "completed"
	EffectSuperseded = "superseded"
)

// Entity types referenced by side effects.
const (
	EntityTriageEntry        = "triage_entry"
	EntityCarAssignment      = "car_assignment"
	EntityCarLeaseTransition = "car_lease_transition"
	EntityLeaseAmendment     = "lease_amendment"
	EntityRiderRateHistory   = "rider_rate_history"
	EntityOnRentHistory      = "car_on_rent_history"
)

// SideEffect names a row created or mutated as a consequence of a transition.
type SideEffect struct {
	Type       string    `json:"type"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
}

// Actor attributes a transition to a person or automation.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

func (a Actor) Label() string {
	if s := strings.TrimSpace(a.Email); s != "" {
		return s
	}
	if s := strings.TrimSpace(a.ID); s != "" {
		return s
	}
	return "system"
}

// TransitionLogEntry is one append-only ledger row. Only the reversal columns
// are ever updated, and only once.
type TransitionLogEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProcessType  ProcessType `gorm:"column:process_type;not null;index:idx_transition_log_entity,priority:1" json:"process_type"`
	EntityID     uuid.UUID   `gorm:"type:uuid;not null;index:idx_transition_log_entity,priority:2" json:"entity_id"`
	EntityNumber string      `gorm:"column:entity_number" json:"entity_number,omitempty"`

	// nil for the creation entry
	FromState    *string `gorm:"column:from_state" json:"from_state,omitempty"`
	ToState      string  `gorm:"column:to_state;not null" json:"to_state"`
	IsReversible bool    `gorm:"column:is_reversible;not null" json:"is_reversible"`

	SideEffects datatypes.JSON `gorm:"column:side_effects" json:"side_effects"`

	ReversedAt           *time.Time `gorm:"column:reversed_at" json:"reversed_at,omitempty"`
	ReversedBy           string     `gorm:"column:reversed_by" json:"reversed_by,omitempty"`
	ReversalTransitionID *uuid.UUID `gorm:"type:uuid" json:"reversal_transition_id,omitempty"`

	ActorID    string `gorm:"column:actor_id" json:"actor_id,omitempty"`
	ActorEmail string `gorm:"column:actor_email" json:"actor_email,omitempty"`
	Notes      string `gorm:"column:notes" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_transition_log_entity,priority:3" json:"created_at"`
}

func (TransitionLogEntry) TableName() string { return "state_transition_log" }

// Effects decodes the stored side effects; a malformed column yields nil.
func (e TransitionLogEntry) Effects() []SideEffect {
	if len(e.SideEffects) == 0 {
		return nil
	}
	var out []SideEffect
	if err := json.Unmarshal(e.SideEffects, &out); err != nil {
		return nil
	}
	return out
}

// EncodeSideEffects produces the column value; nil encodes as an empty array.
func EncodeSideEffects(effects []SideEffect) datatypes.JSON {
	if effects == nil {
		effects = []SideEffect{}
	}
	raw, err := json.Marshal(effects)
	if err != nil {
		return datatypes.JSON(`[]`)
	}
	return datatypes.JSON(raw)
}
