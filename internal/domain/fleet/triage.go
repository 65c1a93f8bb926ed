package fleet

import (
	"time"

	"github.com/google/uuid"
)

const (
	TriageReasonCustomerReturn = "customer_return"
	TriageReasonLeaseExpiry    = "lease_expiry"
	TriageReasonBadOrder       = "bad_order"
	TriageReasonIdleTooLong    = "idle_too_long"
	TriageReasonManual         = "manual"
)

// Common resolution tags. Resolution is free-form; any non-empty tag is stored.
const (
	TriageResolutionAssigned  = "assigned"
	TriageResolutionReleased  = "released"
	TriageResolutionReLeased  = "re_leased"
	TriageResolutionScrapped  = "scrapped"
	TriageResolutionDismissed = "dismissed"
)

// Derived triage states, used by the ledger.
const (
	TriageStateOpen     = "open"
	TriageStateResolved = "resolved"
)

// TriageEntry is a pending planner decision for a car. One unresolved entry
// per car_id (partial unique index on resolved_at IS NULL).
type TriageEntry struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CarID             uuid.UUID  `gorm:"type:uuid;not null;index" json:"car_id"`
	CarNumber         string     `gorm:"column:car_number;not null;index" json:"car_number"`
	Reason            string     `gorm:"column:reason;not null;index" json:"reason"`
	Priority          int        `gorm:"column:priority;not null" json:"priority"`
	Notes             string     `gorm:"column:notes" json:"notes,omitempty"`
	SourceReferenceID *uuid.UUID `gorm:"type:uuid" json:"source_reference_id,omitempty"`
	CreatedBy         string     `gorm:"column:created_by" json:"created_by,omitempty"`

	ResolvedAt            *time.Time `gorm:"column:resolved_at;index" json:"resolved_at,omitempty"`
	Resolution            string     `gorm:"column:resolution" json:"resolution,omitempty"`
	ResolvedBy            string     `gorm:"column:resolved_by" json:"resolved_by,omitempty"`
	ResolutionNotes       string     `gorm:"column:resolution_notes" json:"resolution_notes,omitempty"`
	ResolutionReferenceID *uuid.UUID `gorm:"type:uuid" json:"resolution_reference_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (TriageEntry) TableName() string { return "triage_entry" }

func (e TriageEntry) State() string {
	if e.ResolvedAt == nil {
		return TriageStateOpen
	}
	return TriageStateResolved
}

// Alert is an operator-facing notification. Written best-effort.
type Alert struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AlertType  string     `gorm:"column:alert_type;not null;index" json:"alert_type"`
	Severity   string     `gorm:"column:severity;not null" json:"severity"`
	Title      string     `gorm:"column:title;not null" json:"title"`
	Message    string     `gorm:"column:message" json:"message,omitempty"`
	EntityType string     `gorm:"column:entity_type" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `gorm:"type:uuid;index" json:"entity_id,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
}

func (Alert) TableName() string { return "fleet_alert" }
