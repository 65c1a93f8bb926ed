package fleet

import (
	"time"

	"github.com/google/uuid"
)

const (
	AmendmentStatusDraft      = "Draft"
	AmendmentStatusPending    = "Pending"
	AmendmentStatusApproved   = "Approved"
	AmendmentStatusActive     = "Active"
	AmendmentStatusSuperseded = "Superseded"
)

// LeaseAmendment is a proposed change to a rider's terms.
// At most one Active amendment per rider (partial unique index).
type LeaseAmendment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RiderID         uuid.UUID `gorm:"type:uuid;not null;index" json:"rider_id"`
	AmendmentNumber string    `gorm:"column:amendment_number;not null" json:"amendment_number"`
	AmendmentType   string    `gorm:"column:amendment_type" json:"amendment_type,omitempty"`
	Summary         string    `gorm:"column:summary" json:"summary,omitempty"`

	// Draft|Pending|Approved|Active|Superseded
	Status string `gorm:"column:status;not null;index" json:"status"`

	NewRate       *float64  `gorm:"column:new_rate;type:numeric(12,2)" json:"new_rate,omitempty"`
	EffectiveDate time.Time `gorm:"column:effective_date;not null" json:"effective_date"`

	RejectionReason string     `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	SubmittedBy     string     `gorm:"column:submitted_by" json:"submitted_by,omitempty"`
	SubmittedAt     *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ApprovedBy      string     `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ActivatedBy     string     `gorm:"column:activated_by" json:"activated_by,omitempty"`
	ActivatedAt     *time.Time `gorm:"column:activated_at" json:"activated_at,omitempty"`
	SupersededAt    *time.Time `gorm:"column:superseded_at" json:"superseded_at,omitempty"`
	SupersededByID  *uuid.UUID `gorm:"type:uuid" json:"superseded_by_id,omitempty"`

	CreatedBy string    `gorm:"column:created_by" json:"created_by"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LeaseAmendment) TableName() string { return "lease_amendment" }
