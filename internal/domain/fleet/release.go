package fleet

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReleaseStatusInitiated = "INITIATED"
	ReleaseStatusApproved  = "APPROVED"
	ReleaseStatusExecuting = "EXECUTING"
	ReleaseStatusCompleted = "COMPLETED"
	ReleaseStatusCancelled = "CANCELLED"
)

// OpenReleaseStatuses are the non-terminal release states; at most one release
// per car_number may sit in one of them.
var OpenReleaseStatuses = []string{ReleaseStatusInitiated, ReleaseStatusApproved, ReleaseStatusExecuting}

func IsTerminalReleaseStatus(status string) bool {
	return status == ReleaseStatusCompleted || status == ReleaseStatusCancelled
}

const (
	ReleaseTypeLeaseExpiry   = "lease_expiry"
	ReleaseTypeVoluntary     = "voluntary_return"
	ReleaseTypeAbatement     = "abatement"
	ReleaseTypeTransferOut   = "transfer"
	ReleaseTypeCustomerOwned = "customer_owned"
)

// CarRelease is one attempt to take a car off a rider.
type CarRelease struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CarNumber   string    `gorm:"column:car_number;not null;index" json:"car_number"`
	CarID       uuid.UUID `gorm:"type:uuid;not null;index" json:"car_id"`
	RiderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"rider_id"`
	RiderCarID  uuid.UUID `gorm:"type:uuid;not null;index" json:"rider_car_id"`
	ReleaseType string    `gorm:"column:release_type;not null" json:"release_type"`

	// INITIATED|APPROVED|EXECUTING|COMPLETED|CANCELLED
	Status string `gorm:"column:status;not null;index" json:"status"`

	AssignmentID      *uuid.UUID `gorm:"type:uuid;index" json:"assignment_id,omitempty"`
	LeaseTransitionID *uuid.UUID `gorm:"type:uuid;index" json:"lease_transition_id,omitempty"`

	InitiatedBy        string     `gorm:"column:initiated_by" json:"initiated_by"`
	ApprovedBy         string     `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ExecutedBy         string     `gorm:"column:executed_by" json:"executed_by,omitempty"`
	ExecutedAt         *time.Time `gorm:"column:executed_at" json:"executed_at,omitempty"`
	CompletedBy        string     `gorm:"column:completed_by" json:"completed_by,omitempty"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledBy        string     `gorm:"column:cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"column:cancellation_reason" json:"cancellation_reason,omitempty"`
	Notes              string     `gorm:"column:notes" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CarRelease) TableName() string { return "car_release" }

const (
	AssignmentStatusPlanned    = "Planned"
	AssignmentStatusScheduled  = "Scheduled"
	AssignmentStatusInProgress = "InProgress"
	AssignmentStatusComplete   = "Complete"
	AssignmentStatusCancelled  = "Cancelled"
)

// CarAssignment is shop work planned for a car, often linked to a release.
type CarAssignment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CarID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"car_id"`
	CarNumber   string     `gorm:"column:car_number;not null;index" json:"car_number"`
	ShopCode    string     `gorm:"column:shop_code" json:"shop_code,omitempty"`
	Status      string     `gorm:"column:status;not null;index" json:"status"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (CarAssignment) TableName() string { return "car_assignment" }

func IsTerminalAssignmentStatus(status string) bool {
	return status == AssignmentStatusComplete || status == AssignmentStatusCancelled
}

const (
	LeaseTransitionStatusPending    = "Pending"
	LeaseTransitionStatusInProgress = "InProgress"
	LeaseTransitionStatusComplete   = "Complete"
	LeaseTransitionStatusCancelled  = "Cancelled"
)

// CarLeaseTransition tracks a car moving from one rider to another.
type CarLeaseTransition struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CarID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"car_id"`
	CarNumber   string     `gorm:"column:car_number;not null;index" json:"car_number"`
	FromRiderID *uuid.UUID `gorm:"type:uuid" json:"from_rider_id,omitempty"`
	ToRiderID   *uuid.UUID `gorm:"type:uuid" json:"to_rider_id,omitempty"`
	Status      string     `gorm:"column:status;not null;index" json:"status"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (CarLeaseTransition) TableName() string { return "car_lease_transition" }

func IsTerminalLeaseTransitionStatus(status string) bool {
	return status == LeaseTransitionStatusComplete || status == LeaseTransitionStatusCancelled
}
