package fleet

import (
	"time"

	"github.com/google/uuid"
)

const (
	LeaseStatusDraft      = "Draft"
	LeaseStatusActive     = "Active"
	LeaseStatusExpired    = "Expired"
	LeaseStatusTerminated = "Terminated"

	RiderStatusDraft      = "Draft"
	RiderStatusActive     = "Active"
	RiderStatusExpired    = "Expired"
	RiderStatusTerminated = "Terminated"
)

// Lease is the master agreement with a customer. Riders hang off it.
type Lease struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LeaseNumber  string    `gorm:"column:lease_number;not null;uniqueIndex" json:"lease_number"`
	CustomerName string    `gorm:"column:customer_name" json:"customer_name"`

	// Draft|Active|Expired|Terminated
	Status string `gorm:"column:status;not null;index" json:"status"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lease) TableName() string { return "lease" }

// LeaseRider carries the billable terms for a group of cars under a lease.
// Rate is the live monthly rate per car; amendments rewrite it.
type LeaseRider struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LeaseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"lease_id"`
	RiderNumber string    `gorm:"column:rider_number;not null;index" json:"rider_number"`

	// Draft|Active|Expired|Terminated
	Status string `gorm:"column:status;not null;index" json:"status"`

	Rate           float64 `gorm:"column:rate;type:numeric(12,2);not null" json:"rate"`
	ActiveCarCount int     `gorm:"column:active_car_count;not null" json:"active_car_count"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LeaseRider) TableName() string { return "lease_rider" }

// RiderRateHistory is appended whenever an amendment rewrites a rider's rate.
type RiderRateHistory struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RiderID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"rider_id"`
	AmendmentID   *uuid.UUID `gorm:"type:uuid;index" json:"amendment_id,omitempty"`
	PreviousRate  *float64   `gorm:"column:previous_rate;type:numeric(12,2)" json:"previous_rate,omitempty"`
	NewRate       float64    `gorm:"column:new_rate;type:numeric(12,2);not null" json:"new_rate"`
	EffectiveDate time.Time  `gorm:"column:effective_date;not null;index" json:"effective_date"`
	ChangedBy     string     `gorm:"column:changed_by" json:"changed_by"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
}

func (RiderRateHistory) TableName() string { return "rider_rate_history" }
