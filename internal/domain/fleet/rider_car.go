package fleet

import (
	"time"

	"github.com/google/uuid"
)

const (
	RiderCarStatusDecided      = "decided"
	RiderCarStatusPrepRequired = "prep_required"
	RiderCarStatusOnRent       = "on_rent"
	RiderCarStatusReleasing    = "releasing"
	RiderCarStatusOffRent      = "off_rent"
	RiderCarStatusCancelled    = "cancelled"
)

// RiderCar binds one car to one rider and carries the billing lifecycle.
// At most one row per car_id may be on_rent (partial unique index, see data/db).
type RiderCar struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RiderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"rider_id"`
	CarID     uuid.UUID `gorm:"type:uuid;not null;index" json:"car_id"`
	CarNumber string    `gorm:"column:car_number;not null;index" json:"car_number"`

	// decided|prep_required|on_rent|releasing|off_rent|cancelled
	Status string `gorm:"column:status;not null;index" json:"status"`

	IsActive    bool       `gorm:"column:is_active;not null;index" json:"is_active"`
	AddedDate   time.Time  `gorm:"column:added_date;not null" json:"added_date"`
	RemovedDate *time.Time `gorm:"column:removed_date" json:"removed_date,omitempty"`

	OnRentAt    *time.Time `gorm:"column:on_rent_at" json:"on_rent_at,omitempty"`
	ReleasingAt *time.Time `gorm:"column:releasing_at" json:"releasing_at,omitempty"`
	OffRentAt   *time.Time `gorm:"column:off_rent_at" json:"off_rent_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	HasPendingAmendment bool `gorm:"column:has_pending_amendment;not null" json:"has_pending_amendment"`
	AmendmentConflict   bool `gorm:"column:amendment_conflict;not null" json:"amendment_conflict"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (RiderCar) TableName() string { return "rider_car" }

// OnRentHistory records every billing flip of a rider car.
type OnRentHistory struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RiderCarID  uuid.UUID `gorm:"type:uuid;not null;index" json:"rider_car_id"`
	RiderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"rider_id"`
	CarID       uuid.UUID `gorm:"type:uuid;not null;index" json:"car_id"`
	CarNumber   string    `gorm:"column:car_number;not null" json:"car_number"`
	IsOnRent    bool      `gorm:"column:is_on_rent;not null" json:"is_on_rent"`
	EffectiveAt time.Time `gorm:"column:effective_at;not null;index" json:"effective_at"`
	ChangedBy   string    `gorm:"column:changed_by" json:"changed_by"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (OnRentHistory) TableName() string { return "car_on_rent_history" }

const (
	IdleReasonBetweenLeases = "between_leases"
	IdleReasonShop          = "shop"
	IdleReasonStorage       = "storage"
)

// IdlePeriod is an interval during which a car earns nothing. Open while EndedAt is nil.
type IdlePeriod struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CarID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"car_id"`
	CarNumber string     `gorm:"column:car_number;not null" json:"car_number"`
	Reason    string     `gorm:"column:reason;not null" json:"reason"`
	StartedAt time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt   *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (IdlePeriod) TableName() string { return "car_idle_period" }
