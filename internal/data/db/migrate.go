package db

import (
	"fmt"

	types "github.com/yungbote/railfleet-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.AllModels()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureWorkflowIndexes(db)
}

// EnsureWorkflowIndexes creates the partial unique indexes that back the
// single-active-row invariants. The syntax is shared by Postgres and SQLite.
func EnsureWorkflowIndexes(db *gorm.DB) error {
	// One open release per car.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_car_release_open_per_car
		ON car_release (car_number)
		WHERE status IN ('INITIATED', 'APPROVED', 'EXECUTING');
	`).Error; err != nil {
		return fmt.Errorf("create idx_car_release_open_per_car: %w", err)
	}

	// Billing exclusivity: a car is on rent on at most one rider. Rows
	// deactivated by a completed release no longer bill.
	if err := db.Exec(`DROP INDEX IF EXISTS idx_rider_car_on_rent_per_car;`).Error; err != nil {
		return fmt.Errorf("drop idx_rider_car_on_rent_per_car: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_rider_car_active_on_rent_per_car
		ON rider_car (car_id)
		WHERE status = 'on_rent' AND is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_rider_car_active_on_rent_per_car: %w", err)
	}

	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_lease_amendment_active_per_rider
		ON lease_amendment (rider_id)
		WHERE status = 'Active';
	`).Error; err != nil {
		return fmt.Errorf("create idx_lease_amendment_active_per_rider: %w", err)
	}

	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_triage_entry_open_per_car
		ON triage_entry (car_id)
		WHERE resolved_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_triage_entry_open_per_car: %w", err)
	}
	return nil
}
