package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/railfleet-backend/internal/domain"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
)

// CarNumber returns a reporting mark unique enough to share a Postgres test database.
func CarNumber(prefix string) string {
	if prefix == "" {
		prefix = "UTLX"
	}
	return fmt.Sprintf("%s%06d", prefix, rand.Intn(1_000_000))
}

func SeedLease(tb testing.TB, ctx context.Context, tx *gorm.DB, status string) *types.Lease {
	tb.Helper()
	now := time.Now().UTC()
	l := &types.Lease{
		ID:           uuid.New(),
		LeaseNumber:  "L-" + uuid.NewString()[:8],
		CustomerName: "Acme Chemical",
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lease: %v", err)
	}
	return l
}

func SeedRider(tb testing.TB, ctx context.Context, tx *gorm.DB, leaseID uuid.UUID, status string, rate float64) *types.LeaseRider {
	tb.Helper()
	now := time.Now().UTC()
	r := &types.LeaseRider{
		ID:          uuid.New(),
		LeaseID:     leaseID,
		RiderNumber: "R-" + uuid.NewString()[:8],
		Status:      status,
		Rate:        rate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed rider: %v", err)
	}
	return r
}

// SeedActiveRider seeds an Active lease with one Active rider.
func SeedActiveRider(tb testing.TB, ctx context.Context, tx *gorm.DB) (*types.Lease, *types.LeaseRider) {
	tb.Helper()
	l := SeedLease(tb, ctx, tx, fleet.LeaseStatusActive)
	r := SeedRider(tb, ctx, tx, l.ID, fleet.RiderStatusActive, 850)
	return l, r
}

func SeedRiderCar(tb testing.TB, ctx context.Context, tx *gorm.DB, riderID, carID uuid.UUID, carNumber, status string) *types.RiderCar {
	tb.Helper()
	now := time.Now().UTC()
	rc := &types.RiderCar{
		ID:        uuid.New(),
		RiderID:   riderID,
		CarID:     carID,
		CarNumber: carNumber,
		Status:    status,
		IsActive:  status != fleet.RiderCarStatusOffRent && status != fleet.RiderCarStatusCancelled,
		AddedDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == fleet.RiderCarStatusOnRent {
		rc.OnRentAt = &now
	}
	if err := tx.WithContext(ctx).Create(rc).Error; err != nil {
		tb.Fatalf("seed rider car: %v", err)
	}
	return rc
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, carID uuid.UUID, carNumber, status string) *types.CarAssignment {
	tb.Helper()
	now := time.Now().UTC()
	a := &types.CarAssignment{
		ID:        uuid.New(),
		CarID:     carID,
		CarNumber: carNumber,
		ShopCode:  "SHOP-01",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func SeedLeaseTransition(tb testing.TB, ctx context.Context, tx *gorm.DB, carID uuid.UUID, carNumber, status string) *types.CarLeaseTransition {
	tb.Helper()
	now := time.Now().UTC()
	lt := &types.CarLeaseTransition{
		ID:        uuid.New(),
		CarID:     carID,
		CarNumber: carNumber,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(lt).Error; err != nil {
		tb.Fatalf("seed lease transition: %v", err)
	}
	return lt
}

func SeedAmendment(tb testing.TB, ctx context.Context, tx *gorm.DB, riderID uuid.UUID, status string, newRate *float64) *types.LeaseAmendment {
	tb.Helper()
	now := time.Now().UTC()
	a := &types.LeaseAmendment{
		ID:              uuid.New(),
		RiderID:         riderID,
		AmendmentNumber: "A-" + uuid.NewString()[:8],
		AmendmentType:   "rate_change",
		Status:          status,
		NewRate:         newRate,
		EffectiveDate:   now,
		CreatedBy:       "seed",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if status == fleet.AmendmentStatusActive {
		a.ActivatedAt = &now
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed amendment: %v", err)
	}
	return a
}

func SeedTriageEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, carID uuid.UUID, carNumber, reason string, priority int) *types.TriageEntry {
	tb.Helper()
	now := time.Now().UTC()
	e := &types.TriageEntry{
		ID:        uuid.New(),
		CarID:     carID,
		CarNumber: carNumber,
		Reason:    reason,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed triage entry: %v", err)
	}
	return e
}
