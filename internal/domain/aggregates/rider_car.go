package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var RiderCarAggregateContract = Contract{
	Name:             "Fleet.RiderCarAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns the rider car billing lifecycle, on-rent exclusivity and the parent-active guard.",
}

// RiderCarAggregate owns rider car lifecycle invariants.
type RiderCarAggregate interface {
	Aggregate

	Create(ctx context.Context, in CreateRiderCarInput) (RiderCarTransitionResult, error)

	// Transition applies one legal edge of the lifecycle. Entering on_rent locks and
	// checks the parent rider and lease inside the same transaction.
	Transition(ctx context.Context, in TransitionRiderCarInput) (RiderCarTransitionResult, error)
}

type CreateRiderCarInput struct {
	RiderCarID uuid.UUID
	RiderID    uuid.UUID
	CarID      uuid.UUID
	CarNumber  string
	CreatedAt  time.Time
}

type TransitionRiderCarInput struct {
	RiderCarID   uuid.UUID
	ToStatus     string
	ActorLabel   string
	TransitionAt time.Time
}

type RiderCarTransitionResult struct {
	RiderCarID   uuid.UUID
	RiderID      uuid.UUID
	CarID        uuid.UUID
	CarNumber    string
	FromStatus   string
	ToStatus     string
	TransitionAt time.Time

	// Set when the transition wrote an on-rent history row.
	OnRentHistoryID *uuid.UUID
	// Set when the transition recomputed the rider's active car count.
	ActiveCarCount *int
}
