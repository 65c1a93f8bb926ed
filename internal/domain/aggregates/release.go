package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ReleaseAggregateContract = Contract{
	Name:             "Fleet.ReleaseAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns car release status progression and the atomic completion across rider car, assignment and lease transition.",
}

// ReleaseAggregate owns car release invariants.
//
// Write failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation, CodePreconditionFailed, CodeRetryable, CodeInternal.
type ReleaseAggregate interface {
	Aggregate

	// Initiate inserts an INITIATED release after checking the car is active on the
	// rider and no other open release exists for the car.
	Initiate(ctx context.Context, in InitiateReleaseInput) (ReleaseTransitionResult, error)

	// Transition moves a release between non-completion states (approve, execute,
	// cancel, revert) under a row lock.
	Transition(ctx context.Context, in TransitionReleaseInput) (ReleaseTransitionResult, error)

	// Complete marks EXECUTING -> COMPLETED and deactivates the rider car, completing
	// any linked assignment and lease transition in the same transaction.
	Complete(ctx context.Context, in CompleteReleaseInput) (CompleteReleaseResult, error)
}

type InitiateReleaseInput struct {
	ReleaseID         uuid.UUID
	CarNumber         string
	RiderID           uuid.UUID
	ReleaseType       string
	AssignmentID      *uuid.UUID
	LeaseTransitionID *uuid.UUID
	Notes             string
	ActorLabel        string
	InitiatedAt       time.Time
}

type TransitionReleaseInput struct {
	ReleaseID uuid.UUID
	// Action names the operation for error messages ("approve", "execute", "cancel").
	Action       string
	FromStatuses []string
	ToStatus     string
	ActorLabel   string
	Notes        string
	Reason       string
	TransitionAt time.Time
}

type ReleaseTransitionResult struct {
	ReleaseID    uuid.UUID
	CarNumber    string
	FromStatus   string
	ToStatus     string
	TransitionAt time.Time
}

type CompleteReleaseInput struct {
	ReleaseID   uuid.UUID
	ActorLabel  string
	Notes       string
	CompletedAt time.Time
}

type CompleteReleaseResult struct {
	ReleaseTransitionResult

	RiderCarID uuid.UUID
	CarID      uuid.UUID
	RiderID    uuid.UUID
	// Billable cars left on the rider after this car came off.
	ActiveCarCount int
	// Set only when the linked row was moved to Complete by this call.
	CompletedAssignmentID      *uuid.UUID
	CompletedLeaseTransitionID *uuid.UUID
}
