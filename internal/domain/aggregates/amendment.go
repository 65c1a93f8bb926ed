package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var AmendmentAggregateContract = Contract{
	Name:             "Fleet.AmendmentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns amendment status progression; activation supersedes and cascades the rider rate atomically.",
}

// AmendmentAggregate owns lease amendment invariants.
type AmendmentAggregate interface {
	Aggregate

	Create(ctx context.Context, in CreateAmendmentInput) (AmendmentTransitionResult, error)

	// Transition handles submit, approve and reject.
	Transition(ctx context.Context, in TransitionAmendmentInput) (AmendmentTransitionResult, error)

	// Activate moves Approved -> Active, supersedes the prior Active amendment of the
	// rider, rewrites the rider rate when the amendment carries one and clears the
	// amendment flags on the rider's active cars. All or nothing.
	Activate(ctx context.Context, in ActivateAmendmentInput) (ActivateAmendmentResult, error)
}

type CreateAmendmentInput struct {
	AmendmentID     uuid.UUID
	RiderID         uuid.UUID
	AmendmentNumber string
	AmendmentType   string
	Summary         string
	NewRate         *float64
	EffectiveDate   time.Time
	ActorLabel      string
	CreatedAt       time.Time
}

type TransitionAmendmentInput struct {
	AmendmentID  uuid.UUID
	Action       string
	FromStatus   string
	ToStatus     string
	ActorLabel   string
	Reason       string
	TransitionAt time.Time
}

type AmendmentTransitionResult struct {
	AmendmentID     uuid.UUID
	RiderID         uuid.UUID
	AmendmentNumber string
	FromStatus      string
	ToStatus        string
	TransitionAt    time.Time
}

type ActivateAmendmentInput struct {
	AmendmentID uuid.UUID
	ActorLabel  string
	ActivatedAt time.Time
}

type ActivateAmendmentResult struct {
	AmendmentTransitionResult

	SupersededID     *uuid.UUID
	SupersededNumber string
	RateHistoryID    *uuid.UUID
	PreviousRate     *float64
	NewRate          *float64
	ClearedRiderCars int64
}
