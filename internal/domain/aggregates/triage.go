package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var TriageAggregateContract = Contract{
	Name:             "Fleet.TriageAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyTableRepoQueries,
	Notes:            "One unresolved entry per car, enforced by the database; listing stays on the table repo.",
}

// TriageAggregate owns triage queue writes.
type TriageAggregate interface {
	Aggregate

	// Create inserts an open entry. A second open entry for the same car fails with
	// CodeConflict from the uniqueness constraint; callers must not pre-check.
	Create(ctx context.Context, in CreateTriageEntryInput) (TriageEntryResult, error)

	Resolve(ctx context.Context, in ResolveTriageEntryInput) (TriageEntryResult, error)
}

type CreateTriageEntryInput struct {
	EntryID           uuid.UUID
	CarID             uuid.UUID
	CarNumber         string
	Reason            string
	Priority          int
	Notes             string
	ActorLabel        string
	SourceReferenceID *uuid.UUID
	CreatedAt         time.Time
}

type ResolveTriageEntryInput struct {
	EntryID               uuid.UUID
	Resolution            string
	ResolvedBy            string
	Notes                 string
	ResolutionReferenceID *uuid.UUID
	ResolvedAt            time.Time
}

type TriageEntryResult struct {
	EntryID    uuid.UUID
	CarID      uuid.UUID
	CarNumber  string
	Reason     string
	Priority   int
	State      string
	Resolution string
	At         time.Time
}
