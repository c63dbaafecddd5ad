// Package repository defines the reputation record store interface and its
// implementations.
package repository

import (
	"context"

	"github.com/okian/prive/internal/domain/model"
)

// Store provides read/write access to persisted reputation records.
//
// Writes use optimistic concurrency: Save compares the record's Revision
// against the stored one and fails with ErrConflict when another writer
// got there first. Callers reload and retry.
type Store interface {
	// GetOrCreate returns the record for userID, atomically initializing
	// a default record on first access. Concurrent first access for the
	// same user never creates duplicates.
	GetOrCreate(ctx context.Context, userID string) (*model.ReputationRecord, error)

	// Get returns the record for userID, or ErrNotFound.
	Get(ctx context.Context, userID string) (*model.ReputationRecord, error)

	// Save persists rec if its Revision still matches the stored record,
	// bumping rec.Revision on success. The snapshots appended by this
	// mutation are written to the durable history log in the same unit.
	// Returns ErrConflict when the revision check fails.
	Save(ctx context.Context, rec *model.ReputationRecord, snaps ...model.Snapshot) error

	// History returns up to limit snapshots for userID, newest first.
	History(ctx context.Context, userID string, limit int) ([]model.Snapshot, error)

	// ListEligible returns eligible records ordered by total score
	// descending. An empty tier matches every eligible tier.
	ListEligible(ctx context.Context, tier model.Tier, limit int) ([]*model.ReputationRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}

// defaultListLimit caps ListEligible when the caller passes no limit.
const defaultListLimit = 100
