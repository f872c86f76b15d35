package repository

import (
	"context"
	"time"

	"github.com/shopcat/backend/domain"
)

// SnapshotRepository owns the append-only unit history. Rows are written
// through BatchTx.AppendSnapshot and removed only by cascading deletes.
type SnapshotRepository interface {
	// ListRange returns the snapshots of id with timestamp in [from, to),
	// ordered by timestamp ascending.
	ListRange(ctx context.Context, id string, from, to time.Time) ([]domain.Snapshot, error)

	// LatestAt returns the most recent snapshot of id with timestamp at or
	// before asOf, or domain.ErrUnitNotFound when none exists.
	LatestAt(ctx context.Context, id string, asOf time.Time) (*domain.Snapshot, error)

	// ChildrenAt returns, for every id whose as-of state (latest snapshot
	// at or before asOf) has the given parent, that as-of snapshot.
	ChildrenAt(ctx context.Context, parentID string, asOf time.Time) ([]domain.Snapshot, error)

	// Exists reports whether any history remains for id.
	Exists(ctx context.Context, id string) (bool, error)
}
