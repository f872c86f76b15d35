package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
)

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository returns a Postgres-backed implementation of SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) repository.SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) ListRange(ctx context.Context, id string, from, to time.Time) ([]domain.Snapshot, error) {
	const query = `
	SELECT id, name, kind, parent_id, price, updated_at
	FROM shop_unit_history
	WHERE id = $1
	  AND updated_at >= $2
	  AND updated_at < $3
	ORDER BY updated_at
	`
	rows, err := r.pool.Query(ctx, query, id, from, to)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *snapshotRepository) LatestAt(ctx context.Context, id string, asOf time.Time) (*domain.Snapshot, error) {
	const query = `
	SELECT id, name, kind, parent_id, price, updated_at
	FROM shop_unit_history
	WHERE id = $1
	  AND updated_at <= $2
	ORDER BY updated_at DESC
	LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, id, asOf)
	return scanSnapshot(row)
}

func (r *snapshotRepository) ChildrenAt(ctx context.Context, parentID string, asOf time.Time) ([]domain.Snapshot, error) {
	// Candidate ids come off the (parent_id, updated_at) index: anything
	// ever parented here at or before the instant. The lateral picks each
	// candidate's latest row by the (id, updated_at) key, and the outer
	// filter keeps only those still parented here as of that row.
	const query = `
	SELECT h.id, h.name, h.kind, h.parent_id, h.price, h.updated_at
	FROM (
		SELECT DISTINCT id
		FROM shop_unit_history
		WHERE parent_id = $1
		  AND updated_at <= $2
	) c
	JOIN LATERAL (
		SELECT id, name, kind, parent_id, price, updated_at
		FROM shop_unit_history
		WHERE id = c.id
		  AND updated_at <= $2
		ORDER BY updated_at DESC
		LIMIT 1
	) h ON TRUE
	WHERE h.parent_id = $1
	ORDER BY h.id
	`
	rows, err := r.pool.Query(ctx, query, parentID, asOf)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *snapshotRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM shop_unit_history WHERE id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, translateError(err)
	}
	return exists, nil
}
