package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
)

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a Postgres-backed implementation of CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) repository.CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetByID(ctx context.Context, id string) (*domain.ShopUnit, error) {
	const query = `
	SELECT id, name, kind, parent_id, price, updated_at
	FROM shop_units
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	return scanUnit(row)
}

func (r *catalogRepository) GetChildren(ctx context.Context, parentID string) ([]domain.ShopUnit, error) {
	const query = `
	SELECT id, name, kind, parent_id, price, updated_at
	FROM shop_units
	WHERE parent_id = $1
	ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return collectUnits(rows)
}

func (r *catalogRepository) GetUpdatedWithin(ctx context.Context, filter repository.UnitFilter) ([]domain.ShopUnit, error) {
	const query = `
	SELECT id, name, kind, parent_id, price, updated_at
	FROM shop_units
	WHERE kind = $1
	  AND updated_at >= $2
	  AND updated_at <= $3
	ORDER BY updated_at, id
	`
	rows, err := r.pool.Query(ctx, query, string(filter.Kind), filter.From, filter.To)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return collectUnits(rows)
}

func (r *catalogRepository) Delete(ctx context.Context, id string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	defer tx.Rollback(ctx)

	const subtreeQuery = `
	WITH RECURSIVE subtree AS (
		SELECT id FROM shop_units WHERE id = $1
		UNION ALL
		SELECT u.id FROM shop_units u JOIN subtree s ON u.parent_id = s.id
	)
	SELECT id FROM subtree
	FOR UPDATE
	`
	rows, err := tx.Query(ctx, subtreeQuery, id)
	if err != nil {
		return nil, translateError(err)
	}
	var removed []string
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			rows.Close()
			return nil, translateError(err)
		}
		removed = append(removed, rid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	if len(removed) == 0 {
		return nil, domain.ErrUnitNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM shop_unit_history WHERE id = ANY($1)`, removed); err != nil {
		return nil, translateError(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM shop_units WHERE id = ANY($1)`, removed); err != nil {
		return nil, translateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateError(err)
	}
	return removed, nil
}

func (r *catalogRepository) Batch(ctx context.Context, fn func(tx repository.BatchTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&batchTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translateError(err)
	}
	return nil
}

// batchTx issues batch writes through one pgx transaction. Invariant
// checks run against FOR UPDATE reads so concurrent batches serialize on
// the rows they touch.
type batchTx struct {
	tx pgx.Tx
}

func (b *batchTx) Get(ctx context.Context, id string) (*domain.ShopUnit, error) {
	const query = `
	SELECT id, name, kind, parent_id, price, updated_at
	FROM shop_units
	WHERE id = $1
	FOR UPDATE
	`
	row := b.tx.QueryRow(ctx, query, id)
	return scanUnit(row)
}

func (b *batchTx) Upsert(ctx context.Context, unit *domain.ShopUnit) error {
	if unit == nil || unit.ID == "" {
		return domain.ErrInvalidPayload
	}

	existing, err := b.Get(ctx, unit.ID)
	if err != nil && !errors.Is(err, domain.ErrUnitNotFound) {
		return err
	}
	if existing != nil && existing.Kind != unit.Kind {
		return domain.ErrTypeImmutable
	}

	if unit.ParentID != nil {
		parent, err := b.Get(ctx, *unit.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrUnitNotFound) {
				return domain.ErrParentNotFound
			}
			return err
		}
		if !parent.IsCategory() {
			return domain.ErrParentNotCategory
		}
	}

	const query = `
	INSERT INTO shop_units (id, name, kind, parent_id, price, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		parent_id = EXCLUDED.parent_id,
		price = EXCLUDED.price,
		updated_at = EXCLUDED.updated_at
	`
	_, err = b.tx.Exec(ctx, query,
		unit.ID,
		unit.Name,
		string(unit.Kind),
		unit.ParentID,
		unit.Price,
		unit.UpdatedAt,
	)
	return translateError(err)
}

func (b *batchTx) Touch(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `UPDATE shop_units SET updated_at = $2 WHERE id = $1`
	tag, err := b.tx.Exec(ctx, query, id, updatedAt)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func (b *batchTx) AppendSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO shop_unit_history (id, name, kind, parent_id, price, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id, updated_at) DO UPDATE
	SET name = EXCLUDED.name,
		kind = EXCLUDED.kind,
		parent_id = EXCLUDED.parent_id,
		price = EXCLUDED.price
	`
	_, err := b.tx.Exec(ctx, query,
		snap.ID,
		snap.Name,
		string(snap.Kind),
		snap.ParentID,
		snap.Price,
		snap.Timestamp,
	)
	return translateError(err)
}
