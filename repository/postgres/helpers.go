package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopcat/backend/domain"
)

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row scannable) (*domain.ShopUnit, error) {
	var (
		unit domain.ShopUnit
		kind string
	)
	if err := row.Scan(
		&unit.ID,
		&unit.Name,
		&kind,
		&unit.ParentID,
		&unit.Price,
		&unit.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnitNotFound
		}
		return nil, translateError(err)
	}
	unit.Kind = domain.UnitKind(kind)
	return &unit, nil
}

func scanSnapshot(row scannable) (*domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		kind string
	)
	if err := row.Scan(
		&snap.ID,
		&snap.Name,
		&kind,
		&snap.ParentID,
		&snap.Price,
		&snap.Timestamp,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnitNotFound
		}
		return nil, translateError(err)
	}
	snap.Kind = domain.UnitKind(kind)
	return &snap, nil
}

func collectUnits(rows pgx.Rows) ([]domain.ShopUnit, error) {
	var units []domain.ShopUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *unit)
	}
	return units, translateError(rows.Err())
}

func collectSnapshots(rows pgx.Rows) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, translateError(rows.Err())
}

// translateError maps storage constraint violations onto the domain codes
// they correspond to; anything unrecognized surfaces as INTERNAL.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation: parent_id without a parent row
			return domain.ErrParentNotFound
		case "23505": // unique_violation
			return domain.ErrDuplicateID
		case "23514": // check_violation: kind or price constraint
			return domain.ErrInvalidPrice
		}
	}
	return domain.WrapError(domain.ErrCodeInternal, "storage failure", err)
}
