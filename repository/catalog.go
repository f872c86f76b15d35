package repository

import (
	"context"
	"time"

	"github.com/shopcat/backend/domain"
)

// UnitFilter selects current units by kind inside an updated-at window.
// Both boundaries are inclusive.
type UnitFilter struct {
	Kind domain.UnitKind
	From time.Time
	To   time.Time
}

// BatchTx is the transactional view a mutation batch runs against. All
// writes issued through it commit together or not at all; concurrent
// readers never observe an intermediate state.
type BatchTx interface {
	Get(ctx context.Context, id string) (*domain.ShopUnit, error)
	Upsert(ctx context.Context, unit *domain.ShopUnit) error
	Touch(ctx context.Context, id string, updatedAt time.Time) error
	AppendSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// CatalogRepository owns the authoritative current state of the unit tree.
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ShopUnit, error)
	GetChildren(ctx context.Context, parentID string) ([]domain.ShopUnit, error)
	GetUpdatedWithin(ctx context.Context, filter UnitFilter) ([]domain.ShopUnit, error)

	// Delete removes the unit, every descendant, and all history rows of
	// every removed id. It returns the removed ids (root included) and
	// domain.ErrUnitNotFound when the id does not exist.
	Delete(ctx context.Context, id string) ([]string, error)

	// Batch runs fn inside one transaction. A non-nil error from fn rolls
	// everything back.
	Batch(ctx context.Context, fn func(tx BatchTx) error) error
}
