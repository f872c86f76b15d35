package repository

import (
	"context"

	"github.com/shopcat/backend/domain"
)

// TreeCache is a read-side cache for computed subtrees. Implementations
// return domain.ErrUnitNotFound on a miss; mutations invalidate every id
// whose cached subtree may have changed.
type TreeCache interface {
	Get(ctx context.Context, id string) (*domain.UnitTree, error)
	Set(ctx context.Context, tree *domain.UnitTree) error
	Invalidate(ctx context.Context, ids []string) error
}
