// Package pricing computes subtree price aggregates, live against the
// catalog or as-of an instant against the snapshot log.
package pricing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
)

const defaultFanout = 8

// Aggregator is a stateless read-side computation over either store.
type Aggregator struct {
	catalog repository.CatalogRepository
	snaps   repository.SnapshotRepository
	fanout  int
	logger  *zap.Logger
}

// New builds an Aggregator. fanout bounds how many child fetches run
// concurrently during a subtree walk.
func New(catalog repository.CatalogRepository, snaps repository.SnapshotRepository, fanout int, logger *zap.Logger) *Aggregator {
	if fanout <= 0 {
		fanout = defaultFanout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		catalog: catalog,
		snaps:   snaps,
		fanout:  fanout,
		logger:  logger,
	}
}

// nodeState is one arena entry of a subtree walk. Children always sit at
// higher indexes than their parent, so a reverse sweep is post-order.
type nodeState struct {
	unit   domain.ShopUnit
	parent int
	sum    int64
	count  int64
	price  *int64
}

type fetchFunc func(ctx context.Context, parentID string) ([]domain.ShopUnit, error)

// ComputePrice returns the live floor-average price of all offers in the
// subtree rooted at id, nil when the subtree holds no offers.
func (a *Aggregator) ComputePrice(ctx context.Context, id string) (*int64, error) {
	root, err := a.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	arena, err := a.walk(ctx, *root, a.liveChildren)
	if err != nil {
		return nil, err
	}
	fold(arena)
	return arena[0].price, nil
}

// ComputePriceAt is ComputePrice against the snapshot log: every node is
// read as its most recent snapshot at or before asOf.
func (a *Aggregator) ComputePriceAt(ctx context.Context, id string, asOf time.Time) (*int64, error) {
	snap, err := a.snaps.LatestAt(ctx, id, asOf)
	if err != nil {
		return nil, err
	}
	arena, err := a.walk(ctx, unitOf(snap), a.snapshotChildren(asOf))
	if err != nil {
		return nil, err
	}
	fold(arena)
	return arena[0].price, nil
}

// BuildTree assembles the live subtree rooted at id with computed category
// prices. Offers carry nil children; categories always carry an array.
func (a *Aggregator) BuildTree(ctx context.Context, id string) (*domain.UnitTree, error) {
	root, err := a.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	arena, err := a.walk(ctx, *root, a.liveChildren)
	if err != nil {
		return nil, err
	}
	fold(arena)

	nodes := make([]*domain.UnitTree, len(arena))
	for i, entry := range arena {
		node := &domain.UnitTree{
			ID:        entry.unit.ID,
			Name:      entry.unit.Name,
			Kind:      entry.unit.Kind,
			ParentID:  entry.unit.ParentID,
			Price:     entry.unit.Price,
			UpdatedAt: entry.unit.UpdatedAt,
		}
		if node.Kind == domain.KindCategory {
			node.Price = entry.price
			node.Children = []*domain.UnitTree{}
		}
		nodes[i] = node
		if entry.parent >= 0 {
			parent := nodes[entry.parent]
			parent.Children = append(parent.Children, node)
		}
	}
	return nodes[0], nil
}

// walk expands the subtree breadth-first into an arena. Child fetches of
// one frontier level run concurrently, bounded by the fanout limit; the
// arena keeps memory proportional to the subtree, not the call stack.
func (a *Aggregator) walk(ctx context.Context, root domain.ShopUnit, children fetchFunc) ([]nodeState, error) {
	arena := []nodeState{{unit: root, parent: -1}}
	frontier := []int{0}

	for len(frontier) > 0 {
		fetched := make([][]domain.ShopUnit, len(frontier))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.fanout)
		for i, idx := range frontier {
			if arena[idx].unit.Kind != domain.KindCategory {
				continue
			}
			parentID := arena[idx].unit.ID
			g.Go(func() error {
				units, err := children(gctx, parentID)
				if err != nil {
					return err
				}
				fetched[i] = units
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []int
		for i, idx := range frontier {
			for _, child := range fetched[i] {
				arena = append(arena, nodeState{unit: child, parent: idx})
				next = append(next, len(arena)-1)
			}
		}
		frontier = next
	}
	return arena, nil
}

// fold sweeps the arena in reverse (children before parents), rolling
// each node's (sum, count) into its parent. A category without offers
// contributes (0, 0) and keeps a nil price; otherwise the price is
// floor(sum / count), exact for non-negative operands.
func fold(arena []nodeState) {
	for i := len(arena) - 1; i >= 0; i-- {
		entry := &arena[i]
		var sum, count int64
		switch entry.unit.Kind {
		case domain.KindOffer:
			if entry.unit.Price != nil {
				sum, count = *entry.unit.Price, 1
			}
			entry.price = entry.unit.Price
		case domain.KindCategory:
			sum, count = entry.sum, entry.count
			if count > 0 {
				avg := sum / count
				entry.price = &avg
			}
		}
		if entry.parent >= 0 {
			parent := &arena[entry.parent]
			parent.sum += sum
			parent.count += count
		}
	}
}

func (a *Aggregator) liveChildren(ctx context.Context, parentID string) ([]domain.ShopUnit, error) {
	return a.catalog.GetChildren(ctx, parentID)
}

// snapshotChildren resolves children by their as-of state: a node counts
// as a child only if its latest snapshot at or before asOf is parented
// under parentID.
func (a *Aggregator) snapshotChildren(asOf time.Time) fetchFunc {
	return func(ctx context.Context, parentID string) ([]domain.ShopUnit, error) {
		snaps, err := a.snaps.ChildrenAt(ctx, parentID, asOf)
		if err != nil {
			if errors.Is(err, domain.ErrUnitNotFound) {
				return nil, nil
			}
			return nil, err
		}
		units := make([]domain.ShopUnit, 0, len(snaps))
		for i := range snaps {
			units = append(units, unitOf(&snaps[i]))
		}
		return units, nil
	}
}

func unitOf(snap *domain.Snapshot) domain.ShopUnit {
	return domain.ShopUnit{
		ID:        snap.ID,
		Name:      snap.Name,
		Kind:      snap.Kind,
		ParentID:  snap.ParentID,
		Price:     snap.Price,
		UpdatedAt: snap.Timestamp,
	}
}
