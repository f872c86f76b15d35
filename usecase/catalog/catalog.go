// Package catalog applies mutations to the unit tree and serves live
// subtree reads.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
	"github.com/shopcat/backend/usecase"
	"github.com/shopcat/backend/usecase/pricing"
)

type UseCase struct {
	catalog  repository.CatalogRepository
	pricing  *pricing.Aggregator
	cache    repository.TreeCache
	recorder usecase.MutationRecorder
	logger   *zap.Logger
}

func New(catalog repository.CatalogRepository, aggregator *pricing.Aggregator, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		catalog: catalog,
		pricing: aggregator,
		logger:  logger,
	}
}

// UseCache attaches an optional read-side tree cache.
func (uc *UseCase) UseCache(cache repository.TreeCache) { uc.cache = cache }

// UseRecorder attaches an optional mutation journal.
func (uc *UseCase) UseRecorder(rec usecase.MutationRecorder) { uc.recorder = rec }

// ImportBatch validates and applies a batch of upserts as one atomic unit,
// snapshots every written id, and propagates updateDate up the ancestor
// chain of every touched node. Any violation aborts the whole batch.
func (uc *UseCase) ImportBatch(ctx context.Context, items []domain.ShopUnit, updateDate time.Time) error {
	if len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if _, dup := seen[items[i].ID]; dup {
			return domain.ErrDuplicateID
		}
		seen[items[i].ID] = struct{}{}

		items[i].UpdatedAt = updateDate
		if err := items[i].Validate(); err != nil {
			return err
		}
	}

	order, err := batchOrder(items)
	if err != nil {
		return err
	}

	touched := make([]string, 0, len(items))
	prevParents := make(map[string]struct{})
	err = uc.catalog.Batch(ctx, func(tx repository.BatchTx) error {
		for _, idx := range order {
			item := &items[idx]
			existing, err := tx.Get(ctx, item.ID)
			if err != nil && !errors.Is(err, domain.ErrUnitNotFound) {
				return err
			}
			// A move leaves the former parent's subtree changed without
			// touching it, so its cached tree has to be dropped too.
			if existing != nil && existing.ParentID != nil {
				if item.ParentID == nil || *item.ParentID != *existing.ParentID {
					prevParents[*existing.ParentID] = struct{}{}
				}
			}
			if err := tx.Upsert(ctx, item); err != nil {
				return err
			}
			if err := tx.AppendSnapshot(ctx, domain.SnapshotOf(item, updateDate)); err != nil {
				return err
			}
			touched = append(touched, item.ID)
		}

		ancestors, err := uc.propagate(ctx, tx, items, seen, updateDate)
		if err != nil {
			return err
		}
		touched = append(touched, ancestors...)
		return nil
	})
	if err != nil {
		return err
	}

	stale := uc.stalePrevParents(ctx, prevParents, seen)
	uc.invalidate(ctx, append(touched, stale...))
	uc.record(func() error { return uc.recorder.RecordImport(ctx, touched, updateDate) })
	return nil
}

// stalePrevParents expands the former parents of moved units into their
// full ancestor chains, skipping ids the batch already touched.
func (uc *UseCase) stalePrevParents(ctx context.Context, prev map[string]struct{}, already map[string]struct{}) []string {
	if uc.cache == nil || len(prev) == 0 {
		return nil
	}
	var stale []string
	for pid := range prev {
		if _, done := already[pid]; !done {
			already[pid] = struct{}{}
			stale = append(stale, pid)
		}
		for _, anc := range uc.ancestorsOf(ctx, pid) {
			if _, done := already[anc]; !done {
				already[anc] = struct{}{}
				stale = append(stale, anc)
			}
		}
	}
	return stale
}

// propagate walks every touched node's parent chain with a worklist
// deduplicated by id: each ancestor is touched and snapshotted at most
// once per batch, however many items share it.
func (uc *UseCase) propagate(ctx context.Context, tx repository.BatchTx, items []domain.ShopUnit, visited map[string]struct{}, updateDate time.Time) ([]string, error) {
	var worklist []string
	for i := range items {
		if pid := items[i].ParentID; pid != nil {
			if _, done := visited[*pid]; !done {
				worklist = append(worklist, *pid)
				visited[*pid] = struct{}{}
			}
		}
	}

	var touched []string
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		ancestor, err := tx.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := tx.Touch(ctx, id, updateDate); err != nil {
			return nil, err
		}
		ancestor.UpdatedAt = updateDate
		if err := tx.AppendSnapshot(ctx, domain.SnapshotOf(ancestor, updateDate)); err != nil {
			return nil, err
		}
		touched = append(touched, id)

		if pid := ancestor.ParentID; pid != nil {
			if _, done := visited[*pid]; !done {
				worklist = append(worklist, *pid)
				visited[*pid] = struct{}{}
			}
		}
	}
	return touched, nil
}

// DeleteUnit removes the unit and its whole subtree, history included.
// The former parent's updatedAt stays untouched.
func (uc *UseCase) DeleteUnit(ctx context.Context, id string) error {
	stale := uc.ancestorsOf(ctx, id)

	removed, err := uc.catalog.Delete(ctx, id)
	if err != nil {
		return err
	}

	uc.invalidate(ctx, append(removed, stale...))
	uc.record(func() error { return uc.recorder.RecordDelete(ctx, id, len(removed)) })
	return nil
}

// GetNode returns the subtree rooted at id with live computed prices.
func (uc *UseCase) GetNode(ctx context.Context, id string) (*domain.UnitTree, error) {
	if uc.cache != nil {
		if tree, err := uc.cache.Get(ctx, id); err == nil {
			return tree, nil
		} else if !errors.Is(err, domain.ErrUnitNotFound) {
			uc.logger.Warn("tree cache read failed", zap.String("unit_id", id), zap.Error(err))
		}
	}

	tree, err := uc.pricing.BuildTree(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, tree); err != nil {
			uc.logger.Warn("tree cache write failed", zap.String("unit_id", id), zap.Error(err))
		}
	}
	return tree, nil
}

// batchOrder orders batch indexes so in-batch parents precede their
// children; items may arrive in arbitrary order.
func batchOrder(items []domain.ShopUnit) ([]int, error) {
	index := make(map[string]int, len(items))
	for i := range items {
		index[items[i].ID] = i
	}

	children := make(map[int][]int, len(items))
	var roots []int
	for i := range items {
		if pid := items[i].ParentID; pid != nil {
			if parent, inBatch := index[*pid]; inBatch {
				children[parent] = append(children[parent], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	order := make([]int, 0, len(items))
	for frontier := roots; len(frontier) > 0; {
		idx := frontier[0]
		frontier = frontier[1:]
		order = append(order, idx)
		frontier = append(frontier, children[idx]...)
	}
	if len(order) != len(items) {
		// Only possible with a parent cycle inside the batch.
		return nil, domain.NewError(domain.ErrCodeInvalid, "batch parent references cannot be ordered")
	}
	return order, nil
}

// ancestorsOf collects the parent chain before a delete so their cached
// trees can be dropped; lookup failures just shorten the chain.
func (uc *UseCase) ancestorsOf(ctx context.Context, id string) []string {
	if uc.cache == nil {
		return nil
	}
	var chain []string
	seen := map[string]struct{}{id: {}}
	current := id
	for {
		unit, err := uc.catalog.GetByID(ctx, current)
		if err != nil || unit.ParentID == nil {
			return chain
		}
		pid := *unit.ParentID
		if _, dup := seen[pid]; dup {
			return chain
		}
		seen[pid] = struct{}{}
		chain = append(chain, pid)
		current = pid
	}
}

func (uc *UseCase) invalidate(ctx context.Context, ids []string) {
	if uc.cache == nil || len(ids) == 0 {
		return
	}
	if err := uc.cache.Invalidate(ctx, ids); err != nil {
		uc.logger.Warn("tree cache invalidation failed", zap.Int("ids", len(ids)), zap.Error(err))
	}
}

func (uc *UseCase) record(fn func() error) {
	if uc.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		uc.logger.Warn("mutation journal write failed", zap.Error(err))
	}
}
