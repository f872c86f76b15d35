// Package memory holds a mutex-guarded implementation of the catalog and
// snapshot repositories. It backs the test suite and any deployment that
// does not need durability.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
)

// Store keeps the current unit set and the snapshot history behind one
// RWMutex, so a committed batch is visible atomically.
type Store struct {
	mu    sync.RWMutex
	units map[string]domain.ShopUnit
	snaps map[string][]domain.Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		units: make(map[string]domain.ShopUnit),
		snaps: make(map[string][]domain.Snapshot),
	}
}

// Catalog returns the catalog-repository view of the store.
func (s *Store) Catalog() repository.CatalogRepository { return &catalogView{store: s} }

// Snapshots returns the snapshot-repository view of the store.
func (s *Store) Snapshots() repository.SnapshotRepository { return &snapshotView{store: s} }

type catalogView struct{ store *Store }

func (v *catalogView) GetByID(_ context.Context, id string) (*domain.ShopUnit, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return nil, domain.ErrUnitNotFound
	}
	return cloneUnit(unit), nil
}

func (v *catalogView) GetChildren(_ context.Context, parentID string) ([]domain.ShopUnit, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var children []domain.ShopUnit
	for _, unit := range s.units {
		if unit.ParentID != nil && *unit.ParentID == parentID {
			children = append(children, *cloneUnit(unit))
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (v *catalogView) GetUpdatedWithin(_ context.Context, filter repository.UnitFilter) ([]domain.ShopUnit, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var units []domain.ShopUnit
	for _, unit := range s.units {
		if unit.Kind != filter.Kind {
			continue
		}
		if unit.UpdatedAt.Before(filter.From) || unit.UpdatedAt.After(filter.To) {
			continue
		}
		units = append(units, *cloneUnit(unit))
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

func (v *catalogView) Delete(_ context.Context, id string) ([]string, error) {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[id]; !ok {
		return nil, domain.ErrUnitNotFound
	}

	// Children index for the cascade walk.
	children := make(map[string][]string)
	for _, unit := range s.units {
		if unit.ParentID != nil {
			children[*unit.ParentID] = append(children[*unit.ParentID], unit.ID)
		}
	}

	removed := []string{id}
	for frontier := []string{id}; len(frontier) > 0; {
		next := frontier[0]
		frontier = frontier[1:]
		for _, child := range children[next] {
			removed = append(removed, child)
			frontier = append(frontier, child)
		}
	}

	for _, rid := range removed {
		delete(s.units, rid)
		delete(s.snaps, rid)
	}
	return removed, nil
}

func (v *catalogView) Batch(ctx context.Context, fn func(tx repository.BatchTx) error) error {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &batchTx{
		store:   s,
		pending: make(map[string]domain.ShopUnit),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// batchTx stages writes in an overlay; commit folds them into the store.
// The store write lock is held for the whole batch, so readers only ever
// see the pre- or post-commit state.
type batchTx struct {
	store   *Store
	pending map[string]domain.ShopUnit
	appends []domain.Snapshot
}

func (tx *batchTx) Get(_ context.Context, id string) (*domain.ShopUnit, error) {
	if unit, ok := tx.pending[id]; ok {
		return cloneUnit(unit), nil
	}
	if unit, ok := tx.store.units[id]; ok {
		return cloneUnit(unit), nil
	}
	return nil, domain.ErrUnitNotFound
}

func (tx *batchTx) Upsert(ctx context.Context, unit *domain.ShopUnit) error {
	if unit == nil || unit.ID == "" {
		return domain.ErrInvalidPayload
	}
	if existing, err := tx.Get(ctx, unit.ID); err == nil && existing.Kind != unit.Kind {
		return domain.ErrTypeImmutable
	}
	if unit.ParentID != nil {
		parent, err := tx.Get(ctx, *unit.ParentID)
		if err != nil {
			return domain.ErrParentNotFound
		}
		if !parent.IsCategory() {
			return domain.ErrParentNotCategory
		}
	}
	tx.pending[unit.ID] = *cloneUnit(*unit)
	return nil
}

func (tx *batchTx) Touch(ctx context.Context, id string, updatedAt time.Time) error {
	unit, err := tx.Get(ctx, id)
	if err != nil {
		return err
	}
	unit.UpdatedAt = updatedAt
	tx.pending[id] = *unit
	return nil
}

func (tx *batchTx) AppendSnapshot(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.ID == "" {
		return domain.ErrInvalidPayload
	}
	tx.appends = append(tx.appends, *snap)
	return nil
}

func (tx *batchTx) commit() {
	for id, unit := range tx.pending {
		tx.store.units[id] = unit
	}
	for _, snap := range tx.appends {
		history := tx.store.snaps[snap.ID]
		// Re-appending at an existing timestamp replaces that row instead
		// of duplicating the (id, timestamp) key.
		if n := len(history); n > 0 && history[n-1].Timestamp.Equal(snap.Timestamp) {
			history[n-1] = snap
		} else {
			history = append(history, snap)
			sort.Slice(history, func(i, j int) bool {
				return history[i].Timestamp.Before(history[j].Timestamp)
			})
		}
		tx.store.snaps[snap.ID] = history
	}
}

type snapshotView struct{ store *Store }

func (v *snapshotView) ListRange(_ context.Context, id string, from, to time.Time) ([]domain.Snapshot, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Snapshot
	for _, snap := range s.snaps[id] {
		if snap.Timestamp.Before(from) || !snap.Timestamp.Before(to) {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (v *snapshotView) LatestAt(_ context.Context, id string, asOf time.Time) (*domain.Snapshot, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := latestAtLocked(s.snaps[id], asOf)
	if !ok {
		return nil, domain.ErrUnitNotFound
	}
	return &snap, nil
}

func (v *snapshotView) ChildrenAt(_ context.Context, parentID string, asOf time.Time) ([]domain.Snapshot, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Snapshot
	for _, history := range s.snaps {
		snap, ok := latestAtLocked(history, asOf)
		if !ok {
			continue
		}
		if snap.ParentID != nil && *snap.ParentID == parentID {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *snapshotView) Exists(_ context.Context, id string) (bool, error) {
	s := v.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps[id]) > 0, nil
}

// latestAtLocked binary-searches a timestamp-ordered history for the last
// snapshot at or before asOf.
func latestAtLocked(history []domain.Snapshot, asOf time.Time) (domain.Snapshot, bool) {
	idx := sort.Search(len(history), func(i int) bool {
		return history[i].Timestamp.After(asOf)
	})
	if idx == 0 {
		return domain.Snapshot{}, false
	}
	return history[idx-1], true
}

func cloneUnit(u domain.ShopUnit) *domain.ShopUnit {
	out := u
	if u.ParentID != nil {
		pid := *u.ParentID
		out.ParentID = &pid
	}
	if u.Price != nil {
		price := *u.Price
		out.Price = &price
	}
	return &out
}
