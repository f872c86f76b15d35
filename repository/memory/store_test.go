package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
)

var (
	t1 = time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC)
	t2 = time.Date(2022, 2, 2, 12, 0, 0, 0, time.UTC)
	t3 = time.Date(2022, 2, 3, 12, 0, 0, 0, time.UTC)
)

func price(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func put(t *testing.T, s *Store, units ...domain.ShopUnit) {
	t.Helper()
	ctx := context.Background()
	err := s.Catalog().Batch(ctx, func(tx repository.BatchTx) error {
		for i := range units {
			if err := tx.Upsert(ctx, &units[i]); err != nil {
				return err
			}
			if err := tx.AppendSnapshot(ctx, domain.SnapshotOf(&units[i], units[i].UpdatedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBatch_RollbackLeavesStoreUntouched(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Catalog().Batch(ctx, func(tx repository.BatchTx) error {
		unit := domain.ShopUnit{ID: "x", Name: "x", Kind: domain.KindOffer, Price: price(1), UpdatedAt: t1}
		if err := tx.Upsert(ctx, &unit); err != nil {
			return err
		}
		if err := tx.AppendSnapshot(ctx, domain.SnapshotOf(&unit, t1)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Catalog().GetByID(ctx, "x")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	exists, err := s.Snapshots().Exists(ctx, "x")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBatch_StagedWritesVisibleInsideTx(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.Catalog().Batch(ctx, func(tx repository.BatchTx) error {
		parent := domain.ShopUnit{ID: "p", Name: "p", Kind: domain.KindCategory, UpdatedAt: t1}
		if err := tx.Upsert(ctx, &parent); err != nil {
			return err
		}
		// The child resolves its parent from the uncommitted overlay.
		child := domain.ShopUnit{ID: "c", Name: "c", Kind: domain.KindOffer, ParentID: strPtr("p"), Price: price(1), UpdatedAt: t1}
		return tx.Upsert(ctx, &child)
	})
	require.NoError(t, err)

	unit, err := s.Catalog().GetByID(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, unit.ParentID)
	assert.Equal(t, "p", *unit.ParentID)
}

func TestUpsert_ParentChecks(t *testing.T) {
	s := NewStore()
	put(t, s, domain.ShopUnit{ID: "o", Name: "o", Kind: domain.KindOffer, Price: price(1), UpdatedAt: t1})
	ctx := context.Background()

	err := s.Catalog().Batch(ctx, func(tx repository.BatchTx) error {
		unit := domain.ShopUnit{ID: "x", Name: "x", Kind: domain.KindOffer, ParentID: strPtr("ghost"), Price: price(1), UpdatedAt: t1}
		return tx.Upsert(ctx, &unit)
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeParentNotFound))

	err = s.Catalog().Batch(ctx, func(tx repository.BatchTx) error {
		unit := domain.ShopUnit{ID: "x", Name: "x", Kind: domain.KindOffer, ParentID: strPtr("o"), Price: price(1), UpdatedAt: t1}
		return tx.Upsert(ctx, &unit)
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeParentNotCategory))
}

func TestUpsert_KindIsImmutable(t *testing.T) {
	s := NewStore()
	put(t, s, domain.ShopUnit{ID: "x", Name: "x", Kind: domain.KindOffer, Price: price(1), UpdatedAt: t1})
	ctx := context.Background()

	err := s.Catalog().Batch(ctx, func(tx repository.BatchTx) error {
		unit := domain.ShopUnit{ID: "x", Name: "x", Kind: domain.KindCategory, UpdatedAt: t2}
		return tx.Upsert(ctx, &unit)
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeTypeImmutable))
}

func TestDelete_CascadeAndHistory(t *testing.T) {
	s := NewStore()
	put(t, s,
		domain.ShopUnit{ID: "root", Name: "root", Kind: domain.KindCategory, UpdatedAt: t1},
		domain.ShopUnit{ID: "mid", Name: "mid", Kind: domain.KindCategory, ParentID: strPtr("root"), UpdatedAt: t1},
		domain.ShopUnit{ID: "leaf", Name: "leaf", Kind: domain.KindOffer, ParentID: strPtr("mid"), Price: price(1), UpdatedAt: t1},
		domain.ShopUnit{ID: "other", Name: "other", Kind: domain.KindOffer, ParentID: strPtr("root"), Price: price(2), UpdatedAt: t1},
	)
	ctx := context.Background()

	removed, err := s.Catalog().Delete(ctx, "mid")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mid", "leaf"}, removed)

	for _, id := range removed {
		_, err := s.Catalog().GetByID(ctx, id)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound), id)
		exists, err := s.Snapshots().Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists, id)
	}

	// Siblings outside the subtree survive.
	_, err = s.Catalog().GetByID(ctx, "other")
	assert.NoError(t, err)
}

func TestDelete_UnknownID(t *testing.T) {
	s := NewStore()
	_, err := s.Catalog().Delete(context.Background(), "ghost")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestGetChildren_SortedDirectOnly(t *testing.T) {
	s := NewStore()
	put(t, s,
		domain.ShopUnit{ID: "root", Name: "root", Kind: domain.KindCategory, UpdatedAt: t1},
		domain.ShopUnit{ID: "b", Name: "b", Kind: domain.KindCategory, ParentID: strPtr("root"), UpdatedAt: t1},
		domain.ShopUnit{ID: "a", Name: "a", Kind: domain.KindOffer, ParentID: strPtr("root"), Price: price(1), UpdatedAt: t1},
		domain.ShopUnit{ID: "nested", Name: "nested", Kind: domain.KindOffer, ParentID: strPtr("b"), Price: price(1), UpdatedAt: t1},
	)

	children, err := s.Catalog().GetChildren(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "a", children[0].ID)
	assert.Equal(t, "b", children[1].ID)
}

func TestGetUpdatedWithin_KindAndWindow(t *testing.T) {
	s := NewStore()
	put(t, s,
		domain.ShopUnit{ID: "early", Name: "early", Kind: domain.KindOffer, Price: price(1), UpdatedAt: t1},
		domain.ShopUnit{ID: "hit", Name: "hit", Kind: domain.KindOffer, Price: price(1), UpdatedAt: t2},
		domain.ShopUnit{ID: "cat", Name: "cat", Kind: domain.KindCategory, UpdatedAt: t2},
	)

	units, err := s.Catalog().GetUpdatedWithin(context.Background(), repository.UnitFilter{
		Kind: domain.KindOffer,
		From: t2,
		To:   t3,
	})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "hit", units[0].ID)
}

func TestLatestAt_PicksNewestAtOrBefore(t *testing.T) {
	s := NewStore()
	put(t, s, domain.ShopUnit{ID: "x", Name: "v1", Kind: domain.KindOffer, Price: price(100), UpdatedAt: t1})
	put(t, s, domain.ShopUnit{ID: "x", Name: "v2", Kind: domain.KindOffer, Price: price(200), UpdatedAt: t3})
	ctx := context.Background()

	snap, err := s.Snapshots().LatestAt(ctx, "x", t2)
	require.NoError(t, err)
	assert.Equal(t, "v1", snap.Name)

	snap, err = s.Snapshots().LatestAt(ctx, "x", t3)
	require.NoError(t, err)
	assert.Equal(t, "v2", snap.Name)

	_, err = s.Snapshots().LatestAt(ctx, "x", t1.Add(-time.Second))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestChildrenAt_TracksReparenting(t *testing.T) {
	s := NewStore()
	put(t, s,
		domain.ShopUnit{ID: "b", Name: "b", Kind: domain.KindCategory, UpdatedAt: t1},
		domain.ShopUnit{ID: "c", Name: "c", Kind: domain.KindCategory, UpdatedAt: t1},
		domain.ShopUnit{ID: "o", Name: "o", Kind: domain.KindOffer, ParentID: strPtr("b"), Price: price(1), UpdatedAt: t1},
	)
	// The offer moves from b to c.
	put(t, s, domain.ShopUnit{ID: "o", Name: "o", Kind: domain.KindOffer, ParentID: strPtr("c"), Price: price(1), UpdatedAt: t2})
	ctx := context.Background()

	snaps, err := s.Snapshots().ChildrenAt(ctx, "b", t1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "o", snaps[0].ID)

	snaps, err = s.Snapshots().ChildrenAt(ctx, "b", t2)
	require.NoError(t, err)
	assert.Empty(t, snaps, "the offer's as-of parent is c now")

	snaps, err = s.Snapshots().ChildrenAt(ctx, "c", t2)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "o", snaps[0].ID)
}

func TestReads_ReturnIsolatedCopies(t *testing.T) {
	s := NewStore()
	put(t, s, domain.ShopUnit{ID: "x", Name: "x", Kind: domain.KindOffer, Price: price(100), UpdatedAt: t1})
	ctx := context.Background()

	unit, err := s.Catalog().GetByID(ctx, "x")
	require.NoError(t, err)
	*unit.Price = 999
	unit.Name = "mutated"

	fresh, err := s.Catalog().GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", fresh.Name)
	assert.Equal(t, int64(100), *fresh.Price)
}
