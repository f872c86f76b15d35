package pricing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
	"github.com/shopcat/backend/repository/memory"
	"github.com/shopcat/backend/usecase/pricing"
)

var (
	t1 = time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC)
	t2 = time.Date(2022, 2, 2, 12, 0, 0, 0, time.UTC)
)

func price(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func offer(id, parent string, p int64, at time.Time) domain.ShopUnit {
	unit := domain.ShopUnit{ID: id, Name: "offer " + id, Kind: domain.KindOffer, Price: price(p), UpdatedAt: at}
	if parent != "" {
		unit.ParentID = strPtr(parent)
	}
	return unit
}

func category(id, parent string, at time.Time) domain.ShopUnit {
	unit := domain.ShopUnit{ID: id, Name: "category " + id, Kind: domain.KindCategory, UpdatedAt: at}
	if parent != "" {
		unit.ParentID = strPtr(parent)
	}
	return unit
}

// seed writes units (parents before children) with one snapshot each.
func seed(t *testing.T, store *memory.Store, units ...domain.ShopUnit) {
	t.Helper()
	ctx := context.Background()
	err := store.Catalog().Batch(ctx, func(tx repository.BatchTx) error {
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

func newAggregator(store *memory.Store) *pricing.Aggregator {
	return pricing.New(store.Catalog(), store.Snapshots(), 4, nil)
}

func TestComputePrice_WeightedByOfferCount(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		category("root", "", t1),
		category("cheap", "root", t1),
		category("expensive", "root", t1),
		offer("o1", "cheap", 100, t1),
		offer("o2", "cheap", 200, t1),
		offer("o3", "expensive", 1000, t1),
	)
	agg := newAggregator(store)

	got, err := agg.ComputePrice(context.Background(), "root")
	require.NoError(t, err)
	require.NotNil(t, got)
	// (100 + 200 + 1000) / 3, not the average of child averages.
	assert.Equal(t, int64(433), *got)

	got, err = agg.ComputePrice(context.Background(), "cheap")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(150), *got)
}

func TestComputePrice_FloorDivision(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		category("root", "", t1),
		offer("o1", "root", 100, t1),
		offer("o2", "root", 99, t1),
	)
	agg := newAggregator(store)

	got, err := agg.ComputePrice(context.Background(), "root")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(99), *got)
}

func TestComputePrice_EmptyCategoryIsNull(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		category("root", "", t1),
		category("empty", "root", t1),
	)
	agg := newAggregator(store)

	got, err := agg.ComputePrice(context.Background(), "empty")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = agg.ComputePrice(context.Background(), "root")
	require.NoError(t, err)
	assert.Nil(t, got, "category whose subtree has no offers must be null, not zero")
}

func TestComputePrice_EmptyCategoryContributesNothing(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		category("root", "", t1),
		category("empty", "root", t1),
		offer("o1", "root", 100, t1),
	)
	agg := newAggregator(store)

	got, err := agg.ComputePrice(context.Background(), "root")
	require.NoError(t, err)
	require.NotNil(t, got)
	// The empty subcategory contributes (0, 0), not a zero-priced offer.
	assert.Equal(t, int64(100), *got)
}

func TestComputePrice_OfferRoot(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, offer("solo", "", 77, t1))
	agg := newAggregator(store)

	got, err := agg.ComputePrice(context.Background(), "solo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(77), *got)
}

func TestComputePrice_UnknownID(t *testing.T) {
	store := memory.NewStore()
	agg := newAggregator(store)

	_, err := agg.ComputePrice(context.Background(), "ghost")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestComputePrice_DeepChain(t *testing.T) {
	store := memory.NewStore()

	const depth = 2000
	units := []domain.ShopUnit{category("cat-0", "", t1)}
	for i := 1; i < depth; i++ {
		units = append(units, category(fmt.Sprintf("cat-%d", i), fmt.Sprintf("cat-%d", i-1), t1))
	}
	units = append(units, offer("leaf", fmt.Sprintf("cat-%d", depth-1), 42, t1))
	seed(t, store, units...)

	agg := newAggregator(store)
	got, err := agg.ComputePrice(context.Background(), "cat-0")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), *got)
}

func TestComputePrice_WideTree(t *testing.T) {
	store := memory.NewStore()

	units := []domain.ShopUnit{category("root", "", t1)}
	var sum int64
	const width = 500
	for i := 0; i < width; i++ {
		p := int64(i)
		sum += p
		units = append(units, offer(fmt.Sprintf("o-%d", i), "root", p, t1))
	}
	seed(t, store, units...)

	agg := newAggregator(store)
	got, err := agg.ComputePrice(context.Background(), "root")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sum/width, *got)
}

func TestComputePriceAt_UsesSnapshotsAtInstant(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		category("b", "", t1),
		offer("a", "b", 100, t1),
	)
	// Second batch: the offer price changes and the category is touched.
	seed(t, store,
		category("b", "", t2),
		offer("a", "b", 300, t2),
	)
	agg := newAggregator(store)

	got, err := agg.ComputePriceAt(context.Background(), "b", t1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), *got)

	got, err = agg.ComputePriceAt(context.Background(), "b", t2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(300), *got)
}

func TestComputePriceAt_LaterChildrenInvisible(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		category("b", "", t1),
		offer("a", "b", 100, t1),
	)
	seed(t, store,
		category("b", "", t2),
		offer("d", "b", 200, t2),
	)
	agg := newAggregator(store)

	got, err := agg.ComputePriceAt(context.Background(), "b", t1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), *got)

	got, err = agg.ComputePriceAt(context.Background(), "b", t2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(150), *got)
}

func TestComputePriceAt_BeforeFirstSnapshot(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, category("b", "", t2))
	agg := newAggregator(store)

	_, err := agg.ComputePriceAt(context.Background(), "b", t1)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestBuildTree_ShapeAndPrices(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		category("root", "", t1),
		category("mid", "root", t1),
		category("empty", "root", t1),
		offer("o1", "mid", 100, t1),
		offer("o2", "mid", 200, t1),
	)
	agg := newAggregator(store)

	tree, err := agg.BuildTree(context.Background(), "root")
	require.NoError(t, err)
	require.NotNil(t, tree)

	require.NotNil(t, tree.Price)
	assert.Equal(t, int64(150), *tree.Price)
	require.Len(t, tree.Children, 2)

	byID := map[string]*domain.UnitTree{}
	for _, child := range tree.Children {
		byID[child.ID] = child
	}

	mid := byID["mid"]
	require.NotNil(t, mid)
	require.NotNil(t, mid.Price)
	assert.Equal(t, int64(150), *mid.Price)
	require.Len(t, mid.Children, 2)
	for _, leaf := range mid.Children {
		assert.Equal(t, domain.KindOffer, leaf.Kind)
		assert.Nil(t, leaf.Children, "offers carry null children")
	}

	empty := byID["empty"]
	require.NotNil(t, empty)
	assert.Nil(t, empty.Price)
	assert.NotNil(t, empty.Children, "categories carry an array even when empty")
	assert.Len(t, empty.Children, 0)
}
