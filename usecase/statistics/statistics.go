// Package statistics answers the temporal queries: recent offer updates
// and per-unit history with as-of recomputed category prices.
package statistics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
	"github.com/shopcat/backend/usecase/pricing"
)

const defaultLookback = 24 * time.Hour

type UseCase struct {
	catalog  repository.CatalogRepository
	snaps    repository.SnapshotRepository
	pricing  *pricing.Aggregator
	lookback time.Duration
	logger   *zap.Logger
}

func New(catalog repository.CatalogRepository, snaps repository.SnapshotRepository, aggregator *pricing.Aggregator, lookback time.Duration, logger *zap.Logger) *UseCase {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		catalog:  catalog,
		snaps:    snaps,
		pricing:  aggregator,
		lookback: lookback,
		logger:   logger,
	}
}

// RecentOffers returns current offers updated inside the fixed lookback
// window ending at ts, both boundaries inclusive.
func (uc *UseCase) RecentOffers(ctx context.Context, ts time.Time) ([]domain.ShopUnit, error) {
	return uc.catalog.GetUpdatedWithin(ctx, repository.UnitFilter{
		Kind: domain.KindOffer,
		From: ts.Add(-uc.lookback),
		To:   ts,
	})
}

// History returns the snapshots of id inside [from, to). Category
// snapshots carry the as-of aggregate price recomputed at each snapshot's
// own timestamp. NotFound when the snapshot log holds nothing for id.
func (uc *UseCase) History(ctx context.Context, id string, from, to time.Time) ([]domain.Snapshot, error) {
	exists, err := uc.snaps.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrUnitNotFound
	}

	snaps, err := uc.snaps.ListRange(ctx, id, from, to)
	if err != nil {
		return nil, err
	}

	for i := range snaps {
		if snaps[i].Kind != domain.KindCategory {
			continue
		}
		price, err := uc.pricing.ComputePriceAt(ctx, id, snaps[i].Timestamp)
		if err != nil {
			return nil, err
		}
		snaps[i].Price = price
	}
	return snaps, nil
}
