package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v int64) *int64 { return &v }

func TestShopUnit_Validate(t *testing.T) {
	tests := []struct {
		name string
		unit ShopUnit
		code ErrorCode
	}{
		{"valid offer", ShopUnit{ID: "o", Name: "o", Kind: KindOffer, Price: price(0)}, ""},
		{"valid category", ShopUnit{ID: "c", Name: "c", Kind: KindCategory}, ""},
		{"missing id", ShopUnit{Name: "x", Kind: KindOffer, Price: price(1)}, ErrCodeInvalid},
		{"missing name", ShopUnit{ID: "x", Kind: KindOffer, Price: price(1)}, ErrCodeInvalid},
		{"unknown kind", ShopUnit{ID: "x", Name: "x", Kind: "GADGET"}, ErrCodeInvalid},
		{"offer without price", ShopUnit{ID: "x", Name: "x", Kind: KindOffer}, ErrCodeInvalidPrice},
		{"offer with negative price", ShopUnit{ID: "x", Name: "x", Kind: KindOffer, Price: price(-1)}, ErrCodeInvalidPrice},
		{"category with price", ShopUnit{ID: "x", Name: "x", Kind: KindCategory, Price: price(1)}, ErrCodeInvalidPrice},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.unit.Validate()
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsDomainError(err, tc.code), "got %v", err)
		})
	}
}

func TestUnitKind_Valid(t *testing.T) {
	assert.True(t, KindOffer.Valid())
	assert.True(t, KindCategory.Valid())
	assert.False(t, UnitKind("offer").Valid(), "kinds are case sensitive")
	assert.False(t, UnitKind("").Valid())
}

func TestSnapshotOf(t *testing.T) {
	at := time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC)
	parent := "p"
	unit := ShopUnit{
		ID:        "x",
		Name:      "x",
		Kind:      KindOffer,
		ParentID:  &parent,
		Price:     price(100),
		UpdatedAt: at.Add(-time.Hour),
	}

	snap := SnapshotOf(&unit, at)
	require.NotNil(t, snap)
	assert.Equal(t, unit.ID, snap.ID)
	assert.Equal(t, unit.Kind, snap.Kind)
	assert.Equal(t, unit.ParentID, snap.ParentID)
	assert.Equal(t, unit.Price, snap.Price)
	assert.True(t, snap.Timestamp.Equal(at), "the snapshot carries the write instant, not the prior updatedAt")
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrDuplicateID))
	assert.True(t, IsValidation(ErrInvalidPrice))
	assert.True(t, IsValidation(ErrTypeImmutable))
	assert.False(t, IsValidation(ErrUnitNotFound))
	assert.False(t, IsValidation(NewError(ErrCodeInternal, "boom")))
	assert.False(t, IsValidation(nil))
}
