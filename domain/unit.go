package domain

import "time"

// UnitKind distinguishes priced leaves from aggregating categories.
type UnitKind string

const (
	KindOffer    UnitKind = "OFFER"
	KindCategory UnitKind = "CATEGORY"
)

// Valid reports whether the kind is one of the two known values.
func (k UnitKind) Valid() bool {
	return k == KindOffer || k == KindCategory
}

// ShopUnit is the current state of one catalog node. Price is nil for
// categories (their price is always recomputed from descendants) and
// required, non-negative, for offers.
type ShopUnit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      UnitKind  `json:"type"`
	ParentID  *string   `json:"parentId,omitempty"`
	Price     *int64    `json:"price"`
	UpdatedAt time.Time `json:"date"`
}

// IsCategory reports whether the unit aggregates children.
func (u *ShopUnit) IsCategory() bool {
	return u != nil && u.Kind == KindCategory
}

// Validate enforces the field-level invariants that hold regardless of
// the surrounding tree: a name, a known kind, and the price rule per kind.
func (u *ShopUnit) Validate() error {
	if u == nil || u.ID == "" {
		return ErrInvalidPayload
	}
	if u.Name == "" {
		return NewError(ErrCodeInvalid, "unit name must not be empty")
	}
	if !u.Kind.Valid() {
		return NewError(ErrCodeInvalid, "unknown unit kind")
	}
	switch u.Kind {
	case KindOffer:
		if u.Price == nil || *u.Price < 0 {
			return ErrInvalidPrice
		}
	case KindCategory:
		if u.Price != nil {
			return ErrInvalidPrice
		}
	}
	return nil
}

// Snapshot is one immutable history record: the unit state that became
// effective at Timestamp. Snapshots are appended once per mutating write
// and removed only when their unit is deleted.
type Snapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      UnitKind  `json:"type"`
	ParentID  *string   `json:"parentId,omitempty"`
	Price     *int64    `json:"price"`
	Timestamp time.Time `json:"date"`
}

// SnapshotOf captures the unit state at the given instant.
func SnapshotOf(u *ShopUnit, at time.Time) *Snapshot {
	return &Snapshot{
		ID:        u.ID,
		Name:      u.Name,
		Kind:      u.Kind,
		ParentID:  u.ParentID,
		Price:     u.Price,
		Timestamp: at,
	}
}

// UnitTree is a subtree with computed category prices, as returned by the
// node endpoint. Children is nil for offers and never nil for categories.
type UnitTree struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      UnitKind    `json:"type"`
	ParentID  *string     `json:"parentId,omitempty"`
	Price     *int64      `json:"price"`
	UpdatedAt time.Time   `json:"date"`
	Children  []*UnitTree `json:"children"`
}
