package transport

import (
	"time"

	"github.com/shopcat/backend/domain"
)

// UnitImport is one item of an import request.
type UnitImport struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
	Type     string  `json:"type"`
	Price    *int64  `json:"price"`
}

// ImportRequest carries a batch of unit upserts sharing one update date.
type ImportRequest struct {
	Items      []UnitImport `json:"items"`
	UpdateDate string       `json:"updateDate"`
}

// Units converts the request items into domain units. Field-level
// validation stays with the domain; this is shape conversion only.
func (r *ImportRequest) Units() []domain.ShopUnit {
	units := make([]domain.ShopUnit, 0, len(r.Items))
	for _, item := range r.Items {
		units = append(units, domain.ShopUnit{
			ID:       item.ID,
			Name:     item.Name,
			Kind:     domain.UnitKind(item.Type),
			ParentID: item.ParentID,
			Price:    item.Price,
		})
	}
	return units
}

// ParseDate parses an ISO-8601 timestamp, rejecting anything RFC 3339
// cannot express.
func ParseDate(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, domain.WrapError(domain.ErrCodeInvalid, "date must be ISO 8601", err)
	}
	return ts, nil
}
