package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopcat/backend/domain"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
		ok    bool
	}{
		{"utc", "2022-02-01T12:00:00Z", time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC), true},
		{"offset", "2022-02-01T15:00:00+03:00", time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC), true},
		{"fractional seconds", "2022-02-01T12:00:00.500Z", time.Date(2022, 2, 1, 12, 0, 0, 500000000, time.UTC), true},
		{"missing zone", "2022-02-01T12:00:00", time.Time{}, false},
		{"date only", "2022-02-01", time.Time{}, false},
		{"garbage", "not-a-date", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDate(tc.value)
			if !tc.ok {
				assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)
		})
	}
}

func TestImportRequest_Units(t *testing.T) {
	parent := "root"
	price := int64(100)
	req := ImportRequest{
		Items: []UnitImport{
			{ID: "o", Name: "offer", Type: "OFFER", ParentID: &parent, Price: &price},
			{ID: "c", Name: "category", Type: "CATEGORY"},
		},
		UpdateDate: "2022-02-01T12:00:00Z",
	}

	units := req.Units()
	require.Len(t, units, 2)

	assert.Equal(t, domain.KindOffer, units[0].Kind)
	require.NotNil(t, units[0].ParentID)
	assert.Equal(t, "root", *units[0].ParentID)
	require.NotNil(t, units[0].Price)
	assert.Equal(t, int64(100), *units[0].Price)

	assert.Equal(t, domain.KindCategory, units[1].Kind)
	assert.Nil(t, units[1].ParentID)
	assert.Nil(t, units[1].Price)
}
