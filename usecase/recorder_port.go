package usecase

import (
	"context"
	"time"
)

// MutationRecorder journals applied mutations for operational visibility.
// Recording happens after commit and never changes a mutation's outcome.
type MutationRecorder interface {
	RecordImport(ctx context.Context, unitIDs []string, updateDate time.Time) error
	RecordDelete(ctx context.Context, unitID string, removed int) error
}
