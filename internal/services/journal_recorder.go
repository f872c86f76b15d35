package services

import (
	"context"
	"time"

	"github.com/shopcat/backend/internal/infrastructure/journal"
)

// JournalRecorder adapts the BoltDB journal to the recorder port the use
// cases depend on.
type JournalRecorder struct {
	store *journal.Store
}

func NewJournalRecorder(store *journal.Store) *JournalRecorder {
	return &JournalRecorder{store: store}
}

func (r *JournalRecorder) RecordImport(_ context.Context, unitIDs []string, updateDate time.Time) error {
	return r.store.Append(journal.Entry{
		Kind:       journal.KindImport,
		UnitIDs:    unitIDs,
		UpdateDate: updateDate,
	})
}

func (r *JournalRecorder) RecordDelete(_ context.Context, unitID string, removed int) error {
	return r.store.Append(journal.Entry{
		Kind:    journal.KindDelete,
		UnitIDs: []string{unitID},
		Removed: removed,
	})
}
