package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"), "journal")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(Entry{
			Kind:       KindImport,
			UnitIDs:    []string{"u"},
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Newest first.
	assert.True(t, entries[0].RecordedAt.After(entries[1].RecordedAt))
	assert.True(t, entries[1].RecordedAt.After(entries[2].RecordedAt))

	entries, err = store.Recent(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAppend_FillsIDAndTimestamp(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Append(Entry{Kind: KindDelete, Removed: 3}))

	entries, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].RecordedAt.IsZero())
	assert.Equal(t, 3, entries[0].Removed)
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2022, 2, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(Entry{Kind: KindImport, RecordedAt: base}))
	require.NoError(t, store.Append(Entry{Kind: KindImport, RecordedAt: base.Add(time.Hour)}))

	require.NoError(t, store.Prune(base.Add(time.Minute)))

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].RecordedAt.Equal(base.Add(time.Hour)))
}

func TestClosedStoreErrors(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())

	assert.Error(t, store.Append(Entry{Kind: KindImport}))
}
