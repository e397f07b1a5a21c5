package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/smart-inventory/internal/core/domain"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	records := map[string]domain.InventoryRecord{
		"soda": {Identity: "soda", Name: "soda", Quantity: 3, Source: domain.SourceAutoDetected, LastUpdated: time.Now().UTC()},
	}
	require.NoError(t, store.SaveRecords(ctx, records))

	loaded, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded["soda"].Quantity)
	assert.Equal(t, domain.SourceAutoDetected, loaded["soda"].Source)
}

func TestFileStore_EmptyOnFirstLoad(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	records, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	history, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFileStore_HistoryTruncatedToCap(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	history := make([]domain.HistoryEntry, domain.HistoryCap+30)
	for i := range history {
		history[i] = domain.HistoryEntry{ID: int64(len(history) - i), Action: domain.HistoryDetect, Item: "x"}
	}
	require.NoError(t, store.SaveHistory(ctx, history))

	loaded, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, domain.HistoryCap)
	// Newest-first order preserved; the tail entries are the ones gone.
	assert.Equal(t, int64(len(history)), loaded[0].ID)
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveRecords(context.Background(), map[string]domain.InventoryRecord{
		"soda": {Identity: "soda", Name: "soda", Quantity: 1},
	}))

	_, err = os.Stat(filepath.Join(dir, recordsFile+".tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestTrimOldest(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := map[string]domain.InventoryRecord{
		"old":    {Identity: "old", LastUpdated: base},
		"mid":    {Identity: "mid", LastUpdated: base.Add(time.Hour)},
		"newest": {Identity: "newest", LastUpdated: base.Add(2 * time.Hour)},
	}

	kept := trimOldest(records, 2)
	require.Len(t, kept, 2)
	assert.Contains(t, kept, "newest")
	assert.Contains(t, kept, "mid")
	assert.NotContains(t, kept, "old")

	// At or under the cap nothing is trimmed.
	assert.Len(t, trimOldest(records, 3), 3)
}
