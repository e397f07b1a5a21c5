package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rl1809/smart-inventory/internal/core/domain"
)

const (
	recordsFile = "records.json"
	historyFile = "history.json"

	// maxStoredRecords bounds the record file when the underlying storage
	// rejects a write; the oldest records past the cap are trimmed.
	maxStoredRecords = 1000
)

// FileStore persists the record set and ledger as two JSON files, each fully
// rewritten on every mutation.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) LoadRecords(ctx context.Context) (map[string]domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var records map[string]domain.InventoryRecord
	if err := f.readJSON(recordsFile, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = make(map[string]domain.InventoryRecord)
	}
	return records, nil
}

func (f *FileStore) SaveRecords(ctx context.Context, records map[string]domain.InventoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.writeJSON(recordsFile, records)
	if err == nil {
		return nil
	}

	// Storage quota exceeded or similar: trim the oldest records past the
	// cap and retry once rather than failing the mutation.
	trimmed := trimOldest(records, maxStoredRecords)
	if len(trimmed) == len(records) {
		return fmt.Errorf("write records: %w", err)
	}
	log.Printf("storage: record write failed (%v); retrying with %d oldest record(s) trimmed",
		err, len(records)-len(trimmed))
	if err := f.writeJSON(recordsFile, trimmed); err != nil {
		return fmt.Errorf("write records after trim: %w", err)
	}
	return nil
}

func (f *FileStore) LoadHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var history []domain.HistoryEntry
	if err := f.readJSON(historyFile, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (f *FileStore) SaveHistory(ctx context.Context, history []domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(history) > domain.HistoryCap {
		history = history[:domain.HistoryCap]
	}
	if err := f.writeJSON(historyFile, history); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

func (f *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeJSON writes to a temp file and renames it over the target so readers
// never observe a partial file.
func (f *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(f.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// trimOldest keeps the newest max records by LastUpdated.
func trimOldest(records map[string]domain.InventoryRecord, max int) map[string]domain.InventoryRecord {
	if len(records) <= max {
		return records
	}
	list := make([]domain.InventoryRecord, 0, len(records))
	for _, rec := range records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].LastUpdated.After(list[j].LastUpdated) })

	kept := make(map[string]domain.InventoryRecord, max)
	for _, rec := range list[:max] {
		kept[rec.Identity] = rec
	}
	return kept
}
