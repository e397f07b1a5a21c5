package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/smart-inventory/internal/core/domain"
	"github.com/rl1809/smart-inventory/internal/port"
)

// InventoryService owns the server-side record set and history ledger. All
// handlers run to completion under one mutex, so event interpretation, manual
// edits and the staleness sweep are strictly serialized.
type InventoryService struct {
	mu       sync.Mutex
	store    port.RecordStore
	bus      port.Broadcaster
	records  map[string]domain.InventoryRecord
	history  []domain.HistoryEntry
	detector bool

	now func() time.Time
}

func NewInventoryService(store port.RecordStore, bus port.Broadcaster) *InventoryService {
	return &InventoryService{
		store:   store,
		bus:     bus,
		records: make(map[string]domain.InventoryRecord),
		now:     time.Now,
	}
}

// Load restores persisted state. Missing files mean an empty inventory, not
// an error.
func (s *InventoryService) Load(ctx context.Context) error {
	records, err := s.store.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	history, err := s.store.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if records != nil {
		s.records = records
	}
	s.history = history
	return nil
}

// HandleDetection interprets one detector event and applies the resulting
// quantity delta. Classification rules, evaluated in order:
//
//	REMOVE with record        -> subtract (floor 0)
//	auto event inside window  -> CORRECT (quantity changed) or DUPLICATE
//	event outside window      -> additive ADD
//	no record                 -> NEW
//
// The window exists because a vision detector re-reports the same physical
// object every frame; inside it a differing quantity is a correction of the
// previous count, not a new sighting.
func (s *InventoryService) HandleDetection(ctx context.Context, ev domain.DetectionEvent) (domain.InventoryRecord, domain.Classification) {
	if ev.Name == "" {
		return domain.InventoryRecord{}, domain.ClassIgnored
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, exists := s.records[ev.Name]

	if ev.Action == domain.ActionRemove {
		if !exists {
			return domain.InventoryRecord{}, domain.ClassIgnored
		}
		rec.AddQuantity(-ev.Quantity)
		rec.LastUpdated = now
		s.records[ev.Name] = rec
		s.appendHistoryLocked(ctx, domain.HistoryDetect, ev.Name, ev.Quantity, "left the frame")
		s.persistAndBroadcastLocked(ctx)
		return rec, domain.ClassRemove
	}

	if exists {
		if ev.AutoMode && now.Sub(rec.LastUpdated) < domain.DuplicateWindow {
			class := domain.ClassDuplicate
			if ev.Quantity != rec.LastDetectedQty {
				rec.AddQuantity(ev.Quantity - rec.LastDetectedQty)
				rec.LastDetectedQty = ev.Quantity
				class = domain.ClassCorrect
			}
			rec.ActivelyDetecting = true
			rec.LastUpdated = now
			s.records[ev.Name] = rec
			s.persistAndBroadcastLocked(ctx)
			return rec, class
		}

		rec.AddQuantity(ev.Quantity)
		rec.LastDetectedQty = ev.Quantity
		rec.ActivelyDetecting = ev.AutoMode
		rec.LastUpdated = now
		s.records[ev.Name] = rec
		s.appendHistoryLocked(ctx, domain.HistoryDetect, ev.Name, ev.Quantity, "detected again")
		s.persistAndBroadcastLocked(ctx)
		return rec, domain.ClassAdd
	}

	source := domain.SourceScan
	if ev.AutoMode {
		source = domain.SourceAutoDetected
	}
	rec = domain.InventoryRecord{
		Identity:          ev.Name,
		Name:              ev.Name,
		Quantity:          ev.Quantity,
		Source:            source,
		LastUpdated:       now,
		LastDetectedQty:   ev.Quantity,
		ActivelyDetecting: ev.AutoMode,
	}
	if rec.Quantity < 0 {
		rec.Quantity = 0
	}
	s.records[ev.Name] = rec
	s.appendHistoryLocked(ctx, domain.HistoryDetect, ev.Name, ev.Quantity, "first sighting")
	s.persistAndBroadcastLocked(ctx)
	return rec, domain.ClassNew
}

// ReplaceAll atomically replaces the record set with an observer-edited list.
// The history entry is inferred from the length delta.
func (s *InventoryService) ReplaceAll(ctx context.Context, list []domain.InventoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.records)
	now := s.now()
	next := make(map[string]domain.InventoryRecord, len(list))
	for _, rec := range list {
		if rec.Identity == "" {
			rec.Identity = rec.Name
		}
		if rec.Identity == "" {
			continue
		}
		if rec.Quantity < 0 {
			rec.Quantity = 0
		}
		if rec.Source == "" {
			rec.Source = domain.SourceManual
		}
		if rec.LastUpdated.IsZero() {
			rec.LastUpdated = now
		}
		next[rec.Identity] = rec
	}
	s.records = next

	delta := len(next) - before
	details := "records edited"
	switch {
	case delta > 0:
		details = fmt.Sprintf("%d item(s) added", delta)
	case delta < 0:
		details = fmt.Sprintf("%d item(s) removed", -delta)
	}
	s.appendHistoryLocked(ctx, domain.HistoryManual, "inventory", len(next), details)
	s.persistAndBroadcastLocked(ctx)
}

// CleanZero drops every zero-quantity record and reports how many were
// removed.
func (s *InventoryService) CleanZero(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identity, rec := range s.records {
		if rec.Quantity == 0 {
			delete(s.records, identity)
			removed++
		}
	}
	s.appendHistoryLocked(ctx, domain.HistoryClean, "inventory", removed, fmt.Sprintf("%d empty record(s) cleared", removed))
	if removed > 0 {
		s.persistAndBroadcastLocked(ctx)
	}
	return removed
}

// SmartReset clears the record set. When a detector is connected it is first
// told to forget its tracking state and re-emit everything it currently sees;
// the detector keeps its own persistence and would otherwise never re-report
// objects it believes it already sent.
func (s *InventoryService) SmartReset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendHistoryLocked(ctx, domain.HistoryReset, "inventory", len(s.records), "inventory reset")
	if s.detector {
		s.bus.RequestResync()
	}
	s.records = make(map[string]domain.InventoryRecord)
	s.persistAndBroadcastLocked(ctx)
}

// SweepStale clears the actively-detecting flag on every record the detector
// has stopped refreshing, so the correction window cannot suppress a later
// legitimate sighting. Returns how many records changed.
func (s *InventoryService) SweepStale(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for identity, rec := range s.records {
		if rec.ActivelyDetecting && now.Sub(rec.LastUpdated) > domain.DuplicateWindow {
			rec.ActivelyDetecting = false
			rec.LastDetectedQty = 0
			s.records[identity] = rec
			changed++
		}
	}
	if changed > 0 {
		s.persistAndBroadcastLocked(ctx)
	}
	return changed
}

func (s *InventoryService) SetDetectorOnline(online bool) {
	s.mu.Lock()
	if s.detector == online {
		s.mu.Unlock()
		return
	}
	s.detector = online
	s.mu.Unlock()
	s.bus.BroadcastDetectorStatus(online)
}

func (s *InventoryService) DetectorOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector
}

// Snapshot returns the current records (sorted by identity), ledger and
// detector state for a newly connected observer.
func (s *InventoryService) Snapshot() ([]domain.InventoryRecord, []domain.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordListLocked(), append([]domain.HistoryEntry(nil), s.history...), s.detector
}

func (s *InventoryService) recordListLocked() []domain.InventoryRecord {
	list := make([]domain.InventoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Identity < list[j].Identity })
	return list
}

func (s *InventoryService) appendHistoryLocked(ctx context.Context, action domain.HistoryAction, item string, quantity int, details string) {
	entry := domain.NewHistoryEntry(s.now(), action, item, quantity, details)
	s.history = append([]domain.HistoryEntry{entry}, s.history...)
	if len(s.history) > domain.HistoryCap {
		s.history = s.history[:domain.HistoryCap]
	}
	if err := s.store.SaveHistory(ctx, s.history); err != nil {
		log.Printf("inventory: persist history: %v", err)
	}
	s.bus.BroadcastHistory(append([]domain.HistoryEntry(nil), s.history...))
}

func (s *InventoryService) persistAndBroadcastLocked(ctx context.Context) {
	if err := s.store.SaveRecords(ctx, s.records); err != nil {
		log.Printf("inventory: persist records: %v", err)
	}
	s.bus.BroadcastRecords(s.recordListLocked())
}
