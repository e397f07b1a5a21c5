package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/smart-inventory/internal/core/domain"
	"github.com/rl1809/smart-inventory/internal/port"
)

const (
	// Queues at or below this size get an immediate debounced push instead of
	// waiting for the periodic timer.
	immediatePushThreshold = 3

	defaultPushDebounce = time.Second
	defaultPushInterval = 30 * time.Second
)

// SyncConfig tunes the push timers. Zero values fall back to defaults.
type SyncConfig struct {
	PushDebounce time.Duration
	PushInterval time.Duration
}

// SyncService is the observer terminal's local-first store: every mutation is
// written to the local RecordStore synchronously, and a coalescing queue
// pushes the change to the remote mirror asynchronously with bounded retry.
// A periodic reconcile pulls the mirror back in.
type SyncService struct {
	mu      sync.Mutex
	store   port.RecordStore
	mirror  port.Mirror // nil when no mirror is configured
	local   map[string]domain.InventoryRecord
	queue   []domain.SyncOperation
	syncing bool

	debounce     *time.Timer
	pushDebounce time.Duration
	pushInterval time.Duration

	now func() time.Time
}

func NewSyncService(store port.RecordStore, mirror port.Mirror, cfg SyncConfig) *SyncService {
	if cfg.PushDebounce <= 0 {
		cfg.PushDebounce = defaultPushDebounce
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}
	return &SyncService{
		store:        store,
		mirror:       mirror,
		local:        make(map[string]domain.InventoryRecord),
		pushDebounce: cfg.PushDebounce,
		pushInterval: cfg.PushInterval,
		now:          time.Now,
	}
}

// Load restores the local store into memory.
func (s *SyncService) Load(ctx context.Context) error {
	records, err := s.store.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load local records: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if records != nil {
		s.local = records
	}
	return nil
}

// UpdateItem applies a mutation to the local store synchronously and queues
// the corresponding mirror push.
func (s *SyncService) UpdateItem(ctx context.Context, rec domain.InventoryRecord) error {
	if rec.Identity == "" {
		rec.Identity = rec.Name
	}
	if rec.Identity == "" {
		return fmt.Errorf("update item: missing identity")
	}
	if rec.Quantity < 0 {
		rec.Quantity = 0
	}
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = s.now()
	}

	s.mu.Lock()
	s.local[rec.Identity] = rec
	err := s.store.SaveRecords(ctx, s.local)
	if err == nil && s.mirror != nil {
		s.enqueueLocked(domain.SyncOperation{
			ID:       uuid.New().String(),
			Kind:     domain.OpUpsert,
			Identity: rec.Identity,
			Name:     rec.Name,
			Quantity: rec.Quantity,
		})
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("persist local records: %w", err)
	}
	return nil
}

// DeleteItem removes a record locally and queues the mirror delete.
func (s *SyncService) DeleteItem(ctx context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("delete item: missing identity")
	}

	s.mu.Lock()
	delete(s.local, identity)
	err := s.store.SaveRecords(ctx, s.local)
	if err == nil && s.mirror != nil {
		s.enqueueLocked(domain.SyncOperation{
			ID:       uuid.New().String(),
			Kind:     domain.OpDelete,
			Identity: identity,
		})
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("persist local records: %w", err)
	}
	return nil
}

// ApplyBroadcast folds a full record set received from the server into the
// local store, queueing pushes only for records that actually changed.
func (s *SyncService) ApplyBroadcast(ctx context.Context, list []domain.InventoryRecord) error {
	incoming := make(map[string]bool, len(list))
	for _, rec := range list {
		identity := rec.Identity
		if identity == "" {
			identity = rec.Name
		}
		if identity == "" {
			continue
		}
		incoming[identity] = true

		s.mu.Lock()
		existing, ok := s.local[identity]
		s.mu.Unlock()
		if ok && existing.Quantity == rec.Quantity && existing.Name == rec.Name {
			continue
		}
		if err := s.UpdateItem(ctx, rec); err != nil {
			return err
		}
	}

	s.mu.Lock()
	var stale []string
	for identity := range s.local {
		if !incoming[identity] {
			stale = append(stale, identity)
		}
	}
	s.mu.Unlock()

	for _, identity := range stale {
		if err := s.DeleteItem(ctx, identity); err != nil {
			return err
		}
	}
	return nil
}

// enqueueLocked coalesces per identity: a newer operation replaces the queued
// one instead of appending, so the queue never holds two operations for the
// same item.
func (s *SyncService) enqueueLocked(op domain.SyncOperation) {
	for i := range s.queue {
		if s.queue[i].Identity == op.Identity {
			s.queue[i] = op
			s.schedulePushLocked()
			return
		}
	}
	s.queue = append(s.queue, op)
	s.schedulePushLocked()
}

func (s *SyncService) schedulePushLocked() {
	if len(s.queue) > immediatePushThreshold || s.syncing {
		// The periodic timer will pick it up.
		return
	}
	if s.debounce != nil {
		s.debounce.Reset(s.pushDebounce)
		return
	}
	s.debounce = time.AfterFunc(s.pushDebounce, func() {
		s.ProcessQueue(context.Background())
	})
}

// ProcessQueue drains a snapshot of the queue and pushes each operation to
// the mirror. Failed operations are requeued with an incremented retry count
// until the budget runs out; a concurrent call while a cycle is in flight is
// a silent no-op.
func (s *SyncService) ProcessQueue(ctx context.Context) {
	s.mu.Lock()
	if s.syncing || s.mirror == nil || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.syncing = true
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, op := range batch {
		var err error
		switch op.Kind {
		case domain.OpDelete:
			err = s.mirror.Delete(ctx, op.Identity)
		default:
			err = s.mirror.Upsert(ctx, op.Identity, op.Name, op.Quantity)
		}
		if err == nil {
			continue
		}

		op.Retries++
		if op.Retries >= domain.MaxSyncRetries {
			log.Printf("sync: dropping op %s (%s %q) after %d attempts: %v",
				op.ID, op.Kind, op.Identity, op.Retries, err)
			continue
		}
		s.requeueFailed(op)
	}

	s.mu.Lock()
	s.syncing = false
	s.mu.Unlock()
}

// requeueFailed puts a failed operation back unless a newer operation for the
// same identity arrived while the push was in flight.
func (s *SyncService) requeueFailed(op domain.SyncOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].Identity == op.Identity {
			return
		}
	}
	s.queue = append(s.queue, op)
}

// Reconcile merges the mirror's record set into the local store. In full-sync
// mode the mirror is authoritative: differing records are overwritten and
// records missing from the mirror are deleted locally. In incremental mode
// local edits win; local-only or differing records are merely counted as
// pending pushes. A failed pull leaves local state untouched.
func (s *SyncService) Reconcile(ctx context.Context, fullSync bool) (int, error) {
	if s.mirror == nil {
		return 0, nil
	}

	rows, err := s.mirror.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load mirror: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	remote := make(map[string]port.MirrorRow, len(rows))
	for _, row := range rows {
		if row.Identity == "" {
			continue
		}
		remote[row.Identity] = row
	}

	now := s.now()
	changed := false
	pending := 0

	for identity, row := range remote {
		local, ok := s.local[identity]
		if !ok {
			qty := row.Quantity
			if qty < 0 {
				qty = 0
			}
			s.local[identity] = domain.InventoryRecord{
				Identity:    identity,
				Name:        row.Name,
				Quantity:    qty,
				Source:      domain.SourceManual,
				LastUpdated: now,
			}
			changed = true
			continue
		}
		if local.Quantity != row.Quantity || local.Name != row.Name {
			if fullSync {
				local.Quantity = row.Quantity
				if local.Quantity < 0 {
					local.Quantity = 0
				}
				local.Name = row.Name
				local.LastUpdated = now
				s.local[identity] = local
				changed = true
			} else {
				pending++
			}
		}
	}

	for identity := range s.local {
		if _, ok := remote[identity]; ok {
			continue
		}
		if fullSync {
			delete(s.local, identity)
			changed = true
		} else {
			pending++
		}
	}

	if changed {
		if err := s.store.SaveRecords(ctx, s.local); err != nil {
			return pending, fmt.Errorf("persist reconciled records: %w", err)
		}
	}
	return pending, nil
}

// Run drives the periodic cycle: push the queue, then pull an incremental
// reconcile. Pushes always precede the pull within a cycle.
func (s *SyncService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.debounce != nil {
				s.debounce.Stop()
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.ProcessQueue(ctx)
			if pending, err := s.Reconcile(ctx, false); err != nil {
				log.Printf("sync: reconcile: %v", err)
			} else if pending > 0 {
				log.Printf("sync: %d record(s) pending push", pending)
			}
		}
	}
}

// Records returns the local record set sorted by identity.
func (s *SyncService) Records() []domain.InventoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]domain.InventoryRecord, 0, len(s.local))
	for _, rec := range s.local {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Identity < list[j].Identity })
	return list
}

// QueueLen reports how many operations are waiting to be pushed.
func (s *SyncService) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
