package port

import (
	"context"

	"github.com/rl1809/smart-inventory/internal/core/domain"
)

type RecordStore interface {
	// LoadRecords returns the persisted record set, empty when none exists yet.
	LoadRecords(ctx context.Context) (map[string]domain.InventoryRecord, error)

	// SaveRecords rewrites the full record set.
	SaveRecords(ctx context.Context, records map[string]domain.InventoryRecord) error

	// LoadHistory returns the persisted ledger, newest first.
	LoadHistory(ctx context.Context) ([]domain.HistoryEntry, error)

	// SaveHistory rewrites the full ledger. Implementations truncate to
	// domain.HistoryCap.
	SaveHistory(ctx context.Context, history []domain.HistoryEntry) error
}
