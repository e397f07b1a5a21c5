package port

import "github.com/rl1809/smart-inventory/internal/core/domain"

// Broadcaster fans server state out to every connected observer.
type Broadcaster interface {
	// BroadcastRecords pushes the full record set after a mutation.
	BroadcastRecords(records []domain.InventoryRecord)

	// BroadcastHistory pushes the full ledger after an append.
	BroadcastHistory(history []domain.HistoryEntry)

	// BroadcastDetectorStatus announces a detector connect/disconnect.
	BroadcastDetectorStatus(online bool)

	// RequestResync instructs the detector to re-emit everything it sees.
	RequestResync()
}
