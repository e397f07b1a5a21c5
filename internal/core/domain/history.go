package domain

import "time"

type HistoryAction string

const (
	HistoryDetect HistoryAction = "DETECT"
	HistoryManual HistoryAction = "MANUAL"
	HistoryReset  HistoryAction = "RESET"
	HistoryClean  HistoryAction = "CLEAN"
)

// HistoryCap bounds the ledger; the oldest entries past the cap are discarded
// on every persist.
const HistoryCap = 100

// HistoryEntry is an immutable audit line. ID is the creation time in unix
// milliseconds.
type HistoryEntry struct {
	ID        int64         `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Action    HistoryAction `json:"action"`
	Item      string        `json:"item"`
	Quantity  int           `json:"quantity"`
	Details   string        `json:"details,omitempty"`
}

// NewHistoryEntry stamps an entry at now.
func NewHistoryEntry(now time.Time, action HistoryAction, item string, quantity int, details string) HistoryEntry {
	return HistoryEntry{
		ID:        now.UnixMilli(),
		Timestamp: now,
		Action:    action,
		Item:      item,
		Quantity:  quantity,
		Details:   details,
	}
}
