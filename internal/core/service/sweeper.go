package service

import (
	"context"
	"time"
)

// Sweeper periodically clears the actively-detecting flag on records the
// detector went quiet on.
type Sweeper struct {
	inventory *InventoryService
	interval  time.Duration
}

func NewSweeper(inventory *InventoryService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Sweeper{inventory: inventory, interval: interval}
}

// Run ticks until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.inventory.SweepStale(ctx, now)
		}
	}
}
