package port

import "context"

// MirrorRow is one row of the remote tabular store after header aliases have
// been resolved.
type MirrorRow struct {
	Identity string
	Name     string
	Quantity int
}

// Mirror is the remote authoritative mirror of the inventory (a spreadsheet
// or any tabular store). Authentication and row addressing live behind this
// boundary.
type Mirror interface {
	// LoadAll fetches the mirror's complete record set.
	LoadAll(ctx context.Context) ([]MirrorRow, error)

	// Upsert inserts or updates one row keyed by identity.
	Upsert(ctx context.Context, identity, name string, quantity int) error

	// Delete removes the row keyed by identity.
	Delete(ctx context.Context, identity string) error
}
