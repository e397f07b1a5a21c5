package domain

type OpKind string

const (
	OpUpsert OpKind = "UPSERT"
	OpDelete OpKind = "DELETE"
)

// MaxSyncRetries is the per-operation push budget against the remote mirror.
// An operation that fails this many times is dropped.
const MaxSyncRetries = 3

// SyncOperation is one pending push to the remote mirror. The queue holds at
// most one operation per identity; a newer operation replaces the older one.
type SyncOperation struct {
	ID       string `json:"id"`
	Kind     OpKind `json:"kind"`
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Retries  int    `json:"retryCount"`
}
