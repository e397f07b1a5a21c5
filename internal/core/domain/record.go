package domain

import "time"

type Source string

const (
	SourceAutoDetected Source = "auto-detected"
	SourceManual       Source = "manual"
	SourceScan         Source = "scan"
)

// DuplicateWindow is how long after a detection further auto-mode events for
// the same item are treated as corrections or duplicates of the same physical
// object rather than new sightings.
const DuplicateWindow = 3 * time.Second

type InventoryRecord struct {
	Identity          string     `json:"identity"`
	Name              string     `json:"name"`
	Quantity          int        `json:"quantity"`
	Source            Source     `json:"source"`
	LastUpdated       time.Time  `json:"lastUpdated"`
	LastDetectedQty   int        `json:"lastDetectedQuantity"`
	ActivelyDetecting bool       `json:"isActivelyDetecting"`
	Expiration        *time.Time `json:"expirationDate,omitempty"`
	Barcode           string     `json:"barcode,omitempty"`
}

// AddQuantity adjusts the quantity by delta, clamping at zero.
func (r *InventoryRecord) AddQuantity(delta int) {
	r.Quantity += delta
	if r.Quantity < 0 {
		r.Quantity = 0
	}
}
