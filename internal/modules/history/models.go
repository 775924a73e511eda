package history

import "time"

// SyncStatus tracks the sync state of one symbol's price history.
type SyncStatus struct {
	LastSyncedAt  time.Time `json:"last_synced_at"`
	Symbol        string    `json:"symbol"`
	LastPriceDate string    `json:"last_price_date,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Bars          int       `json:"bars"`
}

// Sync status values.
const (
	SyncStatusOK     = "ok"
	SyncStatusFailed = "failed"
)

// SyncResult summarizes a sync run over many symbols.
type SyncResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
