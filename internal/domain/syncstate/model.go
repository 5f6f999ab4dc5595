package syncstate

import "time"

// Metadata is the singleton sync bookkeeping row.
type Metadata struct {
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
	SyncInProgress bool       `json:"sync_in_progress"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
