package sync

import "time"

// Result is what one pass of one entity reports back.
type Result struct {
	RunID         string
	DeviceID      string
	EntityType    string
	RecordsSynced int
	RecordsDeleted int
	PoisonRows    int
	Elapsed       time.Duration
	Success       bool
	ErrorMessage  string
	LastSyncTime  time.Time
}
