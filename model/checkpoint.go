package model

import "time"

// Checkpoint is the durable per-(device,entity) cursor state. Uniqueness
// is (DeviceID, EntityType). It lives in a table in the relational source
// so checkpoint writes are transactional with reads of the source -- see
// checkpoint/store.go.
type Checkpoint struct {
	ID             int64
	DeviceID       string
	EntityType     string
	LastSyncTime   time.Time
	LastRecordID   *int
	LastDeleteCheck *time.Time
	Payload        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Payload sentinels used by the bulk backfill (see sync/backfill.go).
const (
	PayloadCompleted = "COMPLETED"
)
