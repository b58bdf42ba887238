package model

import "time"

// BusinessSetting has no soft-delete marker; it is filtered by
// LastModified > since and paged by the engine like other entities.
type BusinessSetting struct {
	ID           int       `bson:"_id"`
	SettingID    int       `bson:"settingId"`
	Key          string    `bson:"key"`
	Value        string    `bson:"value"`
	Description  string    `bson:"description"`
	Group        string    `bson:"group"`
	DataType     string    `bson:"dataType"`
	IsSystem     bool      `bson:"isSystem"`
	LastModified time.Time `bson:"lastModified"`
	ModifiedBy   string    `bson:"modifiedBy"`
	SyncedAt     time.Time `bson:"syncedAt"`
}

func (b BusinessSetting) SetSyncedAt(t time.Time) any { b.SyncedAt = t; return b }
