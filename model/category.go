package model

import "time"

// Category is a full-snapshot entity: no modification marker, replicated
// in its entirety every pass. IsActive=false is treated as deleted.
type Category struct {
	ID          int       `bson:"_id"`
	CategoryID  int       `bson:"categoryId"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Type        string    `bson:"type"`
	IsActive    bool      `bson:"isActive"`
	SyncedAt    time.Time `bson:"syncedAt"`
}

func (c Category) SetSyncedAt(t time.Time) any { c.SyncedAt = t; return c }

// CategoryRef is the by-value copy embedded inside Product for read
// convenience. It intentionally duplicates Name only; it is not a foreign
// reference and the engine never expands it after the fact.
type CategoryRef struct {
	CategoryID int    `bson:"categoryId"`
	Name       string `bson:"name"`
}
