package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer's modification marker is UpdatedAt, falling back to CreatedAt.
// IsActive=false is treated as deleted.
type Customer struct {
	ID         int             `bson:"_id"`
	CustomerID int             `bson:"customerId"`
	Name       string          `bson:"name"`
	Phone      string          `bson:"phone"`
	Email      string          `bson:"email"`
	Address    string          `bson:"address"`
	Balance    decimal.Decimal `bson:"balance"`
	IsActive   bool            `bson:"isActive"`
	CreatedAt  time.Time       `bson:"createdAt"`
	UpdatedAt  time.Time       `bson:"updatedAt"`
	SyncedAt   time.Time       `bson:"syncedAt"`
}

func (c Customer) Marker() time.Time {
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

func (c Customer) SetSyncedAt(t time.Time) any { c.SyncedAt = t; return c }

// CustomerRef is the minimal reference embedded in Transaction: the
// customer id plus its name. No other Customer field is copied.
type CustomerRef struct {
	CustomerID int    `bson:"customerId"`
	Name       string `bson:"name"`
}
