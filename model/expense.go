package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense has no soft-delete marker. Modification marker is UpdatedAt,
// falling back to CreatedAt.
type Expense struct {
	ID          int             `bson:"_id"`
	ExpenseID   int             `bson:"expenseId"`
	Reason      string          `bson:"reason"`
	Amount      decimal.Decimal `bson:"amount"`
	Date        time.Time       `bson:"date"`
	Notes       string          `bson:"notes"`
	Category    string          `bson:"category"`
	IsRecurring bool            `bson:"isRecurring"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
	SyncedAt    time.Time       `bson:"syncedAt"`
}

func (e Expense) Marker() time.Time {
	if !e.UpdatedAt.IsZero() {
		return e.UpdatedAt
	}
	return e.CreatedAt
}

func (e Expense) SetSyncedAt(t time.Time) any { e.SyncedAt = t; return e }
