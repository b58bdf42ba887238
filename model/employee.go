package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee's modification marker is CreatedAt, not UpdatedAt -- see the
// open question recorded in SPEC_FULL.md: edits to an existing employee are
// never replicated after the employee's first pass. This is observed
// source behavior, reproduced intentionally rather than "fixed".
type Employee struct {
	ID              int                    `bson:"_id"`
	EmployeeID      int                    `bson:"employeeId"`
	Username        string                 `bson:"username"`
	FirstName       string                 `bson:"firstName"`
	LastName        string                 `bson:"lastName"`
	Role            string                 `bson:"role"`
	IsActive        bool                   `bson:"isActive"`
	MonthlySalary   decimal.Decimal        `bson:"monthlySalary"`
	CurrentBalance  decimal.Decimal        `bson:"currentBalance"`
	CreatedAt       time.Time              `bson:"createdAt"`
	LastLogin       *time.Time             `bson:"lastLogin"`
	SalaryTransactions []SalaryTransaction `bson:"salaryTransactions"`
	SyncedAt        time.Time              `bson:"syncedAt"`
}

func (e Employee) Marker() time.Time { return e.CreatedAt }

func (e Employee) SetSyncedAt(t time.Time) any { e.SyncedAt = t; return e }

// SalaryTransaction is embedded unconditionally, with no incremental
// filter on the child table (the whole set is re-embedded every time the
// parent employee row is re-observed).
type SalaryTransaction struct {
	ID              int             `bson:"id"`
	Amount          decimal.Decimal `bson:"amount"`
	TransactionType string          `bson:"transactionType"`
	TransactionDate time.Time       `bson:"transactionDate"`
	Notes           string          `bson:"notes"`
}
