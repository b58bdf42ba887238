/*
Package sqlrepo is the relational source adapter shared by every
Extractor and by the Checkpoint Store. It speaks plain database/sql so a
production deployment can swap the driver; the default/test driver is
mattn/go-sqlite3, including its WAL-mode DSN.

SCHEMA:
  Migrate() runs CREATE TABLE IF NOT EXISTS for every source table plus
  SyncCheckpoints. cmd/replica-sync runs it on every start; against an
  existing source it only adds what is missing (such as SyncCheckpoints),
  and it gives tests and local dev a self-contained fixture to extract
  from.
*/
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Source wraps a relational-source connection so it satisfies
// sync.ReachabilityChecker for the scheduler's startup probe.
type Source struct {
	DB *sql.DB
}

func (s Source) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Open opens the relational source connection. dsn is a plain file path
// or ":memory:"; WAL mode and foreign keys are enabled the same way the
// teacher's store.New does for its own SQLite store.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlrepo: open %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlrepo: ping %s: %w", dsn, err)
	}
	return db, nil
}

// Migrate creates every table this service reads from or owns (the
// SyncCheckpoints table) if it does not already exist. Safe to call
// against a pre-existing production source: CREATE TABLE IF NOT EXISTS
// is a no-op there.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("sqlrepo: migrate: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS Categories (
	CategoryId INTEGER PRIMARY KEY AUTOINCREMENT,
	Name TEXT NOT NULL,
	Description TEXT,
	IsActive INTEGER NOT NULL DEFAULT 1,
	Type TEXT
);

CREATE TABLE IF NOT EXISTS Products (
	ProductId INTEGER PRIMARY KEY AUTOINCREMENT,
	Barcode TEXT,
	Name TEXT NOT NULL,
	Description TEXT,
	CategoryId INTEGER,
	PurchasePrice TEXT NOT NULL DEFAULT '0',
	SalePrice TEXT NOT NULL DEFAULT '0',
	CurrentStock TEXT NOT NULL DEFAULT '0',
	MinimumStock TEXT NOT NULL DEFAULT '0',
	SupplierId INTEGER,
	IsActive INTEGER NOT NULL DEFAULT 1,
	CreatedAt TEXT NOT NULL,
	Speed TEXT,
	UpdatedAt TEXT,
	ImagePath TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_updated ON Products(UpdatedAt);

CREATE TABLE IF NOT EXISTS Customers (
	CustomerId INTEGER PRIMARY KEY AUTOINCREMENT,
	Name TEXT NOT NULL,
	Phone TEXT,
	Email TEXT,
	Address TEXT,
	IsActive INTEGER NOT NULL DEFAULT 1,
	CreatedAt TEXT NOT NULL,
	UpdatedAt TEXT,
	Balance TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_customers_updated ON Customers(UpdatedAt);

CREATE TABLE IF NOT EXISTS BusinessSettings (
	Id INTEGER PRIMARY KEY AUTOINCREMENT,
	Key TEXT NOT NULL,
	Value TEXT,
	Description TEXT,
	"Group" TEXT,
	DataType TEXT,
	IsSystem INTEGER NOT NULL DEFAULT 0,
	LastModified TEXT NOT NULL,
	ModifiedBy TEXT
);

CREATE TABLE IF NOT EXISTS Employees (
	EmployeeId INTEGER PRIMARY KEY AUTOINCREMENT,
	Username TEXT NOT NULL,
	PasswordHash TEXT NOT NULL,
	FirstName TEXT,
	LastName TEXT,
	Role TEXT,
	IsActive INTEGER NOT NULL DEFAULT 1,
	CreatedAt TEXT NOT NULL,
	LastLogin TEXT,
	MonthlySalary TEXT NOT NULL DEFAULT '0',
	CurrentBalance TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_employees_created ON Employees(CreatedAt);

CREATE TABLE IF NOT EXISTS EmployeeSalaryTransactions (
	Id INTEGER PRIMARY KEY AUTOINCREMENT,
	EmployeeId INTEGER NOT NULL,
	Amount TEXT NOT NULL DEFAULT '0',
	TransactionType TEXT,
	TransactionDate TEXT NOT NULL,
	Notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_salary_tx_employee ON EmployeeSalaryTransactions(EmployeeId);

CREATE TABLE IF NOT EXISTS Expenses (
	ExpenseId INTEGER PRIMARY KEY AUTOINCREMENT,
	Reason TEXT,
	Amount TEXT NOT NULL DEFAULT '0',
	Date TEXT NOT NULL,
	Notes TEXT,
	Category TEXT,
	IsRecurring INTEGER NOT NULL DEFAULT 0,
	CreatedAt TEXT NOT NULL,
	UpdatedAt TEXT
);
CREATE INDEX IF NOT EXISTS idx_expenses_updated ON Expenses(UpdatedAt);

CREATE TABLE IF NOT EXISTS Transactions (
	TransactionId INTEGER PRIMARY KEY AUTOINCREMENT,
	CustomerId INTEGER,
	CustomerName TEXT,
	TotalAmount TEXT NOT NULL DEFAULT '0',
	PaidAmount TEXT NOT NULL DEFAULT '0',
	TransactionDate TEXT NOT NULL,
	TransactionType INTEGER NOT NULL DEFAULT 0,
	Status INTEGER NOT NULL DEFAULT 0,
	PaymentMethod TEXT,
	CashierId INTEGER,
	CashierName TEXT,
	CashierRole TEXT,
	CreatedDate TEXT NOT NULL,
	ModifiedDate TEXT NOT NULL,
	IsDeleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_transactions_modified ON Transactions(ModifiedDate);
CREATE INDEX IF NOT EXISTS idx_transactions_deleted ON Transactions(IsDeleted, ModifiedDate);

CREATE TABLE IF NOT EXISTS TransactionDetails (
	TransactionDetailId INTEGER PRIMARY KEY AUTOINCREMENT,
	TransactionId INTEGER NOT NULL,
	ProductId INTEGER NOT NULL,
	Quantity TEXT NOT NULL DEFAULT '0',
	UnitPrice TEXT NOT NULL DEFAULT '0',
	PurchasePrice TEXT NOT NULL DEFAULT '0',
	Discount TEXT NOT NULL DEFAULT '0',
	Total TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_details_transaction ON TransactionDetails(TransactionId);

CREATE TABLE IF NOT EXISTS SyncCheckpoints (
	Id INTEGER PRIMARY KEY AUTOINCREMENT,
	DeviceId TEXT NOT NULL,
	EntityType TEXT NOT NULL,
	LastSyncTime TEXT NOT NULL,
	LastRecordId INTEGER,
	LastDeleteCheck TEXT,
	CheckpointData TEXT,
	CreatedAt TEXT NOT NULL,
	UpdatedAt TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_checkpoints_device_entity ON SyncCheckpoints(DeviceId, EntityType);
`
