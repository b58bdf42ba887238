package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

// Employees filters by CreatedAt, not UpdatedAt -- see the open question
// recorded in SPEC_FULL.md. This means edits to an existing employee are
// never replicated after the employee's first pass; reproduced here
// intentionally as observed source behavior, not fixed.
type Employees struct {
	DB *sql.DB
}

func (Employees) Entity() string { return "employees" }

func (e Employees) ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error) {
	s := sqlrepo.FormatTime(since)
	rows, err := e.DB.QueryContext(ctx, `
		SELECT EmployeeId, Username, FirstName, LastName, Role, IsActive, CreatedAt, LastLogin, MonthlySalary, CurrentBalance
		FROM Employees
		WHERE CreatedAt > ? OR (CreatedAt = ? AND EmployeeId > ?)
		ORDER BY CreatedAt ASC, EmployeeId ASC
		LIMIT ?`, s, s, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("extract employees: query: %w", err)
	}
	defer rows.Close()

	type partial struct {
		id                          int
		username, first, last, role string
		isActive                    bool
		createdAt                   time.Time
		lastLogin                  *time.Time
		salary, balance            string
	}
	var partials []partial

	for rows.Next() {
		var (
			id                          int
			username, first, last, role sql.NullString
			isActive                    bool
			createdAt                   string
			lastLogin                   sql.NullString
			salary, balance             string
		)
		if err := rows.Scan(&id, &username, &first, &last, &role, &isActive, &createdAt, &lastLogin, &salary, &balance); err != nil {
			return nil, fmt.Errorf("extract employees: scan: %w", err)
		}
		created, err := sqlrepo.ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("extract employees: parse CreatedAt: %w", err)
		}
		var login *time.Time
		if lastLogin.Valid {
			t, err := sqlrepo.ParseTime(lastLogin.String)
			if err != nil {
				return nil, fmt.Errorf("extract employees: parse LastLogin: %w", err)
			}
			login = &t
		}
		partials = append(partials, partial{
			id: id, username: username.String, first: first.String, last: last.String,
			role: role.String, isActive: isActive, createdAt: created, lastLogin: login,
			salary: salary, balance: balance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Doc
	for _, p := range partials {
		children, err := e.FetchChildren(ctx, p.id)
		if err != nil {
			return nil, err
		}
		doc := model.Employee{
			ID: p.id, EmployeeID: p.id, Username: p.username, FirstName: p.first, LastName: p.last,
			Role: p.role, IsActive: p.isActive, MonthlySalary: mustDecimal(p.salary),
			CurrentBalance: mustDecimal(p.balance), CreatedAt: p.createdAt, LastLogin: p.lastLogin,
			SalaryTransactions: children,
		}
		out = append(out, Doc{ID: p.id, Marker: doc.Marker(), Body: doc})
	}
	return out, nil
}

// FetchChildren embeds all salary transactions for employeeID
// unconditionally -- no incremental filter on the child table, per §4.2.
// Exposed so it may be called many times per pass, including from a
// future repair pass.
func (e Employees) FetchChildren(ctx context.Context, employeeID int) ([]model.SalaryTransaction, error) {
	rows, err := e.DB.QueryContext(ctx, `
		SELECT Id, Amount, TransactionType, TransactionDate, Notes
		FROM EmployeeSalaryTransactions
		WHERE EmployeeId = ?
		ORDER BY TransactionDate ASC, Id ASC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("extract employees: salary transactions for %d: %w", employeeID, err)
	}
	defer rows.Close()

	var children []model.SalaryTransaction
	for rows.Next() {
		var (
			id              int
			amount          string
			transactionType sql.NullString
			date            string
			notes           sql.NullString
		)
		if err := rows.Scan(&id, &amount, &transactionType, &date, &notes); err != nil {
			return nil, fmt.Errorf("extract employees: salary transaction scan: %w", err)
		}
		parsedDate, err := sqlrepo.ParseTime(date)
		if err != nil {
			return nil, fmt.Errorf("extract employees: parse TransactionDate: %w", err)
		}
		children = append(children, model.SalaryTransaction{
			ID: id, Amount: mustDecimal(amount), TransactionType: transactionType.String,
			TransactionDate: parsedDate, Notes: notes.String,
		})
	}
	return children, rows.Err()
}

func (e Employees) LiveIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := e.DB.QueryContext(ctx, `SELECT EmployeeId FROM Employees WHERE IsActive = 1`)
	if err != nil {
		return nil, fmt.Errorf("extract employees: live ids: %w", err)
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract employees: live ids scan: %w", err)
		}
		live[id] = true
	}
	return live, rows.Err()
}
