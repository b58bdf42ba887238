package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

// Expenses is batched, has no soft-delete marker, and falls back to
// CreatedAt when UpdatedAt is null.
type Expenses struct {
	DB *sql.DB
}

func (Expenses) Entity() string { return "expenses" }

func (e Expenses) ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error) {
	s := sqlrepo.FormatTime(since)
	rows, err := e.DB.QueryContext(ctx, `
		SELECT ExpenseId, Reason, Amount, Date, Notes, Category, IsRecurring, CreatedAt, UpdatedAt
		FROM Expenses
		WHERE COALESCE(UpdatedAt, CreatedAt) > ? OR (COALESCE(UpdatedAt, CreatedAt) = ? AND ExpenseId > ?)
		ORDER BY COALESCE(UpdatedAt, CreatedAt) ASC, ExpenseId ASC
		LIMIT ?`, s, s, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("extract expenses: query: %w", err)
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var (
			id                           int
			reason, notes, category      sql.NullString
			amount                       string
			date                         string
			isRecurring                  bool
			createdAt                    string
			updatedAt                    sql.NullString
		)
		if err := rows.Scan(&id, &reason, &amount, &date, &notes, &category, &isRecurring, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("extract expenses: scan: %w", err)
		}

		created, err := sqlrepo.ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("extract expenses: parse CreatedAt: %w", err)
		}
		parsedDate, err := sqlrepo.ParseTime(date)
		if err != nil {
			return nil, fmt.Errorf("extract expenses: parse Date: %w", err)
		}
		var updated time.Time
		if updatedAt.Valid {
			if updated, err = sqlrepo.ParseTime(updatedAt.String); err != nil {
				return nil, fmt.Errorf("extract expenses: parse UpdatedAt: %w", err)
			}
		}

		doc := model.Expense{
			ID: id, ExpenseID: id, Reason: reason.String, Amount: mustDecimal(amount),
			Date: parsedDate, Notes: notes.String, Category: category.String,
			IsRecurring: isRecurring, CreatedAt: created, UpdatedAt: updated,
		}
		out = append(out, Doc{ID: id, Marker: doc.Marker(), Body: doc})
	}
	return out, rows.Err()
}

// LiveIDs returns every expense id: Expenses has no soft-delete marker,
// so nothing is ever reconciled away by set difference -- all ids are
// always "live".
func (e Expenses) LiveIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := e.DB.QueryContext(ctx, `SELECT ExpenseId FROM Expenses`)
	if err != nil {
		return nil, fmt.Errorf("extract expenses: live ids: %w", err)
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract expenses: live ids scan: %w", err)
		}
		live[id] = true
	}
	return live, rows.Err()
}
