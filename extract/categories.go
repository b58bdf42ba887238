package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/replica-sync/model"
)

// Categories has no modification marker: every pass re-reads the full
// table unconditionally, which is fine given its small cardinality.
type Categories struct {
	DB *sql.DB
}

func (Categories) Entity() string { return "categories" }

// ChangedPage ignores since (full snapshot) and pages purely by primary
// key via afterID, so the engine's paging loop still works uniformly
// across entities; a real deployment's category count is small enough
// that one page covers it. Inactive categories are not returned, so once
// reconciliation deletes them they are not written back.
func (c Categories) ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT CategoryId, Name, Description, IsActive, Type
		FROM Categories
		WHERE CategoryId > ? AND IsActive = 1
		ORDER BY CategoryId ASC
		LIMIT ?`, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("extract categories: query: %w", err)
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var (
			id          int
			name        string
			description sql.NullString
			isActive    bool
			typ         sql.NullString
		)
		if err := rows.Scan(&id, &name, &description, &isActive, &typ); err != nil {
			return nil, fmt.Errorf("extract categories: scan: %w", err)
		}
		out = append(out, Doc{
			ID:     id,
			Marker: time.Time{}, // no marker: checkpoint is touched, not advanced by content
			Body: model.Category{
				ID:          id,
				CategoryID:  id,
				Name:        name,
				Description: description.String,
				Type:        typ.String,
				IsActive:    isActive,
			},
		})
	}
	return out, rows.Err()
}

func (c Categories) LiveIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT CategoryId FROM Categories WHERE IsActive = 1`)
	if err != nil {
		return nil, fmt.Errorf("extract categories: live ids: %w", err)
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract categories: live ids scan: %w", err)
		}
		live[id] = true
	}
	return live, rows.Err()
}

// CategoryRefByID is used by the Products extractor to embed the
// category name by value, denormalized into every synced product.
func CategoryRefByID(ctx context.Context, db *sql.DB, id int) (model.CategoryRef, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT Name FROM Categories WHERE CategoryId = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return model.CategoryRef{CategoryID: id}, nil
	}
	if err != nil {
		return model.CategoryRef{}, fmt.Errorf("extract categories: ref lookup %d: %w", id, err)
	}
	return model.CategoryRef{CategoryID: id, Name: name}, nil
}
