package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

// Customers is batched; marker is UpdatedAt falling back to CreatedAt.
type Customers struct {
	DB *sql.DB
}

func (Customers) Entity() string { return "customers" }

func (c Customers) ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error) {
	s := sqlrepo.FormatTime(since)
	rows, err := c.DB.QueryContext(ctx, `
		SELECT CustomerId, Name, Phone, Email, Address, IsActive, CreatedAt, UpdatedAt, Balance
		FROM Customers
		WHERE COALESCE(UpdatedAt, CreatedAt) > ? OR (COALESCE(UpdatedAt, CreatedAt) = ? AND CustomerId > ?)
		ORDER BY COALESCE(UpdatedAt, CreatedAt) ASC, CustomerId ASC
		LIMIT ?`, s, s, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("extract customers: query: %w", err)
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var (
			id                            int
			name                          string
			phone, email, address         sql.NullString
			isActive                      bool
			createdAt                     string
			updatedAt                     sql.NullString
			balance                       string
		)
		if err := rows.Scan(&id, &name, &phone, &email, &address, &isActive, &createdAt, &updatedAt, &balance); err != nil {
			return nil, fmt.Errorf("extract customers: scan: %w", err)
		}

		created, err := sqlrepo.ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("extract customers: parse CreatedAt: %w", err)
		}
		var updated time.Time
		if updatedAt.Valid {
			if updated, err = sqlrepo.ParseTime(updatedAt.String); err != nil {
				return nil, fmt.Errorf("extract customers: parse UpdatedAt: %w", err)
			}
		}

		doc := model.Customer{
			ID:         id,
			CustomerID: id,
			Name:       name,
			Phone:      phone.String,
			Email:      email.String,
			Address:    address.String,
			Balance:    mustDecimal(balance),
			IsActive:   isActive,
			CreatedAt:  created,
			UpdatedAt:  updated,
		}
		out = append(out, Doc{ID: id, Marker: doc.Marker(), Body: doc})
	}
	return out, rows.Err()
}

func (c Customers) LiveIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT CustomerId FROM Customers WHERE IsActive = 1`)
	if err != nil {
		return nil, fmt.Errorf("extract customers: live ids: %w", err)
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract customers: live ids scan: %w", err)
		}
		live[id] = true
	}
	return live, rows.Err()
}

// CustomerRefByID embeds a minimal by-id reference into Transaction;
// Customer itself is referenced by id only, never duplicated by value.
func CustomerRefByID(ctx context.Context, db *sql.DB, id int, fallbackName string) *model.CustomerRef {
	var name string
	err := db.QueryRowContext(ctx, `SELECT Name FROM Customers WHERE CustomerId = ?`, id).Scan(&name)
	if err != nil {
		if fallbackName == "" {
			return nil
		}
		return &model.CustomerRef{CustomerID: id, Name: fallbackName}
	}
	return &model.CustomerRef{CustomerID: id, Name: name}
}
