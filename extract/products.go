package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

// Products is batched and embeds its Category by value.
// Modification marker is UpdatedAt, falling back to CreatedAt for rows
// never updated -- the filter below includes NULL UpdatedAt rows the
// first time they are seen.
type Products struct {
	DB *sql.DB
}

func (Products) Entity() string { return "products" }

func (p Products) ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error) {
	s := sqlrepo.FormatTime(since)
	rows, err := p.DB.QueryContext(ctx, `
		SELECT ProductId, Barcode, Name, Description, CategoryId, PurchasePrice, SalePrice,
		       CurrentStock, MinimumStock, SupplierId, IsActive, CreatedAt, UpdatedAt, ImagePath
		FROM Products
		WHERE COALESCE(UpdatedAt, CreatedAt) > ? OR (COALESCE(UpdatedAt, CreatedAt) = ? AND ProductId > ?)
		ORDER BY COALESCE(UpdatedAt, CreatedAt) ASC, ProductId ASC
		LIMIT ?`, s, s, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("extract products: query: %w", err)
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var (
			id                                    int
			barcode, description, imagePath       sql.NullString
			name                                  string
			categoryID, supplierID                sql.NullInt64
			purchasePrice, salePrice              string
			currentStock, minimumStock            string
			isActive                              bool
			createdAt                             string
			updatedAt                             sql.NullString
		)
		if err := rows.Scan(&id, &barcode, &name, &description, &categoryID, &purchasePrice, &salePrice,
			&currentStock, &minimumStock, &supplierID, &isActive, &createdAt, &updatedAt, &imagePath); err != nil {
			return nil, fmt.Errorf("extract products: scan: %w", err)
		}

		created, err := sqlrepo.ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("extract products: parse CreatedAt: %w", err)
		}
		var updated time.Time
		if updatedAt.Valid {
			if updated, err = sqlrepo.ParseTime(updatedAt.String); err != nil {
				return nil, fmt.Errorf("extract products: parse UpdatedAt: %w", err)
			}
		}

		var category model.CategoryRef
		if categoryID.Valid {
			category, err = CategoryRefByID(ctx, p.DB, int(categoryID.Int64))
			if err != nil {
				return nil, err
			}
		}

		var supplier *int
		if supplierID.Valid {
			n := int(supplierID.Int64)
			supplier = &n
		}

		doc := model.Product{
			ID:            id,
			ProductID:     id,
			Barcode:       barcode.String,
			Name:          name,
			Description:   description.String,
			Category:      category,
			PurchasePrice: mustDecimal(purchasePrice),
			SalePrice:     mustDecimal(salePrice),
			CurrentStock:  mustDecimal(currentStock),
			MinimumStock:  mustDecimal(minimumStock),
			SupplierID:    supplier,
			IsActive:      isActive,
			ImagePath:     imagePath.String,
			CreatedAt:     created,
			UpdatedAt:     updated,
		}

		out = append(out, Doc{ID: id, Marker: doc.Marker(), Body: doc})
	}
	return out, rows.Err()
}

func (p Products) LiveIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT ProductId FROM Products WHERE IsActive = 1`)
	if err != nil {
		return nil, fmt.Errorf("extract products: live ids: %w", err)
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract products: live ids scan: %w", err)
		}
		live[id] = true
	}
	return live, rows.Err()
}

// mustDecimal parses a stored decimal string, defaulting to zero on a
// malformed value rather than failing the whole row -- matches the
// teacher's MustParseDecimal in generic/types.go.
func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
