package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product's modification marker is UpdatedAt, falling back to CreatedAt
// when UpdatedAt is null (never-updated rows). IsActive=false is deleted.
type Product struct {
	ID            int             `bson:"_id"`
	ProductID     int             `bson:"productId"`
	Barcode       string          `bson:"barcode"`
	Name          string          `bson:"name"`
	Description   string          `bson:"description"`
	Category      CategoryRef     `bson:"category"`
	PurchasePrice decimal.Decimal `bson:"purchasePrice"`
	SalePrice     decimal.Decimal `bson:"salePrice"`
	CurrentStock  decimal.Decimal `bson:"currentStock"`
	MinimumStock  decimal.Decimal `bson:"minimumStock"`
	SupplierID    *int            `bson:"supplierId"`
	IsActive      bool            `bson:"isActive"`
	ImagePath     string          `bson:"imagePath"`
	CreatedAt     time.Time       `bson:"createdAt"`
	UpdatedAt     time.Time       `bson:"updatedAt"`
	SyncedAt      time.Time       `bson:"syncedAt"`
}

// Marker returns the effective modification marker: UpdatedAt when set,
// otherwise CreatedAt, matching the extractor's SQL fallback.
func (p Product) Marker() time.Time {
	if !p.UpdatedAt.IsZero() {
		return p.UpdatedAt
	}
	return p.CreatedAt
}

func (p Product) SetSyncedAt(t time.Time) any { p.SyncedAt = t; return p }
