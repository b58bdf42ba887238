package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Per-document size ceiling enforced by the transaction extractor before a
// write is ever attempted.
const MaxDocumentSizeBytes = 15 * 1024 * 1024

// TransactionType string names for the source's integer-encoded enum.
// Unknown integers serialize to Unknown(<n>) rather than failing the row.
const (
	TxTypeSale       = "Sale"
	TxTypePurchase   = "Purchase"
	TxTypeAdjustment = "Adjustment"
)

// TransactionStatus string names for the source's integer-encoded enum.
const (
	TxStatusPending   = "Pending"
	TxStatusCompleted = "Completed"
	TxStatusCancelled = "Cancelled"
)

var transactionTypeNames = map[int]string{
	0: TxTypeSale,
	1: TxTypePurchase,
	2: TxTypeAdjustment,
}

var transactionStatusNames = map[int]string{
	0: TxStatusPending,
	1: TxStatusCompleted,
	2: TxStatusCancelled,
}

// TransactionTypeName maps the source's integer transaction type to its
// string name, falling back to "Unknown(<n>)" for unmapped values.
func TransactionTypeName(n int) string {
	if name, ok := transactionTypeNames[n]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", n)
}

// TransactionStatusName maps the source's integer status to its string
// name, falling back to "Unknown(<n>)" for unmapped values.
func TransactionStatusName(n int) string {
	if name, ok := transactionStatusNames[n]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", n)
}

// Transaction's modification marker is ModifiedDate; IsDeleted=true is the
// soft-delete marker (not IsActive, unlike most other entities).
type Transaction struct {
	ID             int                  `bson:"_id"`
	TransactionID  int                  `bson:"transactionId"`
	Customer       *CustomerRef         `bson:"customer"`
	TotalAmount    decimal.Decimal      `bson:"totalAmount"`
	PaidAmount     decimal.Decimal      `bson:"paidAmount"`
	TransactionDate time.Time           `bson:"transactionDate"`
	TransactionType string              `bson:"transactionType"`
	Status         string               `bson:"status"`
	PaymentMethod  string               `bson:"paymentMethod"`
	CashierID      int                  `bson:"cashierId"`
	CashierName    string               `bson:"cashierName"`
	CashierRole    string               `bson:"cashierRole"`
	CreatedDate    time.Time            `bson:"createdDate"`
	ModifiedDate   time.Time            `bson:"modifiedDate"`
	TransactionDetails []TransactionDetail `bson:"transactionDetails,omitempty"`

	// DetailsRemovedForSize is set when the full document (parent plus
	// embedded details) would exceed MaxDocumentSizeBytes. The parent is
	// still written; OriginalDetailCount preserves enough information for
	// a later repair pass to re-attach the details out of band.
	DetailsRemovedForSize bool `bson:"detailsRemovedForSize,omitempty"`
	OriginalDetailCount   int  `bson:"originalDetailCount,omitempty"`

	SyncedAt time.Time `bson:"syncedAt"`
}

func (t Transaction) Marker() time.Time { return t.ModifiedDate }

func (t Transaction) SetSyncedAt(syncedAt time.Time) any { t.SyncedAt = syncedAt; return t }

// TransactionDetail is embedded unconditionally with its parent (§I5):
// a parent document is never observed without its children, except under
// the size guard, which removes all details rather than some of them.
type TransactionDetail struct {
	TransactionDetailID int             `bson:"transactionDetailId"`
	ProductID           int             `bson:"productId"`
	Quantity            decimal.Decimal `bson:"quantity"`
	UnitPrice           decimal.Decimal `bson:"unitPrice"`
	PurchasePrice       decimal.Decimal `bson:"purchasePrice"`
	Discount            decimal.Decimal `bson:"discount"`
	Total               decimal.Decimal `bson:"total"`
}
