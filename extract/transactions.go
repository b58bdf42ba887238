package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

// Transactions is the highest-volume, highest-risk extractor: batched,
// nested details, integer-enum mapping, a size guard, and -- uniquely
// among entities -- an explicit soft-delete flag (IsDeleted) rather than
// IsActive. See sync.Engine for how its deletion sweep composes with
// LiveIDs.
type Transactions struct {
	DB *sql.DB
}

func (Transactions) Entity() string { return "transactions" }

func (t Transactions) ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error) {
	s := sqlrepo.FormatTime(since)
	rows, err := t.DB.QueryContext(ctx, `
		SELECT TransactionId, CustomerId, CustomerName, TotalAmount, PaidAmount, TransactionDate,
		       TransactionType, Status, PaymentMethod, CashierId, CashierName, CashierRole,
		       CreatedDate, ModifiedDate
		FROM Transactions
		WHERE (ModifiedDate > ? OR (ModifiedDate = ? AND TransactionId > ?)) AND IsDeleted = 0
		ORDER BY ModifiedDate ASC, TransactionId ASC
		LIMIT ?`, s, s, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("extract transactions: query: %w", err)
	}
	defer rows.Close()

	type partial struct {
		id                                       int
		customerID                               sql.NullInt64
		customerName                             string
		totalAmount, paidAmount                  string
		transactionDate                          time.Time
		transactionType, status                  int
		paymentMethod                            string
		cashierID                                int
		cashierName, cashierRole                 string
		createdDate, modifiedDate                time.Time
	}
	var partials []partial

	for rows.Next() {
		var (
			id                                 int
			customerID                         sql.NullInt64
			customerName                       sql.NullString
			totalAmount, paidAmount            string
			transactionDate                    string
			transactionType, status            int
			paymentMethod                      sql.NullString
			cashierID                          sql.NullInt64
			cashierName, cashierRole           sql.NullString
			createdDate, modifiedDate          string
		)
		if err := rows.Scan(&id, &customerID, &customerName, &totalAmount, &paidAmount, &transactionDate,
			&transactionType, &status, &paymentMethod, &cashierID, &cashierName, &cashierRole,
			&createdDate, &modifiedDate); err != nil {
			return nil, fmt.Errorf("extract transactions: scan: %w", err)
		}

		txDate, err := sqlrepo.ParseTime(transactionDate)
		if err != nil {
			return nil, fmt.Errorf("extract transactions: parse TransactionDate: %w", err)
		}
		created, err := sqlrepo.ParseTime(createdDate)
		if err != nil {
			return nil, fmt.Errorf("extract transactions: parse CreatedDate: %w", err)
		}
		modified, err := sqlrepo.ParseTime(modifiedDate)
		if err != nil {
			return nil, fmt.Errorf("extract transactions: parse ModifiedDate: %w", err)
		}

		partials = append(partials, partial{
			id: id, customerID: customerID, customerName: customerName.String,
			totalAmount: totalAmount, paidAmount: paidAmount, transactionDate: txDate,
			transactionType: transactionType, status: status, paymentMethod: paymentMethod.String,
			cashierID: int(cashierID.Int64), cashierName: cashierName.String, cashierRole: cashierRole.String,
			createdDate: created, modifiedDate: modified,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Doc
	for _, p := range partials {
		details, err := t.FetchChildren(ctx, p.id)
		if err != nil {
			return nil, err
		}

		var customer *model.CustomerRef
		if p.customerID.Valid {
			customer = CustomerRefByID(ctx, t.DB, int(p.customerID.Int64), p.customerName)
		}

		doc := model.Transaction{
			ID: p.id, TransactionID: p.id, Customer: customer,
			TotalAmount: mustDecimal(p.totalAmount), PaidAmount: mustDecimal(p.paidAmount),
			TransactionDate: p.transactionDate,
			TransactionType: model.TransactionTypeName(p.transactionType),
			Status:          model.TransactionStatusName(p.status),
			PaymentMethod:   p.paymentMethod, CashierID: p.cashierID, CashierName: p.cashierName,
			CashierRole: p.cashierRole, CreatedDate: p.createdDate, ModifiedDate: p.modifiedDate,
			TransactionDetails: details,
		}

		applySizeGuard(&doc)

		out = append(out, Doc{ID: p.id, Marker: doc.Marker(), Body: doc})
	}
	return out, nil
}

// applySizeGuard enforces the 15 MiB per-document ceiling. On overflow
// the parent is kept but its details are dropped, with
// DetailsRemovedForSize recording enough information for a later repair
// pass.
func applySizeGuard(doc *model.Transaction) {
	if len(doc.TransactionDetails) == 0 {
		return
	}
	encoded, err := bson.Marshal(doc)
	if err != nil || len(encoded) <= model.MaxDocumentSizeBytes {
		return
	}
	doc.OriginalDetailCount = len(doc.TransactionDetails)
	doc.TransactionDetails = nil
	doc.DetailsRemovedForSize = true
}

// FetchChildren embeds all line items for transactionID. Callable many
// times per pass, including from a future repair pass over
// ListOversizedForRepair results.
func (t Transactions) FetchChildren(ctx context.Context, transactionID int) ([]model.TransactionDetail, error) {
	rows, err := t.DB.QueryContext(ctx, `
		SELECT TransactionDetailId, ProductId, Quantity, UnitPrice, PurchasePrice, Discount, Total
		FROM TransactionDetails
		WHERE TransactionId = ?
		ORDER BY TransactionDetailId ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("extract transactions: details for %d: %w", transactionID, err)
	}
	defer rows.Close()

	var details []model.TransactionDetail
	for rows.Next() {
		var (
			detailID                                      int
			productID                                     int
			quantity, unitPrice, purchasePrice, discount, total string
		)
		if err := rows.Scan(&detailID, &productID, &quantity, &unitPrice, &purchasePrice, &discount, &total); err != nil {
			return nil, fmt.Errorf("extract transactions: detail scan: %w", err)
		}
		details = append(details, model.TransactionDetail{
			TransactionDetailID: detailID, ProductID: productID,
			Quantity: mustDecimal(quantity), UnitPrice: mustDecimal(unitPrice),
			PurchasePrice: mustDecimal(purchasePrice), Discount: mustDecimal(discount), Total: mustDecimal(total),
		})
	}
	return details, rows.Err()
}

// TransactionDateBounds satisfies sync.BackfillRange: the oldest and
// newest ModifiedDate across every transaction, including soft-deleted
// ones, so a backfill run covers the full history regardless of rows
// deleted after the fact.
func (t Transactions) TransactionDateBounds(ctx context.Context) (min, max time.Time, err error) {
	var minStr, maxStr sql.NullString
	err = t.DB.QueryRowContext(ctx, `SELECT MIN(ModifiedDate), MAX(ModifiedDate) FROM Transactions`).Scan(&minStr, &maxStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("extract transactions: date bounds: %w", err)
	}
	if !minStr.Valid || !maxStr.Valid {
		return time.Time{}, time.Time{}, nil
	}
	if min, err = sqlrepo.ParseTime(minStr.String); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("extract transactions: parse min date: %w", err)
	}
	if max, err = sqlrepo.ParseTime(maxStr.String); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("extract transactions: parse max date: %w", err)
	}
	return min, max, nil
}

func (t Transactions) LiveIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := t.DB.QueryContext(ctx, `SELECT TransactionId FROM Transactions WHERE IsDeleted = 0`)
	if err != nil {
		return nil, fmt.Errorf("extract transactions: live ids: %w", err)
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract transactions: live ids scan: %w", err)
		}
		live[id] = true
	}
	return live, rows.Err()
}

// SoftDeletedSince implements extract.SoftDeleteLister: the deletion
// sweep issued before the insert phase.
func (t Transactions) SoftDeletedSince(ctx context.Context, since time.Time) ([]int, error) {
	rows, err := t.DB.QueryContext(ctx, `
		SELECT TransactionId FROM Transactions WHERE IsDeleted = 1 AND ModifiedDate > ?`, sqlrepo.FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("extract transactions: soft deleted since: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract transactions: soft deleted scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListOversizedForRepair takes the ids of transactions that were written
// with DetailsRemovedForSize=true and returns those whose current source
// details would still overflow the size guard, so a later repair pass has
// a concrete entry point. This extractor itself does not drive the repair
// and does not find the flagged ids; the caller supplies them.
func (t Transactions) ListOversizedForRepair(ctx context.Context, ids []int) (map[int]bool, error) {
	stillOversized := make(map[int]bool)
	for _, id := range ids {
		details, err := t.FetchChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		// A row is only still a repair candidate if its source details
		// would once again overflow the same guard.
		var probe model.Transaction
		probe.TransactionDetails = details
		applySizeGuard(&probe)
		if probe.DetailsRemovedForSize {
			stillOversized[id] = true
		}
	}
	return stillOversized, nil
}
