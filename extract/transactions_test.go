package extract_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/replica-sync/extract"
	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

func newTestSource(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlrepo.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlrepo.Migrate(db))
	return db
}

func TestChangedPage_TieBreakResumesMidGroupWithoutSkipping(t *testing.T) {
	db := newTestSource(t)
	ctx := context.Background()

	same := sqlrepo.FormatTime(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	for i := 0; i < 4; i++ {
		_, err := db.ExecContext(ctx, `
			INSERT INTO Transactions (CustomerName, TotalAmount, PaidAmount, TransactionDate,
				TransactionType, Status, CreatedDate, ModifiedDate)
			VALUES ('walk-in', '10', '10', ?, 0, 1, ?, ?)`, same, same, same)
		require.NoError(t, err)
	}

	tx := extract.Transactions{DB: db}

	var seen []int
	since, afterID := time.Time{}, 0
	for {
		page, err := tx.ChangedPage(ctx, since, afterID, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, d := range page {
			seen = append(seen, d.ID)
		}
		last := page[len(page)-1]
		since, afterID = last.Marker, last.ID
	}

	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestChangedPage_SmallTransactionKeepsItsDetails(t *testing.T) {
	db := newTestSource(t)
	ctx := context.Background()

	now := sqlrepo.FormatTime(time.Now().UTC())
	res, err := db.ExecContext(ctx, `
		INSERT INTO Transactions (CustomerName, TotalAmount, PaidAmount, TransactionDate,
			TransactionType, Status, CreatedDate, ModifiedDate)
		VALUES ('walk-in', '10', '10', ?, 0, 1, ?, ?)`, now, now, now)
	require.NoError(t, err)
	txID, _ := res.LastInsertId()

	_, err = db.ExecContext(ctx, `
		INSERT INTO TransactionDetails (TransactionId, ProductId, Quantity, UnitPrice, PurchasePrice, Discount, Total)
		VALUES (?, 1, '1', '10', '5', '0', '10')`, txID)
	require.NoError(t, err)

	tx := extract.Transactions{DB: db}
	page, err := tx.ChangedPage(ctx, time.Time{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)

	body := page[0].Body.(model.Transaction)
	assert.Len(t, body.TransactionDetails, 1)
	assert.False(t, body.DetailsRemovedForSize)
}
