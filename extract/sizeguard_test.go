package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/replica-sync/model"
)

func TestApplySizeGuard_DropsDetailsOnlyWhenEncodedDocExceedsLimit(t *testing.T) {
	small := model.Transaction{
		ID: 1, ModifiedDate: time.Now(),
		TransactionDetails: []model.TransactionDetail{
			{TransactionDetailID: 1, ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10), Total: decimal.NewFromInt(10)},
		},
	}
	applySizeGuard(&small)
	assert.False(t, small.DetailsRemovedForSize)
	assert.Len(t, small.TransactionDetails, 1)

	const lineItems = 2000000
	huge := model.Transaction{ID: 2, ModifiedDate: time.Now()}
	for i := 0; i < lineItems; i++ {
		huge.TransactionDetails = append(huge.TransactionDetails, model.TransactionDetail{
			TransactionDetailID: i, ProductID: i,
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10),
			PurchasePrice: decimal.NewFromInt(5), Discount: decimal.Zero, Total: decimal.NewFromInt(10),
		})
	}
	applySizeGuard(&huge)
	assert.True(t, huge.DetailsRemovedForSize)
	assert.Nil(t, huge.TransactionDetails)
	assert.Equal(t, lineItems, huge.OriginalDetailCount)
}
