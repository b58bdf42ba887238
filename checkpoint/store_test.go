package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/replica-sync/checkpoint"
	"github.com/warp/replica-sync/source/sqlrepo"
)

func TestUpsertCreatesThenUpdates(t *testing.T) {
	db, err := sqlrepo.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqlrepo.Migrate(db))

	store := checkpoint.New(db)
	ctx := context.Background()

	cp, err := store.Get(ctx, "dev-1", "products")
	require.NoError(t, err)
	require.Nil(t, cp)

	t1 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	cp, err = store.Upsert(ctx, "dev-1", "products", t1, nil, nil)
	require.NoError(t, err)
	require.Equal(t, t1, cp.LastSyncTime)

	t2 := t1.Add(24 * time.Hour)
	cp, err = store.Upsert(ctx, "dev-1", "products", t2, nil, nil)
	require.NoError(t, err)
	require.Equal(t, t2, cp.LastSyncTime)
}

func TestUpsertNeverRegresses(t *testing.T) {
	db, err := sqlrepo.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqlrepo.Migrate(db))

	store := checkpoint.New(db)
	ctx := context.Background()

	high := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = store.Upsert(ctx, "dev-1", "transactions", high, nil, nil)
	require.NoError(t, err)

	low := high.Add(-time.Hour)
	cp, err := store.Upsert(ctx, "dev-1", "transactions", low, nil, nil)
	require.NoError(t, err)
	require.Equal(t, high, cp.LastSyncTime, "a lower lastSyncTime must never regress the checkpoint")
}

func TestUpsertTouchesUpdatedAtWithoutNewRows(t *testing.T) {
	db, err := sqlrepo.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqlrepo.Migrate(db))

	store := checkpoint.New(db)
	ctx := context.Background()

	marker := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	first, err := store.Upsert(ctx, "dev-1", "categories", marker, nil, nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	second, err := store.Upsert(ctx, "dev-1", "categories", marker, nil, nil)
	require.NoError(t, err)

	require.Equal(t, first.LastSyncTime, second.LastSyncTime)
	require.True(t, !second.UpdatedAt.Before(first.UpdatedAt))
}
