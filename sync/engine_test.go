package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/replica-sync/checkpoint"
	"github.com/warp/replica-sync/config"
	"github.com/warp/replica-sync/extract"
	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/ringlog"
	"github.com/warp/replica-sync/source/sqlrepo"
	"github.com/warp/replica-sync/sync"
	"github.com/warp/replica-sync/target/memstore"
)

const testDevice = "device-1"

func newTestEngine(t *testing.T) (*sync.Engine, *memstore.Store, *sqlrepo.Source) {
	t.Helper()
	db, err := sqlrepo.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlrepo.Migrate(db))

	store := memstore.New()
	cfg := config.Defaults()
	engine := sync.NewEngine(cfg, checkpoint.New(db), store, zerolog.Nop(), ringlog.New(10))
	engine.Register(config.EntityCategories, sync.Registration{
		Extractor: extract.Categories{DB: db}, Collection: config.EntityCategories, FullSnapshot: true,
	})
	engine.Register(config.EntityProducts, sync.Registration{
		Extractor: extract.Products{DB: db}, Collection: config.EntityProducts,
	})
	return engine, store, &sqlrepo.Source{DB: db}
}

func TestRunPass_FullSnapshotReplicatesEveryRow(t *testing.T) {
	engine, store, src := newTestEngine(t)
	ctx := context.Background()

	_, err := src.DB.ExecContext(ctx, `INSERT INTO Categories (Name, IsActive) VALUES ('Beverages', 1), ('Snacks', 1)`)
	require.NoError(t, err)

	result := engine.RunPass(ctx, testDevice, config.EntityCategories)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RecordsSynced)
	assert.Equal(t, 2, store.Count(config.EntityCategories))
}

func TestRunPass_StampsSyncedAtOnWrite(t *testing.T) {
	engine, store, src := newTestEngine(t)
	ctx := context.Background()

	before := time.Now().UTC()
	_, err := src.DB.ExecContext(ctx, `INSERT INTO Categories (Name, IsActive) VALUES ('Beverages', 1)`)
	require.NoError(t, err)

	result := engine.RunPass(ctx, testDevice, config.EntityCategories)
	require.True(t, result.Success)

	doc, ok := store.Get(config.EntityCategories, 1)
	require.True(t, ok)
	category, ok := doc.(model.Category)
	require.True(t, ok)
	assert.False(t, category.SyncedAt.IsZero())
	assert.False(t, category.SyncedAt.Before(before))
}

func TestRunPass_TieBreakDoesNotSkipRowsSharingOneMarker(t *testing.T) {
	engine, store, src := newTestEngine(t)
	ctx := context.Background()

	// Three products share one UpdatedAt instant, forcing the batch
	// boundary to land mid-tie when BatchSize is smaller than the group.
	// The instant lies inside the default first-pass window.
	same := sqlrepo.FormatTime(time.Now().UTC().Add(-time.Hour))
	for i := 0; i < 3; i++ {
		_, err := src.DB.ExecContext(ctx, `
			INSERT INTO Products (Name, PurchasePrice, SalePrice, CurrentStock, MinimumStock, IsActive, CreatedAt, UpdatedAt)
			VALUES (?, '1', '2', '10', '1', 1, ?, ?)`, "widget", same, same)
		require.NoError(t, err)
	}

	cfg := config.Defaults()
	cfg.Sync.BatchSize = map[string]int{config.EntityProducts: 1}
	engine.Config = cfg

	result := engine.RunPass(ctx, testDevice, config.EntityProducts)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.RecordsSynced)
	assert.Equal(t, 3, store.Count(config.EntityProducts))
}

func TestRunPass_DeletionReconciliationLagsOnePassBehindLiveIDs(t *testing.T) {
	engine, store, src := newTestEngine(t)
	ctx := context.Background()

	now := sqlrepo.FormatTime(time.Now().UTC())
	_, err := src.DB.ExecContext(ctx, `
		INSERT INTO Products (ProductId, Name, PurchasePrice, SalePrice, CurrentStock, MinimumStock, IsActive, CreatedAt)
		VALUES (1, 'gone', '1', '2', '1', '1', 0, ?)`, now)
	require.NoError(t, err)

	// ChangedPage does not itself filter IsActive -- an inactive row is
	// still written the first time it is seen, and only reconciled away
	// on a later pass once LiveIDs stops reporting it (see extract.Products).
	first := engine.RunPass(ctx, testDevice, config.EntityProducts)
	require.True(t, first.Success)
	require.Equal(t, 1, store.Count(config.EntityProducts))

	_, err = src.DB.ExecContext(ctx, `
		INSERT INTO Products (ProductId, Name, PurchasePrice, SalePrice, CurrentStock, MinimumStock, IsActive, CreatedAt)
		VALUES (2, 'also-gone', '1', '2', '1', '1', 1, ?)`, now)
	require.NoError(t, err)
	second := engine.RunPass(ctx, testDevice, config.EntityProducts)
	require.True(t, second.Success)
	require.Equal(t, 1, store.Count(config.EntityProducts))

	_, err = src.DB.ExecContext(ctx, `UPDATE Products SET IsActive = 0 WHERE ProductId = 2`)
	require.NoError(t, err)
	third := engine.RunPass(ctx, testDevice, config.EntityProducts)
	assert.True(t, third.Success)
	assert.Equal(t, 1, third.RecordsDeleted)
	assert.Equal(t, 0, store.Count(config.EntityProducts))
}

func TestRunPass_CheckpointNeverRegressesAcrossEmptyPasses(t *testing.T) {
	engine, _, src := newTestEngine(t)
	ctx := context.Background()

	now := sqlrepo.FormatTime(time.Now().UTC())
	_, err := src.DB.ExecContext(ctx, `
		INSERT INTO Products (Name, PurchasePrice, SalePrice, CurrentStock, MinimumStock, IsActive, CreatedAt)
		VALUES ('widget', '1', '2', '1', '1', 1, ?)`, now)
	require.NoError(t, err)

	first := engine.RunPass(ctx, testDevice, config.EntityProducts)
	require.True(t, first.Success)
	require.Equal(t, 1, first.RecordsSynced)

	second := engine.RunPass(ctx, testDevice, config.EntityProducts)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.RecordsSynced)
	assert.False(t, second.LastSyncTime.Before(first.LastSyncTime))
}

func TestRunPass_UnknownEntityFails(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	result := engine.RunPass(context.Background(), testDevice, "not-registered")
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "not-registered")
}
