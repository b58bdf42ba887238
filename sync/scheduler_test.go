package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/replica-sync/checkpoint"
	"github.com/warp/replica-sync/config"
	"github.com/warp/replica-sync/extract"
	"github.com/warp/replica-sync/ringlog"
	"github.com/warp/replica-sync/source/sqlrepo"
	"github.com/warp/replica-sync/sync"
	"github.com/warp/replica-sync/target/memstore"
)

type fakePing struct{ err error }

func (f fakePing) Ping(ctx context.Context) error { return f.err }

func TestScheduler_ProbeFailsFastOnUnreachableTarget(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	cfg := config.Defaults()
	sched := sync.NewScheduler(engine, cfg, testDevice)

	err := sched.Probe(context.Background(), fakePing{}, fakePing{err: errors.New("unreachable")})
	require.Error(t, err)
}

func TestScheduler_StartRunsATickImmediatelyThenStops(t *testing.T) {
	db, err := sqlrepo.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlrepo.Migrate(db))
	_, err = db.ExecContext(context.Background(), `INSERT INTO Categories (Name, IsActive) VALUES ('Books', 1)`)
	require.NoError(t, err)

	store := memstore.New()
	cfg := config.Defaults()
	cfg.Sync.IntervalSeconds = 3600
	engine := sync.NewEngine(cfg, checkpoint.New(db), store, zerolog.Nop(), ringlog.New(10))
	engine.Register(config.EntityCategories, sync.Registration{
		Extractor: extract.Categories{DB: db}, Collection: config.EntityCategories, FullSnapshot: true,
	})

	sched := sync.NewScheduler(engine, cfg, testDevice)
	sched.Start()

	assert.Eventually(t, func() bool {
		return store.Count(config.EntityCategories) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sched.Stop()
	assert.Equal(t, sync.StateStopped, sched.State())
}
