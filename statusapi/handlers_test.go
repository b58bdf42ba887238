package statusapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/replica-sync/checkpoint"
	"github.com/warp/replica-sync/config"
	"github.com/warp/replica-sync/extract"
	"github.com/warp/replica-sync/ringlog"
	"github.com/warp/replica-sync/source/sqlrepo"
	"github.com/warp/replica-sync/statusapi"
	"github.com/warp/replica-sync/sync"
	"github.com/warp/replica-sync/target/memstore"
)

func newTestHandler(t *testing.T) *statusapi.Handler {
	t.Helper()
	db, err := sqlrepo.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlrepo.Migrate(db))

	ring := ringlog.New(10)
	cfg := config.Defaults()
	engine := sync.NewEngine(cfg, checkpoint.New(db), memstore.New(), zerolog.Nop(), ring)
	engine.Register(config.EntityCategories, sync.Registration{
		Extractor: extract.Categories{DB: db}, Collection: config.EntityCategories, FullSnapshot: true,
	})
	sched := sync.NewScheduler(engine, cfg, "device-1")

	return &statusapi.Handler{Scheduler: sched, Ring: ring}
}

func TestTrigger_RunsAPassAndReportsItInStatus(t *testing.T) {
	h := newTestHandler(t)
	router := statusapi.NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/sync/categories/trigger", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	statusReq := httptest.NewRequest(http.MethodGet, "/status", nil)
	statusRec := httptest.NewRecorder()
	router.ServeHTTP(statusRec, statusReq)
	require.Equal(t, http.StatusOK, statusRec.Code)

	var body statusapi.StatusResponse
	require.NoError(t, json.NewDecoder(statusRec.Body).Decode(&body))
	require.Len(t, body.Entities, 1)
	assert.Equal(t, "categories", body.Entities[0].Entity)
	assert.True(t, body.Entities[0].Success)
}

func TestLogs_ReturnsRingContents(t *testing.T) {
	h := newTestHandler(t)
	h.Ring.Info("hello from a test")

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	rec := httptest.NewRecorder()
	statusapi.NewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var lines []ringlog.Line
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "hello from a test", lines[0].Message)
}
