/*
Package sync implements the Sync Engine: one incremental
pass per (device, entity), the bulk transaction backfill (backfill.go),
and the periodic Scheduler (scheduler.go) that drives both.

TIE-BREAK RESOLUTION:
  Rows sharing one modification marker must never be split across the
  checkpoint boundary -- the checkpoint must only advance to T once every
  row at T has been written. This is implemented with the compound cursor
  the Checkpoint tuple already carries:
  (LastSyncTime, LastRecordID). Extractors accept both and filter
  `marker > since OR (marker == since AND id > afterID)`, ordered the
  same way. A page that ends mid-tie simply resumes with the same
  since and a higher afterID on the next call -- no row is ever
  skipped, and no peeking or trimming is required.
*/
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/replica-sync/checkpoint"
	"github.com/warp/replica-sync/config"
	"github.com/warp/replica-sync/extract"
	"github.com/warp/replica-sync/metrics"
	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/ringlog"
	"github.com/warp/replica-sync/target"
)

// Registration binds one entity's Extractor to its target collection.
// FullSnapshot entities (only Categories today) have no modification
// marker: every pass re-reads the whole table and the (since, afterID)
// cursor is reset at the start of every pass rather than resumed from
// the checkpoint.
type Registration struct {
	Extractor    extract.Extractor
	Collection   string
	FullSnapshot bool
}

// Engine orchestrates passes across every registered entity.
type Engine struct {
	Config        config.Config
	Checkpoints   checkpoint.Store
	Target        target.Loader
	Log           zerolog.Logger
	Ring          *ringlog.Ring
	registrations map[string]Registration
}

func NewEngine(cfg config.Config, checkpoints checkpoint.Store, ld target.Loader, log zerolog.Logger, ring *ringlog.Ring) *Engine {
	return &Engine{
		Config:        cfg,
		Checkpoints:   checkpoints,
		Target:        ld,
		Log:           log,
		Ring:          ring,
		registrations: make(map[string]Registration),
	}
}

func (e *Engine) Register(entity string, reg Registration) {
	e.registrations[entity] = reg
}

// RunPass executes one complete incremental pass for (deviceID,
// entityType) and reports the outcome. It never panics on a bad
// registration or a checkpoint that cannot be read -- those surface as a
// failed Result, exactly like any other pass failure, so a caller driving
// many entities in a tick can keep going. A missing checkpoint is not a
// failure: the configured default window is used instead.
func (e *Engine) RunPass(ctx context.Context, deviceID, entityType string) Result {
	start := time.Now()
	runID := uuid.NewString()
	defer metrics.ObservePassDuration(entityType, start)

	reg, ok := e.registrations[entityType]
	if !ok {
		return e.fail(deviceID, entityType, runID, start, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entityType))
	}

	since, afterID, err := e.resolveCursor(ctx, deviceID, entityType, reg)
	if err != nil {
		// Checkpoint store unavailable: abort immediately, no partial
		// writes have occurred yet.
		return e.fail(deviceID, entityType, runID, start, time.Time{}, fmt.Errorf("read checkpoint: %w", err))
	}

	result, err := e.runIncremental(ctx, deviceID, entityType, reg, since, afterID, runID)
	result.Elapsed = time.Since(start)
	if err != nil {
		metrics.PassFailures.WithLabelValues(entityType).Inc()
		e.Ring.Error("[%s] pass %s failed for %s: %v", entityType, runID, deviceID, err)
		result.Success = false
		result.ErrorMessage = err.Error()
	} else {
		result.Success = true
		e.Ring.Success("[%s] pass %s for %s: %d synced, %d deleted, %d poison, lastSyncTime=%s",
			entityType, runID, deviceID, result.RecordsSynced, result.RecordsDeleted, result.PoisonRows, result.LastSyncTime)
	}

	e.writeSyncLog(ctx, deviceID, entityType, result)
	return result
}

func (e *Engine) resolveCursor(ctx context.Context, deviceID, entityType string, reg Registration) (time.Time, int, error) {
	if reg.FullSnapshot {
		return time.Time{}, 0, nil
	}

	cp, err := e.Checkpoints.Get(ctx, deviceID, entityType)
	if err != nil {
		return time.Time{}, 0, err
	}
	if cp == nil {
		window := e.Config.Sync.DefaultWindowFor(entityType)
		since := time.Now().UTC().Add(-window)
		floor := time.Now().UTC().Add(-e.Config.Sync.MaxReplayHorizon())
		if since.Before(floor) {
			since = floor
		}
		return since, 0, nil
	}

	afterID := 0
	if cp.LastRecordID != nil {
		afterID = *cp.LastRecordID
	}
	return cp.LastSyncTime, afterID, nil
}

func (e *Engine) runIncremental(ctx context.Context, deviceID, entityType string, reg Registration, since time.Time, afterID int, runID string) (Result, error) {
	result := Result{RunID: runID, DeviceID: deviceID, EntityType: entityType, LastSyncTime: since}
	batchSize := e.Config.Sync.BatchSizeFor(entityType)
	delay := e.Config.Sync.InterBatchDelayFor(entityType)

	live, err := reg.Extractor.LiveIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("live ids: %w", err)
	}
	present, err := e.Target.PresentIDs(ctx, reg.Collection)
	if err != nil {
		return result, fmt.Errorf("present ids: %w", err)
	}

	toDelete := make(map[int]bool)
	for id := range present {
		if !live[id] {
			toDelete[id] = true
		}
	}
	if lister, ok := reg.Extractor.(extract.SoftDeleteLister); ok {
		softIDs, err := lister.SoftDeletedSince(ctx, since)
		if err != nil {
			return result, fmt.Errorf("soft deleted ids: %w", err)
		}
		for _, id := range softIDs {
			toDelete[id] = true
		}
	}
	if len(toDelete) > 0 {
		ids := make([]int, 0, len(toDelete))
		for id := range toDelete {
			ids = append(ids, id)
		}
		// Reconciliation runs BEFORE inserts so a row deleted and
		// re-created with the same id ends up present, not absent.
		if err := e.Target.DeleteByIDs(ctx, reg.Collection, ids); err != nil {
			return result, fmt.Errorf("delete by ids: %w", err)
		}
		result.RecordsDeleted = len(ids)
		metrics.RecordsDeleted.WithLabelValues(entityType).Add(float64(len(ids)))
	}

	cursorSince, cursorAfterID := since, afterID
	for {
		page, err := reg.Extractor.ChangedPage(ctx, cursorSince, cursorAfterID, batchSize)
		if err != nil {
			return result, fmt.Errorf("changed page: %w", err)
		}
		if len(page) == 0 {
			break
		}

		docs := toTargetDocs(page, time.Now().UTC())

		upsertResult, err := e.Target.UpsertBatch(ctx, reg.Collection, docs)
		if err != nil {
			// Upsert batch failed entirely: checkpoint is NOT advanced
			// past cursorSince/cursorAfterID; replay on the next pass is
			// safe because upserts are idempotent by _id.
			return result, fmt.Errorf("upsert batch: %w", err)
		}

		result.RecordsSynced += upsertResult.Inserted + upsertResult.Modified
		result.PoisonRows += upsertResult.Failed
		for _, rowErr := range upsertResult.Errors {
			metrics.PoisonRows.WithLabelValues(entityType).Inc()
			e.Ring.Warning("[%s] row %d skipped: %v", entityType, rowErr.ID, rowErr.Err)
		}
		metrics.RecordsSynced.WithLabelValues(entityType).Add(float64(upsertResult.Inserted + upsertResult.Modified))

		last := page[len(page)-1]
		if !reg.FullSnapshot && !last.Marker.IsZero() {
			cursorSince = last.Marker
		}
		cursorAfterID = last.ID

		var lastRecordID = cursorAfterID
		if _, err := e.Checkpoints.Upsert(ctx, deviceID, entityType, cursorSince, &lastRecordID, nil); err != nil {
			return result, fmt.Errorf("advance checkpoint: %w", err)
		}

		if len(page) < batchSize {
			break
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
	}

	if reg.FullSnapshot {
		// No per-row marker exists to advance checkpoint by; touch it
		// with "now" so UpdatedAt still reflects the last completed
		// full-snapshot pass even when no rows changed.
		now := time.Now().UTC()
		if _, err := e.Checkpoints.Upsert(ctx, deviceID, entityType, now, nil, nil); err != nil {
			return result, fmt.Errorf("touch checkpoint: %w", err)
		}
		result.LastSyncTime = now
	} else if result.RecordsSynced == 0 && result.RecordsDeleted == 0 {
		// Nothing changed this pass: still touch UpdatedAt without
		// regressing LastSyncTime.
		cp, err := e.Checkpoints.Upsert(ctx, deviceID, entityType, since, nil, nil)
		if err != nil {
			return result, fmt.Errorf("touch checkpoint: %w", err)
		}
		result.LastSyncTime = cp.LastSyncTime
	} else {
		result.LastSyncTime = cursorSince
	}

	return result, nil
}

// toTargetDocs converts a page of extracted rows into target.Doc,
// stamping SyncedAt to the time of the write rather than whatever the
// extractor happened to leave it as. Bodies that don't implement
// model.SyncStamped are written through unchanged.
func toTargetDocs(page []extract.Doc, syncedAt time.Time) []target.Doc {
	docs := make([]target.Doc, 0, len(page))
	for _, d := range page {
		body := d.Body
		if stamped, ok := body.(model.SyncStamped); ok {
			body = stamped.SetSyncedAt(syncedAt)
		}
		docs = append(docs, target.Doc{ID: d.ID, Body: body})
	}
	return docs
}

func (e *Engine) fail(deviceID, entityType, runID string, start time.Time, lastSyncTime time.Time, err error) Result {
	metrics.PassFailures.WithLabelValues(entityType).Inc()
	e.Ring.Error("[%s] pass %s failed for %s: %v", entityType, runID, deviceID, err)
	result := Result{
		RunID: runID, DeviceID: deviceID, EntityType: entityType,
		Elapsed: time.Since(start), Success: false, ErrorMessage: err.Error(), LastSyncTime: lastSyncTime,
	}
	e.writeSyncLog(context.Background(), deviceID, entityType, result)
	return result
}

func (e *Engine) writeSyncLog(ctx context.Context, deviceID, entityType string, result Result) {
	log := model.SyncLog{
		DeviceID:      deviceID,
		EntityType:    entityType,
		LastSyncTime:  result.LastSyncTime.Format(time.RFC3339),
		IsSuccess:     result.Success,
		RecordsSynced: result.RecordsSynced,
		ErrorMessage:  result.ErrorMessage,
	}
	if err := e.Target.InsertLog(ctx, log); err != nil {
		e.Log.Error().Err(err).Str("entity", entityType).Str("device", deviceID).Msg("failed to write sync log")
	}
}
