package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/replica-sync/model"
)

// weekWindow is the chunk size the bulk backfill walks history in. Large
// enough to keep the number of checkpoint writes modest, small enough
// that one window's ChangedPage pagination stays a handful of pages even
// on a busy store.
const weekWindow = 7 * 24 * time.Hour

// BackfillRange discovers the oldest and newest transaction dates so the
// backfill knows where to start and when to stop.
type BackfillRange interface {
	TransactionDateBounds(ctx context.Context) (min, max time.Time, err error)
}

// RunTransactionBackfill walks the full transaction history in weekly
// windows, oldest first, writing a "ProcessedDate:YYYY-MM-DD" checkpoint
// payload after each window as a record of progress. It never reads that
// checkpoint back: every run starts again from the oldest transaction
// date. On reaching the newest window it
// writes the model.PayloadCompleted sentinel as a durable record that a
// backfill finished; it does not itself change how the incremental pass
// behaves. The incremental pass already resumes correctly on its own once
// the backfill has advanced LastSyncTime to maxDate -- resolveCursor never
// inspects Payload, it only reads LastSyncTime/LastRecordID.
func (e *Engine) RunTransactionBackfill(ctx context.Context, deviceID string, ranger BackfillRange) (Result, error) {
	const entityType = "transactions"
	start := time.Now()
	runID := uuid.NewString()

	reg, ok := e.registrations[entityType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entityType)
	}

	minDate, maxDate, err := ranger.TransactionDateBounds(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("backfill: date bounds: %w", err)
	}
	if minDate.IsZero() || maxDate.IsZero() || !minDate.Before(maxDate) {
		// Nothing to backfill: no rows, or a single-instant range.
		return Result{RunID: runID, DeviceID: deviceID, EntityType: entityType, Success: true}, nil
	}

	windowStart := minDate
	total := Result{RunID: runID, DeviceID: deviceID, EntityType: entityType}
	batchSize := e.Config.Sync.BatchSizeFor(entityType)
	delay := e.Config.Sync.InterBatchDelayFor(entityType)

	for windowStart.Before(maxDate) {
		windowEnd := windowStart.Add(weekWindow)
		if windowEnd.After(maxDate) {
			windowEnd = maxDate
		}

		synced, poison, err := e.drainWindow(ctx, reg, windowStart, windowEnd, windowEnd.Equal(maxDate), batchSize, delay)
		if err != nil {
			total.Success = false
			total.ErrorMessage = err.Error()
			total.Elapsed = time.Since(start)
			e.Ring.Error("[transactions] backfill window starting %s failed: %v", windowStart.Format(time.RFC3339), err)
			return total, err
		}
		total.RecordsSynced += synced
		total.PoisonRows += poison

		payload := fmt.Sprintf("ProcessedDate:%s", windowEnd.Format("2006-01-02"))
		if _, err := e.Checkpoints.Upsert(ctx, deviceID, entityType, windowEnd, nil, &payload); err != nil {
			return total, fmt.Errorf("backfill: checkpoint window %s: %w", payload, err)
		}
		e.Ring.Info("[transactions] backfill window through %s: %d synced so far", windowEnd.Format("2006-01-02"), total.RecordsSynced)

		windowStart = windowEnd
	}

	completed := model.PayloadCompleted
	if _, err := e.Checkpoints.Upsert(ctx, deviceID, entityType, maxDate, nil, &completed); err != nil {
		return total, fmt.Errorf("backfill: mark completed: %w", err)
	}

	total.Success = true
	total.LastSyncTime = maxDate
	total.Elapsed = time.Since(start)
	e.Ring.Success("[transactions] backfill complete: %d records across %s", total.RecordsSynced, deviceID)
	return total, nil
}

// drainWindow pages through every transaction whose marker falls within
// [windowStart, windowEnd) -- [windowStart, windowEnd] when lastWindow is
// set, so rows at the newest date are included -- and upserts them,
// independent of the incremental pass's own cursor -- the backfill owns
// history, the incremental pass owns the present.
func (e *Engine) drainWindow(ctx context.Context, reg Registration, windowStart, windowEnd time.Time, lastWindow bool, batchSize int, delay time.Duration) (synced, poison int, err error) {
	afterID := 0
	since := windowStart
	for {
		page, err := reg.Extractor.ChangedPage(ctx, since, afterID, batchSize)
		if err != nil {
			return synced, poison, fmt.Errorf("changed page: %w", err)
		}
		full := len(page) == batchSize
		n := 0
		for n < len(page) && (page[n].Marker.Before(windowEnd) || (lastWindow && page[n].Marker.Equal(windowEnd))) {
			n++
		}
		pastEnd := n < len(page)
		page = page[:n]
		if len(page) == 0 {
			return synced, poison, nil
		}

		docs := toTargetDocs(page, time.Now().UTC())
		result, err := e.Target.UpsertBatch(ctx, reg.Collection, docs)
		if err != nil {
			return synced, poison, fmt.Errorf("upsert batch: %w", err)
		}
		synced += result.Inserted + result.Modified
		poison += result.Failed

		last := page[len(page)-1]
		since, afterID = last.Marker, last.ID

		if pastEnd || !full {
			return synced, poison, nil
		}
		select {
		case <-ctx.Done():
			return synced, poison, ctx.Err()
		case <-time.After(delay):
		}
	}
}
