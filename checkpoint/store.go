/*
Package checkpoint implements the durable per-(device,entity) cursor
store. It is backed by a table in the relational source itself
(SyncCheckpoints, see source/sqlrepo) so that checkpoint writes are
transactional with reads of the source.

CONCURRENCY:
  The Sync Engine is single-writer per (device, entity) pair (the
  Scheduler's single-flight rule forbids concurrent passes for the same
  pair), but the store itself still guards every write with a
  transaction plus an in-process sync.Mutex held for the whole of each
  Upsert (Get takes no lock). A losing concurrent Upsert never regresses
  LastSyncTime:
  the new value is only written if it is greater than or equal to what
  is already there.
*/
package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

// Store is the Checkpoint Store contract.
type Store interface {
	// Get returns the checkpoint for (deviceID, entityType), or
	// (nil, nil) if absent. On a store failure it returns a nil
	// checkpoint together with the error, so callers can tell "absent"
	// from "unreadable"; the Sync Engine fails the pass in that case.
	Get(ctx context.Context, deviceID, entityType string) (*model.Checkpoint, error)

	// Upsert creates the checkpoint if absent, otherwise updates the
	// provided fields and always bumps UpdatedAt. lastRecordID and
	// payload are optional; passing nil leaves the existing value
	// untouched on update.
	Upsert(ctx context.Context, deviceID, entityType string, lastSyncTime time.Time, lastRecordID *int, payload *string) (*model.Checkpoint, error)
}

type sqlStore struct {
	db *sql.DB
	mu sync.Mutex
}

// New wraps an existing relational-source connection. The caller is
// responsible for running sqlrepo.Migrate beforehand.
func New(db *sql.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Get(ctx context.Context, deviceID, entityType string) (*model.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT Id, DeviceId, EntityType, LastSyncTime, LastRecordId, LastDeleteCheck, CheckpointData, CreatedAt, UpdatedAt
		FROM SyncCheckpoints WHERE DeviceId = ? AND EntityType = ?`, deviceID, entityType)

	var (
		cp                          model.Checkpoint
		lastSyncTime                string
		lastRecordID, lastDeleteChk sql.NullString
		payload                     sql.NullString
		createdAt, updatedAt        string
	)
	if err := row.Scan(&cp.ID, &cp.DeviceID, &cp.EntityType, &lastSyncTime, &lastRecordID, &lastDeleteChk, &payload, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: get %s/%s: %w", deviceID, entityType, err)
	}

	var err error
	if cp.LastSyncTime, err = sqlrepo.ParseTime(lastSyncTime); err != nil {
		return nil, fmt.Errorf("checkpoint: parse LastSyncTime: %w", err)
	}
	if lastRecordID.Valid {
		n := atoiOrZero(lastRecordID.String)
		cp.LastRecordID = &n
	}
	if lastDeleteChk.Valid {
		t, err := sqlrepo.ParseTime(lastDeleteChk.String)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: parse LastDeleteCheck: %w", err)
		}
		cp.LastDeleteCheck = &t
	}
	cp.Payload = payload.String
	if cp.CreatedAt, err = sqlrepo.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("checkpoint: parse CreatedAt: %w", err)
	}
	if cp.UpdatedAt, err = sqlrepo.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("checkpoint: parse UpdatedAt: %w", err)
	}
	return &cp, nil
}

func (s *sqlStore) Upsert(ctx context.Context, deviceID, entityType string, lastSyncTime time.Time, lastRecordID *int, payload *string) (*model.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var existingID int64
	var existingLastSync, existingPayload string
	err = tx.QueryRowContext(ctx, `
		SELECT Id, LastSyncTime, CheckpointData FROM SyncCheckpoints
		WHERE DeviceId = ? AND EntityType = ?`, deviceID, entityType).
		Scan(&existingID, &existingLastSync, &existingPayload)

	switch {
	case err == sql.ErrNoRows:
		p := ""
		if payload != nil {
			p = *payload
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO SyncCheckpoints (DeviceId, EntityType, LastSyncTime, LastRecordId, CheckpointData, CreatedAt, UpdatedAt)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			deviceID, entityType, sqlrepo.FormatTime(lastSyncTime), nullableInt(lastRecordID), p, sqlrepo.FormatTime(now), sqlrepo.FormatTime(now))
		if err != nil {
			return nil, fmt.Errorf("checkpoint: insert: %w", err)
		}
		id, _ := res.LastInsertId()
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("checkpoint: commit insert: %w", err)
		}
		return &model.Checkpoint{
			ID: id, DeviceID: deviceID, EntityType: entityType,
			LastSyncTime: lastSyncTime, LastRecordID: lastRecordID, Payload: p,
			CreatedAt: now, UpdatedAt: now,
		}, nil

	case err != nil:
		return nil, fmt.Errorf("checkpoint: select for update: %w", err)
	}

	existing, perr := sqlrepo.ParseTime(existingLastSync)
	if perr != nil {
		return nil, fmt.Errorf("checkpoint: parse existing LastSyncTime: %w", perr)
	}

	// Never regress LastSyncTime: a losing concurrent upsert (or a caller
	// merely touching UpdatedAt with no new rows) must not overwrite a
	// larger value already persisted.
	newLastSync := existing
	if lastSyncTime.After(existing) {
		newLastSync = lastSyncTime
	}

	newPayload := existingPayload
	if payload != nil {
		newPayload = *payload
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE SyncCheckpoints
		SET LastSyncTime = ?, LastRecordId = COALESCE(?, LastRecordId), CheckpointData = ?, UpdatedAt = ?
		WHERE Id = ?`,
		sqlrepo.FormatTime(newLastSync), nullableInt(lastRecordID), newPayload, sqlrepo.FormatTime(now), existingID); err != nil {
		return nil, fmt.Errorf("checkpoint: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("checkpoint: commit update: %w", err)
	}

	return &model.Checkpoint{
		ID: existingID, DeviceID: deviceID, EntityType: entityType,
		LastSyncTime: newLastSync, LastRecordID: lastRecordID, Payload: newPayload,
		UpdatedAt: now,
	}, nil
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func atoiOrZero(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
