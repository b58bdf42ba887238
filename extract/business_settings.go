package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/replica-sync/model"
	"github.com/warp/replica-sync/source/sqlrepo"
)

// BusinessSettings has no soft-delete marker and is filtered by
// LastModified > since. It has no batch size of its own in the default
// config; ChangedPage still applies LIMIT batchSize, so the engine pages
// through it with the default batch size like any other entity.
type BusinessSettings struct {
	DB *sql.DB
}

func (BusinessSettings) Entity() string { return "business_settings" }

func (b BusinessSettings) ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error) {
	s := sqlrepo.FormatTime(since)
	rows, err := b.DB.QueryContext(ctx, `
		SELECT Id, Key, Value, Description, "Group", DataType, IsSystem, LastModified, ModifiedBy
		FROM BusinessSettings
		WHERE LastModified > ? OR (LastModified = ? AND Id > ?)
		ORDER BY LastModified ASC, Id ASC
		LIMIT ?`, s, s, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("extract business_settings: query: %w", err)
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var (
			id                                             int
			key, description, group, dataType, modifiedBy sql.NullString
			value                                          sql.NullString
			isSystem                                       bool
			lastModified                                   string
		)
		if err := rows.Scan(&id, &key, &value, &description, &group, &dataType, &isSystem, &lastModified, &modifiedBy); err != nil {
			return nil, fmt.Errorf("extract business_settings: scan: %w", err)
		}
		marker, err := sqlrepo.ParseTime(lastModified)
		if err != nil {
			return nil, fmt.Errorf("extract business_settings: parse LastModified: %w", err)
		}
		out = append(out, Doc{
			ID:     id,
			Marker: marker,
			Body: model.BusinessSetting{
				ID:           id,
				SettingID:    id,
				Key:          key.String,
				Value:        value.String,
				Description:  description.String,
				Group:        group.String,
				DataType:     dataType.String,
				IsSystem:     isSystem,
				LastModified: marker,
				ModifiedBy:   modifiedBy.String,
			},
		})
	}
	return out, rows.Err()
}

func (b BusinessSettings) LiveIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := b.DB.QueryContext(ctx, `SELECT Id FROM BusinessSettings`)
	if err != nil {
		return nil, fmt.Errorf("extract business_settings: live ids: %w", err)
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("extract business_settings: live ids scan: %w", err)
		}
		live[id] = true
	}
	return live, rows.Err()
}
