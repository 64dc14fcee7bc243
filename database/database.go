package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucsky/cuid"
	"github.com/truemediaorg/crosspublisher/database/db"
	"github.com/truemediaorg/crosspublisher/model"
)

type Database struct {
	connString string
	pool       *pgxpool.Pool
}

func NewDatabase(connString string) *Database {
	return &Database{
		connString: connString,
	}
}

func (d *Database) Connect(ctx context.Context) error {
	var err error
	d.pool, err = pgxpool.New(ctx, d.connString)
	if err != nil {
		return err
	}
	return nil
}

func (d *Database) Disconnect() {
	d.pool.Close()
}

// EnsureSchema creates the publish_log table if it doesn't exist yet.
func (d *Database) EnsureSchema(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS publish_log (
		id                  TEXT PRIMARY KEY,
		kind                TEXT NOT NULL,
		source_url          TEXT NOT NULL,
		caption             TEXT NOT NULL,
		status              TEXT NOT NULL,
		instagram_media_id  TEXT,
		instagram_permalink TEXT,
		facebook_post_id    TEXT,
		facebook_asset_id   TEXT,
		error               TEXT,
		finished            TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx, `
	CREATE INDEX IF NOT EXISTS publish_log_source_url_idx ON publish_log (source_url)`)
	return err
}

func (d *Database) AddPublish(ctx context.Context, record model.PublishRecord) error {
	// don't really care about the result, as long as this succeeds
	_, err := d.pool.Exec(ctx, `
	INSERT INTO publish_log (
		id, kind, source_url, caption, status,
		instagram_media_id, instagram_permalink, facebook_post_id, facebook_asset_id,
		error, finished
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		cuid.New(),
		record.Kind,
		record.SourceURL,
		record.Caption,
		record.Status,
		nullable(record.Result.InstagramMediaID),
		nullable(record.Result.InstagramPermalink),
		nullable(record.Result.FacebookPostID),
		nullable(record.FacebookAssetID()),
		nullable(record.Error),
		record.Finished.UTC(), // the DB stores timezones and assumes UTC
	)
	if err != nil {
		return err
	}
	return nil
}

// FindPublishesForSource returns every ledger entry for a source URL, newest first.
func (d *Database) FindPublishesForSource(ctx context.Context, sourceURL string) ([]model.PublishRecord, error) {
	var records []model.PublishRecord
	var raws []db.PublishLog
	rows, err := d.pool.Query(ctx, `
	SELECT
		id,
		kind,
		source_url,
		caption,
		status,
		instagram_media_id,
		instagram_permalink,
		facebook_post_id,
		facebook_asset_id,
		error,
		finished
	FROM publish_log
	WHERE source_url = $1
	ORDER BY finished DESC`,
		sourceURL,
	)
	if err != nil {
		return nil, err
	}

	raws, err = pgx.CollectRows(rows, pgx.RowToStructByName[db.PublishLog])
	if err != nil {
		return nil, err
	}

	for _, raw := range raws {
		record, err := model.PublishRecordFromPublishLog(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
