package db

import "time"

type PublishStatus string

const (
	PublishStatusSucceeded PublishStatus = "SUCCEEDED"
	PublishStatusFailed    PublishStatus = "FAILED"
	PublishStatusSimulated PublishStatus = "SIMULATED"
)

type PublishLog struct {
	ID                 string        `db:"id"`
	Kind               string        `db:"kind"`
	SourceURL          string        `db:"source_url"`
	Caption            string        `db:"caption"`
	Status             PublishStatus `db:"status"`
	InstagramMediaID   *string       `db:"instagram_media_id"`
	InstagramPermalink *string       `db:"instagram_permalink"`
	FacebookPostID     *string       `db:"facebook_post_id"`
	FacebookAssetID    *string       `db:"facebook_asset_id"`
	Error              *string       `db:"error"`
	Finished           time.Time     `db:"finished"`
}
