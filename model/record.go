package model

import (
	"time"

	"github.com/truemediaorg/crosspublisher/database/db"
)

// PublishRecord is one finished publish as kept in the ledger.
type PublishRecord struct {
	ID        string
	Kind      MediaKind
	SourceURL string
	Caption   string
	Status    db.PublishStatus
	Result    PublishResult
	Error     string
	Finished  time.Time
}

func (r PublishRecord) Succeeded() bool {
	return r.Status == db.PublishStatusSucceeded
}

// NewPublishRecord describes the outcome of publishing req.
func NewPublishRecord(req PublishRequest, result *PublishResult, err error, simulated bool) PublishRecord {
	record := PublishRecord{
		Kind:      req.Kind,
		SourceURL: req.SourceURL,
		Caption:   req.FormattedCaption(),
		Status:    db.PublishStatusSucceeded,
		Finished:  time.Now().UTC(),
	}
	if result != nil {
		record.Result = *result
	}
	switch {
	case err != nil:
		record.Status = db.PublishStatusFailed
		record.Error = err.Error()
	case simulated:
		record.Status = db.PublishStatusSimulated
	}
	return record
}

func PublishRecordFromPublishLog(pl db.PublishLog) (*PublishRecord, error) {
	kind, err := ParseMediaKind(pl.Kind)
	if err != nil {
		return nil, err
	}
	record := &PublishRecord{
		ID:        pl.ID,
		Kind:      kind,
		SourceURL: pl.SourceURL,
		Caption:   pl.Caption,
		Status:    pl.Status,
		Result: PublishResult{
			InstagramMediaID:   deref(pl.InstagramMediaID),
			InstagramPermalink: deref(pl.InstagramPermalink),
			FacebookPostID:     deref(pl.FacebookPostID),
		},
		Error:    deref(pl.Error),
		Finished: pl.Finished,
	}
	// One asset column covers both photo and video ids
	if kind == MediaKindVideo {
		record.Result.FacebookVideoID = deref(pl.FacebookAssetID)
	} else {
		record.Result.FacebookPhotoID = deref(pl.FacebookAssetID)
	}
	return record, nil
}

// FacebookAssetID is the photo or video id, whichever the kind produced.
func (r PublishRecord) FacebookAssetID() string {
	if r.Result.FacebookVideoID != "" {
		return r.Result.FacebookVideoID
	}
	return r.Result.FacebookPhotoID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
