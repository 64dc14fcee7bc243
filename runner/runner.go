package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/lucsky/cuid"
	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/model"
	"golang.org/x/sync/errgroup"
)

// ErrBatchStopped is the outcome of items that never started because an
// earlier item failed.
var ErrBatchStopped = errors.New("not started: an earlier item failed")

type Publisher interface {
	Publish(ctx context.Context, req model.PublishRequest) (*model.PublishResult, error)
}

type Ledger interface {
	AddPublish(ctx context.Context, record model.PublishRecord) error
	FindPublishesForSource(ctx context.Context, sourceURL string) ([]model.PublishRecord, error)
}

type Options struct {
	// Keep going after an item fails instead of skipping the items not yet started
	ContinueOnError bool
	// Publish even if the ledger says the source was published before
	Force bool
	// Items published at the same time
	Concurrency int
}

// Outcome is what happened to one item of a batch.
type Outcome struct {
	Request model.PublishRequest
	Result  *model.PublishResult
	Err     error
	Skipped bool
}

type Runner struct {
	publisher       Publisher
	ledger          Ledger
	testModeEnabled bool
}

// NewRunner wraps a Publisher. ledger may be nil, which disables duplicate
// checks and recording.
func NewRunner(publisher Publisher, ledger Ledger, isTestMode bool) *Runner {
	return &Runner{
		publisher:       publisher,
		ledger:          ledger,
		testModeEnabled: isTestMode,
	}
}

// Run publishes every request and returns one Outcome per request, in order.
// The error is non-nil when any item failed. A failure never cancels items
// already in flight; without ContinueOnError it only keeps the remaining
// items from starting.
func (r *Runner) Run(ctx context.Context, reqs []model.PublishRequest, opts Options) ([]Outcome, error) {
	outcomes := make([]Outcome, len(reqs))
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var stopped atomic.Bool
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if stopped.Load() {
				outcomes[i] = Outcome{Request: req, Err: ErrBatchStopped, Skipped: true}
				return nil
			}
			outcomes[i] = r.Publish(ctx, req, opts.Force)
			if outcomes[i].Err != nil && !opts.ContinueOnError {
				stopped.Store(true)
				return outcomes[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d items failed", failed, len(reqs))
	}
	return outcomes, nil
}

// Publish runs a single item through the duplicate check, the publisher (or
// the simulation in test mode) and the ledger.
func (r *Runner) Publish(ctx context.Context, req model.PublishRequest, force bool) Outcome {
	outcome := Outcome{Request: req}
	logger := log.WithField("kind", req.Kind).WithField("source", req.SourceURL)

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		outcome.Skipped = true
		return outcome
	}

	if r.ledger != nil && !force {
		previous, err := r.previousPublish(ctx, req.SourceURL)
		if err != nil {
			outcome.Err = fmt.Errorf("checking publish ledger: %w", err)
			return outcome
		}
		if previous != nil {
			logger.WithField("instagramMediaID", previous.Result.InstagramMediaID).WithField("finished", previous.Finished).Warn("source was already published, skipping (use --force to publish again)")
			outcome.Result = &previous.Result
			outcome.Skipped = true
			return outcome
		}
	}

	if r.testModeEnabled {
		outcome.Result = simulate(req)
		logger.WithField("caption", req.FormattedCaption()).Infof("Simulating publish with instagram media ID %s", outcome.Result.InstagramMediaID)
	} else {
		outcome.Result, outcome.Err = r.publisher.Publish(ctx, req)
	}

	if outcome.Err != nil {
		logger.Errorf("error publishing: %v", outcome.Err)
	} else {
		logger.WithField("instagramMediaID", outcome.Result.InstagramMediaID).WithField("facebookPostID", outcome.Result.FacebookPostID).Info("published")
	}

	if r.ledger != nil {
		record := model.NewPublishRecord(req, outcome.Result, outcome.Err, r.testModeEnabled)
		// The publish already happened, so a cancelled ctx must not lose the record
		if err := r.ledger.AddPublish(context.WithoutCancel(ctx), record); err != nil {
			logger.Warnf("publish finished with status %s but wasn't recorded in the database: %v", record.Status, err)
		}
	}
	return outcome
}

func (r *Runner) previousPublish(ctx context.Context, sourceURL string) (*model.PublishRecord, error) {
	records, err := r.ledger.FindPublishesForSource(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Succeeded() {
			return &record, nil
		}
	}
	return nil, nil
}

func simulate(req model.PublishRequest) *model.PublishResult {
	mediaID := cuid.New()
	result := &model.PublishResult{
		InstagramMediaID:   mediaID,
		InstagramPermalink: fmt.Sprintf("https://www.instagram.com/p/%s/", mediaID),
	}
	assetID := cuid.New()
	if req.Kind == model.MediaKindVideo {
		result.FacebookVideoID = assetID
		result.FacebookPostID = fmt.Sprintf("%s_%s", req.PageID, assetID)
	} else {
		result.FacebookPhotoID = assetID
		result.FacebookPostID = fmt.Sprintf("%s_%s", req.PageID, cuid.New())
	}
	return result
}
