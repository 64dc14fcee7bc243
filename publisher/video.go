package publisher

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/graph"
	"github.com/truemediaorg/crosspublisher/model"
	"golang.org/x/sync/errgroup"
)

/*
PublishVideo posts a video as an Instagram reel and a Facebook Page video.

The source is always transcoded. The result is served at a temporary URL for
Instagram's fetcher while the same bytes are uploaded to Facebook in the
background. If the Instagram side fails, the Facebook video is deleted again
once its upload finishes. The upload's own error is ignored during that
cleanup but returned on the success path.
*/
func (p *Publisher) PublishVideo(ctx context.Context, req model.PublishRequest) (*model.PublishResult, error) {
	caption := req.FormattedCaption()
	logger := log.WithField("kind", req.Kind).WithField("source", req.SourceURL)

	source, err := p.downloader.Download(ctx, req.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("downloading video: %w", err)
	}
	encoded, err := p.transcoder.TranscodeVideo(ctx, source, req.Video)
	if err != nil {
		return nil, fmt.Errorf("transcoding video: %w", err)
	}

	served, err := p.host.Serve(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("serving transcoded video: %w", err)
	}
	defer func() {
		if err := served.Close(); err != nil {
			logger.Warnf("error releasing served video: %v", err)
		}
	}()

	var upload errgroup.Group
	var videoID string
	upload.Go(func() error {
		id, err := p.graph.UploadVideo(ctx, graph.VideoUpload{
			PageID:      req.PageID,
			Data:        encoded,
			Description: caption,
			Published:   true,
		})
		videoID = id
		return err
	})

	mediaID, err := p.publishReel(ctx, req, served.URL, caption)
	if err != nil {
		p.compensate(ctx, &upload, &videoID)
		return nil, explainCarousel(err)
	}

	if err := upload.Wait(); err != nil {
		return nil, fmt.Errorf("instagram media %s was published but the facebook video upload failed: %w", mediaID, err)
	}

	permalink, err := p.graph.Permalink(ctx, mediaID)
	if err != nil {
		return nil, fmt.Errorf("fetching instagram permalink: %w", err)
	}

	logger.WithField("mediaID", mediaID).WithField("videoID", videoID).Info("published video")
	return &model.PublishResult{
		InstagramMediaID:   mediaID,
		InstagramPermalink: permalink,
		FacebookPostID:     fmt.Sprintf("%s_%s", req.PageID, videoID),
		FacebookVideoID:    videoID,
	}, nil
}

func (p *Publisher) publishReel(ctx context.Context, req model.PublishRequest, videoURL string, caption string) (string, error) {
	created, err := p.graph.CreateContainer(ctx, graph.ContainerParams{
		IGUserID:    req.IGUserID,
		VideoURL:    videoURL,
		MediaType:   graph.MediaTypeReels,
		Caption:     caption,
		ShareToFeed: true,
	})
	if err != nil {
		return "", fmt.Errorf("creating reel container: %w", err)
	}
	if !created.OK() {
		return "", fmt.Errorf("creating reel container: %w", created.Err())
	}

	if err := p.waitForContainer(ctx, created.ID); err != nil {
		return "", err
	}
	return p.PublishContainer(ctx, req.IGUserID, created.ID)
}

// waitForContainer checks the container every PollInterval, at most MaxPolls
// times. Failed status lookups count as a check and polling continues.
func (p *Publisher) waitForContainer(ctx context.Context, containerID string) error {
	logger := log.WithField("containerID", containerID)
	var lastErr error
	for poll := 1; poll <= p.MaxPolls; poll++ {
		if err := p.sleep(ctx, p.PollInterval); err != nil {
			return err
		}

		status, err := p.graph.ContainerStatus(ctx, containerID)
		if err != nil {
			lastErr = err
			logger.WithField("poll", poll).Warnf("error checking container status: %v", err)
			continue
		}
		logger.WithField("poll", poll).WithField("status", status.Code).Debug("container status")

		switch status.Code {
		case graph.ContainerStatusFinished:
			return nil
		case graph.ContainerStatusError, graph.ContainerStatusExpired:
			return &ProcessingError{ContainerID: containerID, Status: status.Code, Detail: status.Detail}
		case graph.ContainerStatusPublished:
			return fmt.Errorf("container %s was already published", containerID)
		}
	}

	err := fmt.Errorf("%w: container %s not finished after %d checks", ErrProcessingTimeout, containerID, p.MaxPolls)
	if lastErr != nil {
		err = fmt.Errorf("%w (last status error: %v)", err, lastErr)
	}
	return err
}

// compensate waits for the background upload and deletes the Facebook video
// it produced, if any. Nothing here is allowed to replace the caller's error.
func (p *Publisher) compensate(ctx context.Context, upload *errgroup.Group, videoID *string) {
	if err := upload.Wait(); err != nil {
		log.Debugf("ignoring facebook upload error during rollback: %v", err)
	}
	if *videoID == "" {
		return
	}

	logger := log.WithField("videoID", *videoID)
	if err := p.graph.Delete(context.WithoutCancel(ctx), *videoID); err != nil {
		logger.Errorf("facebook video left behind after instagram failure: %v", err)
		return
	}
	logger.Warn("deleted facebook video after instagram failure")
}
