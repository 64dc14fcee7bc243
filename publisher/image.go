package publisher

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/graph"
	"github.com/truemediaorg/crosspublisher/model"
)

/*
PublishImage posts an image to Instagram and the Facebook Page feed.

If Instagram rejects the source URL because of its format, the image is
converted and uploaded to Facebook as an unpublished photo, and Instagram is
pointed at Facebook's copy instead. Either way the feed post attaches an
unpublished Facebook photo. Nothing is rolled back on failure: at worst an
unpublished photo is left behind.
*/
func (p *Publisher) PublishImage(ctx context.Context, req model.PublishRequest) (*model.PublishResult, error) {
	caption := req.FormattedCaption()
	logger := log.WithField("kind", req.Kind).WithField("source", req.SourceURL)

	created, err := p.graph.CreateContainer(ctx, graph.ContainerParams{
		IGUserID: req.IGUserID,
		ImageURL: req.SourceURL,
		Caption:  caption,
	})
	if err != nil {
		return nil, fmt.Errorf("creating image container: %w", err)
	}

	containerID := created.ID
	var photoID string
	if !created.OK() {
		if !created.UnsupportedFormat() {
			return nil, fmt.Errorf("creating image container: %w", created.Err())
		}
		logger.Warn("instagram rejected the image format, converting")
		photoID, containerID, err = p.createConvertedContainer(ctx, req, caption)
		if err != nil {
			return nil, err
		}
	}
	logger = logger.WithField("containerID", containerID)

	mediaID, err := p.PublishContainer(ctx, req.IGUserID, containerID)
	if err != nil {
		return nil, err
	}

	if photoID == "" {
		photoID, err = p.graph.UploadPhoto(ctx, graph.PhotoUpload{
			PageID:    req.PageID,
			URL:       req.SourceURL,
			Published: false,
		})
		if err != nil {
			return nil, fmt.Errorf("uploading facebook photo: %w", err)
		}
	}

	postID, err := p.graph.CreateFeedPost(ctx, req.PageID, caption, photoID)
	if err != nil {
		return nil, fmt.Errorf("creating facebook post: %w", err)
	}

	permalink, err := p.graph.Permalink(ctx, mediaID)
	if err != nil {
		return nil, fmt.Errorf("fetching instagram permalink: %w", err)
	}

	logger.WithField("mediaID", mediaID).WithField("postID", postID).Info("published image")
	return &model.PublishResult{
		InstagramMediaID:   mediaID,
		InstagramPermalink: permalink,
		FacebookPostID:     postID,
		FacebookPhotoID:    photoID,
	}, nil
}

// createConvertedContainer re-hosts a converted copy on Facebook and creates
// the container from Facebook's URL. A second rejection is final.
func (p *Publisher) createConvertedContainer(ctx context.Context, req model.PublishRequest, caption string) (photoID string, containerID string, err error) {
	source, err := p.downloader.Download(ctx, req.SourceURL)
	if err != nil {
		return "", "", fmt.Errorf("downloading image for conversion: %w", err)
	}
	converted, err := p.transcoder.TranscodeImage(ctx, source, req.Image)
	if err != nil {
		return "", "", fmt.Errorf("converting image: %w", err)
	}

	photoID, err = p.graph.UploadPhoto(ctx, graph.PhotoUpload{
		PageID:    req.PageID,
		Data:      converted,
		FileName:  "converted." + imageExtension(req.Image.Format),
		Published: false,
	})
	if err != nil {
		return "", "", fmt.Errorf("uploading converted image: %w", err)
	}
	hostedURL, err := p.graph.PhotoURL(ctx, photoID)
	if err != nil {
		return "", "", fmt.Errorf("reading converted image URL: %w", err)
	}

	created, err := p.graph.CreateContainer(ctx, graph.ContainerParams{
		IGUserID: req.IGUserID,
		ImageURL: hostedURL,
		Caption:  caption,
	})
	if err != nil {
		return "", "", fmt.Errorf("creating image container from converted copy: %w", err)
	}
	if !created.OK() {
		return "", "", fmt.Errorf("creating image container from converted copy: %w", created.Err())
	}
	log.WithField("photoID", photoID).WithField("containerID", created.ID).Info("created container from converted image")
	return photoID, created.ID, nil
}

func imageExtension(format string) string {
	switch format {
	case "png", "webp":
		return format
	default:
		return "jpg"
	}
}
