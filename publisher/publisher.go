package publisher

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/fileserver"
	"github.com/truemediaorg/crosspublisher/graph"
	"github.com/truemediaorg/crosspublisher/model"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxPolls     = 30
)

// DefaultBackoff is the wait before each publish retry.
var DefaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second, 5 * time.Second}

type Graph interface {
	CreateContainer(ctx context.Context, params graph.ContainerParams) (*graph.Result, error)
	ContainerStatus(ctx context.Context, containerID string) (*graph.ContainerStatus, error)
	PublishContainer(ctx context.Context, igUserID string, containerID string) (*graph.Result, error)
	Permalink(ctx context.Context, mediaID string) (string, error)
	UploadPhoto(ctx context.Context, upload graph.PhotoUpload) (string, error)
	PhotoURL(ctx context.Context, photoID string) (string, error)
	CreateFeedPost(ctx context.Context, pageID string, message string, photoID string) (string, error)
	UploadVideo(ctx context.Context, upload graph.VideoUpload) (string, error)
	Delete(ctx context.Context, objectID string) error
}

type Transcoder interface {
	TranscodeImage(ctx context.Context, data []byte, profile model.ImageProfile) ([]byte, error)
	TranscodeVideo(ctx context.Context, data []byte, profile model.VideoProfile) ([]byte, error)
}

type Downloader interface {
	Download(ctx context.Context, sourceURL string) ([]byte, error)
}

type FileHost interface {
	Serve(ctx context.Context, data []byte) (*fileserver.ServedFile, error)
}

// Publisher posts one media item to Instagram and a Facebook Page. It holds no
// per-publish state, so one Publisher can serve concurrent publishes.
type Publisher struct {
	graph      Graph
	transcoder Transcoder
	downloader Downloader
	host       FileHost

	PollInterval time.Duration
	MaxPolls     int
	Backoff      []time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPublisher(graph Graph, transcoder Transcoder, downloader Downloader, host FileHost) *Publisher {
	return &Publisher{
		graph:        graph,
		transcoder:   transcoder,
		downloader:   downloader,
		host:         host,
		PollInterval: DefaultPollInterval,
		MaxPolls:     DefaultMaxPolls,
		Backoff:      DefaultBackoff,
		sleep:        sleepContext,
	}
}

// Publish validates the request and runs the flow for its media kind.
// Calling it again after a failure creates new remote containers and assets.
func (p *Publisher) Publish(ctx context.Context, req model.PublishRequest) (*model.PublishResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch req.Kind {
	case model.MediaKindImage:
		return p.PublishImage(ctx, req)
	case model.MediaKindVideo:
		return p.PublishVideo(ctx, req)
	default:
		return nil, fmt.Errorf("unknown media kind: %s", req.Kind)
	}
}

// PublishContainer publishes a container, retrying 5xx and transport failures
// with Backoff. 4xx responses fail straight away.
func (p *Publisher) PublishContainer(ctx context.Context, igUserID string, containerID string) (string, error) {
	logger := log.WithField("containerID", containerID)
	for attempt := 0; ; attempt++ {
		result, err := p.graph.PublishContainer(ctx, igUserID, containerID)
		var lastErr error
		switch {
		case err != nil:
			lastErr = err
		case result.OK():
			logger.WithField("mediaID", result.ID).WithField("attempt", attempt+1).Info("published container")
			return result.ID, nil
		case result.ClientError():
			return "", fmt.Errorf("publishing container %s: %w", containerID, result.Err())
		default:
			lastErr = result.Err()
		}

		if attempt >= len(p.Backoff) {
			return "", fmt.Errorf("publishing container %s failed after %d attempts: %w", containerID, attempt+1, lastErr)
		}
		delay := p.Backoff[attempt]
		logger.WithField("attempt", attempt+1).WithField("retryIn", delay).Warnf("publish not accepted yet: %v", lastErr)
		if err := p.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
