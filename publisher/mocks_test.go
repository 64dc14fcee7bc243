package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/truemediaorg/crosspublisher/fileserver"
	"github.com/truemediaorg/crosspublisher/graph"
	"github.com/truemediaorg/crosspublisher/model"
)

type MockGraph struct {
	mock.Mock
}

func (m *MockGraph) CreateContainer(ctx context.Context, params graph.ContainerParams) (*graph.Result, error) {
	args := m.Called(params)
	return args.Get(0).(*graph.Result), args.Error(1)
}

func (m *MockGraph) ContainerStatus(ctx context.Context, containerID string) (*graph.ContainerStatus, error) {
	args := m.Called(containerID)
	return args.Get(0).(*graph.ContainerStatus), args.Error(1)
}

func (m *MockGraph) PublishContainer(ctx context.Context, igUserID string, containerID string) (*graph.Result, error) {
	args := m.Called(igUserID, containerID)
	return args.Get(0).(*graph.Result), args.Error(1)
}

func (m *MockGraph) Permalink(ctx context.Context, mediaID string) (string, error) {
	args := m.Called(mediaID)
	return args.String(0), args.Error(1)
}

func (m *MockGraph) UploadPhoto(ctx context.Context, upload graph.PhotoUpload) (string, error) {
	args := m.Called(upload)
	return args.String(0), args.Error(1)
}

func (m *MockGraph) PhotoURL(ctx context.Context, photoID string) (string, error) {
	args := m.Called(photoID)
	return args.String(0), args.Error(1)
}

func (m *MockGraph) CreateFeedPost(ctx context.Context, pageID string, message string, photoID string) (string, error) {
	args := m.Called(pageID, message, photoID)
	return args.String(0), args.Error(1)
}

func (m *MockGraph) UploadVideo(ctx context.Context, upload graph.VideoUpload) (string, error) {
	args := m.Called(upload)
	return args.String(0), args.Error(1)
}

func (m *MockGraph) Delete(ctx context.Context, objectID string) error {
	args := m.Called(objectID)
	return args.Error(0)
}

type MockTranscoder struct {
	mock.Mock
}

func (m *MockTranscoder) TranscodeImage(ctx context.Context, data []byte, profile model.ImageProfile) ([]byte, error) {
	args := m.Called(data, profile)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTranscoder) TranscodeVideo(ctx context.Context, data []byte, profile model.VideoProfile) ([]byte, error) {
	args := m.Called(data, profile)
	return args.Get(0).([]byte), args.Error(1)
}

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) Download(ctx context.Context, sourceURL string) ([]byte, error) {
	args := m.Called(sourceURL)
	return args.Get(0).([]byte), args.Error(1)
}

// recordingHost hands out fake URLs and counts registrations and releases.
type recordingHost struct {
	mu         sync.Mutex
	registered int
	released   int
	served     [][]byte
}

func (h *recordingHost) Serve(ctx context.Context, data []byte) (*fileserver.ServedFile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registered++
	h.served = append(h.served, data)
	return fileserver.NewServedFile("https://pub.example.com/media/abc", func() error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.released++
		return nil
	}), nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

type fixture struct {
	graph      *MockGraph
	transcoder *MockTranscoder
	downloader *MockDownloader
	host       *recordingHost
	sleeps     *sleepRecorder
	publisher  *Publisher
}

func newFixture() *fixture {
	f := &fixture{
		graph:      new(MockGraph),
		transcoder: new(MockTranscoder),
		downloader: new(MockDownloader),
		host:       &recordingHost{},
		sleeps:     &sleepRecorder{},
	}
	f.publisher = NewPublisher(f.graph, f.transcoder, f.downloader, f.host)
	f.publisher.sleep = f.sleeps.sleep
	return f
}

func ok(id string) *graph.Result {
	return &graph.Result{StatusCode: 200, ID: id}
}

func failed(status int, apiErr *graph.APIError) *graph.Result {
	return &graph.Result{StatusCode: status, Error: apiErr}
}

func imageRequest() model.PublishRequest {
	return model.PublishRequest{
		Kind:       model.MediaKindImage,
		SourceURL:  "https://x/a.jpg",
		Caption:    "hi",
		HashSuffix: "\n\n#tag",
		PageID:     "1111",
		IGUserID:   "2222",
		APIVersion: "v21.0",
		Image:      model.ImageProfile{MaxWidth: 1080, MaxHeight: 1920, Format: "jpeg", Quality: 2},
	}
}

func videoRequest() model.PublishRequest {
	return model.PublishRequest{
		Kind:       model.MediaKindVideo,
		SourceURL:  "https://x/v.mov",
		Caption:    "clip",
		PageID:     "1111",
		IGUserID:   "2222",
		APIVersion: "v21.0",
		Video:      model.VideoProfile{MaxWidth: 1080, MaxHeight: 1920, Codec: "libx264", CRF: 23, FPS: 30},
	}
}
