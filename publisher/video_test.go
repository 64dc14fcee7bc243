package publisher

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/truemediaorg/crosspublisher/graph"
)

func reelParams() graph.ContainerParams {
	return graph.ContainerParams{
		IGUserID:    "2222",
		VideoURL:    "https://pub.example.com/media/abc",
		MediaType:   graph.MediaTypeReels,
		Caption:     "clip",
		ShareToFeed: true,
	}
}

func videoFixture() *fixture {
	f := newFixture()
	req := videoRequest()
	f.downloader.On("Download", req.SourceURL).Return([]byte("mov"), nil)
	f.transcoder.On("TranscodeVideo", []byte("mov"), req.Video).Return([]byte("mp4"), nil)
	return f
}

func status(code graph.ContainerStatusCode) *graph.ContainerStatus {
	return &graph.ContainerStatus{ID: "c-1", Code: code}
}

func TestPublishVideo(t *testing.T) {
	upload := graph.VideoUpload{PageID: "1111", Data: []byte("mp4"), Description: "clip", Published: true}

	t.Run("happy path", func(t *testing.T) {
		f := videoFixture()
		f.graph.On("UploadVideo", upload).Return("v-1", nil)
		f.graph.On("CreateContainer", reelParams()).Return(ok("c-1"), nil)
		f.graph.On("ContainerStatus", "c-1").Return(status(graph.ContainerStatusInProgress), nil).Twice()
		f.graph.On("ContainerStatus", "c-1").Return(status(graph.ContainerStatusFinished), nil).Once()
		f.graph.On("PublishContainer", "2222", "c-1").Return(ok("m-1"), nil)
		f.graph.On("Permalink", "m-1").Return("https://www.instagram.com/reel/abc/", nil)

		result, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		require.NoError(t, err)
		assert.Equal(t, "1111_v-1", result.FacebookPostID)
		assert.Equal(t, "v-1", result.FacebookVideoID)
		assert.Equal(t, "m-1", result.InstagramMediaID)
		assert.Equal(t, "https://www.instagram.com/reel/abc/", result.InstagramPermalink)

		f.transcoder.AssertNumberOfCalls(t, "TranscodeVideo", 1)
		assert.Equal(t, 1, f.host.registered)
		assert.Equal(t, 1, f.host.released)
		assert.Equal(t, [][]byte{[]byte("mp4")}, f.host.served)
		f.graph.AssertNumberOfCalls(t, "ContainerStatus", 3)
		assert.Len(t, f.sleeps.delays, 3)
		assert.Equal(t, DefaultPollInterval, f.sleeps.delays[0])
		f.graph.AssertNotCalled(t, "Delete", mock.Anything)
	})

	t.Run("deletes the facebook video when processing fails", func(t *testing.T) {
		f := videoFixture()
		f.graph.On("UploadVideo", upload).Return("v-1", nil)
		f.graph.On("CreateContainer", reelParams()).Return(ok("c-1"), nil)
		f.graph.On("ContainerStatus", "c-1").Return(&graph.ContainerStatus{ID: "c-1", Code: graph.ContainerStatusError, Detail: "Error: Unsupported video bitrate"}, nil)
		f.graph.On("Delete", "v-1").Return(nil)

		_, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		assert.ErrorIs(t, err, ErrProcessingFailed)
		var processingErr *ProcessingError
		require.ErrorAs(t, err, &processingErr)
		assert.Equal(t, graph.ContainerStatusError, processingErr.Status)
		f.graph.AssertNumberOfCalls(t, "Delete", 1)
		assert.Equal(t, 1, f.host.released)
	})

	t.Run("no delete when the upload produced no id", func(t *testing.T) {
		f := videoFixture()
		f.graph.On("UploadVideo", upload).Return("", errors.New("upload failed"))
		f.graph.On("CreateContainer", reelParams()).Return(failed(http.StatusBadRequest, &graph.APIError{Message: "Invalid parameter", Code: 100}), nil)

		_, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		assert.ErrorContains(t, err, "Invalid parameter")
		assert.NotContains(t, err.Error(), "upload failed")
		f.graph.AssertNotCalled(t, "Delete", mock.Anything)
		assert.Equal(t, 1, f.host.released)
	})

	t.Run("delete errors do not replace the original error", func(t *testing.T) {
		f := videoFixture()
		f.graph.On("UploadVideo", upload).Return("v-1", nil)
		f.graph.On("CreateContainer", reelParams()).Return(ok("c-1"), nil)
		f.graph.On("ContainerStatus", "c-1").Return(status(graph.ContainerStatusFinished), nil)
		f.graph.On("PublishContainer", "2222", "c-1").Return(failed(http.StatusForbidden, &graph.APIError{Message: "Application does not have permission", Code: 10}), nil)
		f.graph.On("Delete", "v-1").Return(errors.New("delete failed"))

		_, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		assert.ErrorContains(t, err, "Application does not have permission")
		assert.NotContains(t, err.Error(), "delete failed")
		f.graph.AssertNumberOfCalls(t, "Delete", 1)
	})

	t.Run("times out after MaxPolls checks", func(t *testing.T) {
		f := videoFixture()
		f.publisher.MaxPolls = 4
		f.graph.On("UploadVideo", upload).Return("v-1", nil)
		f.graph.On("CreateContainer", reelParams()).Return(ok("c-1"), nil)
		f.graph.On("ContainerStatus", "c-1").Return(status(graph.ContainerStatusInProgress), nil)
		f.graph.On("Delete", "v-1").Return(nil)

		_, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		assert.ErrorIs(t, err, ErrProcessingTimeout)
		assert.NotErrorIs(t, err, ErrProcessingFailed)
		f.graph.AssertNumberOfCalls(t, "ContainerStatus", 4)
		f.graph.AssertNumberOfCalls(t, "Delete", 1)
	})

	t.Run("explains carousel rejections", func(t *testing.T) {
		f := videoFixture()
		f.graph.On("UploadVideo", upload).Return("v-1", nil)
		f.graph.On("CreateContainer", reelParams()).Return(ok("c-1"), nil)
		f.graph.On("ContainerStatus", "c-1").Return(status(graph.ContainerStatusFinished), nil)
		f.graph.On("PublishContainer", "2222", "c-1").Return(failed(http.StatusBadRequest, &graph.APIError{Message: "The media was treated as a CAROUSEL item"}), nil)
		f.graph.On("Delete", "v-1").Return(nil)

		_, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		assert.ErrorContains(t, err, "VIDEO_MAX_BITRATE")
		assert.ErrorContains(t, err, "treated as a CAROUSEL item")
		var responseErr *graph.ResponseError
		assert.ErrorAs(t, err, &responseErr)
	})

	t.Run("reports a facebook upload failure on the success path", func(t *testing.T) {
		f := videoFixture()
		f.graph.On("UploadVideo", upload).Return("", errors.New("upload failed"))
		f.graph.On("CreateContainer", reelParams()).Return(ok("c-1"), nil)
		f.graph.On("ContainerStatus", "c-1").Return(status(graph.ContainerStatusFinished), nil)
		f.graph.On("PublishContainer", "2222", "c-1").Return(ok("m-1"), nil)

		_, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		assert.ErrorContains(t, err, "upload failed")
		assert.ErrorContains(t, err, "m-1")
		f.graph.AssertNotCalled(t, "Permalink", mock.Anything)
		assert.Equal(t, 1, f.host.released)
	})

	t.Run("transcoding failures never serve anything", func(t *testing.T) {
		f := newFixture()
		f.downloader.On("Download", mock.Anything).Return([]byte("mov"), nil)
		f.transcoder.On("TranscodeVideo", mock.Anything, mock.Anything).Return([]byte(nil), errors.New("ffmpeg exited 1"))

		_, err := f.publisher.PublishVideo(context.Background(), videoRequest())
		assert.ErrorContains(t, err, "ffmpeg exited 1")
		assert.Zero(t, f.host.registered)
		f.graph.AssertNotCalled(t, "UploadVideo", mock.Anything)
	})
}

func TestExplainCarousel(t *testing.T) {
	plain := errors.New("status 400")
	assert.Same(t, plain, explainCarousel(plain))
	assert.Nil(t, explainCarousel(nil))

	rewritten := explainCarousel(errors.New("Media was treated as carousel"))
	assert.Contains(t, rewritten.Error(), "Media was treated as carousel")
	assert.Contains(t, rewritten.Error(), "VIDEO_MAX_BITRATE")
}
