package publisher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/truemediaorg/crosspublisher/graph"
)

var (
	ErrProcessingFailed  = errors.New("instagram could not process the media")
	ErrProcessingTimeout = errors.New("timed out waiting for instagram to process the media")
)

const reelEncodingGuidance = "re-encode as H.264/AAC MP4, 9:16, at most 60 fps and 25 Mbps, between 3 seconds and 15 minutes long"

// ProcessingError is a reel container that reached ERROR or EXPIRED.
type ProcessingError struct {
	ContainerID string
	Status      graph.ContainerStatusCode
	Detail      string
}

func (e *ProcessingError) Error() string {
	msg := fmt.Sprintf("%s: container %s is %s", ErrProcessingFailed, e.ContainerID, e.Status)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg + "; the video probably violates reel limits, " + reelEncodingGuidance
}

func (e *ProcessingError) Unwrap() error {
	return ErrProcessingFailed
}

// explainCarousel rewrites the rejection Instagram gives when it decides a
// video is a carousel item rather than a reel, which in practice means the
// bitrate was too high.
func explainCarousel(err error) error {
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "carousel") {
		return err
	}
	return fmt.Errorf("instagram treated the video as a carousel item instead of a reel; lower VIDEO_MAX_BITRATE (for example to 3500k) and publish again: %w", err)
}
