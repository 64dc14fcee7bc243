package model

import (
	"errors"
	"fmt"
	"strings"
)

// ImageProfile bounds the fallback conversion used when Instagram rejects the
// original image.
type ImageProfile struct {
	MaxWidth  int
	MaxHeight int
	Format    string // jpeg, png or webp
	Quality   int    // ffmpeg -q:v, lower is better
}

// VideoProfile is the encoding every video goes through before it is offered
// to Instagram as a reel.
type VideoProfile struct {
	MaxWidth        int
	MaxHeight       int
	Codec           string
	Preset          string
	CRF             int
	FPS             int
	MaxBitrate      string // e.g. "4500k"
	AudioCodec      string
	AudioBitrate    string // e.g. "128k"
	AudioChannels   int
	AudioSampleRate int
}

// PublishRequest describes one media item to publish to both destinations.
type PublishRequest struct {
	Kind       MediaKind
	SourceURL  string
	Caption    string
	HashSuffix string

	PageID     string
	IGUserID   string
	APIVersion string

	Image ImageProfile
	Video VideoProfile
}

// FormattedCaption is the caption actually sent to both destinations.
func (r PublishRequest) FormattedCaption() string {
	return FormatCaption(r.Caption, r.HashSuffix)
}

func (r PublishRequest) Validate() error {
	var errs []error
	if _, err := ParseMediaKind(string(r.Kind)); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(r.SourceURL) == "" {
		errs = append(errs, errors.New("source URL is required"))
	}
	if r.PageID == "" {
		errs = append(errs, errors.New("facebook page ID is required"))
	}
	if r.IGUserID == "" {
		errs = append(errs, errors.New("instagram user ID is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid publish request: %w", errors.Join(errs...))
	}
	return nil
}
