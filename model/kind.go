package model

import (
	"fmt"
	"strings"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "IMAGE"
	MediaKindVideo MediaKind = "VIDEO"
)

func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(MediaKindImage):
		return MediaKindImage, nil
	case string(MediaKindVideo):
		return MediaKindVideo, nil
	default:
		return "", fmt.Errorf("unknown media kind: %s", s)
	}
}
