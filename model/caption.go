package model

import (
	"regexp"
	"strings"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// FormatCaption appends suffix to caption unless the caption already ends with
// it, then collapses every run of three or more newlines down to two.
// The suffix goes through the same normalisation so the result always ends
// with it and formatting an already formatted caption is a no-op.
func FormatCaption(caption, suffix string) string {
	caption = normalizeNewlines(caption)
	suffix = normalizeNewlines(suffix)

	if suffix != "" && !strings.HasSuffix(caption, suffix) {
		caption += suffix
	}
	return normalizeNewlines(caption)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return excessNewlines.ReplaceAllString(s, "\n\n")
}
