package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCaption(t *testing.T) {
	testCases := []struct {
		description string
		caption     string
		suffix      string
		expected    string
	}{
		{"appends the suffix", "hello", " #tag", "hello #tag"},
		{"does not append a suffix that is already there", "hello #tag", " #tag", "hello #tag"},
		{"empty suffix leaves the caption alone", "hello", "", "hello"},
		{"collapses long newline runs", "a\n\n\n\nb", "", "a\n\nb"},
		{"keeps double newlines", "a\n\nb", "", "a\n\nb"},
		{"collapses runs created at the join", "a\n\n", "\n#tag", "a\n\n#tag"},
		{"normalises CRLF", "a\r\n\r\n\r\nb", "", "a\n\nb"},
		{"empty caption gets the suffix", "", "#tag", "#tag"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expected, FormatCaption(testCase.caption, testCase.suffix))
		})
	}
}

func TestFormatCaptionProperties(t *testing.T) {
	captions := []string{"", "hi", "hi\n", "hi\n\n", "hi\n\n\n\n\nthere", "\n\n\n", "line one\r\nline two", "ends with #crosspost"}
	suffixes := []string{"", "#crosspost", " #crosspost", "\n\n#crosspost", "\n\n\n#crosspost", "\n"}

	for _, caption := range captions {
		for _, suffix := range suffixes {
			formatted := FormatCaption(caption, suffix)

			assert.NotContainsf(t, formatted, "\n\n\n", "caption %q suffix %q", caption, suffix)
			if suffix != "" {
				assert.Truef(t, strings.HasSuffix(formatted, normalizeNewlines(suffix)), "caption %q suffix %q gave %q", caption, suffix, formatted)
			}
			assert.Equalf(t, formatted, FormatCaption(formatted, suffix), "not idempotent for caption %q suffix %q", caption, suffix)
		}
	}
}
