package graph

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxBodyInError = 300

const (
	codeMediaUnsupported     = 9004
	subcodeFormatUnsupported = 2207052
)

// Message fragments Instagram uses when it cannot ingest the media format.
var formatSignatures = []string{
	"only photo or video can be accepted as media type",
	"the image format is not supported",
	"media type is not supported",
}

func containsFormatSignature(s string) bool {
	s = strings.ToLower(s)
	for _, signature := range formatSignatures {
		if strings.Contains(s, signature) {
			return true
		}
	}
	return false
}

/*
APIError is the "error" object of a Graph API response:

	{"error": {"message": "...", "type": "OAuthException", "code": 9004,
	  "error_subcode": 2207052, "error_user_title": "...", "error_user_msg": "...",
	  "fbtrace_id": "..."}}
*/
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	UserTitle    string `json:"error_user_title"`
	UserMessage  string `json:"error_user_msg"`
	FBTraceID    string `json:"fbtrace_id"`
}

// ResponseError is a non-successful Graph API response.
type ResponseError struct {
	StatusCode int
	API        *APIError
	Body       string
}

func (e *ResponseError) Error() string {
	parts := []string{fmt.Sprintf("graph API error (status %d", e.StatusCode)}
	if e.API == nil {
		body := strings.TrimSpace(e.Body)
		body = truncate(body, maxBodyInError)
		if body == "" {
			return parts[0] + ")"
		}
		return fmt.Sprintf("%s): %s", parts[0], body)
	}

	if e.API.Code != 0 {
		parts = append(parts, fmt.Sprintf("code %d", e.API.Code))
	}
	if e.API.ErrorSubcode != 0 {
		parts = append(parts, fmt.Sprintf("subcode %d", e.API.ErrorSubcode))
	}
	msg := e.API.Message
	if e.API.UserMessage != "" && e.API.UserMessage != msg {
		msg = strings.TrimSpace(msg + " " + e.API.UserMessage)
	}
	if msg == "" {
		msg = "no error message"
	}
	return strings.Join(parts, ", ") + "): " + msg
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
