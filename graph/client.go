package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL      = "https://graph.facebook.com"
	DefaultVideoBaseURL = "https://graph-video.facebook.com"

	// Uploads can carry a full reel, so the transport timeout is generous
	defaultTimeout = 5 * time.Minute
)

// Client is a thin Graph API client. Every request carries the bearer token
// and is versioned with Version.
type Client struct {
	Version      string
	BaseURL      string
	VideoBaseURL string
	HTTPClient   *http.Client

	token string
}

func NewClient(token string, version string) *Client {
	return &Client{
		Version:      version,
		BaseURL:      DefaultBaseURL,
		VideoBaseURL: DefaultVideoBaseURL,
		HTTPClient:   &http.Client{Timeout: defaultTimeout},
		token:        token,
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// Result is the raw outcome of a call whose caller needs to branch on the
// status code instead of getting an error back.
type Result struct {
	StatusCode int
	Header     http.Header
	ID         string
	Error      *APIError
	Body       string
}

// OK reports a 2xx status with an id present.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300 && r.ID != ""
}

// ClientError reports a 4xx status, which waiting will never fix.
func (r *Result) ClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// Err describes a failed result. It returns nil for OK results.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ResponseError{StatusCode: r.StatusCode, API: r.Error, Body: r.Body}
}

// UnsupportedFormat reports whether Instagram rejected the media because of its
// format. Depending on the API version the signal is only present in the
// WWW-Authenticate header or only in the JSON error body, so both are checked.
func (r *Result) UnsupportedFormat() bool {
	for _, value := range r.Header.Values("WWW-Authenticate") {
		if containsFormatSignature(value) {
			return true
		}
	}
	if r.Error == nil {
		return false
	}
	if r.Error.Code == codeMediaUnsupported && r.Error.ErrorSubcode == subcodeFormatUnsupported {
		return true
	}
	return containsFormatSignature(r.Error.Message) || containsFormatSignature(r.Error.UserMessage)
}

func (c *Client) endpoint(base string, path string, query url.Values) string {
	u := fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), c.Version, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send performs the request and returns the parsed Result. Only transport and
// decoding failures are returned as errors. When out is non-nil and the status
// is 2xx the body is also decoded into it.
func (c *Client) send(req *http.Request, out any) (*Result, error) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result := &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(body),
	}

	var envelope struct {
		ID    string    `json:"id"`
		Error *APIError `json:"error"`
	}
	if len(body) > 0 {
		// Non-JSON bodies (proxies, outages) are kept verbatim in Body
		if err := json.Unmarshal(body, &envelope); err != nil {
			log.WithField("status", resp.StatusCode).WithField("url", redact(req.URL)).Debugf("non-JSON graph response: %v", err)
		}
	}
	result.ID = envelope.ID
	result.Error = envelope.Error

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("decoding graph response: %w", err)
		}
	}

	log.WithField("method", req.Method).WithField("url", redact(req.URL)).WithField("status", resp.StatusCode).Debug("graph call")
	return result, nil
}

// call is send for callers that have no reason to branch: any non-2xx status
// becomes a *ResponseError.
func (c *Client) call(req *http.Request, out any) (*Result, error) {
	result, err := c.send(req, out)
	if err != nil {
		return nil, err
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return result, &ResponseError{StatusCode: result.StatusCode, API: result.Error, Body: result.Body}
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.BaseURL, path, query), nil)
	if err != nil {
		return err
	}
	_, err = c.call(req, out)
	return err
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.BaseURL, path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// postMultipart builds a multipart request with fields plus one file part.
func (c *Client) postMultipart(ctx context.Context, base string, path string, fields map[string]string, fileField string, fileName string, data []byte) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(base, path, nil), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

// redact strips query parameters so tokens never end up in logs.
func redact(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}
