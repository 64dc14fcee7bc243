package fileserver

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	testCases := []struct {
		description string
		header      string
		total       int64
		expected    Range
		err         error
	}{
		{"closed range", "bytes=0-999", 2000, Range{0, 999}, nil},
		{"open range", "bytes=1990-", 2000, Range{1990, 1999}, nil},
		{"end clamped to size", "bytes=1500-5000", 2000, Range{1500, 1999}, nil},
		{"suffix range", "bytes=-500", 2000, Range{1500, 1999}, nil},
		{"suffix larger than body", "bytes=-5000", 2000, Range{0, 1999}, nil},
		{"single byte", "bytes=7-7", 2000, Range{7, 7}, nil},
		{"start past end of body", "bytes=5000-", 2000, Range{}, ErrUnsatisfiableRange},
		{"start equal to size", "bytes=2000-2100", 2000, Range{}, ErrUnsatisfiableRange},
		{"start after end", "bytes=10-5", 2000, Range{}, ErrUnsatisfiableRange},
		{"zero suffix", "bytes=-0", 2000, Range{}, ErrUnsatisfiableRange},
		{"wrong unit", "items=0-1", 2000, Range{}, ErrMalformedRange},
		{"multiple ranges", "bytes=0-1,5-6", 2000, Range{}, ErrMalformedRange},
		{"not numeric", "bytes=a-b", 2000, Range{}, ErrMalformedRange},
		{"missing dash", "bytes=100", 2000, Range{}, ErrMalformedRange},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			byteRange, err := ParseRange(testCase.header, testCase.total)
			if testCase.err != nil {
				assert.ErrorIs(t, err, testCase.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, byteRange)
			assert.Equal(t, testCase.expected.End-testCase.expected.Start+1, byteRange.Length())
		})
	}
}

func newServedRegistry(t *testing.T, size int) (*Registry, string, []byte) {
	data := bytes.Repeat([]byte("0123456789"), size/10)
	registry := NewRegistry(DefaultPrefix)
	id := registry.Register(data)
	return registry, registry.Path(id), data
}

func TestMiddleware(t *testing.T) {
	registry, path, data := newServedRegistry(t, 2000)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := registry.Middleware(next)

	do := func(method string, target string, rangeHeader string) *http.Response {
		req := httptest.NewRequest(method, target, nil)
		if rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Result()
	}

	t.Run("HEAD returns headers and no body", func(t *testing.T) {
		resp := do(http.MethodHead, path, "bytes=0-10")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2000", resp.Header.Get("Content-Length"))
		assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
		assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
		assert.Empty(t, body)
	})

	t.Run("GET without range returns the full body", func(t *testing.T) {
		resp := do(http.MethodGet, path, "")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, data, body)
	})

	t.Run("GET with range returns partial content", func(t *testing.T) {
		resp := do(http.MethodGet, path, "bytes=0-999")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
		assert.Equal(t, "bytes 0-999/2000", resp.Header.Get("Content-Range"))
		assert.Equal(t, "1000", resp.Header.Get("Content-Length"))
		assert.Equal(t, data[:1000], body)
	})

	t.Run("GET with open range returns the tail", func(t *testing.T) {
		resp := do(http.MethodGet, path, "bytes=1990-")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
		assert.Equal(t, "bytes 1990-1999/2000", resp.Header.Get("Content-Range"))
		assert.Len(t, body, 10)
	})

	t.Run("GET with unsatisfiable range returns 416", func(t *testing.T) {
		resp := do(http.MethodGet, path, "bytes=5000-")
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
		assert.Equal(t, "bytes */2000", resp.Header.Get("Content-Range"))
	})

	t.Run("malformed range is ignored", func(t *testing.T) {
		resp := do(http.MethodGet, path, "bytes=oops")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body, 2000)
	})

	t.Run("other methods pass through", func(t *testing.T) {
		resp := do(http.MethodPost, path, "")
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})

	t.Run("unknown ids pass through", func(t *testing.T) {
		resp := do(http.MethodGet, DefaultPrefix+"does-not-exist", "")
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})

	t.Run("other paths pass through", func(t *testing.T) {
		resp := do(http.MethodGet, "/", "")
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})

	t.Run("unregistered files are no longer served", func(t *testing.T) {
		id := registry.Register([]byte("short"))
		registry.Unregister(id)
		resp := do(http.MethodGet, registry.Path(id), "")
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})
}

func TestMiddlewareWithoutNext(t *testing.T) {
	registry := NewRegistry("files")
	rec := httptest.NewRecorder()
	registry.Middleware(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
