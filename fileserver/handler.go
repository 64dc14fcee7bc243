package fileserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const contentTypeMP4 = "video/mp4"

var (
	ErrMalformedRange     = errors.New("malformed range header")
	ErrUnsatisfiableRange = errors.New("range not satisfiable")
)

// Range is an inclusive byte range.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

/*
ParseRange resolves a single "bytes=" range against a body of total bytes:

	bytes=s-e   s through min(e, total-1)
	bytes=s-    s through the end
	bytes=-n    the last n bytes

Multiple ranges and anything unparseable return ErrMalformedRange. A range that
starts past the end, or whose start is after its end, returns
ErrUnsatisfiableRange.
*/
func ParseRange(header string, total int64) (Range, error) {
	byteRange, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(byteRange, ",") {
		return Range{}, ErrMalformedRange
	}
	startRaw, endRaw, ok := strings.Cut(strings.TrimSpace(byteRange), "-")
	if !ok {
		return Range{}, ErrMalformedRange
	}
	startRaw = strings.TrimSpace(startRaw)
	endRaw = strings.TrimSpace(endRaw)

	if startRaw == "" {
		suffix, err := strconv.ParseInt(endRaw, 10, 64)
		if err != nil || suffix < 0 {
			return Range{}, ErrMalformedRange
		}
		if suffix == 0 || total == 0 {
			return Range{}, ErrUnsatisfiableRange
		}
		if suffix > total {
			suffix = total
		}
		return Range{Start: total - suffix, End: total - 1}, nil
	}

	start, err := strconv.ParseInt(startRaw, 10, 64)
	if err != nil || start < 0 {
		return Range{}, ErrMalformedRange
	}
	end := total - 1
	if endRaw != "" {
		end, err = strconv.ParseInt(endRaw, 10, 64)
		if err != nil || end < 0 {
			return Range{}, ErrMalformedRange
		}
		if start > end {
			return Range{}, ErrUnsatisfiableRange
		}
	}
	if start >= total {
		return Range{}, ErrUnsatisfiableRange
	}
	if end > total-1 {
		end = total - 1
	}
	return Range{Start: start, End: end}, nil
}

// Middleware serves GET and HEAD requests for registered files and hands
// everything else to next. With a nil next, unmatched requests get a 404.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			next.ServeHTTP(w, req)
			return
		}
		id, ok := r.idFromPath(req.URL.Path)
		if !ok {
			next.ServeHTTP(w, req)
			return
		}
		data, ok := r.Lookup(id)
		if !ok {
			next.ServeHTTP(w, req)
			return
		}
		serveFile(w, req, data)
	})
}

func serveFile(w http.ResponseWriter, req *http.Request, data []byte) {
	total := int64(len(data))
	header := w.Header()
	header.Set("Content-Type", contentTypeMP4)
	header.Set("Accept-Ranges", "bytes")

	if req.Method == http.MethodHead {
		header.Set("Content-Length", strconv.FormatInt(total, 10))
		w.WriteHeader(http.StatusOK)
		return
	}

	rangeHeader := req.Header.Get("Range")
	if rangeHeader == "" {
		writeBody(w, http.StatusOK, data)
		return
	}

	byteRange, err := ParseRange(rangeHeader, total)
	switch {
	case errors.Is(err, ErrUnsatisfiableRange):
		header.Set("Content-Range", fmt.Sprintf("bytes */%d", total))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	case err != nil:
		log.WithField("range", rangeHeader).Debug("ignoring malformed range header")
		writeBody(w, http.StatusOK, data)
		return
	}

	header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", byteRange.Start, byteRange.End, total))
	writeBody(w, http.StatusPartialContent, data[byteRange.Start:byteRange.End+1])
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Debugf("client went away while serving media: %v", err)
	}
}
