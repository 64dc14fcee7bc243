package fileserver

import (
	"context"
	"sync"
)

// ServedFile is a publicly reachable copy of some bytes. Close withdraws it;
// only the first call does anything.
type ServedFile struct {
	URL string

	once    sync.Once
	release func() error
	err     error
}

// NewServedFile wraps url with a release func that runs on the first Close.
func NewServedFile(url string, release func() error) *ServedFile {
	return &ServedFile{URL: url, release: release}
}

func (f *ServedFile) Close() error {
	f.once.Do(func() {
		if f.release != nil {
			f.err = f.release()
		}
	})
	return f.err
}

// Host publishes bytes at a URL the destination API can fetch.
type Host interface {
	Serve(ctx context.Context, data []byte) (*ServedFile, error)
}
