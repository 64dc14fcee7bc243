package fileserver

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// SharedHost registers files with a Registry whose Middleware is already
// installed on the host application's public listener.
type SharedHost struct {
	registry *Registry
	base     BaseProvider
}

func NewSharedHost(registry *Registry, base BaseProvider) *SharedHost {
	return &SharedHost{registry: registry, base: base}
}

func (h *SharedHost) Serve(ctx context.Context, data []byte) (*ServedFile, error) {
	base, err := h.base.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	id := h.registry.Register(data)
	url := joinURL(base, h.registry.Path(id))
	log.WithField("id", id).WithField("bytes", len(data)).Debug("serving file on shared listener")

	return NewServedFile(url, func() error {
		h.registry.Unregister(id)
		log.WithField("id", id).Debug("released shared file")
		return nil
	}), nil
}
