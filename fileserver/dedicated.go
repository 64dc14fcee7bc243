package fileserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// DedicatedHost runs its own listener on addr while at least one file is
// being served and shuts it down once the last one is released.
type DedicatedHost struct {
	addr     string
	base     BaseProvider
	registry *Registry

	mu     sync.Mutex
	server *http.Server
	done   chan struct{}
}

func NewDedicatedHost(addr string, base BaseProvider) *DedicatedHost {
	return &DedicatedHost{
		addr:     addr,
		base:     base,
		registry: NewRegistry(DefaultPrefix),
	}
}

func (h *DedicatedHost) Serve(ctx context.Context, data []byte) (*ServedFile, error) {
	base, err := h.base.BaseURL(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.server == nil {
		if err := h.start(); err != nil {
			return nil, err
		}
	}

	id := h.registry.Register(data)
	url := joinURL(base, h.registry.Path(id))
	log.WithField("id", id).WithField("addr", h.addr).Debug("serving file on dedicated listener")

	return NewServedFile(url, func() error {
		return h.release(id)
	}), nil
}

// start must be called with mu held.
func (h *DedicatedHost) start() error {
	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("starting file server on %s: %w", h.addr, err)
	}
	server := &http.Server{
		Handler:           h.registry.Middleware(nil),
		ReadHeaderTimeout: 30 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField("addr", h.addr).Errorf("file server stopped: %v", err)
		}
	}()
	h.server = server
	h.done = done
	log.WithField("addr", listener.Addr().String()).Info("started file server")
	return nil
}

func (h *DedicatedHost) release(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry.Unregister(id)
	if h.registry.Len() > 0 || h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.server.Shutdown(ctx)
	<-h.done
	h.server = nil
	h.done = nil
	log.WithField("addr", h.addr).Info("stopped file server")
	return err
}

// Running reports whether the listener is currently up.
func (h *DedicatedHost) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.server != nil
}
