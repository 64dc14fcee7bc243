package fileserver

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

const DefaultPrefix = "/media/"

// Registry maps random ids to in-memory files. It is safe for concurrent use
// and is owned by whoever installs its Middleware.
type Registry struct {
	prefix string

	mu    sync.RWMutex
	files map[string][]byte
}

func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Registry{
		prefix: prefix,
		files:  map[string][]byte{},
	}
}

// Register stores data under a fresh UUIDv4 and returns the id.
func (r *Registry) Register(data []byte) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.files[id] = data
	r.mu.Unlock()
	return id
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.files, id)
	r.mu.Unlock()
}

func (r *Registry) Lookup(id string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.files[id]
	return data, ok
}

// Path is the URL path a registered id is served under.
func (r *Registry) Path(id string) string {
	return r.prefix + id
}

// Paths lists the URL paths of every registered file, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	ids := maps.Keys(r.files)
	r.mu.RUnlock()

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, r.Path(id))
	}
	sort.Strings(paths)
	return paths
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

func (r *Registry) idFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, r.prefix) {
		return "", false
	}
	id := strings.TrimPrefix(path, r.prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
