package peering

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// Mesh keeps one Link per peer URL and relays to all of them.
type Mesh struct {
	ctx    context.Context
	logger *slog.Logger

	mu    sync.RWMutex
	links map[string]*Link
}

// NewMesh creates a mesh whose links live until ctx is done or Close is called.
func NewMesh(ctx context.Context, logger *slog.Logger) *Mesh {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mesh{
		ctx:    ctx,
		logger: logger.With("component", "mesh"),
		links:  make(map[string]*Link),
	}
}

// Add starts a link to url. Adding a known url is a no-op.
func (m *Mesh) Add(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[url]; ok || url == "" {
		return false
	}
	link := NewLink(url, m.logger)
	link.Start(m.ctx)
	m.links[url] = link
	return true
}

// Remove stops the link to url.
func (m *Mesh) Remove(url string) bool {
	m.mu.Lock()
	link, ok := m.links[url]
	delete(m.links, url)
	m.mu.Unlock()

	if ok {
		link.Close()
	}
	return ok
}

// Peers returns the linked URLs in order.
func (m *Mesh) Peers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.links))
	for url := range m.links {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}

// Relay queues env on every link.
func (m *Mesh) Relay(env *domain.Envelope) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, link := range m.links {
		link.Relay(env)
	}
}

// Close stops every link.
func (m *Mesh) Close() {
	m.mu.Lock()
	links := m.links
	m.links = make(map[string]*Link)
	m.mu.Unlock()

	for _, link := range links {
		link.Close()
	}
}
