package frontend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jot/metrics"
)

const (
	DefaultPageTTL   = 30 * time.Minute
	minSweepInterval = time.Second
)

// Registry keeps the live pages, keyed by the id in the browser's cookie,
// and evicts the ones left idle longer than the TTL.
type Registry struct {
	newBackend func() Backend
	ttl        time.Duration
	log        *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	pages map[string]*Page
}

// NewRegistry builds a registry. A non-positive ttl means DefaultPageTTL.
func NewRegistry(newBackend func() Backend, ttl time.Duration, log *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &Registry{
		newBackend: newBackend,
		ttl:        ttl,
		log:        log,
		now:        time.Now,
		pages:      make(map[string]*Page),
	}
}

// Get returns the page for id, creating and starting one if needed.
func (r *Registry) Get(ctx context.Context, id string) *Page {
	now := r.now()

	r.mu.Lock()
	p, ok := r.pages[id]
	if !ok {
		p = NewPage(id, r.newBackend(), r.log)
		r.pages[id] = p
		metrics.Pages.Set(float64(len(r.pages)))
	}
	r.mu.Unlock()

	p.touch(now)
	if !ok {
		r.log.Debug("page created", "page", id)
		p.Start(ctx)
	}
	return p
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Sweep closes and forgets pages idle since before now minus the TTL.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*Page
	for id, p := range r.pages {
		if p.idleSince().Before(cutoff) {
			idle = append(idle, p)
			delete(r.pages, id)
		}
	}
	metrics.Pages.Set(float64(len(r.pages)))
	r.mu.Unlock()

	for _, p := range idle {
		p.Close()
		r.log.Debug("page evicted", "page", p.ID())
	}
	return len(idle)
}

// Run sweeps every half TTL until ctx is done, then closes every page.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info("evicted idle pages", "count", n)
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[string]*Page)
	metrics.Pages.Set(0)
	r.mu.Unlock()

	for _, p := range pages {
		p.Close()
	}
}
