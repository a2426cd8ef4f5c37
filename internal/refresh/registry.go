package refresh

import (
	"sync"

	"github.com/kitchenlane/catering-ops/pkg/logger"
)

// Registry owns the refreshers for every active view. An error in one view's
// refresh never affects another's: each refresher runs its own loop.
type Registry struct {
	mu         sync.RWMutex
	refreshers map[string]*Refresher
	logger     logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logger.Logger) *Registry {
	return &Registry{
		refreshers: make(map[string]*Refresher),
		logger:     logger,
	}
}

// Register adds a view refresher under its name.
func (g *Registry) Register(r *Refresher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshers[r.name] = r
}

// Get returns the named refresher, or nil.
func (g *Registry) Get(name string) *Refresher {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.refreshers[name]
}

// Start starts every registered refresher.
func (g *Registry) Start() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, r := range g.refreshers {
		r.Start()
	}
}

// Stop stops every registered refresher.
func (g *Registry) Stop() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, r := range g.refreshers {
		r.Stop()
	}

	g.logger.Info("View refreshers stopped")
}

// InvalidateAll signals every view to refetch, used when any order changes.
// Change notifications carry no trustworthy delta, so every view refetches.
func (g *Registry) InvalidateAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, r := range g.refreshers {
		r.Invalidate()
	}
}
