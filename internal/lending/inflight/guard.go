// internal/lending/inflight/guard.go
package inflight

import (
	"context"
	"sync"
)

// ReleaseFunc frees a slot obtained from TryAcquire. Calling it more than once is a no-op.
type ReleaseFunc func()

// Guard admits at most one holder per application id.
type Guard interface {
	// TryAcquire returns ok=false without blocking when the id is already held.
	TryAcquire(ctx context.Context, applicationID string) (release ReleaseFunc, ok bool, err error)
	// Held reports whether the id is currently being processed.
	Held(ctx context.Context, applicationID string) (bool, error)
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ Guard = (*MemoryGuard)(nil)

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, applicationID string) (ReleaseFunc, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[applicationID]; busy {
		return nil, false, nil
	}
	g.held[applicationID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, applicationID)
			g.mu.Unlock()
		})
	}, true, nil
}

func (g *MemoryGuard) Held(_ context.Context, applicationID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.held[applicationID]
	return busy, nil
}
