package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/modstate/modstate/internal/core/observability/log"
)

// Manager owns a set of runners keyed by ID and drives them as a group.
// Each runner ticks on its own goroutine; the trees themselves stay
// single-threaded because every machine is touched only by its runner.
type Manager struct {
	mu      sync.RWMutex
	runners map[string]*Runner
	logger  *log.Logger
}

// NewManager builds an empty manager.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{runners: make(map[string]*Runner), logger: logger}
}

// Add registers a runner under id.
func (mg *Manager) Add(id string, r *Runner) error {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	if _, ok := mg.runners[id]; ok {
		return fmt.Errorf("runner %q already registered", id)
	}
	mg.runners[id] = r
	return nil
}

// Remove drops a runner. It reports whether the id was known. A runner
// already started by Run keeps ticking until the group's context ends.
func (mg *Manager) Remove(id string) bool {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	if _, ok := mg.runners[id]; !ok {
		return false
	}
	delete(mg.runners, id)
	return true
}

// Get returns a registered runner.
func (mg *Manager) Get(id string) (*Runner, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	r, ok := mg.runners[id]
	return r, ok
}

// Len returns the number of registered runners.
func (mg *Manager) Len() int {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return len(mg.runners)
}

// Run starts every registered runner and blocks until all stop. A plain
// context cancellation is a clean shutdown and returns nil; any other
// runner error cancels the rest and is returned.
func (mg *Manager) Run(ctx context.Context) error {
	mg.mu.RLock()
	runners := make(map[string]*Runner, len(mg.runners))
	for id, r := range mg.runners {
		runners[id] = r
	}
	mg.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for id, r := range runners {
		id, r := id, r
		mg.logger.Info("starting runner", log.String("id", id))
		g.Go(func() error {
			err := r.Run(ctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("runner %q: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
