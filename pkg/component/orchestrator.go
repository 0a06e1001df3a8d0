package component

import (
	"context"
	"fmt"
	"sync"
)

// Orchestrator starts components in registration order and stops them
// in reverse. The HAL registers first so it comes up before anything
// that reads hardware state and is the last thing stopped, after the
// northbound surfaces have gone quiet.
type Orchestrator struct {
	components []Component
	mu         sync.RWMutex
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		components: make([]Component, 0),
	}
}

func (o *Orchestrator) Register(comp Component) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.components = append(o.components, comp)
}

// Start brings components up in order. If one fails, those already
// running are stopped again so hardware is not left half owned.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for i, comp := range o.components {
		if err := comp.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				o.components[j].Stop(ctx)
			}
			return fmt.Errorf("failed to start %s: %w", comp.Name(), err)
		}
	}
	return nil
}

// Stop tears components down in reverse order. A failing component does
// not block the rest; the warm boot record depends on the HAL's Stop
// always running.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var firstErr error
	for i := len(o.components) - 1; i >= 0; i-- {
		comp := o.components[i]
		if err := comp.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop %s: %w", comp.Name(), err)
		}
	}
	return firstErr
}
