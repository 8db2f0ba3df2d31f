package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is a constructor function that creates a new Agent instance.
// It receives the shared pool dependencies and the per-agent configuration
// block from the pool config file.
type Factory func(deps Deps, config map[string]any) (Agent, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes an agent factory available under a module reference
// (e.g. "agentpool/weather"). It is called from an init() function in each
// agent package; the blank imports in cmd activate them.
func Register(ref string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[ref]; exists {
		panic(fmt.Sprintf("agent: duplicate registration for %q", ref))
	}
	factories[ref] = factory
}

// New creates an Agent from the factory registered under ref.
func New(ref string, deps Deps, config map[string]any) (Agent, error) {
	mu.RLock()
	factory, ok := factories[ref]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("agent: unknown factory %q", ref)
	}
	return factory(deps, config)
}

// Available returns the sorted module references of all registered factories.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	refs := make([]string, 0, len(factories))
	for ref := range factories {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
