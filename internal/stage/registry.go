package stage

import (
	"fmt"
	"sort"
	"sync"
)

// Config represents stage-specific configuration (opaque to the runtime).
type Config map[string]any

// Factory constructs a stage with the provided configuration.
type Factory func(Config) (Stage, error)

// Registry maintains known stage factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a stage factory. Returns an error if the ID already exists.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("stage: id is required")
	}
	if factory == nil {
		return fmt.Errorf("stage: factory is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("stage: %s already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs a stage by ID.
func (r *Registry) Resolve(id string, cfg Config) (Stage, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("stage: unknown id %s", id)
	}
	built, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if err := built.Info().Validate(); err != nil {
		return nil, err
	}
	return built, nil
}

// IDs returns a sorted list of registered stage identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
