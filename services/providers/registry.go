package providers

import (
	"errors"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrAdapterMissing is returned when a descriptor has no transport adapter
	ErrAdapterMissing = errors.New("no transport adapter for provider")
)

// Registry manages provider descriptors and their transport adapters.
// Declaration order of registration is preserved and used as the
// deterministic tie-break during selection.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	adapters    map[string]TransportAdapter
	order       []string
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		adapters:    make(map[string]TransportAdapter),
	}
}

// Register adds a descriptor + adapter pair to the registry
func (r *Registry) Register(desc *Descriptor, adapter TransportAdapter) error {
	if desc == nil {
		return errors.New("descriptor cannot be nil")
	}
	if desc.ID == "" {
		return errors.New("provider id cannot be empty")
	}
	if adapter == nil {
		return ErrAdapterMissing
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[desc.ID]; exists {
		return ErrProviderAlreadyRegistered
	}

	r.descriptors[desc.ID] = desc.clone()
	r.adapters[desc.ID] = adapter
	r.order = append(r.order, desc.ID)

	return nil
}

// Get returns a copy of the descriptor for a provider id
func (r *Registry) Get(id string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, exists := r.descriptors[id]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return desc.clone(), nil
}

// Adapter returns the transport adapter for a provider id
func (r *Registry) Adapter(id string) (TransportAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[id]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return adapter, nil
}

// List returns descriptor copies in declaration order
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id].clone())
	}
	return out
}

// Len returns the number of registered providers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SetEnabled flips the enabled flag on a provider. Providers are never
// deleted at runtime, only disabled.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, exists := r.descriptors[id]
	if !exists {
		return ErrProviderNotFound
	}
	desc.Enabled = enabled
	return nil
}

// SetCost updates the per-1k-token cost of a provider
func (r *Registry) SetCost(id string, costPerKTokens float64) error {
	if costPerKTokens < 0 {
		return errors.New("cost cannot be negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	desc, exists := r.descriptors[id]
	if !exists {
		return ErrProviderNotFound
	}
	desc.CostPerKTokens = costPerKTokens
	return nil
}

// DeclarationIndex returns the registration position of a provider id,
// or -1 when unknown. Used for deterministic rank tie-breaks.
func (r *Registry) DeclarationIndex(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, pid := range r.order {
		if pid == id {
			return i
		}
	}
	return -1
}
