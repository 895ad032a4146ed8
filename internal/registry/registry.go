// Package registry maps tile names to their handlers. Registration is an
// explicit call made by ordinary startup code; there is no linker-section or
// init-order magic, so the set of tiles a process exposes is always
// inspectable.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicate is returned when a tile name is registered twice.
var ErrDuplicate = errors.New("registry: tile already registered")

// ErrNilHandler is returned when a nil handler is registered.
var ErrNilHandler = errors.New("registry: nil handler")

// Handler executes one tile call: serialized input in, serialized output
// out.
type Handler func(input []byte) ([]byte, error)

// Registry holds the tile handlers of a process. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a tile handler under name. Names must be unique and
// non-empty.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return errors.New("registry: empty tile name")
	}
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup resolves a tile handler by name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered tile names, sorted for deterministic
// listing.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
