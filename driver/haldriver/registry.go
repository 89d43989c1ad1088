// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldriver

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"
)

// BackendFactory returns the hal backend of a registry entry.
type BackendFactory func() (hal.Backend, error)

// RegistryEntry is a registered backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: native GPU APIs (Vulkan, Metal, D3D12)
	//   - 50: OpenGL ES
	//   - 10: CPU rasterizer
	//   - 0: noop
	Priority int

	// Factory returns the hal backend.
	Factory BackendFactory

	// Available reports if the backend can be used in this process.
	Available func() bool
}

// Registry manages the backends Open chooses from.
//
// The native API backends are looked up in the hal registry, so they are
// available only when their hal packages are linked in, typically through
// a blank import of github.com/gogpu/wgpu/hal/allbackends.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// globalRegistry is the default registry.
var globalRegistry = NewRegistry()

func init() {
	for _, b := range []struct {
		name     string
		priority int
		variant  gputypes.Backend
	}{
		{"vulkan", 100, gputypes.BackendVulkan},
		{"metal", 100, gputypes.BackendMetal},
		{"dx12", 90, gputypes.BackendDX12},
		{"gl", 50, gputypes.BackendGL},
	} {
		Register(b.name, b.priority, halBackend(b.variant), halAvailable(b.variant))
	}
	Register("software", 10, func() (hal.Backend, error) { return software.API{}, nil }, nil)
	Register("noop", 0, func() (hal.Backend, error) { return noop.API{}, nil }, nil)
}

// halBackend returns a factory looking up variant in the hal registry.
func halBackend(variant gputypes.Backend) BackendFactory {
	return func() (hal.Backend, error) {
		b, ok := hal.GetBackend(variant)
		if !ok {
			return nil, fmt.Errorf("%w: %s", hal.ErrBackendNotFound, variant)
		}
		return b, nil
	}
}

func halAvailable(variant gputypes.Backend) func() bool {
	return func() bool {
		_, ok := hal.GetBackend(variant)
		return ok
	}
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and Open.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*RegistryEntry)}
}

// Register adds a backend to the global registry.
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory BackendFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) { globalRegistry.Unregister(name) }

// List returns all registered backend names sorted by priority.
func List() []string { return globalRegistry.List() }

// Available returns the names of all available backends sorted by priority.
func Available() []string { return globalRegistry.Available() }

// Get returns a copy of the entry for name.
func Get(name string) (*RegistryEntry, bool) { return globalRegistry.Get(name) }

// Open opens a context on the best available backend of the global
// registry.
func Open(cfg Config) (*Context, error) { return globalRegistry.Open(cfg) }

// OpenByName opens a context on the named backend of the global registry.
func OpenByName(name string, cfg Config) (*Context, error) {
	return globalRegistry.OpenByName(name, cfg)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory BackendFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(false)
}

// Available returns names of all available backends sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(true)
}

// Get returns a copy of the entry for name.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// Open opens a context on the best available backend, trying each in
// priority order.
func (r *Registry) Open(cfg Config) (*Context, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoBackendAvailable
	}

	var lastErr error
	for _, name := range available {
		ctx, err := r.OpenByName(name, cfg)
		if err == nil {
			return ctx, nil
		}
		slogger().Debug("haldriver: backend rejected", "backend", name, "err", err)
		lastErr = err
	}
	return nil, lastErr
}

// OpenByName opens a context on a specific backend.
func (r *Registry) OpenByName(name string, cfg Config) (*Context, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}
	backend, err := entry.Factory()
	if err != nil {
		return nil, fmt.Errorf("haldriver: %s: %w", name, err)
	}
	ctx, err := NewContext(backend, cfg)
	if err != nil {
		return nil, fmt.Errorf("haldriver: %s: %w", name, err)
	}
	ctx.backend = name
	return ctx, nil
}

// sortedNames returns backend names sorted by priority (highest first),
// then by name. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Errors.
var (
	// ErrNoBackendAvailable is returned when no backends are available.
	ErrNoBackendAvailable = errors.New("haldriver: no backend available")
)

// BackendNotFoundError is returned when a requested backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "haldriver: backend not found: " + e.Name
}

// BackendUnavailableError is returned when a backend is registered but
// cannot be used in this process.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "haldriver: backend unavailable: " + e.Name
}
