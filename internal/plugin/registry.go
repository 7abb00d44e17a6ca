package plugin

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Registry manages handler registration and lookup by extension.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]map[string]Handler // map[name]map[version]Handler
	latest     map[string]string             // map[name]most recently registered version
	extensions map[string]string             // map[input extension]name
}

// NewRegistry creates a new empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:   make(map[string]map[string]Handler),
		latest:     make(map[string]string),
		extensions: make(map[string]string),
	}
}

// Register adds a handler to the registry.
// Returns an error if a handler with the same name and version already exists,
// or if another handler already claims the input extension.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("cannot register nil handler")
	}

	metadata := h.Metadata()
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("invalid handler metadata: %w", err)
	}
	ext := NormalizeExtension(h.InputExtension())
	if ext == "" {
		return fmt.Errorf("handler %s declares no input extension", metadata.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.extensions[ext]; ok && owner != metadata.Name {
		return fmt.Errorf("extension .%s is already handled by %s", ext, owner)
	}

	if r.handlers[metadata.Name] == nil {
		r.handlers[metadata.Name] = make(map[string]Handler)
	}
	if _, exists := r.handlers[metadata.Name][metadata.Version]; exists {
		return fmt.Errorf("handler %s@%s already registered", metadata.Name, metadata.Version)
	}

	r.handlers[metadata.Name][metadata.Version] = h
	r.latest[metadata.Name] = metadata.Version
	r.extensions[ext] = metadata.Name
	return nil
}

// Get retrieves a specific handler by name and version.
func (r *Registry) Get(name, version string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("handler %s not found", name)
	}

	h, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("handler %s@%s not found", name, version)
	}

	return h, nil
}

// GetLatest retrieves the most recently registered version of a handler.
func (r *Registry) GetLatest(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestLocked(name)
}

func (r *Registry) latestLocked(name string) (Handler, error) {
	version, ok := r.latest[name]
	if !ok {
		return nil, fmt.Errorf("handler %s not found", name)
	}
	return r.handlers[name][version], nil
}

// ForExtension returns the handler registered for ext, which may carry a
// leading dot.
func (r *Registry) ForExtension(ext string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.extensions[NormalizeExtension(ext)]
	if !ok {
		return nil, false
	}
	h, err := r.latestLocked(name)
	if err != nil {
		return nil, false
	}
	return h, true
}

// ForPath returns the handler for the final extension of path.
func (r *Registry) ForPath(path string) (Handler, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, false
	}
	return r.ForExtension(ext)
}

// List returns the latest version of every handler, sorted by name.
func (r *Registry) List() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.latest))
	for name := range r.latest {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Handler, 0, len(names))
	for _, name := range names {
		result = append(result, r.handlers[name][r.latest[name]])
	}
	return result
}

// ListVersions returns all registered versions of a handler.
func (r *Registry) ListVersions(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.handlers[name]
	if !ok {
		return nil
	}

	result := make([]string, 0, len(versions))
	for version := range versions {
		result = append(result, version)
	}
	sort.Strings(result)
	return result
}

// Has checks if a handler with the given name exists (any version).
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.handlers[name]
	return ok
}

// Unregister removes a handler version from the registry.
func (r *Registry) Unregister(name, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.handlers[name]
	if !ok {
		return fmt.Errorf("handler %s not found", name)
	}
	if _, ok := versions[version]; !ok {
		return fmt.Errorf("handler %s@%s not found", name, version)
	}

	delete(versions, version)
	if len(versions) > 0 {
		if r.latest[name] == version {
			remaining := make([]string, 0, len(versions))
			for v := range versions {
				remaining = append(remaining, v)
			}
			sort.Strings(remaining)
			r.latest[name] = remaining[len(remaining)-1]
		}
		return nil
	}

	delete(r.handlers, name)
	delete(r.latest, name)
	for ext, owner := range r.extensions {
		if owner == name {
			delete(r.extensions, ext)
		}
	}
	return nil
}

// Count returns the total number of registered handlers (all versions).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, versions := range r.handlers {
		count += len(versions)
	}
	return count
}
