package downloader

import (
	"fmt"
	"sync"
)

const noExamples = "Platform-specific URLs"

// Platform describes a registered handler for listings.
type Platform struct {
	Name     string   `json:"name"`
	Examples []string `json:"examples"`
}

type registration struct {
	name    string
	factory Factory
}

// Registry maps platform names to handler factories in registration
// order. Resolve walks that order, so when two handlers accept the same
// URL the one registered first wins.
type Registry struct {
	mu      sync.RWMutex
	entries []registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds factory under name. Registering an existing name replaces
// its factory and keeps its position.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries[i].factory = factory
			return
		}
	}
	r.entries = append(r.entries, registration{name: name, factory: factory})
}

// Unregister removes name. It reports whether name was registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	entries := r.snapshot()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Resolve instantiates each factory with opts and returns the first
// handler that accepts rawURL. Factories that fail are skipped. When no
// handler matches, the error names the first failed factory.
func (r *Registry) Resolve(rawURL string, opts Options) (Handler, error) {
	var failed error
	for _, e := range r.snapshot() {
		h, err := e.factory(opts)
		if err != nil {
			if failed == nil {
				failed = fmt.Errorf("%s downloader unavailable: %v", e.name, err)
			}
			continue
		}
		if h.CanHandle(rawURL) {
			return h, nil
		}
	}
	if failed != nil {
		return nil, fmt.Errorf("%w (%v)", noHandlerError(rawURL), failed)
	}
	return nil, noHandlerError(rawURL)
}

// Matches lists every registered name whose handler accepts rawURL.
// Factories that fail are left out.
func (r *Registry) Matches(rawURL string, opts Options) []string {
	var names []string
	for _, e := range r.snapshot() {
		h, err := e.factory(opts)
		if err != nil {
			continue
		}
		if h.CanHandle(rawURL) {
			names = append(names, e.name)
		}
	}
	return names
}

// Platforms lists each registered handler with its example URLs.
func (r *Registry) Platforms(opts Options) []Platform {
	entries := r.snapshot()
	out := make([]Platform, 0, len(entries))
	for _, e := range entries {
		p := Platform{Name: e.name, Examples: []string{noExamples}}
		if h, err := e.factory(opts); err == nil {
			if d, ok := h.(Describer); ok && len(d.Examples()) > 0 {
				p.Examples = d.Examples()
			}
		}
		out = append(out, p)
	}
	return out
}

func (r *Registry) snapshot() []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]registration, len(r.entries))
	copy(out, r.entries)
	return out
}
