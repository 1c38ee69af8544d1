package ml

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
)

const resolveCacheSize = 64

// UnknownFrameworkError reports that no registered adapter supports a framework.
type UnknownFrameworkError struct {
	Framework string
}

func (e *UnknownFrameworkError) Error() string {
	return fmt.Sprintf("no adapter for framework %q", e.Framework)
}

// AdapterRegistry resolves a schema's framework to the adapter that loads it.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters []ModelAdapter
	resolved *lru.Cache[string, ModelAdapter]
}

func NewAdapterRegistry(adapters ...ModelAdapter) *AdapterRegistry {
	// only errors on a non-positive size
	resolved, _ := lru.New[string, ModelAdapter](resolveCacheSize)
	return &AdapterRegistry{
		adapters: append([]ModelAdapter(nil), adapters...),
		resolved: resolved,
	}
}

// NewDefaultRegistry registers every adapter shipped with this package.
func NewDefaultRegistry() *AdapterRegistry {
	return NewAdapterRegistry(TreeAdapter{}, ForestAdapter{}, LinearAdapter{})
}

// Register appends an adapter. Earlier registrations win when several support
// the same framework.
func (r *AdapterRegistry) Register(adapter ModelAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = append(r.adapters, adapter)
	r.resolved.Purge()
}

// Resolve returns the first adapter whose Supports reports true for md.
// Framework names match case-insensitively.
func (r *AdapterRegistry) Resolve(md *ModelMetadata) (ModelAdapter, error) {
	key := foldFramework(md.Framework)
	if adapter, ok := r.resolved.Get(key); ok {
		return adapter, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, adapter := range r.adapters {
		if adapter.Supports(md) {
			r.resolved.Add(key, adapter)
			return adapter, nil
		}
	}
	return nil, &UnknownFrameworkError{Framework: md.Framework}
}

// Adapters lists registered adapter names in registration order.
func (r *AdapterRegistry) Adapters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// foldFramework builds a fresh Caser per call; a Caser is not safe for
// concurrent use.
func foldFramework(framework string) string {
	return cases.Fold().String(framework)
}

// frameworkIs reports whether framework matches any of names, ignoring case.
func frameworkIs(framework string, names ...string) bool {
	folded := foldFramework(framework)
	for _, name := range names {
		if folded == foldFramework(name) {
			return true
		}
	}
	return false
}
