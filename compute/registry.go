package compute

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/smoke/internal/logging"
)

// Backend names.
const (
	BackendWGPU = "wgpu"
	BackendCPU  = "cpu"
)

// Factory creates a new service instance.
type Factory func() (Service, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	// The GPU backend is preferred; the CPU reference is the fallback.
	backendPriority = []string{BackendWGPU, BackendCPU}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get opens the backend registered under name.
func Get(name string) (Service, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q not registered", ErrBackendNotAvailable, name)
	}
	svc, err := factory()
	if err != nil {
		return nil, fmt.Errorf("compute: open %s: %w", name, err)
	}
	return svc, nil
}

// Default opens the best available backend based on priority, then any
// other registered backend in name order. Backends that fail to open are
// logged and skipped.
func Default() (Service, error) {
	tried := make(map[string]bool)
	for _, name := range append(append([]string(nil), backendPriority...), Available()...) {
		if tried[name] || !IsRegistered(name) {
			continue
		}
		tried[name] = true
		svc, err := Get(name)
		if err != nil {
			logging.Logger().Warn("compute: backend unavailable, falling back", "backend", name, "err", err)
			continue
		}
		logging.Logger().Info("compute: backend selected", "backend", svc.Name())
		return svc, nil
	}
	return nil, ErrBackendNotAvailable
}

// Open opens the named backend, or the default one when name is empty.
func Open(name string) (Service, error) {
	if name == "" {
		return Default()
	}
	return Get(name)
}
