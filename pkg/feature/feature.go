// Package feature defines the contract every feature module implements to
// participate in the loader's registration and boot-order computation, and
// hosts the registry feature packages use to advertise themselves.
package feature

import (
	"context"
	"sort"
	"sync"

	"github.com/qmtool-platform/qmtool-core/pkg/container"
	"github.com/qmtool-platform/qmtool-core/pkg/env"
)

// Module is the contract a feature package implements so the loader can
// register its services into the container and start it once every feature
// has been registered, grounded on original_source/core/loader/feature_module.py's
// FeatureModule abstract base class.
type Module interface {
	// ID returns the feature id. It must match the feature's folder name
	// and meta.json id.
	ID() string

	// Register wires the feature's services into container under whatever
	// keys the feature owns. It may resolve any key registered earlier in
	// boot order, but must not resolve its own keys.
	Register(ctx context.Context, c *container.Container, e *env.AppEnv) error

	// Start runs after every feature has been registered. Features with no
	// post-registration work return nil.
	Start(ctx context.Context, c *container.Container) error
}

var (
	mu       sync.Mutex
	registry = map[string]Module{}
)

// Register advertises a module under its own ID. Feature packages call this
// from an init() function. Registering the same id twice panics: it
// indicates two feature packages claim the same identity, a build-time
// programming error rather than a recoverable runtime condition.
func Register(m Module) {
	mu.Lock()
	defer mu.Unlock()
	id := m.ID()
	if _, exists := registry[id]; exists {
		panic("feature: module already registered: " + id)
	}
	registry[id] = m
}

// Lookup returns the module registered under id, if any.
func Lookup(id string) (Module, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := registry[id]
	return m, ok
}

// All returns every registered module sorted by id.
func All() []Module {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Module, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Names returns the ids of every registered module, sorted.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
