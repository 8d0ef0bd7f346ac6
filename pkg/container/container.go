// Package container implements the process-wide service locator: a
// string-keyed registry of singleton and factory producers with alias
// indirection and circular-dependency detection.
package container

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
)

// Lifetime controls how many times a service's factory is invoked.
type Lifetime int

const (
	// Singleton services invoke their factory at most once; the first
	// result is cached and returned for every subsequent resolve.
	Singleton Lifetime = iota
	// Factory services invoke their factory on every resolve, producing
	// a fresh instance each time.
	Factory
)

// Factory produces a service instance. Unlike the original Python source,
// Go factories may fail: infrastructure construction is allowed to return
// an error instead of panicking.
type Factory func() (any, error)

type serviceDescriptor struct {
	key      string
	factory  Factory
	lifetime Lifetime
	instance any
	resolved bool
}

// Container is a minimal dependency-injection container. It is safe for
// concurrent resolution of independent keys. For a shared key, the first
// caller to resolve a singleton serializes every other caller until its
// factory returns (spec §5); a factory-lifetime service has no cached
// instance to wait for, so concurrent resolves of the same factory key run
// independently. Registration must not race with resolution.
type Container struct {
	mu        sync.Mutex
	cond      *sync.Cond
	services  map[string]*serviceDescriptor
	resolving map[string]map[uint64]bool // key -> set of goroutine ids currently resolving it
}

// New returns an empty container.
func New() *Container {
	c := &Container{
		services:  make(map[string]*serviceDescriptor),
		resolving: make(map[string]map[uint64]bool),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// RegisterSingleton registers a service whose factory runs at most once.
func (c *Container) RegisterSingleton(key string, factory Factory) error {
	return c.register(key, factory, Singleton)
}

// RegisterFactory registers a service whose factory runs on every resolve.
func (c *Container) RegisterFactory(key string, factory Factory) error {
	return c.register(key, factory, Factory)
}

func (c *Container) register(key string, factory Factory, lifetime Lifetime) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.services[key]; ok {
		return &ServiceAlreadyRegisteredError{Key: key}
	}
	c.services[key] = &serviceDescriptor{key: key, factory: factory, lifetime: lifetime}
	return nil
}

// RegisterAlias registers aliasKey as a singleton that resolves to the same
// instance as targetKey. targetKey must already be registered.
func (c *Container) RegisterAlias(aliasKey, targetKey string) error {
	c.mu.Lock()
	if _, ok := c.services[aliasKey]; ok {
		c.mu.Unlock()
		return &ServiceAlreadyRegisteredError{Key: aliasKey}
	}
	if _, ok := c.services[targetKey]; !ok {
		c.mu.Unlock()
		return &ServiceNotFoundError{Key: targetKey}
	}
	c.services[aliasKey] = &serviceDescriptor{
		key:      aliasKey,
		lifetime: Singleton,
		factory:  func() (any, error) { return c.Resolve(targetKey) },
	}
	c.mu.Unlock()
	return nil
}

// Resolve returns the instance registered under key, invoking its factory
// if necessary. It fails with ServiceNotFoundError if key is unknown, or
// CircularDependencyError if the calling goroutine re-enters resolution of
// key before its own outer call has returned. A different goroutine
// concurrently resolving the same singleton key is not a cycle: Resolve
// blocks until the in-flight factory call completes, then returns the
// instance it produced.
func (c *Container) Resolve(key string) (any, error) {
	gid := goroutineID()

	c.mu.Lock()
	desc, ok := c.services[key]
	if !ok {
		c.mu.Unlock()
		return nil, &ServiceNotFoundError{Key: key}
	}

	for {
		if desc.lifetime == Singleton && desc.resolved {
			instance := desc.instance
			c.mu.Unlock()
			return instance, nil
		}

		owners := c.resolving[key]
		if len(owners) == 0 {
			break
		}
		if owners[gid] {
			chain := c.resolvingChainLocked()
			c.mu.Unlock()
			return nil, &CircularDependencyError{Key: key, Chain: chain}
		}
		if desc.lifetime != Singleton {
			// No cached instance to wait for; let this call's own
			// factory invocation run alongside the in-flight one.
			break
		}
		c.cond.Wait()
	}

	if c.resolving[key] == nil {
		c.resolving[key] = make(map[uint64]bool)
	}
	c.resolving[key][gid] = true
	c.mu.Unlock()

	instance, err := desc.factory()

	c.mu.Lock()
	delete(c.resolving[key], gid)
	if len(c.resolving[key]) == 0 {
		delete(c.resolving, key)
	}
	if err == nil && desc.lifetime == Singleton {
		desc.instance = instance
		desc.resolved = true
	}
	c.mu.Unlock()
	c.cond.Broadcast()

	return instance, err
}

// resolvingChainLocked returns the keys currently mid-resolution by any
// goroutine. Caller must hold c.mu.
func (c *Container) resolvingChainLocked() []string {
	chain := make([]string, 0, len(c.resolving))
	for k := range c.resolving {
		chain = append(chain, k)
	}
	sort.Strings(chain)
	return chain
}

// goroutineID extracts the calling goroutine's id from its stack trace
// header, used only to distinguish genuine reentrancy (the same goroutine
// resolving a key it is already resolving) from two different goroutines
// legitimately racing to resolve the same singleton.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}

// TryResolve resolves key, returning (nil, false) instead of an error when
// key is not registered. Any other failure still propagates.
func (c *Container) TryResolve(key string) (any, bool, error) {
	instance, err := c.Resolve(key)
	if err != nil {
		var nf *ServiceNotFoundError
		if isServiceNotFound(err, &nf) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return instance, true, nil
}

func isServiceNotFound(err error, target **ServiceNotFoundError) bool {
	nf, ok := err.(*ServiceNotFoundError)
	if ok {
		*target = nf
	}
	return ok
}

// IsRegistered reports whether key has been registered.
func (c *Container) IsRegistered(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.services[key]
	return ok
}

// Keys returns every registered key in lexicographic order.
func (c *Container) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.services))
	for k := range c.services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every registration. Intended for test teardown; the loader
// never calls this at runtime.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = make(map[string]*serviceDescriptor)
	c.resolving = make(map[string]map[uint64]bool)
}

// ServiceNotFoundError is returned when resolving or aliasing an unknown key.
type ServiceNotFoundError struct {
	Key string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("container: service not found: %s", e.Key)
}

// ServiceAlreadyRegisteredError is returned when a key is registered twice.
type ServiceAlreadyRegisteredError struct {
	Key string
}

func (e *ServiceAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("container: service already registered: %s", e.Key)
}

// CircularDependencyError is returned when resolving a key re-enters its own
// resolution before completing.
type CircularDependencyError struct {
	Key   string
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("container: circular dependency resolving %s (in progress: %v)", e.Key, e.Chain)
}
