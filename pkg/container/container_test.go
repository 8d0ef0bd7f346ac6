package container

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingletonReturnsSameInstance(t *testing.T) {
	c := New()
	calls := 0
	require.NoError(t, c.RegisterSingleton("db", func() (any, error) {
		calls++
		return &struct{ n int }{n: calls}, nil
	}))

	first, err := c.Resolve("db")
	require.NoError(t, err)
	second, err := c.Resolve("db")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestFactoryReturnsDistinctInstances(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterFactory("uow", func() (any, error) {
		return &struct{}{}, nil
	}))

	first, err := c.Resolve("uow")
	require.NoError(t, err)
	second, err := c.Resolve("uow")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestRegisterTwiceFails(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("k", func() (any, error) { return nil, nil }))

	err := c.RegisterSingleton("k", func() (any, error) { return nil, nil })
	var alreadyErr *ServiceAlreadyRegisteredError
	require.ErrorAs(t, err, &alreadyErr)
	assert.Equal(t, "k", alreadyErr.Key)
}

func TestResolveUnknownKeyFails(t *testing.T) {
	c := New()
	_, err := c.Resolve("missing")
	var notFound *ServiceNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestTryResolveMissingReturnsFalse(t *testing.T) {
	c := New()
	instance, ok, err := c.TryResolve("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, instance)
}

func TestAliasResolvesToSameInstance(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("audit.service", func() (any, error) {
		return &struct{ id string }{id: "the-service"}, nil
	}))
	require.NoError(t, c.RegisterAlias("audit.sink", "audit.service"))

	svc, err := c.Resolve("audit.service")
	require.NoError(t, err)
	sink, err := c.Resolve("audit.sink")
	require.NoError(t, err)

	assert.Same(t, svc, sink)
}

func TestAliasUnknownTargetFails(t *testing.T) {
	c := New()
	err := c.RegisterAlias("a", "missing-target")
	var notFound *ServiceNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestAliasExistingKeyFails(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("k", func() (any, error) { return nil, nil }))
	require.NoError(t, c.RegisterSingleton("alias", func() (any, error) { return nil, nil }))

	err := c.RegisterAlias("alias", "k")
	var alreadyErr *ServiceAlreadyRegisteredError
	require.ErrorAs(t, err, &alreadyErr)
}

func TestCircularDependencyDetected(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("a", func() (any, error) {
		return c.Resolve("b")
	}))
	require.NoError(t, c.RegisterSingleton("b", func() (any, error) {
		return c.Resolve("a")
	}))

	_, err := c.Resolve("a")
	var circular *CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.Contains(t, circular.Chain, "a")
}

func TestIsRegisteredAndKeys(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("a", func() (any, error) { return nil, nil }))
	require.NoError(t, c.RegisterSingleton("b", func() (any, error) { return nil, nil }))

	assert.True(t, c.IsRegistered("a"))
	assert.False(t, c.IsRegistered("missing"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestClearRemovesEverything(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterSingleton("a", func() (any, error) { return nil, nil }))
	c.Clear()
	assert.False(t, c.IsRegistered("a"))
	assert.Empty(t, c.Keys())
}

func TestConcurrentSingletonResolveSerializesRatherThanErrors(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	require.NoError(t, c.RegisterSingleton("slow", func() (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return "the-instance", nil
	}))

	var wg sync.WaitGroup
	results := make([]any, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Resolve("slow")
		}(i)
	}

	// Let the first resolver's factory start, then give the second
	// resolver time to reach the contended wait before releasing.
	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "the-instance", results[i])
	}
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestFactoryFailurePropagatesAndIsRetried(t *testing.T) {
	c := New()
	attempts := 0
	require.NoError(t, c.RegisterSingleton("flaky", func() (any, error) {
		attempts++
		if attempts == 1 {
			return nil, assert.AnError
		}
		return "ok", nil
	}))

	_, err := c.Resolve("flaky")
	require.Error(t, err)

	// A failed singleton factory is not cached; the next resolve retries it.
	instance, err := c.Resolve("flaky")
	require.NoError(t, err)
	assert.Equal(t, "ok", instance)
	assert.Equal(t, 2, attempts)
}
