package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pubsink/internal/ports"
)

func TestHandleRegistry_ConcurrentFirstUseResolvesOnce(t *testing.T) {
	pub := newFakePublisher()
	pub.resolveLag = 20 * time.Millisecond
	r := NewHandleRegistry(pub, mockLogger{})

	const callers = 16
	var wg sync.WaitGroup
	handles := make([]ports.Handle, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i], errs[i] = r.Resolve(context.Background(), primaryDest)
		}()
	}
	wg.Wait()

	for i := range handles {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i], "every caller must observe the same handle")
	}
	assert.Equal(t, int32(1), pub.resolves.Load())
	assert.Equal(t, 1, r.Len())
}

func TestHandleRegistry_DistinctDestinations(t *testing.T) {
	pub := newFakePublisher()
	r := NewHandleRegistry(pub, mockLogger{})

	a, err := r.Resolve(context.Background(), primaryDest)
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), dlqDest)
	require.NoError(t, err)
	again, err := r.Resolve(context.Background(), primaryDest)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Same(t, a, again)
	assert.Equal(t, 2, r.Len())
}

func TestHandleRegistry_FailuresAreNotCached(t *testing.T) {
	pub := newFakePublisher()
	resolveErr := errors.New("topic not found")
	pub.failResolve(primaryDest, resolveErr)
	r := NewHandleRegistry(pub, mockLogger{})

	_, err := r.Resolve(context.Background(), primaryDest)
	require.ErrorIs(t, err, resolveErr)
	assert.Contains(t, err.Error(), primaryDest.Key())
	assert.Zero(t, r.Len())

	pub.mu.Lock()
	delete(pub.failures, primaryDest.Key())
	pub.mu.Unlock()

	h, err := r.Resolve(context.Background(), primaryDest)
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int32(2), pub.resolves.Load())
}

func TestHandleRegistry_Close(t *testing.T) {
	pub := newFakePublisher()
	h1 := pub.on(primaryDest, acceptAll)
	h2 := pub.on(dlqDest, acceptAll)
	r := NewHandleRegistry(pub, mockLogger{})

	_, err := r.Resolve(context.Background(), primaryDest)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), dlqDest)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.True(t, h1.closed)
	assert.True(t, h2.closed)
	assert.Zero(t, r.Len())
}
