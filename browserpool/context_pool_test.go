package browserpool

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"
)

func fakeContextPool(cfg contextPoolConfig) (*contextPool, *int32, *int32) {
	var created, destroyed int32
	factory := func() (*browserContext, error) {
		n := atomic.AddInt32(&created, 1)
		return &browserContext{id: proto.TargetBrowserContextID(fmt.Sprintf("ctx-%d", n)), createdAt: time.Now()}, nil
	}
	destroyer := func(bc *browserContext) { atomic.AddInt32(&destroyed, 1) }
	return newContextPoolWithFactory(cfg, factory, destroyer), &created, &destroyed
}

func TestContextPool_PrewarmCreatesMinContexts(t *testing.T) {
	pool, created, _ := fakeContextPool(contextPoolConfig{Min: 3, Max: 10})

	require.NoError(t, pool.prewarm(3, time.Second))

	idle, total := pool.size()
	require.Equal(t, 3, idle)
	require.Equal(t, 3, total)
	require.Equal(t, int32(3), atomic.LoadInt32(created))
}

func TestContextPool_GetIsLIFO(t *testing.T) {
	pool, _, _ := fakeContextPool(contextPoolConfig{Min: 2, Max: 10})
	require.NoError(t, pool.prewarm(2, time.Second))

	first, err := pool.get()
	require.NoError(t, err)
	second, err := pool.get()
	require.NoError(t, err)

	// both idle contexts are drained now; put them back in reverse order
	// and confirm the most recently released one is borrowed first.
	pool.put(first, false)
	pool.put(second, false)

	got, err := pool.get()
	require.NoError(t, err)
	require.Equal(t, second.id, got.id, "contextPool.get must be LIFO-biased")
}

func TestContextPool_GetCreatesNewUpToMax(t *testing.T) {
	pool, created, _ := fakeContextPool(contextPoolConfig{Min: 0, Max: 2})

	_, err := pool.get()
	require.NoError(t, err)
	_, err = pool.get()
	require.NoError(t, err)

	_, err = pool.get()
	require.Error(t, err, "get must fail once total contexts reach Max")
	require.Equal(t, int32(2), atomic.LoadInt32(created))
}

func TestContextPool_ReleaseIdleAboveMin(t *testing.T) {
	pool, _, destroyed := fakeContextPool(contextPoolConfig{Min: 1, Max: 10})
	require.NoError(t, pool.prewarm(4, time.Second))

	n := pool.releaseIdleAboveMin()
	require.Equal(t, 3, n)

	idle, total := pool.size()
	require.Equal(t, 1, idle)
	require.Equal(t, 1, total)
	require.Equal(t, int32(3), atomic.LoadInt32(destroyed))
}

func TestContextPool_DrainDisposesEverythingAndRejectsGet(t *testing.T) {
	pool, _, destroyed := fakeContextPool(contextPoolConfig{Min: 2, Max: 10})
	require.NoError(t, pool.prewarm(2, time.Second))

	pool.drain()

	require.True(t, pool.isDraining())
	require.Equal(t, int32(2), atomic.LoadInt32(destroyed))

	_, err := pool.get()
	require.ErrorIs(t, err, errPoolDraining)
}

func TestContextPool_PutDuringDrainDestroysInsteadOfStashing(t *testing.T) {
	pool, _, destroyed := fakeContextPool(contextPoolConfig{Min: 1, Max: 10})
	bc, err := pool.get()
	require.NoError(t, err)

	pool.drain()
	pool.put(bc, false)

	require.Equal(t, int32(1), atomic.LoadInt32(destroyed))
}
