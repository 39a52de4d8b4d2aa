package memctrl

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePool struct {
	released       int32
	restarts       int32
	releaseReturns int
}

func (f *fakePool) ReleaseUnusedContexts() int {
	atomic.AddInt32(&f.released, 1)
	return f.releaseReturns
}

func (f *fakePool) ForceCleanupAndRestart() error {
	atomic.AddInt32(&f.restarts, 1)
	return nil
}

type fakeCounter struct{ n int }

func (f fakeCounter) ActiveRequests() int { return f.n }

func newTestController(pool *fakePool, rss int64) *Controller {
	c := New(Config{}, pool, fakeCounter{n: 0})
	c.readRSS = func() (int64, error) { return rss, nil }
	return c
}

func TestApplyThreshold_BelowLowDoesNothing(t *testing.T) {
	pool := &fakePool{releaseReturns: 1}
	c := newTestController(pool, 300*1024*1024)

	c.applyThreshold(300*1024*1024, TrendStable)

	require.Zero(t, atomic.LoadInt32(&pool.released))
}

func TestApplyThreshold_MediumReleasesContexts(t *testing.T) {
	pool := &fakePool{releaseReturns: 2}
	c := newTestController(pool, 600*1024*1024)

	c.applyThreshold(600*1024*1024, TrendStable)

	require.Equal(t, int32(1), atomic.LoadInt32(&pool.released))
	require.Zero(t, atomic.LoadInt32(&pool.restarts))
}

func TestApplyThreshold_HighWithNoReleaseSchedulesRestart(t *testing.T) {
	pool := &fakePool{releaseReturns: 0}
	c := newTestController(pool, 1000*1024*1024)

	c.applyThreshold(1000*1024*1024, TrendIncreasing)

	require.Equal(t, int32(1), atomic.LoadInt32(&pool.released))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&pool.restarts) == 1
	}, 3*time.Second, 10*time.Millisecond, "scheduled restart should fire after ~2s")
}

func TestTrendOf(t *testing.T) {
	require.Equal(t, TrendStable, trendOf(nil))
	require.Equal(t, TrendStable, trendOf([]int64{100}))
	require.Equal(t, TrendIncreasing, trendOf([]int64{100, 120}))
	require.Equal(t, TrendDecreasing, trendOf([]int64{100, 80}))
	require.Equal(t, TrendStable, trendOf([]int64{100, 102}))
}

func TestIdleTick_SkipsWhenActiveRequestsAboveOne(t *testing.T) {
	pool := &fakePool{releaseReturns: 1}
	c := New(Config{IdleRSSBytes: 500 * 1024 * 1024}, pool, fakeCounter{n: 2})
	c.readRSS = func() (int64, error) { return 600 * 1024 * 1024, nil }

	c.idleTick()

	require.Zero(t, atomic.LoadInt32(&pool.released))
}

func TestIdleTick_ReleasesWhenIdleAndOverThreshold(t *testing.T) {
	pool := &fakePool{releaseReturns: 1}
	c := New(Config{IdleRSSBytes: 500 * 1024 * 1024}, pool, fakeCounter{n: 0})
	c.readRSS = func() (int64, error) { return 600 * 1024 * 1024, nil }

	c.idleTick()

	require.Equal(t, int32(1), atomic.LoadInt32(&pool.released))
}
