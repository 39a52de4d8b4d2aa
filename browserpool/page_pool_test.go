package browserpool

import (
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/require"
)

func TestWarmPagePool_TryBorrowTimesOutWhenEmpty(t *testing.T) {
	w := newWarmPagePool(2)

	start := time.Now()
	_, ok := w.tryBorrow(50 * time.Millisecond)
	elapsed := time.Since(start)

	require.False(t, ok)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestWarmPagePool_LenTracksOccupancy(t *testing.T) {
	w := newWarmPagePool(3)
	require.Equal(t, 0, w.len())

	w.put(&rod.Page{})
	require.Equal(t, 1, w.len())

	_, ok := w.tryBorrow(50 * time.Millisecond)
	require.True(t, ok)
	require.Equal(t, 0, w.len())
}
