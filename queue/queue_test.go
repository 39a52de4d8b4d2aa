package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueue_BoundsConcurrencyAndTimesOutQueuedItems(t *testing.T) {
	q := New(Config{MaxConcurrent: 2, QueueTimeout: 200 * time.Millisecond, RequestTimeout: time.Second})

	var running int32
	var maxRunning int32
	slow := func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxRunning)
			if n <= old || atomic.CompareAndSwapInt32(&maxRunning, old, n) {
				break
			}
		}
		time.Sleep(300 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return int(n), nil
	}

	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func(i int) {
			_, err := Enqueue(q, context.Background(), string(rune('a'+i)), slow)
			results <- err
		}(i)
	}

	var timeouts, successes int
	for i := 0; i < 5; i++ {
		err := <-results
		if err == nil {
			successes++
			continue
		}
		timeouts++
	}

	require.LessOrEqual(t, atomic.LoadInt32(&maxRunning), int32(2))
	require.Greater(t, timeouts, 0, "items waiting past queueTimeout should fail with QUEUE_TIMEOUT")
	require.Greater(t, successes, 0)
}

func TestEnqueue_FIFOAdmissionOrder(t *testing.T) {
	q := New(Config{MaxConcurrent: 1, QueueTimeout: time.Second, RequestTimeout: time.Second})

	started := make(chan string, 2)
	block := make(chan struct{})

	go func() {
		_, _ = Enqueue(q, context.Background(), "first", func(ctx context.Context) (struct{}, error) {
			started <- "first"
			<-block
			return struct{}{}, nil
		})
	}()
	time.Sleep(20 * time.Millisecond) // ensure "first" is admitted before "second" enqueues

	go func() {
		_, _ = Enqueue(q, context.Background(), "second", func(ctx context.Context) (struct{}, error) {
			started <- "second"
			return struct{}{}, nil
		})
	}()
	time.Sleep(20 * time.Millisecond)
	close(block)

	require.Equal(t, "first", <-started)
	require.Equal(t, "second", <-started)
}

func TestEnqueue_RequestTimeoutDuringExecution(t *testing.T) {
	q := New(Config{MaxConcurrent: 5, QueueTimeout: time.Second, RequestTimeout: 50 * time.Millisecond})

	_, err := Enqueue(q, context.Background(), "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Error(t, err)
}
