package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// A cancelled item sitting in the FIFO must never invoke its task.
func TestEnqueue_CancelledWhileWaitingNeverInvokesTask(t *testing.T) {
	q := New(Config{MaxConcurrent: 1, QueueTimeout: time.Second, RequestTimeout: time.Second})

	block := make(chan struct{})
	go func() {
		_, _ = Enqueue(q, context.Background(), "holder", func(ctx context.Context) (struct{}, error) {
			<-block
			return struct{}{}, nil
		})
	}()
	time.Sleep(20 * time.Millisecond) // "holder" now occupies the only slot

	ctx, cancel := context.WithCancel(context.Background())
	invoked := false
	done := make(chan error, 1)
	go func() {
		_, err := Enqueue(q, ctx, "waiter", func(ctx context.Context) (struct{}, error) {
			invoked = true
			return struct{}{}, nil
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond) // "waiter" now sits in the FIFO
	cancel()

	err := <-done
	require.Error(t, err)
	require.False(t, invoked, "a cancelled queued item must not invoke its task")

	close(block)
}

func TestEnqueue_AlreadyCancelledContextFailsFast(t *testing.T) {
	q := New(Config{MaxConcurrent: 5, QueueTimeout: time.Second, RequestTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invoked := false
	_, err := Enqueue(q, ctx, "pre-cancelled", func(ctx context.Context) (struct{}, error) {
		invoked = true
		return struct{}{}, nil
	})

	require.Error(t, err)
	require.False(t, invoked)
}
