// Package queue implements RequestQueue: a bounded FIFO admission queue
// with dual timeouts and cancellation propagation (spec.md §4.2).
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/scrapeforge/scrapesvc/model"
)

// Config controls queue behavior.
type Config struct {
	MaxConcurrent  int
	RequestTimeout time.Duration
	QueueTimeout   time.Duration
}

// Task is the callable enqueued by a caller. It receives a context bound
// to the execution deadline and must honor cancellation.
type Task[T any] func(ctx context.Context) (T, error)

// itemState tracks an item's position in the dispatch lifecycle. It is
// read and written only while holding the owning Queue's mu, so the
// mark-cancelled and hand-off-a-slot decisions can never race each other.
type itemState int

const (
	itemWaiting itemState = iota
	itemDispatched
	itemCancelled
)

type item struct {
	id        string
	enqueued  time.Time
	queueDead time.Time
	ready     chan struct{} // closed by dispatcher when this item is handed a slot
	state     itemState     // guarded by the owning Queue's mu
}

// Queue bounds concurrent in-flight tasks, FIFO-orders admission, and
// isolates every item's lifecycle with its own deadlines.
type Queue struct {
	cfg Config

	mu       sync.Mutex
	inFlight int
	waiting  []*item
}

// New constructs a Queue from cfg, applying the §4.2 defaults for any
// zero-valued fields.
func New(cfg Config) *Queue {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 50
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 120 * time.Second
	}
	return &Queue{cfg: cfg}
}

// Enqueue admits task under id, dispatching immediately if a slot is
// free, else appending to the FIFO tail. It blocks the caller until the
// task completes, times out while queued or executing, or is cancelled.
func Enqueue[T any](q *Queue, ctx context.Context, id string, task Task[T]) (T, error) {
	var zero T

	it := &item{
		id:        id,
		enqueued:  time.Now(),
		queueDead: time.Now().Add(q.cfg.QueueTimeout),
		ready:     make(chan struct{}),
	}

	q.mu.Lock()
	if q.inFlight < q.cfg.MaxConcurrent {
		q.inFlight++
		it.state = itemDispatched
		q.mu.Unlock()
		close(it.ready)
	} else {
		it.state = itemWaiting
		q.waiting = append(q.waiting, it)
		q.mu.Unlock()
	}

	select {
	case <-it.ready:
		// fallthrough to execution below
	case <-ctx.Done():
		if q.cancel(it) {
			q.onTaskDone()
		}
		return zero, model.NewScrapeError(model.ErrCodeCancelled, "request cancelled while queued", ctx.Err())
	case <-time.After(time.Until(it.queueDead)):
		if q.cancel(it) {
			q.onTaskDone()
		}
		return zero, model.NewScrapeError(model.ErrCodeQueueTimeout, "timed out waiting in queue", nil)
	}

	defer q.onTaskDone()

	if ctx.Err() != nil {
		return zero, model.NewScrapeError(model.ErrCodeCancelled, "request cancelled before dispatch", ctx.Err())
	}

	execCtx, cancel := context.WithTimeout(ctx, q.cfg.RequestTimeout)
	defer cancel()

	result, err := task(execCtx)
	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return zero, model.NewScrapeError(model.ErrCodeTimeout, "request execution timed out", err)
		}
		if execCtx.Err() == context.Canceled {
			return zero, model.NewScrapeError(model.ErrCodeCancelled, "request cancelled during execution", err)
		}
		return zero, err
	}
	return result, nil
}

// cancel marks it cancelled and drops it from the FIFO, atomically with
// onTaskDone's dispatch decision (both hold q.mu). It reports whether a
// slot had already been handed to it before the mark landed — in that
// case the caller has a slot it will never run a task for and must
// release it via onTaskDone.
func (q *Queue) cancel(it *item) (alreadyDispatched bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch it.state {
	case itemDispatched:
		return true
	case itemWaiting:
		it.state = itemCancelled
		for i, w := range q.waiting {
			if w == it {
				q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
				break
			}
		}
	}
	return false
}

// onTaskDone decrements in-flight and dispatches the next queued item
// that has not been cancelled.
func (q *Queue) onTaskDone() {
	q.mu.Lock()
	q.inFlight--
	for len(q.waiting) > 0 {
		next := q.waiting[0]
		q.waiting = q.waiting[1:]
		if next.state == itemCancelled {
			continue
		}
		next.state = itemDispatched
		q.inFlight++
		q.mu.Unlock()
		close(next.ready)
		return
	}
	q.mu.Unlock()
}

// Stats reports current occupancy for the /health surface.
type Stats struct {
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Active: q.inFlight, Pending: len(q.waiting)}
}
