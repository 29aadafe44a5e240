package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrQueueClosed = errors.New("pipeline: request queue closed")

// RequestQueue is the outbound handoff into the build pipeline: distilled
// modification requests go in, the pipeline drains them.
type RequestQueue interface {
	Enqueue(ctx context.Context, request string) error
}

// MemoryQueue is a bounded in-process RequestQueue. Production deployments
// swap it for the broker the pipeline actually listens on.
type MemoryQueue struct {
	mu     sync.Mutex
	ch     chan string
	done   chan struct{}
	closed bool
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{
		ch:   make(chan string, size),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, request string) error {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	ch := q.ch
	q.mu.Unlock()

	select {
	case ch <- request:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue returns the channel the pipeline drains. It stays open after
// Close so already-buffered requests can still be consumed; consumers should
// also select on Done.
func (q *MemoryQueue) Dequeue() <-chan string { return q.ch }

// Done is closed when the queue shuts down.
func (q *MemoryQueue) Done() <-chan struct{} { return q.done }

// Close unblocks pending and future Enqueue calls with ErrQueueClosed. The
// data channel itself is never closed, so a sender blocked on a full buffer
// cannot panic.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
