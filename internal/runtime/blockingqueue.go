package runtime

import (
	"context"
	"errors"
	"sync"
)

var ErrQueueClosed = errors.New("queue closed")

// BlockingQueue is an unbounded FIFO. Send never blocks; Receive blocks
// until an item is available. Every item is handed to exactly one receiver.
type BlockingQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
}

func NewBlockingQueue[T any]() *BlockingQueue[T] {
	q := &BlockingQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends to the back of the queue and wakes one receiver.
// Items sent after Close are dropped.
func (q *BlockingQueue[T]) Send(item T) {
	q.mu.Lock()
	if !q.closed {
		q.queue = append(q.queue, item)
		q.cond.Signal()
	}
	q.mu.Unlock()
}

// Receive removes and returns the front item, waiting for one if the queue
// is empty. Buffered items are still returned after Close; once drained,
// Receive returns ErrQueueClosed.
func (q *BlockingQueue[T]) Receive(ctx context.Context) (T, error) {
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		})
		defer stop()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.queue) == 0 {
		var zero T
		if q.closed {
			return zero, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.cond.Wait()
	}
	return q.pop(), nil
}

// TryReceive is the non-blocking form of Receive.
func (q *BlockingQueue[T]) TryReceive() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Close wakes all receivers. It is safe to call more than once.
func (q *BlockingQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// pop must be called with mu held and a non-empty queue.
func (q *BlockingQueue[T]) pop() T {
	var zero T
	item := q.queue[0]
	q.queue[0] = zero
	q.queue = q.queue[1:]
	if len(q.queue) == 0 {
		q.queue = nil
	}
	return item
}
