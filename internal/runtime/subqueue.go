package runtime

import (
	"context"
	"sync"
)

// SubQueue buffers events for a single subscriber. Producers never block on a
// slow reader; a dispatcher goroutine moves events from an unbounded
// BlockingQueue into the subscriber channel.
type SubQueue[T any] struct {
	queue *BlockingQueue[T]
	outCh chan T // consumer reads from this

	resume     chan struct{} // gate dispatch until snapshot sent
	resumeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSubQueue[T any](outBuf int) *SubQueue[T] {
	ctx, cancel := context.WithCancel(context.Background())
	sq := &SubQueue[T]{
		queue:  NewBlockingQueue[T](),
		outCh:  make(chan T, outBuf),
		resume: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go sq.dispatch()
	return sq
}

// Channel exposed to subscriber.
func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

// Enqueue appends to the in-memory queue and wakes dispatcher.
func (sq *SubQueue[T]) Enqueue(ev T) {
	sq.queue.Send(ev)
}

// Resume starts dispatching. Events enqueued while paused are delivered
// after anything sent out of band.
func (sq *SubQueue[T]) Resume() {
	sq.resumeOnce.Do(func() { close(sq.resume) })
}

// OutOfBandSnapshotSend pushes a message directly to the subscriber channel,
// bypassing the queue. Use ONLY before Resume, with a channel buffer large
// enough for the whole snapshot.
func (sq *SubQueue[T]) OutOfBandSnapshotSend(ev T) {
	sq.outCh <- ev
}

// Close stops the dispatcher and closes the out channel.
func (sq *SubQueue[T]) Close() {
	sq.cancel()
	sq.queue.Close()
}

func (sq *SubQueue[T]) dispatch() {
	defer close(sq.outCh)

	select {
	case <-sq.resume:
	case <-sq.ctx.Done():
		return
	}

	for {
		ev, err := sq.queue.Receive(sq.ctx)
		if err != nil || sq.ctx.Err() != nil {
			return
		}

		// Blocks only on the channel buffer / reader.
		select {
		case sq.outCh <- ev:
		case <-sq.ctx.Done():
			return
		}
	}
}
