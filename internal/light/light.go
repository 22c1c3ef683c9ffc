package light

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/trafficlightd/internal/runtime"
)

var (
	ErrAlreadyStarted = errors.New("traffic light already started")
	ErrStopped        = errors.New("traffic light stopped")
)

type lifecycle int

const (
	notStarted lifecycle = iota
	running
	stopped
)

// TrafficLight cycles between Red and Green on its own goroutine. Every
// change is pushed into an internal queue drained by WaitForGreen and
// broadcast to subscribers.
type TrafficLight struct {
	id           uuid.UUID
	cfg          Config
	nextDuration DurationFunc

	// last is written only by the cycling goroutine.
	last     atomic.Pointer[PhaseEvent]
	messages *runtime.BlockingQueue[Phase]

	subsMu           sync.Mutex
	subs             map[int]*runtime.SubQueue[PhaseEvent]
	nextSubscriberID int
	closed           bool

	mu     sync.Mutex
	state  lifecycle
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTrafficLight(cfg Config) (*TrafficLight, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &TrafficLight{
		id:           uuid.New(),
		cfg:          cfg,
		nextDuration: cfg.durationFunc(),
		messages:     runtime.NewBlockingQueue[Phase](),
		subs:         make(map[int]*runtime.SubQueue[PhaseEvent]),
	}
	l.last.Store(&PhaseEvent{Light: l.id, Phase: Red, At: time.Now()})
	return l, nil
}

func (l *TrafficLight) ID() uuid.UUID { return l.id }

// CurrentPhase never blocks.
func (l *TrafficLight) CurrentPhase() Phase {
	return l.last.Load().Phase
}

// Snapshot returns the most recent phase event.
func (l *TrafficLight) Snapshot() PhaseEvent {
	return *l.last.Load()
}

// Start launches the cycling goroutine and returns immediately. The loop
// runs until ctx ends or Stop is called. A light cannot be restarted.
func (l *TrafficLight) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case running:
		return ErrAlreadyStarted
	case stopped:
		return ErrStopped
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.state = running

	log.WithFields(log.Fields{
		"light": l.id.String(),
		"phase": l.CurrentPhase().String(),
	}).Info("Starting traffic light")

	go l.run(loopCtx, l.done)
	return nil
}

// Stop ends the cycling goroutine and waits for it to exit. Blocked
// WaitForGreen callers return ErrStopped and subscriptions are closed.
func (l *TrafficLight) Stop() error {
	l.mu.Lock()
	prev := l.state
	l.state = stopped
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if prev == notStarted || done == nil {
		l.closeOutputs()
		return nil
	}

	cancel()
	<-done
	return nil
}

func (l *TrafficLight) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer l.closeOutputs()

	l.cycleThroughPhases(ctx)

	log.WithField("light", l.id.String()).Info("Stopping traffic light")
}

func (l *TrafficLight) cycleThroughPhases(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	lastToggle := time.Now()
	cycle := l.nextDuration()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Since(lastToggle) <= cycle {
			continue
		}

		l.toggle(cycle)
		lastToggle = time.Now()
		cycle = l.nextDuration()
	}
}

func (l *TrafficLight) toggle(cycle time.Duration) {
	prev := l.last.Load()
	ev := &PhaseEvent{
		Light: l.id,
		Phase: prev.Phase.Toggle(),
		Seq:   prev.Seq + 1,
		At:    time.Now(),
	}

	// Store and fan out under subsMu so Subscribe sees either the old state
	// and the live event, or the new state as its snapshot.
	l.subsMu.Lock()
	l.last.Store(ev)
	for _, sub := range l.subs {
		sub.Enqueue(*ev)
	}
	l.subsMu.Unlock()

	l.messages.Send(ev.Phase)

	log.WithFields(log.Fields{
		"light": l.id.String(),
		"phase": ev.Phase.String(),
		"seq":   ev.Seq,
		"cycle": cycle,
	}).Debug("Traffic light toggled")
}

// closeOutputs marks the light stopped and releases every waiter.
func (l *TrafficLight) closeOutputs() {
	l.mu.Lock()
	l.state = stopped
	l.mu.Unlock()

	l.messages.Close()

	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	l.closed = true
	for id, q := range l.subs {
		q.Close()
		delete(l.subs, id)
	}
}

// WaitForGreen blocks until a Green phase is taken from the light's queue.
// Phases are consumed as they are read, so concurrent callers compete for
// them and a second call waits for the next transition to Green.
func (l *TrafficLight) WaitForGreen(ctx context.Context) error {
	for {
		phase, err := l.messages.Receive(ctx)
		if errors.Is(err, runtime.ErrQueueClosed) {
			return ErrStopped
		}
		if err != nil {
			return err
		}
		if phase == Green {
			return nil
		}
	}
}

// Subscribe follows the "snapshot, then live" pattern: the first event is
// the current state with Snapshot set, followed by every change.
func (l *TrafficLight) Subscribe() (<-chan PhaseEvent, func()) {
	sub := runtime.NewSubQueue[PhaseEvent](8)

	l.subsMu.Lock()
	snapshot := *l.last.Load()
	snapshot.Snapshot = true
	sub.OutOfBandSnapshotSend(snapshot)

	if l.closed {
		l.subsMu.Unlock()
		sub.Close()
		return sub.Chan(), func() {}
	}

	id := l.nextSubscriberID
	l.nextSubscriberID++
	l.subs[id] = sub
	l.subsMu.Unlock()

	sub.Resume()

	unsub := func() {
		l.subsMu.Lock()
		if q, ok := l.subs[id]; ok {
			delete(l.subs, id)
			q.Close()
		}
		l.subsMu.Unlock()
	}
	return sub.Chan(), unsub
}

// NextTransition waits for the next live change to target. Unlike
// WaitForGreen, every caller observes the same transition.
func (l *TrafficLight) NextTransition(ctx context.Context, target Phase) (PhaseEvent, error) {
	if target != Red && target != Green {
		return PhaseEvent{}, fmt.Errorf("%w: %d", ErrUnknownPhase, int(target))
	}

	ch, unsub := l.Subscribe()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return PhaseEvent{}, ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return PhaseEvent{}, ErrStopped
			}
			if ev.Snapshot || ev.Phase != target {
				continue
			}
			return ev, nil
		}
	}
}
