package runtime

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrSupervisorStarted = errors.New("supervisor already started")

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs named workers side by side and tears them down in reverse
// registration order once the context ends or any worker fails.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSupervisorStarted
	}
	s.started = true
	s.runCtx, s.cancel = context.WithCancel(ctx)
	ctx = s.runCtx

	for _, w := range s.workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.WithField("worker", w.name).Debug("Worker starting")
			if err := w.run(ctx); err != nil {
				log.WithField("worker", w.name).WithError(err).Error("Worker failed")
				s.errOnce.Do(func() { s.err = err })
				s.cancel()
				return
			}
			log.WithField("worker", w.name).Debug("Worker exited")
		}()
	}
	return nil
}

// Wait blocks until ctx ends or a worker fails, then closes every worker and
// returns the first failure.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	var failed <-chan struct{}
	if s.runCtx != nil {
		failed = s.runCtx.Done()
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done(): // wait for signal
	case <-failed:
	}

	s.mu.Lock()
	workers := append([]worker(nil), s.workers...)
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	// Close in reverse order.
	for i := len(workers) - 1; i >= 0; i-- {
		if workers[i].closeF == nil {
			continue
		}
		if err := workers[i].closeF(); err != nil {
			log.WithField("worker", workers[i].name).WithError(err).Warn("Worker close failed")
		}
	}
	s.wg.Wait()
	return s.err
}
