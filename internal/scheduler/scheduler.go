package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers bounds concurrency when none is configured.
const DefaultWorkers = 4

// ErrNotStarted is returned by Wait when Start was never called.
var ErrNotStarted = errors.New("scheduler was not started")

// Task is one async package: its name and the manifest that declared it.
type Task struct {
	Name     string
	Manifest *dep.Manifest
}

// RunFunc executes a task. It may call Enqueue on the same scheduler.
type RunFunc func(ctx context.Context, t Task) error

// Scheduler is a dynamic work queue for async packages. It is single-use.
type Scheduler struct {
	run    RunFunc
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	seen        map[string]struct{}
	order       []string
	pending     []Task
	started     bool
	outstanding int
	done        chan struct{}
	closed      bool
	err         error
}

// New creates a scheduler whose tasks run under ctx.
func New(ctx context.Context, workers int, run RunFunc) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		run:    run,
		sem:    semaphore.NewWeighted(int64(workers)),
		ctx:    ctx,
		cancel: cancel,
		seen:   make(map[string]struct{}),
		done:   make(chan struct{}),
	}
}

// Enqueue schedules the async package name declared by m. It reports
// whether the name was new.
func (s *Scheduler) Enqueue(name string, m *dep.Manifest) bool {
	s.mu.Lock()
	if _, ok := s.seen[name]; ok {
		s.mu.Unlock()
		return false
	}
	s.seen[name] = struct{}{}
	s.order = append(s.order, name)
	s.outstanding++
	t := Task{Name: name, Manifest: m}
	if !s.started {
		s.pending = append(s.pending, t)
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	s.dispatch(t)
	return true
}

// EnqueueAsync enqueues every async package declared by m, in name order.
func (s *Scheduler) EnqueueAsync(m *dep.Manifest) {
	for _, name := range m.AsyncNames() {
		s.Enqueue(name, m)
	}
}

// Start releases the held tasks. Later calls do nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	pending := s.pending
	s.pending = nil
	s.closeIfIdleLocked()
	s.mu.Unlock()

	ctxlog.FromContext(s.ctx).Debug("Scheduler: Starting async packages.", "queued", len(pending))
	for _, t := range pending {
		s.dispatch(t)
	}
}

// Wait blocks until the queue is idle and returns the first task error.
func (s *Scheduler) Wait() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	<-s.done
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Names lists every enqueued name in discovery order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Sorted lists every enqueued name alphabetically.
func (s *Scheduler) Sorted() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

func (s *Scheduler) dispatch(t Task) {
	go func() {
		defer s.finish()
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			s.fail(t.Name, err)
			return
		}
		defer s.sem.Release(1)
		if err := s.ctx.Err(); err != nil {
			s.fail(t.Name, err)
			return
		}

		logger := ctxlog.FromContext(s.ctx).With("async_package", t.Name)
		logger.Debug("Scheduler: Running async package.")
		if err := s.run(s.ctx, t); err != nil {
			s.fail(t.Name, err)
			return
		}
		logger.Debug("Scheduler: Async package done.")
	}()
}

// fail records the first error and cancels the remaining tasks.
func (s *Scheduler) fail(name string, err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = fmt.Errorf("async package %q: %w", name, err)
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding--
	s.closeIfIdleLocked()
}

func (s *Scheduler) closeIfIdleLocked() {
	if s.started && s.outstanding == 0 && !s.closed {
		s.closed = true
		close(s.done)
	}
}
