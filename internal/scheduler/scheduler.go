// Package scheduler runs cancellable deferred tasks keyed by condition.
//
// At most one task per key is pending at a time. Cancellation is best effort:
// a callback that already started keeps running, so callbacks must re-check
// the condition they were scheduled for.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler holds the pending tasks.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	stopped bool
	nextID  uint64
}

type task struct {
	id    uint64
	timer *time.Timer
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		tasks: make(map[string]*task),
	}
}

// Schedule runs fn after d unless a task for key is already pending.
// It reports whether a new task was started.
func (s *Scheduler) Schedule(key string, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	if _, ok := s.tasks[key]; ok {
		return false
	}

	s.nextID++

	t := &task{id: s.nextID}
	t.timer = time.AfterFunc(d, func() {
		if !s.release(key, t.id) {
			return
		}

		fn()
	})

	s.tasks[key] = t

	return true
}

// release forgets the task right before its callback runs.
// It returns false if the task was cancelled or replaced meanwhile.
func (s *Scheduler) release(key string, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok || t.id != id {
		return false
	}

	delete(s.tasks, key)

	return true
}

// Cancel stops the pending task for key, if any.
// It reports whether a pending task was removed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok {
		return false
	}

	t.timer.Stop()
	delete(s.tasks, key)

	return true
}

// Pending reports whether a task for key is waiting to fire.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[key]

	return ok
}

// Stop cancels every pending task and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true

	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
}
