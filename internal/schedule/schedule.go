// Package schedule runs delayed tasks that can be revoked before they fire.
package schedule

import (
	"sync"
	"time"
)

// Key identifies a task. Group is used for bulk cancellation.
type Key struct {
	Group string
	ID    string
}

type task struct {
	timer *time.Timer
	// seq distinguishes a re-armed task from the one it replaced.
	seq uint64
}

// Scheduler arms time.AfterFunc timers keyed by Key. A cancelled task never runs.
type Scheduler struct {
	tasks   map[Key]task
	seq     uint64
	stopped bool
	wg      sync.WaitGroup
	mu      sync.Mutex
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[Key]task)}
}

// After runs fn once delay has elapsed, unless the task is cancelled first.
// Arming an existing key replaces the pending task. It returns false if the
// scheduler has been stopped.
func (s *Scheduler) After(key Key, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	s.cancelLocked(key)

	s.seq++
	seq := s.seq
	s.wg.Add(1)
	t := time.AfterFunc(delay, func() {
		defer s.wg.Done()
		if !s.claim(key, seq) {
			return
		}
		fn()
	})
	s.tasks[key] = task{timer: t, seq: seq}
	return true
}

// claim removes the task from the table if it is still the armed one.
func (s *Scheduler) claim(key Key, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok || t.seq != seq {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Cancel revokes a pending task. It reports whether a task was pending.
func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(key)
}

// CancelGroup revokes every pending task of a group and returns their number.
func (s *Scheduler) CancelGroup(group string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.tasks {
		if key.Group == group && s.cancelLocked(key) {
			n++
		}
	}
	return n
}

func (s *Scheduler) cancelLocked(key Key) bool {
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	delete(s.tasks, key)
	if t.timer.Stop() {
		// The callback will never run, so release its slot here.
		s.wg.Done()
	}
	return true
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels all pending tasks, refuses new ones and waits for running
// callbacks to return. It returns the number of cancelled tasks.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	s.stopped = true
	n := 0
	for key := range s.tasks {
		if s.cancelLocked(key) {
			n++
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	return n
}
