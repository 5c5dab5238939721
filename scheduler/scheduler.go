// Package scheduler provides a named, per-key delayed task scheduler.
// Each scheduler owns a namespace of string keys; at most one pending
// task exists per key at a time.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// ActionFunc is the deferred work a task runs once its fire time is
// reached. The context is cancelled if the task is cancelled before the
// timer fires; actions performing side effects should check it first.
type ActionFunc func(ctx context.Context) error

type task struct {
	fireAt time.Time
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

// Scheduler runs actions at (or after) a requested wall-clock time,
// keyed uniquely within its namespace. Scheduling an existing key
// cancels the previous task first, so a key can never fire twice.
type Scheduler struct {
	name string

	mu    sync.Mutex
	tasks map[string]*task
}

// New creates a scheduler with the given namespace name, used only for
// log context.
func New(name string) *Scheduler {
	return &Scheduler{
		name:  name,
		tasks: make(map[string]*task),
	}
}

// ScheduleAt registers action to run once the current time reaches
// fireAt. It returns immediately. If a task already exists for key, the
// old task is cancelled and a warning is logged: callers are expected
// to check Contains before rescheduling.
func (s *Scheduler) ScheduleAt(key string, fireAt time.Time, action ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[key]; ok {
		log.Printf("[%s] task %s rescheduled while still pending, cancelling previous", s.name, key)
		s.cancelLocked(key, old)
	}

	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{fireAt: fireAt, ctx: ctx, cancel: cancel}
	t.timer = time.AfterFunc(delay, func() { s.fire(key, t, action) })
	s.tasks[key] = t
}

// ScheduleLater is ScheduleAt for a relative delay.
func (s *Scheduler) ScheduleLater(key string, delay time.Duration, action ActionFunc) {
	s.ScheduleAt(key, time.Now().Add(delay), action)
}

func (s *Scheduler) fire(key string, t *task, action ActionFunc) {
	s.mu.Lock()
	// Only remove the entry if it is still ours; the key may have been
	// rescheduled between the timer firing and acquiring the lock.
	if cur, ok := s.tasks[key]; ok && cur == t {
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	// Cancelled after the timer fired but before the action started.
	if t.ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] task %s panicked: %v", s.name, key, r)
		}
	}()
	if err := action(t.ctx); err != nil {
		log.Printf("[%s] task %s failed: %v", s.name, key, err)
	}
}

// Cancel cancels the pending task for key. Cancelling an absent,
// completed or already-cancelled key is a no-op.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[key]; ok {
		s.cancelLocked(key, t)
	}
}

func (s *Scheduler) cancelLocked(key string, t *task) {
	t.cancel()
	t.timer.Stop()
	delete(s.tasks, key)
}

// CancelAll cancels every pending task. Used at shutdown so no timer
// outlives its owner.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tasks {
		s.cancelLocked(key, t)
	}
}

// Contains reports whether key has a pending task.
func (s *Scheduler) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}
