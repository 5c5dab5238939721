// Package silence provides time-limited channel silencing. Unsilence
// deadlines are persisted in Redis so that silences survive restarts;
// the in-memory schedule is rebuilt from Redis on startup.
package silence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"sentinel-bot/scheduler"
)

// ErrLocked is returned when a silence operation for the same channel
// is already in flight.
var ErrLocked = errors.New("silence: channel operation already in progress")

// Overwrites flips the send-messages permission for a channel.
type Overwrites interface {
	DenySend(channelID string) error
	AllowSend(channelID string) error
}

// DeadlineStore persists unsilence deadlines. A zero deadline means
// the silence is indefinite.
type DeadlineStore interface {
	Set(ctx context.Context, channelID string, deadline time.Time) error
	Get(ctx context.Context, channelID string) (time.Time, bool, error)
	Delete(ctx context.Context, channelID string) error
	All(ctx context.Context) (map[string]time.Time, error)
}

// Silencer silences and unsilences channels.
type Silencer struct {
	perms     Overwrites
	deadlines DeadlineStore
	sched     *scheduler.Scheduler

	mu    sync.Mutex
	locks map[string]struct{}
}

// New creates a Silencer. Call Rebuild on startup and Close on
// shutdown.
func New(perms Overwrites, deadlines DeadlineStore) *Silencer {
	return &Silencer{
		perms:     perms,
		deadlines: deadlines,
		sched:     scheduler.New("silence"),
		locks:     make(map[string]struct{}),
	}
}

// Close cancels all pending unsilence timers.
func (s *Silencer) Close() {
	s.sched.CancelAll()
}

// Operations on one channel are mutually exclusive; a duplicate call
// gets ErrLocked instead of queueing.
func (s *Silencer) acquire(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[channelID]; held {
		return false
	}
	s.locks[channelID] = struct{}{}
	return true
}

func (s *Silencer) release(channelID string) {
	s.mu.Lock()
	delete(s.locks, channelID)
	s.mu.Unlock()
}

// Silence denies sending in the channel. A zero duration silences
// indefinitely; otherwise an unsilence is scheduled and its deadline
// persisted.
func (s *Silencer) Silence(ctx context.Context, channelID string, d time.Duration) error {
	if !s.acquire(channelID) {
		return ErrLocked
	}
	defer s.release(channelID)

	if err := s.perms.DenySend(channelID); err != nil {
		return fmt.Errorf("failed to silence channel %s: %w", channelID, err)
	}

	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if err := s.deadlines.Set(ctx, channelID, deadline); err != nil {
		// The channel is silenced either way; losing the deadline only
		// risks a missed unsilence after a restart.
		log.Printf("Failed to persist silence deadline for %s: %v", channelID, err)
	}

	if d > 0 {
		s.scheduleUnsilence(channelID, deadline)
	}
	return nil
}

// Unsilence restores sending in the channel. Unsilencing a channel
// that is not silenced is a no-op.
func (s *Silencer) Unsilence(ctx context.Context, channelID string) error {
	if !s.acquire(channelID) {
		return ErrLocked
	}
	defer s.release(channelID)

	return s.unsilence(ctx, channelID)
}

func (s *Silencer) unsilence(ctx context.Context, channelID string) error {
	if err := s.perms.AllowSend(channelID); err != nil {
		return fmt.Errorf("failed to unsilence channel %s: %w", channelID, err)
	}
	if err := s.deadlines.Delete(ctx, channelID); err != nil {
		log.Printf("Failed to clear silence deadline for %s: %v", channelID, err)
	}
	s.sched.Cancel(channelID)
	return nil
}

func (s *Silencer) scheduleUnsilence(channelID string, deadline time.Time) {
	s.sched.ScheduleAt(channelID, deadline, func(ctx context.Context) error {
		if !s.acquire(channelID) {
			// A moderator operation owns the channel and settles its
			// state itself.
			return nil
		}
		defer s.release(channelID)

		// The task may have been superseded between the timer firing
		// and the lock being won.
		if ctx.Err() != nil {
			return nil
		}
		current, ok, err := s.deadlines.Get(ctx, channelID)
		if err != nil {
			// Without the store the deadline cannot be confirmed;
			// lifting the silence beats leaving it stuck forever.
			log.Printf("Could not confirm silence deadline for %s: %v", channelID, err)
		} else if !ok || current.IsZero() || current.Unix() != deadline.Unix() {
			return nil
		}
		return s.unsilence(ctx, channelID)
	})
}

// Pending reports whether an unsilence is scheduled for the channel.
func (s *Silencer) Pending(channelID string) bool {
	return s.sched.Contains(channelID)
}

// Rebuild restores schedules from persisted deadlines after a restart.
// Deadlines already in the past are unsilenced immediately.
func (s *Silencer) Rebuild(ctx context.Context) error {
	deadlines, err := s.deadlines.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load silence deadlines: %w", err)
	}

	for channelID, deadline := range deadlines {
		if deadline.IsZero() {
			continue // indefinite
		}
		if time.Now().After(deadline) {
			if !s.acquire(channelID) {
				continue
			}
			err := s.unsilence(ctx, channelID)
			s.release(channelID)
			if err != nil {
				log.Printf("Failed to unsilence overdue channel %s: %v", channelID, err)
			}
			continue
		}
		s.scheduleUnsilence(channelID, deadline)
	}
	log.Printf("Silence schedules rebuilt for %d channels", len(deadlines))
	return nil
}
