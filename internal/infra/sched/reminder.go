package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pizza-order-bot/internal/infra/worker"
)

// Submitter queues a task for background execution.
type Submitter interface {
	Submit(task worker.Task) error
}

// ReminderScheduler runs delayed jobs once. A pending job ends only by
// firing or by Stop; jobs under the same key do not affect each other.
type ReminderScheduler struct {
	pool Submitter
	log  *zerolog.Logger

	mu      sync.Mutex
	seq     uint64
	timers  map[uint64]*time.Timer
	stopped bool
}

func NewReminderScheduler(pool Submitter, logger *zerolog.Logger) *ReminderScheduler {
	compLog := logger.With().Str("component", "ReminderScheduler").Logger()
	return &ReminderScheduler{
		pool:   pool,
		log:    &compLog,
		timers: make(map[uint64]*time.Timer),
	}
}

// Schedule arms job to run after delay. The key only labels the job in
// logs. It is a no-op after Stop.
func (s *ReminderScheduler) Schedule(key string, delay time.Duration, job func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.seq++
	id := s.seq

	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		if err := s.pool.Submit(job); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("reminder dropped")
		}
	})
}

// Pending returns the number of armed reminders.
func (s *ReminderScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms every pending reminder.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
	s.log.Info().Msg("reminder scheduler stopped")
}
