package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Refresher is the minimal interface the scheduler needs. The catalog cache
// satisfies it with Refresh returning the number of lists stored.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Scheduler periodically runs a Refresher.
type Scheduler struct {
	interval   time.Duration
	runTimeout time.Duration
	job        Refresher
	log        *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler runs job.Refresh every interval, each run bounded by half the
// interval. If interval <= 0 it defaults to 1 hour.
func NewScheduler(interval time.Duration, job Refresher, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "CatalogScheduler").Logger()
	return &Scheduler{
		interval:   interval,
		runTimeout: interval / 2,
		job:        job,
		log:        &l,
	}
}

// Start begins the loop in a background goroutine. When runNow is set the
// first refresh happens immediately instead of after one interval.
// Calling Start on a running scheduler has no effect.
func (s *Scheduler) Start(parentCtx context.Context, runNow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done, runNow)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}, runNow bool) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	if runNow {
		s.runOnce(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()
	start := time.Now()
	n, err := s.job.Refresh(runCtx)
	if err != nil {
		s.log.Error().Err(err).Int("stored", n).Msg("refresh failed")
		return
	}
	s.log.Debug().Int("stored", n).Dur("took", time.Since(start)).Msg("refresh done")
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("scheduler stopped")
}
