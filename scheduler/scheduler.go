// Package scheduler implements the Scheduler (C6): a periodic tick
// that promotes due-delayed jobs back onto their priority queue and
// reclaims jobs whose processing lease has expired, per §4.6. It is
// designed so that multiple instances can run against the same
// queues safely — every step it performs is individually idempotent,
// per the reconciliation argument in §7.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/elidra/taskq"
	"github.com/elidra/taskq/coordination"
	"github.com/elidra/taskq/internal"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/store"
)

// DefaultInterval is the tick period from §4.6.
const DefaultInterval = time.Second

// DefaultDrainTimeout bounds how long Stop waits for an in-flight tick
// to finish.
const DefaultDrainTimeout = 10 * time.Second

// Config configures a Scheduler.
type Config struct {
	// Queues is the set of queue names this scheduler instance
	// manages. Every tick runs promote/reclaim/sweep for each one.
	Queues []string

	// Interval is the tick period; DefaultInterval if zero.
	Interval time.Duration
}

// Store is the slice of store.Store the scheduler needs: the
// transition methods of store.SchedulerStore, plus store.Observer.Get
// to read a processing job's lockedAt/visibilityTimeout before
// deciding whether its lease has actually expired.
type Store interface {
	store.SchedulerStore
	Get(ctx context.Context, id uuid.UUID) (*job.Job, error)
}

// Scheduler runs the periodic promote/reclaim/sweep tick described in
// §4.6 and the orphaned-PENDING sweep added by §9.1.
type Scheduler struct {
	taskq.Lifecycle

	store Store
	coord coordination.Coordinator
	log   *slog.Logger

	queues   []string
	interval time.Duration

	cron *cron.Cron
}

// New constructs a Scheduler. It is not started automatically.
func New(st Store, coord coordination.Coordinator, cfg Config, log *slog.Logger) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    st,
		coord:    coord,
		log:      log,
		queues:   cfg.Queues,
		interval: interval,
	}
}

// Start begins periodic ticking. Start returns taskq.ErrDoubleStarted
// if the scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.TryStart(); err != nil {
		return err
	}
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: schedule tick: %w", err)
	}
	// internal.RunNow mirrors the immediate first run TimerTask applies
	// to its own ticker loop, so a freshly started fleet doesn't wait a
	// full interval before its first sweep regardless of which
	// periodic-task primitive is driving it.
	go internal.RunNow(ctx, s.tick)
	s.cron.Start()
	return nil
}

// Stop initiates graceful shutdown: no new tick begins, and Stop waits
// up to timeout for any cron-driven tick already in flight to finish.
// The immediate first tick that Start runs in its own goroutine is not
// waited for.
func (s *Scheduler) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	return s.TryStop(timeout, s.doStop)
}

func (s *Scheduler) doStop() internal.DoneChan {
	done := make(internal.DoneChan)
	stopCtx := s.cron.Stop()
	go func() {
		<-stopCtx.Done()
		close(done)
	}()
	return done
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, queue := range s.queues {
		s.promoteDue(ctx, queue)
		s.reclaimExpired(ctx, queue)
		s.sweepOrphaned(ctx, queue)
	}
}
