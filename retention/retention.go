// Package retention implements background purging of terminal jobs
// from the Durable Store. It runs independently of Worker and
// Scheduler: it never inspects a lease or a visibility timeout, and
// it refuses to touch anything but a terminal job.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/elidra/taskq"
	"github.com/elidra/taskq/internal"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/store"
)

// DefaultInterval is how often a Policy runs if Interval is unset.
const DefaultInterval = time.Hour

// DefaultDrainTimeout bounds how long Stop waits for an in-flight
// purge to finish.
const DefaultDrainTimeout = 10 * time.Second

// Policy configures one purge rule run by a Retention worker.
type Policy struct {
	// Status restricts deletion to jobs in this state. job.Unknown
	// purges every terminal state (COMPLETED, DEAD, CANCELLED).
	Status job.Status

	// Interval is how often this policy runs; DefaultInterval if zero.
	Interval time.Duration

	// MaxAge, if non-zero, restricts deletion to jobs created at least
	// MaxAge ago. Zero means no age filter: every matching job is
	// purged regardless of age.
	MaxAge time.Duration
}

// Cleaner is the store slice Retention needs.
type Cleaner interface {
	Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error)
}

// Retention periodically purges terminal jobs per a set of Policies.
// Unlike Worker and Scheduler it runs one internal.TimerTask per
// policy rather than a shared tick, since policies commonly run at
// different intervals (e.g. purge DEAD jobs weekly, COMPLETED jobs
// daily).
type Retention struct {
	taskq.Lifecycle

	store    Cleaner
	log      *slog.Logger
	policies []Policy

	tasks []internal.TimerTask
}

// New constructs a Retention worker. It is not started automatically.
func New(st Cleaner, policies []Policy, log *slog.Logger) *Retention {
	normalized := make([]Policy, len(policies))
	for i, p := range policies {
		if p.Interval <= 0 {
			p.Interval = DefaultInterval
		}
		normalized[i] = p
	}
	return &Retention{
		store:    st,
		log:      log,
		policies: normalized,
	}
}

// Start begins running every configured policy on its own interval.
// Start returns taskq.ErrDoubleStarted if Retention is already
// running.
func (r *Retention) Start(ctx context.Context) error {
	if err := r.TryStart(); err != nil {
		return err
	}
	r.tasks = make([]internal.TimerTask, len(r.policies))
	for i, p := range r.policies {
		policy := p
		r.tasks[i].Start(ctx, func(ctx context.Context) { r.purge(ctx, policy) }, policy.Interval)
	}
	return nil
}

// Stop initiates graceful shutdown: no new purge begins, and Stop
// waits up to timeout for any purge already in flight to finish.
func (r *Retention) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	return r.TryStop(timeout, r.doStop)
}

func (r *Retention) doStop() internal.DoneChan {
	done := make(internal.DoneChan)
	chans := make([]internal.DoneChan, len(r.tasks))
	for i := range r.tasks {
		chans[i] = r.tasks[i].Stop()
	}
	go func() {
		for _, c := range chans {
			<-c
		}
		close(done)
	}()
	return done
}

func (r *Retention) purge(ctx context.Context, p Policy) {
	var before *time.Time
	if p.MaxAge > 0 {
		t := time.Now().Add(-p.MaxAge)
		before = &t
	}
	count, err := r.store.Clean(ctx, p.Status, before)
	if err != nil {
		r.log.Error("retention: purge failed", "status", p.Status, "error", err)
		return
	}
	r.log.Info("retention: purged jobs", "status", p.Status, "count", count)
}
