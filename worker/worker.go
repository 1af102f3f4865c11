// Package worker implements the Worker (C7): a pool of independent
// polling lanes, each owning its own job's claim-execute-finalize
// pipeline end to end (§4.7). Unlike a classic pull-then-dispatch
// pool, a lane never hands a claimed job to another goroutine — the
// goroutine that dequeues a job is the same one that claims it,
// invokes its handler, extends its lease, and writes the terminal
// state. That ownership is what makes the per-job pipeline safe to
// reason about without additional synchronization.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elidra/taskq"
	"github.com/elidra/taskq/coordination"
	"github.com/elidra/taskq/dlq"
	"github.com/elidra/taskq/internal"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/retry"
	"github.com/elidra/taskq/store"

	"github.com/google/uuid"
)

// DefaultPollInterval is the sleep a lane takes after a pass over
// every configured queue turns up no job (§4.7).
const DefaultPollInterval = 100 * time.Millisecond

// DefaultDrainTimeout is the maximum time Stop waits for in-flight
// jobs to finish (§4.7.2).
const DefaultDrainTimeout = 30 * time.Second

// DefaultHeartbeatInterval is how often a running Worker publishes its
// liveness record.
const DefaultHeartbeatInterval = 15 * time.Second

// Store is the slice of store.Store the worker needs: the full
// claim/finalize transition set, plus Get for the failure handler's
// re-read of the incremented attempts count, plus heartbeat
// publication.
type Store interface {
	store.Puller
	store.HeartbeatStore
	Get(ctx context.Context, id uuid.UUID) (*job.Job, error)
}

// Config configures a Worker.
type Config struct {
	WorkerId    string
	Hostname    string
	Queues      []string
	Concurrency int

	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	Backoff           retry.Backoff

	HeartbeatInterval time.Duration
	DrainTimeout      time.Duration
}

// Worker runs Config.Concurrency lanes against Config.Queues.
type Worker struct {
	taskq.Lifecycle

	store    Store
	coord    coordination.Coordinator
	policy   *dlq.Policy
	registry *Registry
	log      *slog.Logger
	cfg      Config

	activeJobs atomic.Int64
	draining   atomic.Bool
	startedAt  time.Time

	cancel        context.CancelFunc
	wg            sync.WaitGroup
	heartbeatTask internal.TimerTask
}

// New constructs a Worker. It is not started automatically.
func New(st Store, coord coordination.Coordinator, policy *dlq.Policy, registry *Registry, cfg Config, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = job.DefaultVisibilityTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Worker{
		store:    st,
		coord:    coord,
		policy:   policy,
		registry: registry,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches Config.Concurrency lanes and the heartbeat
// publisher. Start returns taskq.ErrDoubleStarted if already running.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.TryStart(); err != nil {
		return err
	}
	w.startedAt = time.Now()
	w.draining.Store(false)
	laneCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(w.cfg.Concurrency)
	for i := 0; i < w.cfg.Concurrency; i++ {
		go w.lane(laneCtx)
	}
	w.heartbeatTask.Start(laneCtx, w.publishHeartbeat, w.cfg.HeartbeatInterval)
	w.log.Info("worker started", "workerId", w.cfg.WorkerId, "queues", w.cfg.Queues, "concurrency", w.cfg.Concurrency)
	return nil
}

// Stop flips the draining flag so lanes stop claiming new work, then
// waits up to timeout (DefaultDrainTimeout if zero) for every lane's
// current pipeline to finish. After the wait — whether or not it
// completed in time — the worker's context is cancelled; any job
// still in flight past the deadline is left for the scheduler's
// visibility-timeout reclaim, per §4.7.2.
func (w *Worker) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = w.cfg.DrainTimeout
	}
	defer w.cancel()
	w.draining.Store(true)
	return w.TryStop(timeout, w.doStop)
}

func (w *Worker) doStop() internal.DoneChan {
	heartbeatDone := w.heartbeatTask.Stop()
	lanesDone := internal.WrapWaitGroup(&w.wg)
	return internal.Combine(heartbeatDone, lanesDone)
}

func (w *Worker) lane(ctx context.Context) {
	defer w.wg.Done()
	for {
		if w.draining.Load() {
			return
		}
		gotJob := false
		for _, queue := range w.cfg.Queues {
			id, err := w.coord.Dequeue(ctx, queue, 0)
			if err != nil {
				if err != coordination.ErrEmpty {
					w.log.Error("dequeue failed", "queue", queue, "error", err)
				}
				continue
			}
			gotJob = true
			w.process(ctx, queue, id)
		}
		if gotJob {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Worker) publishHeartbeat(ctx context.Context) {
	hb := &job.Heartbeat{
		WorkerId:      w.cfg.WorkerId,
		Hostname:      w.cfg.Hostname,
		Queues:        w.cfg.Queues,
		Concurrency:   w.cfg.Concurrency,
		ActiveJobs:    int(w.activeJobs.Load()),
		StartedAt:     w.startedAt,
		LastHeartbeat: time.Now(),
	}
	if err := w.store.PutHeartbeat(ctx, hb); err != nil {
		w.log.Error("heartbeat publish failed", "error", err)
	}
}
