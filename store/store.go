// Package store defines the Durable Store contract (C1): the
// relational system of record for Job rows, their History, and
// WorkerHeartbeat publication.
//
// The interfaces below are deliberately narrow and segregated —
// Pusher, Puller, Observer, Canceller, SchedulerStore, HeartbeatStore,
// Cleaner — so that a component depends only on the slice of the
// store it actually uses (Intake never claims a job, Worker never
// deletes one), not on every store method that exists. A single
// concrete implementation (store/bun) satisfies all of them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
)

var (
	// ErrNotFound indicates the referenced job id does not exist.
	ErrNotFound = errors.New("store: job not found")

	// ErrConflict indicates the requested transition is not legal
	// from the job's current status (e.g. cancelling a PROCESSING
	// job, or claiming a job that is already PROCESSING).
	ErrConflict = errors.New("store: conflicting job state")

	// ErrIdempotencyConflict indicates a Create call raced another
	// Create for the same idempotencyKey and lost; the caller should
	// look the winning job up with FindByIdempotencyKey.
	ErrIdempotencyConflict = errors.New("store: idempotency key already exists")

	// ErrLockLost indicates the caller no longer holds the lease it
	// believed it held (lost to a scheduler reclaim or another
	// worker's claim).
	ErrLockLost = errors.New("store: lock lost")
)

// Pusher is the write-side entry point used by Intake to persist a
// newly submitted job.
type Pusher interface {
	// Create persists j in its current Status (PENDING or SCHEDULED).
	// If j.IdempotencyKey is set and already exists, Create returns
	// ErrIdempotencyConflict and does not modify j.
	Create(ctx context.Context, j *job.Job) error

	// FindByIdempotencyKey returns the job previously created with
	// key, if any.
	FindByIdempotencyKey(ctx context.Context, key string) (*job.Job, error)
}

// Puller is the worker-side transition contract (§4.1, §4.7).
type Puller interface {
	// Claim performs the atomic conditional update central to C1:
	// UPDATE job SET status=PROCESSING, lockedBy=W, lockedAt=now,
	// attempts=attempts+1 WHERE id=J AND status IN (PENDING, FAILED).
	// If no row matches, Claim returns ErrConflict: the caller's
	// coordination-store pop must be reconciled (ack without further
	// action), never retried against the same id.
	Claim(ctx context.Context, id uuid.UUID, workerID string, lease time.Duration) (*job.Job, error)

	// ExtendLock refreshes lockedAt for a still-PROCESSING job held
	// by workerID. ErrLockLost if the job moved on or is held by
	// another worker.
	ExtendLock(ctx context.Context, id uuid.UUID, workerID string, lease time.Duration) error

	// Complete transitions a PROCESSING job to COMPLETED.
	Complete(ctx context.Context, id uuid.UUID, workerID string, result message.Blob) (*job.Job, error)

	// Fail transitions a PROCESSING job to FAILED, clearing locks.
	// Fail only updates the durable row; the caller schedules the
	// retry in the Coordination Store (§4.4) separately.
	Fail(ctx context.Context, id uuid.UUID, workerID string, errMsg string) (*job.Job, error)

	// Kill transitions a job (PENDING or PROCESSING) to DEAD.
	Kill(ctx context.Context, id uuid.UUID, errMsg string) (*job.Job, error)
}

// Observer is the read-only contract used by the HTTP API; the
// Scheduler and Worker use its Get. Intake's idempotent-create short
// circuit uses Pusher.FindByIdempotencyKey instead.
type Observer interface {
	Get(ctx context.Context, id uuid.UUID) (*job.Job, error)
	List(ctx context.Context, f ListFilter) ([]*job.Job, int, error)
	History(ctx context.Context, id uuid.UUID) ([]*job.History, error)
}

// ListFilter narrows Observer.List. Zero values mean "no filter" for
// Queue/Status, and Limit<=0 means "use the default page size".
type ListFilter struct {
	Queue  string
	Status job.Status
	Limit  int
	Offset int
}

// Canceller groups the Intake-initiated transitions that are not part
// of the worker's claim/finalize pipeline.
type Canceller interface {
	// Cancel transitions a PENDING or SCHEDULED job to CANCELLED.
	Cancel(ctx context.Context, id uuid.UUID) (*job.Job, error)

	// Retry resets a FAILED, DEAD or CANCELLED job back to PENDING
	// with attempts=0 and error cleared.
	Retry(ctx context.Context, id uuid.UUID) (*job.Job, error)

	// CompleteExternal transitions a PROCESSING job directly to
	// COMPLETED on behalf of an external hand-off handler (the
	// POST /jobs/{id}/complete route), bypassing the worker pipeline.
	CompleteExternal(ctx context.Context, id uuid.UUID, by string, result message.Blob) (*job.Job, error)
}

// SchedulerStore groups the methods the Scheduler (C6) uses to
// promote due-delayed jobs and reclaim expired leases.
type SchedulerStore interface {
	// PromoteIfEligible transitions id from SCHEDULED or FAILED (or a
	// no-op if already PENDING) to PENDING, clearing scheduledAt. It
	// returns ok=false without error if the row has since moved to a
	// terminal state — the caller should silently drop the id.
	PromoteIfEligible(ctx context.Context, id uuid.UUID) (j *job.Job, ok bool, err error)

	// ReclaimExpiredLease performs the conditional reclaim described
	// in §9.2: it transitions id from PROCESSING back
	// to PENDING only if the row is still PROCESSING with lockedAt
	// equal to observedLockedAt (guarding against a race with the
	// original worker's own finalize). ok=false means the condition
	// did not hold and nothing changed.
	ReclaimExpiredLease(ctx context.Context, id uuid.UUID, observedLockedAt time.Time) (j *job.Job, ok bool, err error)

	// ListOrphanedPending returns PENDING jobs in queue with no
	// scheduledAt, used by the startup/periodic sweep for the
	// multi-store atomicity gap (§9.1). The scheduler diffs the
	// result against waiting(Q) membership itself.
	ListOrphanedPending(ctx context.Context, queue string) ([]*job.Job, error)
}

// HeartbeatStore publishes and lists WorkerHeartbeat rows.
type HeartbeatStore interface {
	PutHeartbeat(ctx context.Context, hb *job.Heartbeat) error
	ListHeartbeats(ctx context.Context) ([]*job.Heartbeat, error)
}

// Cleaner removes terminal jobs for retention management. It must
// reject non-terminal statuses with ErrConflict.
type Cleaner interface {
	Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error)
}

// HistoryAppender records a lifecycle event. Every transition method
// on Pusher/Puller/Canceller/SchedulerStore is expected to append its
// own History row as part of the same operation; HistoryAppender is
// exposed separately for the one caller-driven entry ("Job created")
// that doesn't correspond to a state-transition method return.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, h *job.History) error
}

// Store is the full Durable Store contract. The store/bun package
// provides the only implementation in this repository, but components
// should accept the narrowest interface above that they need.
type Store interface {
	Pusher
	Puller
	Observer
	Canceller
	SchedulerStore
	HeartbeatStore
	Cleaner
	HistoryAppender
}
