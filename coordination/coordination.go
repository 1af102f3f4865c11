// Package coordination defines the Coordination Store contract (C2):
// the fast, ephemeral indexes — waiting(Q), processing(Q), delayed(Q),
// dlq(Q), poison(jobId) — used to pick which job a worker dispatches
// next without scanning the durable store. Every entry here is a
// hint: the durable store (package store) is the single source of
// truth, and every coordination method must tolerate being replayed
// against a job whose durable row has already moved on.
package coordination

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
)

// ErrEmpty is returned by Dequeue when no job is ready within the
// call's wait budget.
var ErrEmpty = errors.New("coordination: queue empty")

// Queue implements the Priority Queue (C3) operations.
type Queue interface {
	// Enqueue index-adds id into waiting(Q) with the score
	// priority.Weight() + enqueueMillis, so that a higher priority
	// always sorts ahead of a lower one regardless of wait time.
	// Enqueue is idempotent for a given id: re-enqueuing updates the
	// score to the current time, which is the desired behavior for a
	// requeue after a reclaim.
	Enqueue(ctx context.Context, queue string, id uuid.UUID, priority job.Priority) error

	// Dequeue pops the lowest-score id from waiting(Q) and adds it to
	// processing(Q) in one atomic script, guaranteeing at-most-one
	// worker per job at the coordination layer. It blocks up to
	// timeout for a candidate; ErrEmpty means none arrived in time.
	Dequeue(ctx context.Context, queue string, timeout time.Duration) (uuid.UUID, error)

	// Ack removes id from processing(Q). Called on every terminal
	// transition: success, fail-retry, dead, cancel, or a claim that
	// the durable store rejected.
	Ack(ctx context.Context, queue string, id uuid.UUID) error

	// RemoveWaiting removes id from waiting(Q), used when cancelling a
	// still-PENDING job.
	RemoveWaiting(ctx context.Context, queue string, id uuid.UUID) error

	// Processing returns every id currently in processing(Q), for the
	// scheduler's lease-reclaim scan.
	Processing(ctx context.Context, queue string) ([]uuid.UUID, error)

	// Waiting returns every id currently in waiting(Q), for the
	// scheduler's orphaned-PENDING sweep (§9.1): it
	// needs to tell which durably-PENDING jobs are missing from this
	// index entirely, not just pop one to dispatch it.
	Waiting(ctx context.Context, queue string) ([]uuid.UUID, error)
}

// DelayedQueue implements the Retry/Delayed Queue (C4) operations.
type DelayedQueue interface {
	// ScheduleRetry index-adds id into delayed(Q) with score now+delay.
	// The caller (worker) computes delay via package retry's backoff
	// formula before calling ScheduleRetry; C4 itself only applies it.
	ScheduleRetry(ctx context.Context, queue string, id uuid.UUID, delay time.Duration) error

	// ScheduleAt index-adds id into delayed(Q) with score at, used by
	// Intake for a job submitted with a future scheduledAt.
	ScheduleAt(ctx context.Context, queue string, id uuid.UUID, at time.Time) error

	// PromoteDue pops every id from delayed(Q) with score <= now and
	// returns them. The caller is responsible for re-deriving each
	// id's eligibility and priority from the durable store before
	// enqueuing into waiting(Q) — see §9.1.
	PromoteDue(ctx context.Context, queue string, now time.Time) ([]uuid.UUID, error)

	// RemoveDelayed removes id from delayed(Q), used when cancelling a
	// SCHEDULED job (§9 item 3) so a cancelled job does not
	// linger in the index until promotion silently drops it.
	RemoveDelayed(ctx context.Context, queue string, id uuid.UUID) error
}

// DeadLetter implements the Dead-Letter Queue (C5) operations.
type DeadLetter interface {
	// MoveToDLQ atomically removes id from processing(Q) and appends
	// it to dlq(Q). reason is not stored in the coordination store;
	// the caller writes the DEAD status, error and history entry to
	// the durable store separately.
	MoveToDLQ(ctx context.Context, queue string, id uuid.UUID, reason string) error

	// ListDLQ returns up to limit ids currently parked in dlq(Q),
	// oldest first.
	ListDLQ(ctx context.Context, queue string, limit int) ([]uuid.UUID, error)

	// RemoveDLQ removes id from dlq(Q), a no-op if absent. Used by
	// Intake.Retry per §4.8's "remove from dlq(Q) if present".
	RemoveDLQ(ctx context.Context, queue string, id uuid.UUID) error
}

// PoisonDetector implements the poison-pill bookkeeping of §4.5: a
// sliding window of recent failure timestamps per job, independent of
// attempts/maxRetries.
type PoisonDetector interface {
	// TrackFailure records now into poison(jobId), trims entries
	// older than window, refreshes the key's TTL, and returns whether
	// the remaining count has reached threshold.
	TrackFailure(ctx context.Context, id uuid.UUID, now time.Time, window time.Duration, threshold int) (poison bool, err error)

	// ClearFailures deletes poison(jobId), used when a job is
	// manually retried so a fresh attempt sequence doesn't inherit a
	// stale failure count.
	ClearFailures(ctx context.Context, id uuid.UUID) error
}

// Coordinator is the full Coordination Store contract. The
// coordination/redis package provides the only implementation in this
// repository.
type Coordinator interface {
	Queue
	DelayedQueue
	DeadLetter
	PoisonDetector
}
