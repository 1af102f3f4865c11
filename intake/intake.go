// Package intake implements Job Intake (C8): the caller-facing
// create/retry/cancel/complete operations that sit in front of the
// Durable Store and Coordination Store. Intake is the only component
// that both writes a brand new row to C1 and places its id into the
// right coordination-store index (waiting(Q) or delayed(Q)); every
// other writer (Worker, Scheduler) only ever moves a row that already
// exists.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/coordination"
	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
	"github.com/elidra/taskq/store"
)

// Store is the slice of store.Store Intake uses: persisting new jobs,
// the three Intake-owned transitions, and the "Job created" history
// row that doesn't correspond to any transition method's own return.
type Store interface {
	store.Pusher
	store.Canceller
	store.HistoryAppender
}

// Intake wires a Store and a coordination.Coordinator together to
// implement §4.8.
type Intake struct {
	store Store
	coord coordination.Coordinator
}

// New constructs an Intake.
func New(st Store, coord coordination.Coordinator) *Intake {
	return &Intake{store: st, coord: coord}
}

// Input is the caller-supplied shape for Create, mirroring the
// POST /jobs request body of §6.
type Input struct {
	Queue             string
	Type              string
	Priority          job.Priority
	Payload           message.Blob
	IdempotencyKey    *string
	MaxRetries        *uint32
	ScheduledAt       *time.Time
	VisibilityTimeout *time.Duration
}

// Result wraps the job returned by Create with whether it was served
// from an idempotency-key hit rather than freshly inserted.
type Result struct {
	Job        *job.Job
	Idempotent bool
}

// Create validates input, short-circuits on an idempotency-key hit,
// and otherwise inserts a new row and places it into waiting(Q) or
// delayed(Q) depending on ScheduledAt.
func (in *Intake) Create(ctx context.Context, input Input) (*Result, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != nil {
		existing, err := in.store.FindByIdempotencyKey(ctx, *input.IdempotencyKey)
		if err == nil {
			return &Result{Job: existing, Idempotent: true}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("intake: idempotency lookup: %w", err)
		}
	}

	j := job.New(input.Queue, input.Type, input.Priority, input.Payload)
	j.IdempotencyKey = input.IdempotencyKey
	if input.MaxRetries != nil {
		j.MaxRetries = *input.MaxRetries
	}
	if input.VisibilityTimeout != nil {
		j.VisibilityTimeout = *input.VisibilityTimeout
	}
	if input.ScheduledAt != nil && input.ScheduledAt.After(time.Now()) {
		j.Status = job.Scheduled
		j.ScheduledAt = input.ScheduledAt
	}

	if err := in.store.Create(ctx, j); err != nil {
		if errors.Is(err, store.ErrIdempotencyConflict) {
			existing, ferr := in.store.FindByIdempotencyKey(ctx, *input.IdempotencyKey)
			if ferr != nil {
				return nil, fmt.Errorf("intake: create lost idempotency race, lookup failed: %w", ferr)
			}
			return &Result{Job: existing, Idempotent: true}, nil
		}
		return nil, fmt.Errorf("intake: create: %w", err)
	}

	if err := in.store.AppendHistory(ctx, job.NewHistory(j.Id, j.Status, "job created", nil)); err != nil {
		return nil, fmt.Errorf("intake: append history: %w", err)
	}

	if j.Status == job.Scheduled {
		if err := in.coord.ScheduleAt(ctx, j.Queue, j.Id, *j.ScheduledAt); err != nil {
			return nil, fmt.Errorf("intake: schedule: %w", err)
		}
	} else if err := in.coord.Enqueue(ctx, j.Queue, j.Id, j.Priority); err != nil {
		return nil, fmt.Errorf("intake: enqueue: %w", err)
	}

	return &Result{Job: j}, nil
}

// Retry resets a FAILED, DEAD or CANCELLED job back to PENDING and
// re-enqueues it. It also clears the job's poison-pill window
// (SUPPLEMENTED FEATURES: not stated by the base retry contract, but
// a natural completion of "retry really does reset the job" — a
// manually retried job gets a fresh failure-count window instead of
// inheriting stale poison history).
func (in *Intake) Retry(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	j, err := in.store.Retry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("intake: retry: %w", err)
	}
	if err := in.coord.ClearFailures(ctx, id); err != nil {
		return nil, fmt.Errorf("intake: retry: clear poison window: %w", err)
	}
	if err := in.coord.RemoveDLQ(ctx, j.Queue, id); err != nil {
		return nil, fmt.Errorf("intake: retry: remove from dlq: %w", err)
	}
	if err := in.coord.Enqueue(ctx, j.Queue, id, j.Priority); err != nil {
		return nil, fmt.Errorf("intake: retry: enqueue: %w", err)
	}
	return j, nil
}

// Cancel transitions a PENDING or SCHEDULED job to CANCELLED and
// removes it from whichever coordination index it was waiting in.
// §9 item 3: the base contract only removes from
// waiting(Q); this also removes from delayed(Q) so a cancelled
// SCHEDULED job doesn't linger until a promotion silently drops it.
func (in *Intake) Cancel(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	j, err := in.store.Cancel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("intake: cancel: %w", err)
	}
	if err := in.coord.RemoveWaiting(ctx, j.Queue, id); err != nil {
		return nil, fmt.Errorf("intake: cancel: remove from waiting: %w", err)
	}
	if err := in.coord.RemoveDelayed(ctx, j.Queue, id); err != nil {
		return nil, fmt.Errorf("intake: cancel: remove from delayed: %w", err)
	}
	return j, nil
}

// Complete transitions a PROCESSING job straight to COMPLETED on
// behalf of an external hand-off handler, bypassing the worker
// pipeline, and acks its processing(Q) entry.
func (in *Intake) Complete(ctx context.Context, id uuid.UUID, by string, result message.Blob) (*job.Job, error) {
	j, err := in.store.CompleteExternal(ctx, id, by, result)
	if err != nil {
		return nil, fmt.Errorf("intake: complete: %w", err)
	}
	if err := in.coord.Ack(ctx, j.Queue, id); err != nil {
		return nil, fmt.Errorf("intake: complete: ack: %w", err)
	}
	return j, nil
}
