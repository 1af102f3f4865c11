package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
	"github.com/elidra/taskq/store"
)

// process owns a single job's claim-execute-finalize pipeline end to
// end (§4.7, steps 1-6). It is called from the lane goroutine that
// dequeued id; nothing else touches this job concurrently until
// process returns.
func (w *Worker) process(ctx context.Context, queue string, id uuid.UUID) {
	defer func() {
		if err := w.coord.Ack(ctx, queue, id); err != nil {
			w.log.Error("ack failed", "queue", queue, "id", id, "error", err)
		}
	}()

	j, err := w.store.Claim(ctx, id, w.cfg.WorkerId, w.cfg.VisibilityTimeout)
	if err != nil {
		if !errors.Is(err, store.ErrConflict) && !errors.Is(err, store.ErrNotFound) {
			w.log.Error("claim failed", "queue", queue, "id", id, "error", err)
		}
		return
	}

	w.activeJobs.Add(1)
	defer w.activeJobs.Add(-1)

	handler, ok := w.registry.Resolve(j.Type)
	if !ok {
		w.fail(ctx, queue, j, "no handler registered for job type "+j.Type)
		return
	}

	result, err := w.invoke(ctx, handler, j)
	if err != nil {
		if errors.Is(err, store.ErrLockLost) {
			w.log.Warn("lease lost mid-handler, leaving reclaim to the scheduler", "id", id, "error", err)
			return
		}
		w.fail(ctx, queue, j, err.Error())
		return
	}

	if err := w.coord.ClearFailures(ctx, id); err != nil {
		w.log.Error("clear poison window failed", "id", id, "error", err)
	}
	if _, err := w.store.Complete(ctx, id, w.cfg.WorkerId, result); err != nil {
		w.log.Error("complete failed", "id", id, "error", err)
	}
}

// invoke runs handler against j.Payload while extending j's lease
// every half visibility-timeout: run the handler in its own goroutine,
// and race its result against a half-lock ticker that calls
// ExtendLock. A failed extension means the lease is gone (reclaimed by
// the scheduler or claimed by another worker), so the handler's
// context is cancelled and ErrLockLost propagates up.
func (w *Worker) invoke(ctx context.Context, handler Handler, j *job.Job) (message.Blob, error) {
	wrapped, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result message.Blob
		err    error
	}
	out := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- outcome{nil, fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
			}
		}()
		result, err := handler(wrapped, j.Payload)
		out <- outcome{result, err}
	}()

	halfLock := j.VisibilityTimeout / 2
	if halfLock <= 0 {
		halfLock = DefaultPollInterval
	}
	timer := time.NewTimer(halfLock)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			if err := w.store.ExtendLock(ctx, j.Id, w.cfg.WorkerId, j.VisibilityTimeout); err != nil {
				cancel()
				return nil, err
			}
			timer.Reset(halfLock)
		case o := <-out:
			return o.result, o.err
		}
	}
}
