package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/elidra/taskq/dlq"
	"github.com/elidra/taskq/job"
)

// fail runs §4.7.1: a job whose handler returned an error (including
// the synthetic "unregistered type" failure) either retries with
// backoff or dies. j.Attempts reflects the count Claim just
// incremented; fail re-reads the row so a concurrent retry or cancel
// between claim and here isn't silently overwritten by a stale
// decision.
func (w *Worker) fail(ctx context.Context, queue string, j *job.Job, errMsg string) {
	attempts := j.Attempts
	if current, err := w.store.Get(ctx, j.Id); err != nil {
		w.log.Error("re-read before failure decision failed, using claim-time attempts", "id", j.Id, "error", err)
	} else {
		attempts = current.Attempts
	}

	decision, err := w.policy.Evaluate(ctx, j.Id, attempts, j.MaxRetries, time.Now())
	if err != nil {
		w.log.Error("poison policy evaluation failed, defaulting to retry", "id", j.Id, "error", err)
		decision = dlq.Decision{}
	}

	if decision.Dead {
		reason := errMsg
		if decision.Poison {
			reason = fmt.Sprintf("poison pill: %s", errMsg)
		}
		if _, err := w.store.Kill(ctx, j.Id, reason); err != nil {
			w.log.Error("kill failed", "id", j.Id, "error", err)
			return
		}
		if err := w.coord.MoveToDLQ(ctx, queue, j.Id, reason); err != nil {
			w.log.Error("move to dlq failed", "id", j.Id, "error", err)
		}
		return
	}

	delay := w.cfg.Backoff.Next(attempts)
	if _, err := w.store.Fail(ctx, j.Id, w.cfg.WorkerId, errMsg); err != nil {
		w.log.Error("fail transition failed", "id", j.Id, "error", err)
		return
	}
	if err := w.coord.ScheduleRetry(ctx, queue, j.Id, delay); err != nil {
		w.log.Error("schedule retry failed", "id", j.Id, "error", err)
	}
}
