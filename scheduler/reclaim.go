package scheduler

import (
	"context"
	"time"

	"github.com/elidra/taskq/job"
)

// reclaimExpired implements §4.6's "reclaim timed-out": enumerate
// processing(Q), and for each id whose durable row is still
// PROCESSING past its visibilityTimeout, push it back onto waiting(Q)
// and reset it to PENDING. The transition is conditional on the
// lockedAt this scheduler observed (§9.2), so a worker
// that finalizes the job between the enumerate and the write loses
// the race cleanly instead of having its own Complete/Fail clobbered.
func (s *Scheduler) reclaimExpired(ctx context.Context, queue string) {
	ids, err := s.coord.Processing(ctx, queue)
	if err != nil {
		s.log.Error("reclaim timed-out: enumerate failed", "queue", queue, "error", err)
		return
	}
	now := time.Now()
	for _, id := range ids {
		j, err := s.store.Get(ctx, id)
		if err != nil {
			s.log.Warn("reclaim timed-out: job row missing, acking", "queue", queue, "id", id, "error", err)
			_ = s.coord.Ack(ctx, queue, id)
			continue
		}
		if j.Status != job.Processing || j.LockedAt == nil {
			continue
		}
		if now.Sub(*j.LockedAt) <= j.VisibilityTimeout {
			continue
		}
		reclaimed, ok, err := s.store.ReclaimExpiredLease(ctx, id, *j.LockedAt)
		if err != nil {
			s.log.Error("reclaim timed-out: store transition failed", "queue", queue, "id", id, "error", err)
			continue
		}
		if err := s.coord.Ack(ctx, queue, id); err != nil {
			s.log.Error("reclaim timed-out: ack failed", "queue", queue, "id", id, "error", err)
		}
		if !ok {
			s.log.Debug("reclaim timed-out: worker finalized first, skipping requeue", "queue", queue, "id", id)
			continue
		}
		if err := s.coord.Enqueue(ctx, queue, id, reclaimed.Priority); err != nil {
			s.log.Error("reclaim timed-out: requeue failed", "queue", queue, "id", id, "error", err)
			continue
		}
		s.log.Warn("reclaimed expired lease", "queue", queue, "id", id, "lockedFor", now.Sub(*j.LockedAt))
	}
}
