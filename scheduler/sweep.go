package scheduler

import "context"

// sweepOrphaned implements §9.1: a crash between
// popping an id from delayed(Q) and enqueueing it into waiting(Q) (or
// between Intake's Create commit and its own enqueue) can strand a
// durably-PENDING job absent from both coordination indexes. This
// sweep re-pushes anything the durable store says is PENDING but
// waiting(Q) doesn't know about.
func (s *Scheduler) sweepOrphaned(ctx context.Context, queue string) {
	pending, err := s.store.ListOrphanedPending(ctx, queue)
	if err != nil {
		s.log.Error("sweep orphaned: list failed", "queue", queue, "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}
	waiting, err := s.coord.Waiting(ctx, queue)
	if err != nil {
		s.log.Error("sweep orphaned: waiting snapshot failed", "queue", queue, "error", err)
		return
	}
	present := make(map[string]struct{}, len(waiting))
	for _, id := range waiting {
		present[id.String()] = struct{}{}
	}
	for _, j := range pending {
		if _, ok := present[j.Id.String()]; ok {
			continue
		}
		if err := s.coord.Enqueue(ctx, queue, j.Id, j.Priority); err != nil {
			s.log.Error("sweep orphaned: requeue failed", "queue", queue, "id", j.Id, "error", err)
			continue
		}
		s.log.Warn("requeued orphaned pending job", "queue", queue, "id", j.Id)
	}
}
