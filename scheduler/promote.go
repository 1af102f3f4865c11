package scheduler

import (
	"context"
	"time"
)

// promoteDue implements §4.6's "promote due-delayed": pop every id
// whose delayed(Q) score has passed, re-check each against the
// durable row (status may have moved to terminal while it waited),
// and push eligible ones onto waiting(Q) with their stored priority.
func (s *Scheduler) promoteDue(ctx context.Context, queue string) {
	ids, err := s.coord.PromoteDue(ctx, queue, time.Now())
	if err != nil {
		s.log.Error("promote due-delayed: pop failed", "queue", queue, "error", err)
		return
	}
	for _, id := range ids {
		j, ok, err := s.store.PromoteIfEligible(ctx, id)
		if err != nil {
			s.log.Error("promote due-delayed: store transition failed", "queue", queue, "id", id, "error", err)
			continue
		}
		if !ok {
			s.log.Debug("promote due-delayed: job moved on, dropping", "queue", queue, "id", id)
			continue
		}
		if err := s.coord.Enqueue(ctx, queue, id, j.Priority); err != nil {
			s.log.Error("promote due-delayed: enqueue failed", "queue", queue, "id", id, "error", err)
			continue
		}
		s.log.Info("promoted due-delayed job", "queue", queue, "id", id)
	}
}
