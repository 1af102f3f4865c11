package bun

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
)

// PromoteIfEligible implements the scheduler's due-delayed promotion
// (§4.4, §4.6): a SCHEDULED job whose scheduledAt has passed, or a
// FAILED job whose backoff has elapsed (the scheduler only calls this
// once the coordination store's delayed(Q) score says so), moves to
// PENDING. ok=false, no error, means the row already moved on (e.g. it
// was cancelled between the coordination pop and this call) — the
// scheduler treats that as a no-op and drops the id.
func (s *Store) PromoteIfEligible(ctx context.Context, id uuid.UUID) (*job.Job, bool, error) {
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Pending).
		Set("scheduled_at = NULL").
		Where("id = ?", id).
		Where("status IN (?, ?)", job.Scheduled, job.Failed).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Pending, "promoted", nil)); err != nil {
		return nil, false, err
	}
	return rows[0].toJob(), true, nil
}

// ReclaimExpiredLease is the §9.2 conditional reclaim:
// the scheduler observed this job's lockedAt in processing(Q) as
// older than the visibility timeout, but between that observation and
// this call the original worker may have finalized the job. The
// locked_at equality guard makes the transition a no-op (ok=false) if
// the row has moved on, instead of clobbering a worker's own Complete
// or Fail.
func (s *Store) ReclaimExpiredLease(ctx context.Context, id uuid.UUID, observedLockedAt time.Time) (*job.Job, bool, error) {
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Pending).
		Set("locked_by = NULL").
		Set("locked_at = NULL").
		Where("id = ?", id).
		Where("status = ?", job.Processing).
		Where("locked_at = ?", observedLockedAt).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Pending, "reclaimed: lease expired", nil)); err != nil {
		return nil, false, err
	}
	return rows[0].toJob(), true, nil
}

// ListOrphanedPending returns PENDING, non-scheduled jobs in queue,
// for the sweep that covers the multi-store atomicity gap (REDESIGN
// FLAG §9.1): a process can crash after committing a job PENDING in
// the durable store but before pushing its id onto waiting(Q) in the
// coordination store. The scheduler diffs this list against
// waiting(Q) membership and re-pushes anything missing.
func (s *Store) ListOrphanedPending(ctx context.Context, queue string) ([]*job.Job, error) {
	var rows []*jobModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("queue = ?", queue).
		Where("status = ?", job.Pending).
		Where("scheduled_at IS NULL").
		Order("priority ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ret := make([]*job.Job, len(rows))
	for i, r := range rows {
		ret[i] = r.toJob()
	}
	return ret, nil
}
