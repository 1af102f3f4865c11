package bun

import (
	"context"
	"time"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/store"
)

// Clean deletes terminal jobs (COMPLETED, FAILED-exhausted DEAD, or
// CANCELLED) for retention management. Non-terminal statuses are
// rejected with store.ErrConflict: the retention policy must never
// touch a job a worker might still be processing.
func (s *Store) Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error) {
	if status != job.Unknown && !status.Terminal() {
		return 0, store.ErrConflict
	}
	query := s.db.NewDelete().Model((*jobModel)(nil))
	if status != job.Unknown {
		query.Where("status = ?", status)
	} else {
		query.Where("status IN (?, ?, ?)", job.Completed, job.Dead, job.Cancelled)
	}
	if before != nil {
		query.Where("created_at <= ?", before)
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}
