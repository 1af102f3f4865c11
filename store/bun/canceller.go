package bun

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
	"github.com/elidra/taskq/store"
)

// Cancel transitions a PENDING or SCHEDULED job to CANCELLED. Cancelling
// a SCHEDULED job leaves the removal of its delayed(Q) entry to the
// caller (Intake), which owns the coordination store.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Cancelled).
		Set("completed_at = current_timestamp").
		Where("id = ?", id).
		Where("status IN (?, ?)", job.Pending, job.Scheduled).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrConflict
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Cancelled, "cancelled", nil)); err != nil {
		return nil, err
	}
	return rows[0].toJob(), nil
}

// Retry resets a FAILED, DEAD or CANCELLED job back to PENDING, per
// job.Status.Retryable. Attempts and error are cleared; the job's
// poison-pill counter in the coordination store is the caller's
// responsibility to clear.
func (s *Store) Retry(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Pending).
		Set("attempts = ?", 0).
		Set("error = ?", "").
		Set("scheduled_at = NULL").
		Set("locked_by = NULL").
		Set("locked_at = NULL").
		Set("completed_at = NULL").
		Where("id = ?", id).
		Where("status IN (?, ?, ?)", job.Failed, job.Dead, job.Cancelled).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrConflict
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Pending, "retried", nil)); err != nil {
		return nil, err
	}
	return rows[0].toJob(), nil
}

// CompleteExternal transitions a PROCESSING job straight to COMPLETED
// on behalf of the POST /jobs/{id}/complete hand-off route, bypassing
// the worker pipeline's own Complete call. Unlike Puller.Complete it
// does not check locked_by, since the caller is not the worker that
// claimed the job.
func (s *Store) CompleteExternal(ctx context.Context, id uuid.UUID, by string, result message.Blob) (*job.Job, error) {
	now := time.Now()
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Completed).
		Set("result = ?", result).
		Set("locked_by = NULL").
		Set("locked_at = NULL").
		Set("completed_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", job.Processing).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrConflict
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Completed, "completed externally by "+by, nil)); err != nil {
		return nil, err
	}
	return rows[0].toJob(), nil
}
