package bun

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/message"
	"github.com/elidra/taskq/store"
)

// Claim performs the durable-store half of dispatch: the coordination
// store decides WHICH job id to hand a worker, Claim decides whether
// that worker actually gets to run it. The WHERE clause is the only
// place concurrent claims on the same row are resolved; a worker
// racing a scheduler reclaim, or two workers racing a coordination
// pop duplicate, always has exactly one winner.
func (s *Store) Claim(ctx context.Context, id uuid.UUID, workerID string, lease time.Duration) (*job.Job, error) {
	now := time.Now()
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Processing).
		Set("attempts = attempts + 1").
		Set("locked_by = ?", workerID).
		Set("locked_at = ?", now).
		Set("error = ?", "").
		Where("id = ?", id).
		Where("status IN (?, ?)", job.Pending, job.Failed).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrConflict
	}
	j := rows[0].toJob()
	j.VisibilityTimeout = lease
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Processing, "claimed", &workerID)); err != nil {
		return nil, err
	}
	return j, nil
}

// ExtendLock refreshes locked_at for a job the caller still believes
// it owns, used by the worker's in-flight heartbeat to push the lease
// out past a slow handler (§4.7 lease extension).
func (s *Store) ExtendLock(ctx context.Context, id uuid.UUID, workerID string, lease time.Duration) error {
	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("locked_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", job.Processing).
		Where("locked_by = ?", workerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return store.ErrLockLost
	}
	return nil
}

// Complete transitions a PROCESSING job owned by workerID to COMPLETED.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, workerID string, result message.Blob) (*job.Job, error) {
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
		Where("locked_by = ?", workerID).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrConflict
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Completed, "completed", &workerID)); err != nil {
		return nil, err
	}
	return rows[0].toJob(), nil
}

// Fail transitions a PROCESSING job owned by workerID to FAILED. The
// caller (worker) has already decided, via dlq.Policy's poison-pill
// and attempts check, whether this attempt still has retries left; Fail
// only records the durable-side consequence. The coordination store's
// delayed(Q) entry for the retry is the caller's separate
// responsibility.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, workerID string, errMsg string) (*job.Job, error) {
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Failed).
		Set("error = ?", errMsg).
		Set("locked_by = NULL").
		Set("locked_at = NULL").
		Where("id = ?", id).
		Where("status = ?", job.Processing).
		Where("locked_by = ?", workerID).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrConflict
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Failed, errMsg, &workerID)); err != nil {
		return nil, err
	}
	return rows[0].toJob(), nil
}

// Kill transitions a PENDING or PROCESSING job to DEAD. The worker
// calls it for a PROCESSING job whose failure dlq.Policy routed to the
// dead-letter queue, either as poison or with its retries exhausted.
func (s *Store) Kill(ctx context.Context, id uuid.UUID, errMsg string) (*job.Job, error) {
	var rows []*jobModel
	err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", job.Dead).
		Set("error = ?", errMsg).
		Set("locked_by = NULL").
		Set("locked_at = NULL").
		Where("id = ?", id).
		Where("status IN (?, ?)", job.Pending, job.Processing).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrConflict
	}
	if err := s.appendHistory(ctx, job.NewHistory(id, job.Dead, errMsg, nil)); err != nil {
		return nil, err
	}
	return rows[0].toJob(), nil
}
