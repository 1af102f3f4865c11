package bun

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/store"
)

const defaultListLimit = 50

// Get retrieves a job by id, returning store.ErrNotFound if it does
// not exist.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	var m jobModel
	err := s.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return m.toJob(), nil
}

// List returns jobs matching f, along with the total count ignoring
// Limit/Offset (for the pagination block of GET /jobs).
func (s *Store) List(ctx context.Context, f store.ListFilter) ([]*job.Job, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	base := s.db.NewSelect().Model((*jobModel)(nil))
	if f.Queue != "" {
		base.Where("queue = ?", f.Queue)
	}
	if f.Status != job.Unknown {
		base.Where("status = ?", f.Status)
	}

	total, err := base.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var rows []*jobModel
	err = base.Order("priority ASC", "created_at ASC").
		Limit(limit).
		Offset(f.Offset).
		Scan(ctx, &rows)
	if err != nil {
		return nil, 0, err
	}

	ret := make([]*job.Job, len(rows))
	for i, r := range rows {
		ret[i] = r.toJob()
	}
	return ret, total, nil
}

// History returns all History rows for id, oldest first.
func (s *Store) History(ctx context.Context, id uuid.UUID) ([]*job.History, error) {
	var rows []*historyModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("job_id = ?", id).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]*job.History, len(rows))
	for i, r := range rows {
		ret[i] = r.toHistory()
	}
	return ret, nil
}
