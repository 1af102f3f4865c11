package bun

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/elidra/taskq/job"
	"github.com/elidra/taskq/store"
)

// Create inserts a new job row. It relies on the unique index on
// idempotency_key to enforce Intake's idempotency contract: a second
// Create racing on the same key fails with store.ErrIdempotencyConflict
// rather than silently overwriting the first.
func (s *Store) Create(ctx context.Context, j *job.Job) error {
	model := fromJob(j)
	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// FindByIdempotencyKey returns the job previously created with key, or
// store.ErrNotFound if none exists.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*job.Job, error) {
	var m jobModel
	err := s.db.NewSelect().
		Model(&m).
		Where("idempotency_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return m.toJob(), nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
