package bun

import (
	"context"

	"github.com/elidra/taskq/job"
)

// AppendHistory records a standalone lifecycle event, used by callers
// (Intake) for the one entry that doesn't arise from a Store
// transition method's own return value.
func (s *Store) AppendHistory(ctx context.Context, h *job.History) error {
	return s.appendHistory(ctx, h)
}

func (s *Store) appendHistory(ctx context.Context, h *job.History) error {
	_, err := s.db.NewInsert().Model(fromHistory(h)).Exec(ctx)
	return err
}
