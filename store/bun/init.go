package bun

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createJobsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*jobModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createHistoryTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*historyModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createHeartbeatTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*heartbeatModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createClaimIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_queue_status_priority").
		Column("queue", "status", "priority", "created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createScheduledIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_scheduled").
		Column("status", "scheduled_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createLockIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_locked").
		Column("status", "locked_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createIdempotencyIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_idempotency_key").
		Column("idempotency_key").
		Unique().
		IfNotExists().
		Exec(ctx)
	return err
}

func createHistoryIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*historyModel)(nil)).
		Index("idx_history_job_created").
		Column("job_id", "created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	steps := []func(context.Context, bun.IDB) error{
		createJobsTable,
		createHistoryTable,
		createHeartbeatTable,
		createClaimIndex,
		createScheduledIndex,
		createLockIndex,
		createIdempotencyIndex,
		createHistoryIndex,
	}
	for _, step := range steps {
		if err := step(ctx, tx); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

// InitDB initializes the schema required by the bun-backed store: the
// jobs, job_history and worker_heartbeats tables plus their indexes,
// all inside a single transaction.
//
// InitDB is idempotent and may be safely called multiple times. It
// does not drop or modify existing tables beyond creating missing
// objects.
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics if initialization fails.
// Intended for application bootstrap code, where failure to
// initialize schema is unrecoverable.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}
