// Package bun provides the Durable Store (C1) implementation described
// in package store, backed by github.com/uptrace/bun.
//
// # Schema
//
// InitDB (or MustInitDB) creates three tables inside a single
// transaction:
//
//   - jobs, indexed by (queue, status, priority, created_at) for
//     listing, (status, scheduled_at) for the scheduler's promotion
//     scan, (status, locked_at) for the lease-reclaim scan, and a
//     unique index on idempotency_key.
//   - job_history, an append-only audit log indexed by (job_id,
//     created_at).
//   - worker_heartbeats, one row per live worker process.
//
// InitDB is idempotent and performs no destructive migrations.
//
// # Concurrency model
//
// Every state transition is a single UPDATE ... WHERE <guard>
// RETURNING * statement. The guard encodes the only legal source
// states (and, where relevant, the calling worker's identity and
// observed lock timestamp); zero affected rows means a concurrent
// transition won the race, surfaced to the caller as
// store.ErrConflict or store.ErrLockLost (or, for the scheduler's
// PromoteIfEligible and ReclaimExpiredLease, as ok=false) rather than
// an error from the database driver. No application-level locking is
// used.
//
// The backend is compatible with both pgdialect (production) and
// sqlitedialect via modernc.org/sqlite (tests), subject to each
// dialect's own transactional guarantees.
package bun
