// Package bun implements store.Store on top of github.com/uptrace/bun:
// every state transition is a single UPDATE ... WHERE <current-state
// guard> statement, relying on the database's row-level atomicity
// rather than application-level locking. It is compatible with both
// the pgdialect/pgdriver production path and the
// sqlitedialect/modernc.org/sqlite in-memory path used by tests.
package bun

import (
	"github.com/uptrace/bun"
)

// Store is the bun-backed implementation of store.Store.
type Store struct {
	db *bun.DB
}

// New wraps an already-connected, already-initialized *bun.DB. Callers
// must run InitDB (or MustInitDB) before using the returned Store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}
