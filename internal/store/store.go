// Package store is the database layer: it persists users, custodied keys,
// issued shares, and an append-only operation log behind a minimal
// capability interface rather than a concrete driver, so the custody
// service can be exercised against an in-memory double in tests.
package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned by every lookup when no matching row exists.
var ErrNotFound = errors.New("store: not found")

// DBTX is the slice of *sql.DB / *sql.Tx that the query functions need.
// Accepting this instead of a concrete type lets callers pass either a bare
// connection or an open transaction, and lets tests pass a sqlmock-backed
// *sql.DB.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps a DBTX with the query methods the custody service needs.
type Store struct {
	db DBTX
}

// New returns a Store backed by db, which may be a *sql.DB or a *sql.Tx.
func New(db DBTX) *Store {
	return &Store{db: db}
}
