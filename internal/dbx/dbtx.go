// Package dbx provides the small database abstractions shared by the
// repositories: DBTX, implemented by both *sql.DB and *sql.Tx, and helpers
// that run a function inside a transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Transactor runs fn as one unit of work. Services depend on it instead of
// *sql.DB so that storage backends without SQL transactions can be plugged in.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// SQLTransactor wraps a *sql.DB; InTx delegates to WithTx.
type SQLTransactor struct {
	DB   *sql.DB
	Opts *sql.TxOptions
}

func (t SQLTransactor) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, t.DB, t.Opts, fn)
}

// NoTx calls fn directly with a nil handle. It is meant for stores that
// ignore the DBTX argument and serialize access themselves.
type NoTx struct{}

func (NoTx) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return fn(ctx, nil)
}
