package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// txKey carries an open transaction of one Store through a context.
type txKey struct {
	s *Store
}

// WithTx runs fn inside a write transaction.
//
// The write lock is acquired before the transaction begins and released
// after it commits or rolls back. If ctx already carries a transaction of
// this store, fn joins it and commit is left to the outermost call.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{s}).(*sql.Tx); ok {
		return fn(ctx)
	}

	if err := s.lock.Acquire(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Release even if ctx was cancelled mid-transaction.
	release := func() error {
		return s.lock.Release(context.WithoutCancel(ctx))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Join(fmt.Errorf("begin transaction: %w", err), release())
	}

	done := false
	defer func() {
		if !done {
			// fn panicked.
			_ = tx.Rollback()
			_ = release()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{s}, tx)); err != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return errors.Join(err, release())
	}

	done = true
	if err := tx.Commit(); err != nil {
		return errors.Join(fmt.Errorf("commit: %w", err), release())
	}
	return release()
}
