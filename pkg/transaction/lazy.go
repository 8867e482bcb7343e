package transaction

import (
	"context"
	"database/sql"
	"sync"
)

// Pool is the part of a catalog connection pool a unit of work needs.
// *sql.DB satisfies it.
type Pool interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// LazyTx is a catalog transaction that is only opened on first use
type LazyTx struct {
	pool Pool
	opts *sql.TxOptions

	mu   sync.Mutex
	tx   *sql.Tx
	done bool
}

// NewLazyTx returns an unopened transaction bound to pool
func NewLazyTx(pool Pool, opts *sql.TxOptions) *LazyTx {
	return &LazyTx{pool: pool, opts: opts}
}

// Begin opens the transaction on the first call and returns the same
// transaction on every later call. The transaction is detached from ctx
// cancellation so that a client disconnect does not roll it back behind
// the finalizer's back. Once committed or rolled back, even if it was
// never opened, Begin fails with sql.ErrTxDone.
func (l *LazyTx) Begin(ctx context.Context) (*sql.Tx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return nil, &DatabaseError{Op: "begin", Err: sql.ErrTxDone}
	}
	if l.tx != nil {
		return l.tx, nil
	}

	tx, err := l.pool.BeginTx(context.WithoutCancel(ctx), l.opts)
	if err != nil {
		return nil, &DatabaseError{Op: "begin", Err: err}
	}
	l.tx = tx
	return tx, nil
}

// Started reports whether the transaction was ever opened
func (l *LazyTx) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tx != nil
}

// Commit commits the transaction. It is a no-op if the transaction was
// never opened, but the transaction can no longer be opened afterwards.
func (l *LazyTx) Commit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.done = true
	if l.tx == nil {
		return nil
	}
	if err := l.tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback rolls the transaction back. It is a no-op if the transaction
// was never opened.
func (l *LazyTx) Rollback() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.done = true
	if l.tx == nil {
		return nil
	}
	if err := l.tx.Rollback(); err != nil {
		return &DatabaseError{Op: "rollback", Err: err}
	}
	return nil
}
