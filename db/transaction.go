package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/ps"
)

// errRolledBack ends a native transaction whose rollback was requested, so
// the engine never commits it, even when the native ROLLBACK failed.
var errRolledBack = errors.New("transaction rolled back")

// TransactionContext starts transactions on the adapter's engine.
type TransactionContext struct {
	queryable
	engine engine
}

type txState int

const (
	txOpen txState = iota
	txCommitting
	txRollingBack
	txClosed
)

// Transaction is a handle on one native transaction. The native
// transaction stays open until Commit or Rollback is called.
type Transaction struct {
	queryable
	tx      *ps.Tx
	options core.TransactionOptions

	signal *deferred
	done   <-chan error

	mu    sync.Mutex
	state txState
}

// StartTransaction opens a native transaction and returns once it has
// begun. When isolation is set, the level applies to this transaction only.
func (tc *TransactionContext) StartTransaction(ctx context.Context, isolation *core.IsolationLevel) (*Transaction, error) {
	options := core.TransactionOptions{UsePhantomQuery: true}
	tc.logger.Debug("start_transaction", "isolation", isolation, "phantom", options.UsePhantomQuery)

	options.IsolationLevel = isolation

	started := make(chan *Transaction, 1)
	done := make(chan error, 1)

	go func() {
		// The native transaction outlives the call that started it.
		txCtx := context.WithoutCancel(ctx)
		err := tc.engine.Transaction(txCtx, func(tx *ps.Tx) error {
			handle := &Transaction{
				queryable: newQueryable(tx, tc.logger),
				tx:        tx,
				options:   options,
				signal:    newDeferred(),
				done:      done,
			}
			if isolation != nil {
				query := core.Query{SQL: "SET TRANSACTION ISOLATION LEVEL " + isolation.SQL()}
				if _, err := handle.queryable.ExecuteRaw(txCtx, query); err != nil {
					return err
				}
			}
			started <- handle

			select {
			case <-handle.signal.Done():
			case <-tc.engine.Closed():
			}
			if handle.rollingBack() {
				return errRolledBack
			}
			return nil
		})
		done <- err
	}()

	select {
	case handle := <-started:
		return handle, nil
	case err := <-done:
		return nil, classify(err)
	case <-ctx.Done():
		go abandon(started, done)
		return nil, ctx.Err()
	}
}

// abandon rolls back a transaction that began after its caller gave up.
func abandon(started <-chan *Transaction, done <-chan error) {
	select {
	case handle := <-started:
		handle.Rollback(context.Background())
	case <-done:
	}
}

func (t *Transaction) Options() core.TransactionOptions {
	return t.options
}

// QueryRaw runs a statement inside the transaction.
func (t *Transaction) QueryRaw(ctx context.Context, query core.Query) (*core.ResultSet, error) {
	if !t.isOpen() {
		return nil, ErrTransactionClosed
	}
	return t.queryable.QueryRaw(ctx, query)
}

// ExecuteRaw runs a statement inside the transaction.
func (t *Transaction) ExecuteRaw(ctx context.Context, query core.Query) (int64, error) {
	if !t.isOpen() {
		return 0, ErrTransactionClosed
	}
	return t.queryable.ExecuteRaw(ctx, query)
}

// Commit ends the transaction and waits for the native COMMIT. Once
// requested, the commit runs to completion even if ctx is canceled.
func (t *Transaction) Commit(ctx context.Context) error {
	t.logger.Debug("commit")
	if !t.transition(txCommitting) {
		return ErrTransactionClosed
	}
	defer t.transition(txClosed)

	t.signal.Resolve()
	return classify(t.wait())
}

// Rollback aborts the transaction and waits for the native transaction to
// end. It ignores cancellation of ctx. A failed rollback is fatal and the
// transaction is never committed.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.logger.Debug("rollback")
	if !t.transition(txRollingBack) {
		return ErrTransactionClosed
	}
	defer t.transition(txClosed)

	rollbackErr := t.tx.Rollback(context.WithoutCancel(ctx))
	t.signal.Resolve()
	err := t.wait()

	if rollbackErr != nil {
		t.logger.Error("rollback failed", "error", rollbackErr)
		return fmt.Errorf("rollback failed: %w", rollbackErr)
	}
	if errors.Is(err, errRolledBack) {
		return nil
	}
	return classify(err)
}

// wait blocks until the native transaction has ended.
func (t *Transaction) wait() error {
	return <-t.done
}

func (t *Transaction) rollingBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == txRollingBack
}

func (t *Transaction) isOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == txOpen
}

// transition moves the handle out of txOpen, or to txClosed from any
// state. It reports whether the move was allowed.
func (t *Transaction) transition(to txState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if to != txClosed && t.state != txOpen {
		return false
	}
	t.state = to
	return true
}
