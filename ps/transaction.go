package ps

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nickyhof/EmbedDB/sql"
)

var ErrTxDone = errors.New("transaction has already been committed or rolled back")

// Tx is the handle passed to a Transaction closure. Its calls run inside the
// task slot held by the closure.
type Tx struct {
	instance *Instance

	// Isolation is the level set by SET TRANSACTION ISOLATION LEVEL inside
	// this transaction, or empty when none was set.
	Isolation string

	mu         sync.Mutex
	rolledBack bool
	finished   bool
}

// Transaction runs fn inside a native transaction that holds the task slot
// until fn returns. The transaction commits when fn returns nil and rolls
// back when fn returns an error. If fn rolled back through tx.Rollback,
// Transaction returns nil.
func (instance *Instance) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	if err := instance.acquire(ctx); err != nil {
		return err
	}
	defer instance.release()

	tx := &Tx{instance: instance}
	if _, err := instance.conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return engineError(err)
	}
	instance.logger.Debug("transaction started")

	defer func() {
		if p := recover(); p != nil {
			tx.finish()
			instance.rollbackQuietly(ctx)
			panic(p)
		}
	}()

	fnErr := fn(tx)
	rolledBack := tx.finish()

	if instance.isClosed() {
		return ErrClosed
	}
	if rolledBack {
		return nil
	}
	if fnErr != nil {
		instance.rollbackQuietly(ctx)
		return fnErr
	}

	if _, err := instance.conn.ExecContext(ctx, "COMMIT"); err != nil {
		instance.rollbackQuietly(ctx)
		return fmt.Errorf("commit failed: %w", engineError(err))
	}
	instance.logger.Debug("transaction committed")
	return nil
}

func (instance *Instance) rollbackQuietly(ctx context.Context) {
	if instance.isClosed() {
		return
	}
	if _, err := instance.conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); err != nil {
		instance.logger.Debug("rollback after failure", "error", err)
	}
}

// finish marks the handle unusable and reports whether it was rolled back.
func (tx *Tx) finish() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.finished = true
	return tx.rolledBack
}

func (tx *Tx) check() error {
	if tx.instance.isClosed() {
		return ErrClosed
	}
	if tx.finished || tx.rolledBack {
		return ErrTxDone
	}
	return nil
}

// Query runs one statement inside the transaction.
func (tx *Tx) Query(ctx context.Context, query string, args []any, opts *QueryOptions) (*Results, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.check(); err != nil {
		return nil, err
	}
	statement := sql.Classify(query)
	if statement.Kind == sql.SetIsolation {
		tx.Isolation = statement.Isolation
		tx.instance.logger.Debug("transaction isolation", "level", tx.Isolation)
	}
	return tx.instance.run(ctx, statement, args, opts)
}

// Exec runs a script inside the transaction.
func (tx *Tx) Exec(ctx context.Context, script string) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.check(); err != nil {
		return err
	}
	return tx.instance.execScript(ctx, script)
}

// Select scans query rows into dest inside the transaction.
func (tx *Tx) Select(ctx context.Context, dest any, query string, args ...any) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.check(); err != nil {
		return err
	}
	return tx.instance.selectInto(ctx, dest, query, args...)
}

// Rollback aborts the transaction. The enclosing Transaction call then
// returns without committing. The ROLLBACK runs even when ctx is canceled.
func (tx *Tx) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.instance.conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); err != nil {
		return engineError(err)
	}
	tx.rolledBack = true
	tx.instance.logger.Debug("transaction rolled back")
	return nil
}
