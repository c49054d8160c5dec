// Package db adapts an embedded engine instance to the query and
// transaction contract used by an ORM query engine.
//
// The Adapter runs queries outside of any transaction. TransactionContext
// hands out Transaction handles, each bound to one native transaction of
// the engine.
//
// # Adapter Usage
//
//	instance, err := ps.Open(ctx, ps.Options{DataDir: ps.MemoryDataDir})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	adapter := db.NewAdapter(instance, db.Options{})
//
//	rs, err := adapter.QueryRaw(ctx, core.Query{SQL: "SELECT 1 AS one"})
//
// # Transactions
//
//	txCtx, _ := adapter.TransactionContext(ctx)
//	tx, err := txCtx.StartTransaction(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	if _, err := tx.ExecuteRaw(ctx, insert); err != nil {
//	    tx.Rollback(ctx)
//	    return err
//	}
//	return tx.Commit(ctx)
//
// The engine serializes native transactions: a second StartTransaction
// waits until the first handle is committed or rolled back.
//
// # Errors
//
// Failures reported by the engine are returned as *core.EngineError and
// columns of an unknown native type as *core.UnsupportedNativeDataTypeError.
// Anything else is fatal.
//
// # Results
//
// QueryResult and CommitResult render results for the interactive shell.
package db
