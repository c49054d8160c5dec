// Package ps hosts the embedded SQL engine for EmbedDB.
//
// The engine is DuckDB, reached through one pinned connection. The package
// presents it the way a PostgreSQL server would look to a client: result
// columns carry PostgreSQL type OIDs, values are rendered in PostgreSQL
// text output format, failures are *pgconn.PgError values with SQLSTATE
// codes, and a raw entry point speaks the PostgreSQL v3 wire protocol.
//
// All work is serialized through a single-slot task queue. A transaction
// holds the slot for as long as its closure runs.
//
// # Opening an Instance
//
//	instance, err := ps.Open(ctx, ps.Options{DataDir: "memory://"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer instance.Close()
//
// # Queries
//
//	results, err := instance.Query(ctx, "SELECT id, name FROM users WHERE id = $1", []any{1}, nil)
//
// # Transactions
//
//	err := instance.Transaction(ctx, func(tx *ps.Tx) error {
//	    _, err := tx.Query(ctx, "INSERT INTO users VALUES ($1, $2)", []any{1, "alice"}, nil)
//	    return err
//	})
//
// # Wire Protocol
//
// Each client gets its own Session. A session inside a transaction block
// holds the engine until the block ends.
//
//	session := instance.NewSession()
//	defer session.Close(ctx)
//	reply, err := session.ExecProtocolRaw(ctx, frame)
package ps
