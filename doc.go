// Package EmbedDB runs an embedded SQL database behind the query and
// transaction interface of an ORM query engine.
//
// The engine reports column types, values and errors the way PostgreSQL
// does, so an ORM built for PostgreSQL can drive it without a server. The
// same engine can be exposed to external clients over the PostgreSQL wire
// protocol (see cmd/server).
//
// # Quick Start
//
// Open an in-memory database:
//
//	instance, err := EmbedDB.Open(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer instance.Close()
//
//	instance.Adapter.ExecuteRaw(ctx, core.Query{SQL: "CREATE TABLE users (id INTEGER, name VARCHAR)"})
//	instance.Adapter.ExecuteRaw(ctx, core.Query{
//	    SQL:  "INSERT INTO users VALUES ($1, $2)",
//	    Args: []any{1, "Alice"},
//	})
//
//	rs, _ := instance.Adapter.QueryRaw(ctx, core.Query{SQL: "SELECT * FROM users"})
//
// # Configuration
//
// Open takes a *config.Config, usually loaded from YAML:
//
//	data_dir: ./data
//	schema: public
//	isolation_level: serializable
//	migrations:
//	  source: prisma/migrations
//
// Migrations found at the source are applied before Open returns.
//
// # Packages
//   - core: column types, queries, result sets and tagged errors
//   - catalog: native type codes and their abstract column types
//   - codec: value decoding and argument encoding
//   - db: the adapter and its transactions
//   - ps: the embedded engine host
//   - migrate: migration sources and history
package EmbedDB
