// Package migrate applies SQL migrations to an engine instance.
//
// Migrations are read from a source location and applied in name order.
// Each migration runs in its own transaction and is recorded in the
// _prisma_migrations table, so the ORM migration tool sees the same history
// it would have written itself.
//
// # Sources
//
// The location selects the source:
//   - a local path or file:// URL: a directory of <name>/migration.sql
//     folders or <name>.sql files, or a single .sql file
//   - http:// or https://: a single .sql file
//   - s3://bucket/prefix: every migration below the prefix
//   - git+<url>[#path]: a repository cloned into memory
//
// # Usage
//
//	source, err := migrate.Open(ctx, "prisma/migrations", migrate.Options{})
//	if err != nil {
//	    return err
//	}
//	applied, err := migrate.Apply(ctx, instance, source, logger)
//
// A migration that was applied before and whose content changed since is
// reported with ErrChecksumMismatch.
package migrate
