package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nickyhof/EmbedDB/ps"
)

var ErrChecksumMismatch = errors.New("migration was modified after it was applied")

// TableDDL creates the table the ORM migration tool keeps its history in.
const TableDDL = `CREATE TABLE IF NOT EXISTS _prisma_migrations (
	id                  VARCHAR(36) PRIMARY KEY NOT NULL,
	checksum            VARCHAR(64) NOT NULL,
	finished_at         TIMESTAMPTZ,
	migration_name      VARCHAR(255) NOT NULL,
	logs                TEXT,
	rolled_back_at      TIMESTAMPTZ,
	started_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	applied_steps_count INTEGER NOT NULL DEFAULT 0
)`

const recordMigration = `INSERT INTO _prisma_migrations
	(id, checksum, migration_name, started_at, finished_at, applied_steps_count)
	VALUES ($1, $2, $3, now(), now(), 1)`

type appliedMigration struct {
	Name     string `db:"migration_name"`
	Checksum string `db:"checksum"`
}

// EnsureTable creates the migration history table when it is missing.
func EnsureTable(ctx context.Context, instance *ps.Instance) error {
	if err := instance.Exec(ctx, TableDDL); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// Apply runs the migrations of source that have not been applied yet and
// returns their names. Each migration commits on its own, so a failure
// leaves the earlier ones in place.
func Apply(ctx context.Context, instance *ps.Instance, source Source, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source", source.Location())

	migrations, err := source.Migrations(ctx)
	if err != nil {
		return nil, err
	}
	if err := EnsureTable(ctx, instance); err != nil {
		return nil, err
	}

	var rows []appliedMigration
	err = instance.Select(ctx, &rows,
		"SELECT migration_name, checksum FROM _prisma_migrations WHERE finished_at IS NOT NULL AND rolled_back_at IS NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}
	applied := make(map[string]string, len(rows))
	for _, row := range rows {
		applied[row.Name] = row.Checksum
	}

	var names []string
	for _, migration := range migrations {
		if checksum, ok := applied[migration.Name]; ok {
			if checksum != migration.Checksum {
				return names, fmt.Errorf("%w: %s", ErrChecksumMismatch, migration.Name)
			}
			logger.Debug("migration already applied", "migration", migration.Name)
			continue
		}

		if err := applyOne(ctx, instance, migration); err != nil {
			return names, err
		}
		logger.Info("migration applied", "migration", migration.Name)
		names = append(names, migration.Name)
	}
	return names, nil
}

func applyOne(ctx context.Context, instance *ps.Instance, migration Migration) error {
	return instance.Transaction(ctx, func(tx *ps.Tx) error {
		if err := tx.Exec(ctx, migration.SQL); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
		args := []any{uuid.NewString(), migration.Checksum, migration.Name}
		if _, err := tx.Query(ctx, recordMigration, args, nil); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
		}
		return nil
	})
}
