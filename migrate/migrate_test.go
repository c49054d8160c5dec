package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/EmbedDB/ps"
)

func openMemory(t *testing.T) *ps.Instance {
	t.Helper()
	instance, err := ps.Open(context.Background(), ps.Options{DataDir: ps.MemoryDataDir})
	require.NoError(t, err)
	t.Cleanup(func() { instance.Close() })
	return instance
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "20240101000000_init", "migration.sql"),
		"CREATE TABLE users (id INTEGER PRIMARY KEY, email VARCHAR NOT NULL);")
	writeFile(t, filepath.Join(dir, "20240201000000_posts", "migration.sql"),
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, author INTEGER);\nINSERT INTO users VALUES (1, 'a@b.c');")
	writeFile(t, filepath.Join(dir, "migration_lock.toml"), `provider = "postgresql"`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0755))
	return dir
}

func TestLocalSourceOrdersMigrations(t *testing.T) {
	dir := migrationsDir(t)
	writeFile(t, filepath.Join(dir, "20231201000000_seed.sql"), "SELECT 1;")

	source, err := Open(context.Background(), dir, Options{})
	require.NoError(t, err)

	migrations, err := source.Migrations(context.Background())
	require.NoError(t, err)

	names := make([]string, len(migrations))
	for i, m := range migrations {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"20231201000000_seed", "20240101000000_init", "20240201000000_posts"}, names)
	assert.Len(t, migrations[0].Checksum, 64)
}

func TestLocalSourceSingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "20240101000000_init", "migration.sql")
	writeFile(t, file, "CREATE TABLE t (id INTEGER);")

	source, err := Open(context.Background(), "file://"+file, Options{})
	require.NoError(t, err)

	migrations, err := source.Migrations(context.Background())
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, "20240101000000_init", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE t (id INTEGER);", migrations[0].SQL)
}

func TestApplyRecordsHistory(t *testing.T) {
	ctx := context.Background()
	instance := openMemory(t)
	source, err := Open(ctx, migrationsDir(t), Options{})
	require.NoError(t, err)

	applied, err := Apply(ctx, instance, source, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101000000_init", "20240201000000_posts"}, applied)

	var history []struct {
		ID    string `db:"id"`
		Name  string `db:"migration_name"`
		Steps int32  `db:"applied_steps_count"`
	}
	require.NoError(t, instance.Select(ctx, &history,
		"SELECT id, migration_name, applied_steps_count FROM _prisma_migrations ORDER BY migration_name"))
	require.Len(t, history, 2)
	assert.Equal(t, "20240101000000_init", history[0].Name)
	assert.Len(t, history[0].ID, 36)
	assert.Equal(t, int32(1), history[0].Steps)

	// A second run has nothing left to do.
	applied, err = Apply(ctx, instance, source, nil)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestApplyDetectsModifiedMigration(t *testing.T) {
	ctx := context.Background()
	instance := openMemory(t)
	dir := migrationsDir(t)
	source, err := Open(ctx, dir, Options{})
	require.NoError(t, err)

	_, err = Apply(ctx, instance, source, nil)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "20240101000000_init", "migration.sql"),
		"CREATE TABLE users (id BIGINT PRIMARY KEY);")
	_, err = Apply(ctx, instance, source, nil)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	instance := openMemory(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "001_ok.sql"), "CREATE TABLE ok (id INTEGER);")
	writeFile(t, filepath.Join(dir, "002_broken.sql"), "CREATE TABLE half (id INTEGER);\nINSERT INTO missing VALUES (1);")

	source, err := Open(ctx, dir, Options{})
	require.NoError(t, err)

	applied, err := Apply(ctx, instance, source, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"001_ok"}, applied)

	results, err := instance.Query(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = 'half'", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "0", results.Rows[0][0])

	var names []string
	require.NoError(t, instance.Select(ctx, &names, "SELECT migration_name FROM _prisma_migrations"))
	assert.Equal(t, []string{"001_ok"}, names)
}

func TestOpenRejectsEmptyLocation(t *testing.T) {
	_, err := Open(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestMigrationName(t *testing.T) {
	assert.Equal(t, "20240101_init", migrationName("a/b/20240101_init/migration.sql"))
	assert.Equal(t, "002_users", migrationName("migrations/002_users.sql"))
	assert.Equal(t, "seed", migrationName("https://example.com/seed.sql"))
}

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		location string
		expected urlScheme
	}{
		{"prisma/migrations", schemeLocal},
		{"file:///tmp/m", schemeFile},
		{"http://host/m.sql", schemeHTTP},
		{"HTTPS://host/m.sql", schemeHTTPS},
		{"s3://bucket/prefix", schemeS3},
		{"git+https://github.com/acme/app.git#prisma/migrations", schemeGit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, detectScheme(tt.location), tt.location)
	}
}
