package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migration is one SQL script.
type Migration struct {
	Name     string
	SQL      string
	Checksum string
}

func newMigration(name string, content []byte) Migration {
	sum := sha256.Sum256(content)
	return Migration{
		Name:     name,
		SQL:      string(content),
		Checksum: hex.EncodeToString(sum[:]),
	}
}

// Source lists the migrations found at one location.
type Source interface {
	Location() string
	Migrations(ctx context.Context) ([]Migration, error)
}

type Options struct {
	S3  S3Config
	Git GitConfig
}

// Open picks a source for location by its scheme.
func Open(ctx context.Context, location string, opts Options) (Source, error) {
	if location == "" {
		return nil, errors.New("migration source location is empty")
	}

	switch detectScheme(location) {
	case schemeLocal, schemeFile:
		return &localSource{path: localPath(location)}, nil
	case schemeHTTP, schemeHTTPS:
		return &httpSource{url: location}, nil
	case schemeS3:
		return newS3Source(ctx, location, opts.S3)
	case schemeGit:
		return newGitSource(location, opts.Git)
	default:
		return nil, fmt.Errorf("unsupported migration source: %s", location)
	}
}

const migrationFile = "migration.sql"

// migrationName names a migration after its file, or after its folder when
// the file is a migration.sql.
func migrationName(p string) string {
	p = strings.TrimSuffix(p, "/")
	base := path.Base(p)
	if base == migrationFile {
		return path.Base(path.Dir(p))
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func isSQLFile(name string) bool {
	return strings.EqualFold(path.Ext(name), ".sql")
}

func sortMigrations(migrations []Migration) []Migration {
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})
	return migrations
}

type dirEntry interface {
	Name() string
	IsDir() bool
}

// tree is a readable directory hierarchy.
type tree interface {
	list(dir string) ([]dirEntry, error)
	read(file string) ([]byte, error)
	join(elem ...string) string
}

// readTree collects <root>/<name>.sql files and <root>/<name>/migration.sql
// folders. Folders without a migration.sql are skipped.
func readTree(t tree, root string) ([]Migration, error) {
	entries, err := t.list(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		var file string
		switch {
		case entry.IsDir():
			file = t.join(root, entry.Name(), migrationFile)
		case isSQLFile(entry.Name()):
			file = t.join(root, entry.Name())
		default:
			continue
		}

		content, err := t.read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		migrations = append(migrations, newMigration(migrationName(strings.ReplaceAll(file, "\\", "/")), content))
	}
	return sortMigrations(migrations), nil
}
