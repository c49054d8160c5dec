package EmbedDB

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/EmbedDB/config"
	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/ps"
)

// TestFunc is the signature for test functions that work with any data directory
type TestFunc func(t *testing.T, instance *Instance)

// runWithBothDataDirs runs a test function against an in-memory and an on-disk engine
func runWithBothDataDirs(t *testing.T, testFunc TestFunc) {
	t.Run("Memory", func(t *testing.T) {
		cfg := config.Default()
		cfg.DataDir = ps.MemoryDataDir
		testFunc(t, openInstance(t, cfg))
	})

	t.Run("File", func(t *testing.T) {
		cfg := config.Default()
		cfg.DataDir = t.TempDir()
		testFunc(t, openInstance(t, cfg))
	})
}

func openInstance(t *testing.T, cfg *config.Config) *Instance {
	t.Helper()
	instance, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	t.Cleanup(func() { instance.Close() })
	return instance
}

func execute(t *testing.T, instance *Instance, sql string, args ...any) int64 {
	t.Helper()
	affected, err := instance.Adapter.ExecuteRaw(context.Background(), core.Query{SQL: sql, Args: args})
	if err != nil {
		t.Fatalf("Failed to execute %q: %v", sql, err)
	}
	return affected
}

func query(t *testing.T, instance *Instance, sql string, args ...any) *core.ResultSet {
	t.Helper()
	rs, err := instance.Adapter.QueryRaw(context.Background(), core.Query{SQL: sql, Args: args})
	if err != nil {
		t.Fatalf("Failed to query %q: %v", sql, err)
	}
	return rs
}

// TestIntegrationWorkflow tests a complete ORM-style workflow
func TestIntegrationWorkflow(t *testing.T) {
	runWithBothDataDirs(t, func(t *testing.T, instance *Instance) {
		execute(t, instance, `CREATE TABLE employees (
			id INTEGER PRIMARY KEY,
			name VARCHAR NOT NULL,
			department VARCHAR,
			salary DECIMAL(10,2),
			profile JSON,
			skills VARCHAR[]
		)`)

		insert := "INSERT INTO employees VALUES ($1, $2, $3, $4, $5, ['go', 'sql'])"
		if n := execute(t, instance, insert, 1, "Alice", "Engineering", "100000.50", `{"level":3}`); n != 1 {
			t.Errorf("Expected 1 row inserted, got %d", n)
		}
		execute(t, instance, "INSERT INTO employees VALUES ($1, $2, $3, $4, NULL, [])", 2, "Bob", "Sales", "75000")
		execute(t, instance, "INSERT INTO employees VALUES ($1, $2, $3, $4, NULL, NULL)", 3, "Charlie", "Engineering", "120000")

		rs := query(t, instance, "SELECT id, name, salary, profile, skills FROM employees ORDER BY id")
		expectedTypes := []core.ColumnType{core.Int32, core.Text, core.Numeric, core.Json, core.TextArray}
		for i, columnType := range rs.ColumnTypes {
			if columnType != expectedTypes[i] {
				t.Errorf("Column %s: expected %s, got %s", rs.ColumnNames[i], expectedTypes[i], columnType)
			}
		}
		if len(rs.Rows) != 3 {
			t.Fatalf("Expected 3 rows, got %d", len(rs.Rows))
		}

		alice := rs.Rows[0]
		if alice[0] != int32(1) || alice[1] != "Alice" || alice[2] != "100000.50" {
			t.Errorf("Unexpected row for Alice: %v", alice)
		}
		if profile, ok := alice[3].(json.RawMessage); !ok || string(profile) != `{"level":3}` {
			t.Errorf("Expected raw JSON profile, got %#v", alice[3])
		}
		skills, ok := alice[4].([]any)
		if !ok || len(skills) != 2 || skills[0] != "go" || skills[1] != "sql" {
			t.Errorf("Expected skills [go sql], got %#v", alice[4])
		}

		bob := rs.Rows[1]
		if bob[3] != nil {
			t.Errorf("Expected NULL profile for Bob, got %#v", bob[3])
		}
		if empty, ok := bob[4].([]any); !ok || len(empty) != 0 {
			t.Errorf("Expected empty skills for Bob, got %#v", bob[4])
		}

		if n := execute(t, instance, "UPDATE employees SET salary = salary * 1.1 WHERE department = $1", "Engineering"); n != 2 {
			t.Errorf("Expected 2 rows updated, got %d", n)
		}

		rs = query(t, instance, "SELECT department, count(*) AS n FROM employees GROUP BY department ORDER BY department")
		if len(rs.Rows) != 2 || rs.Rows[0][0] != "Engineering" || rs.Rows[0][1] != int64(2) {
			t.Errorf("Unexpected grouping: %v", rs.Rows)
		}

		if n := execute(t, instance, "DELETE FROM employees WHERE id = $1", 2); n != 1 {
			t.Errorf("Expected 1 row deleted, got %d", n)
		}
	})
}

func TestIntegrationTransactions(t *testing.T) {
	runWithBothDataDirs(t, func(t *testing.T, instance *Instance) {
		ctx := context.Background()
		execute(t, instance, "CREATE TABLE accounts (id INTEGER PRIMARY KEY, balance INTEGER)")
		execute(t, instance, "INSERT INTO accounts VALUES (1, 100), (2, 0)")

		tx, err := instance.Transaction(ctx)
		if err != nil {
			t.Fatalf("Failed to start transaction: %v", err)
		}
		if _, err := tx.ExecuteRaw(ctx, core.Query{SQL: "UPDATE accounts SET balance = balance - 40 WHERE id = 1"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if _, err := tx.ExecuteRaw(ctx, core.Query{SQL: "UPDATE accounts SET balance = balance + 40 WHERE id = 2"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		tx, err = instance.Transaction(ctx)
		if err != nil {
			t.Fatalf("Failed to start transaction: %v", err)
		}
		_, err = tx.ExecuteRaw(ctx, core.Query{SQL: "INSERT INTO accounts VALUES (1, 5)"})
		if core.KindOf(err) != core.KindPostgres {
			t.Fatalf("Expected engine error for duplicate key, got %v", err)
		}
		if err := tx.Rollback(ctx); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}

		rs := query(t, instance, "SELECT balance FROM accounts ORDER BY id")
		if rs.Rows[0][0] != int32(60) || rs.Rows[1][0] != int32(40) {
			t.Errorf("Expected balances 60 and 40, got %v", rs.Rows)
		}
	})
}

func TestIntegrationIsolationLevel(t *testing.T) {
	cfg := config.Default()
	cfg.IsolationLevel = "serializable"
	instance := openInstance(t, cfg)

	tx, err := instance.Transaction(context.Background())
	if err != nil {
		t.Fatalf("Failed to start transaction: %v", err)
	}
	defer tx.Commit(context.Background())

	level := tx.Options().IsolationLevel
	if level == nil || *level != core.Serializable {
		t.Errorf("Expected serializable transaction, got %v", level)
	}
}

func TestIntegrationMigrationsOnOpen(t *testing.T) {
	dir := t.TempDir()
	migration := filepath.Join(dir, "20240101000000_init", "migration.sql")
	if err := os.MkdirAll(filepath.Dir(migration), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(migration, []byte("CREATE TABLE users (id INTEGER PRIMARY KEY, email VARCHAR);"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Migrations.Source = dir

	instance := openInstance(t, cfg)
	execute(t, instance, "INSERT INTO users VALUES (1, 'a@b.c')")

	rs := query(t, instance, "SELECT migration_name FROM _prisma_migrations")
	if len(rs.Rows) != 1 || rs.Rows[0][0] != "20240101000000_init" {
		t.Errorf("Expected recorded migration, got %v", rs.Rows)
	}
	instance.Close()

	// Reopening finds the migration already applied.
	reopened := openInstance(t, cfg)
	rs = query(t, reopened, "SELECT count(*) FROM users")
	if rs.Rows[0][0] != int64(1) {
		t.Errorf("Expected data to survive reopen, got %v", rs.Rows)
	}
}

func TestIntegrationShadowEngine(t *testing.T) {
	instance := openInstance(t, config.Default())

	shadow, err := instance.OpenShadow(context.Background())
	if err != nil {
		t.Fatalf("Failed to open shadow: %v", err)
	}
	again, _ := instance.OpenShadow(context.Background())
	if again != shadow {
		t.Error("Expected the same shadow engine on second call")
	}

	execute(t, instance, "CREATE TABLE only_primary (id INTEGER)")
	_, err = shadow.Query(context.Background(), "SELECT * FROM only_primary", nil, nil)
	if err == nil {
		t.Error("Expected shadow engine to be separate from the primary")
	}

	if err := instance.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case <-shadow.Closed():
	default:
		t.Error("Expected shadow engine to be closed with the instance")
	}
}
