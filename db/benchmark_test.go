package db

import (
	"context"
	"strconv"
	"testing"

	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/ps"
)

// setupBenchmarkDB creates an adapter over a table of 1000 users.
func setupBenchmarkDB(b *testing.B) (*Adapter, *ps.Instance) {
	ctx := context.Background()
	instance, err := ps.Open(ctx, ps.Options{DataDir: ps.MemoryDataDir})
	if err != nil {
		b.Fatalf("Failed to open engine: %v", err)
	}
	b.Cleanup(func() { instance.Close() })

	err = instance.Exec(ctx, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER, city TEXT, created_at TIMESTAMP);
		INSERT INTO users
		SELECT i, 'User' || i, 20 + i % 50, 'City' || (i % 10), TIMESTAMP '2024-01-01' + to_seconds(i)
		FROM range(1, 1001) t(i);`)
	if err != nil {
		b.Fatalf("Failed to seed: %v", err)
	}

	return NewAdapter(instance, Options{}), instance
}

func benchmarkQuery(b *testing.B, adapter *Adapter, query core.Query) {
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := adapter.QueryRaw(ctx, query); err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

func BenchmarkQueryRaw(b *testing.B) {
	adapter, _ := setupBenchmarkDB(b)

	queries := []struct {
		name  string
		query string
	}{
		{"SelectAll", "SELECT * FROM users"},
		{"SelectWithWhere", "SELECT * FROM users WHERE age > 40"},
		{"SelectWithIn", "SELECT * FROM users WHERE city IN ('City1', 'City2', 'City3')"},
		{"SelectWithOrderBy", "SELECT * FROM users ORDER BY age DESC"},
		{"SelectWithLimit", "SELECT * FROM users LIMIT 10"},
		{"Count", "SELECT COUNT(*) FROM users"},
		{"GroupBy", "SELECT city, COUNT(*), AVG(age) FROM users GROUP BY city"},
		{"Json", "SELECT json_object('id', id, 'name', name) FROM users"},
	}

	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			benchmarkQuery(b, adapter, core.Query{SQL: q.query})
		})
	}
}

// BenchmarkEngineQuery measures the engine without result mapping, as a
// baseline for BenchmarkQueryRaw.
func BenchmarkEngineQuery(b *testing.B) {
	_, instance := setupBenchmarkDB(b)
	ctx := context.Background()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := instance.Query(ctx, "SELECT * FROM users", nil, nil); err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

func BenchmarkQueryWithArgs(b *testing.B) {
	adapter, _ := setupBenchmarkDB(b)
	benchmarkQuery(b, adapter, core.Query{
		SQL:  "SELECT * FROM users WHERE created_at > $1 AND city = $2",
		Args: []any{"2024-01-01T00:05:00Z", "City3"},
		ArgTypes: []core.ArgType{
			{ScalarType: core.ScalarDateTime, DBType: "TIMESTAMP", Arity: core.ArityScalar},
			{ScalarType: core.ScalarString, Arity: core.ArityScalar},
		},
	})
}

func BenchmarkExecuteRaw(b *testing.B) {
	adapter, _ := setupBenchmarkDB(b)
	ctx := context.Background()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id := (i % 1000) + 1
		_, err := adapter.ExecuteRaw(ctx, core.Query{SQL: "UPDATE users SET age = 99 WHERE id = " + strconv.Itoa(id)})
		if err != nil {
			b.Fatalf("Update error: %v", err)
		}
	}
}

func BenchmarkTransaction(b *testing.B) {
	adapter, _ := setupBenchmarkDB(b)
	ctx := context.Background()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		txCtx, err := adapter.TransactionContext(ctx)
		if err != nil {
			b.Fatalf("TransactionContext error: %v", err)
		}
		tx, err := txCtx.StartTransaction(ctx, nil)
		if err != nil {
			b.Fatalf("StartTransaction error: %v", err)
		}
		if _, err := tx.ExecuteRaw(ctx, core.Query{SQL: "UPDATE users SET age = age + 1 WHERE id = 1"}); err != nil {
			b.Fatalf("Update error: %v", err)
		}
		if err := tx.Commit(ctx); err != nil {
			b.Fatalf("Commit error: %v", err)
		}
	}
}

func BenchmarkExecProtocolRaw(b *testing.B) {
	_, instance := setupBenchmarkDB(b)
	ctx := context.Background()

	query := "SELECT * FROM users LIMIT 100"
	frame := append([]byte{'Q', 0, 0, 0, 0}, query...)
	frame = append(frame, 0)
	length := len(frame) - 1
	frame[1], frame[2], frame[3], frame[4] = byte(length>>24), byte(length>>16), byte(length>>8), byte(length)
	session := instance.NewSession()
	defer session.Close(ctx)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := session.ExecProtocolRaw(ctx, frame); err != nil {
			b.Fatalf("Protocol error: %v", err)
		}
	}
}
