package sql

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected []string
	}{
		{"single", "SELECT 1", []string{"SELECT 1"}},
		{"trailing semicolon", "SELECT 1;", []string{"SELECT 1"}},
		{"several", "BEGIN; INSERT INTO t VALUES (1);COMMIT", []string{"BEGIN", "INSERT INTO t VALUES (1)", "COMMIT"}},
		{"semicolon in string", "INSERT INTO t VALUES ('a;b'); SELECT 2", []string{"INSERT INTO t VALUES ('a;b')", "SELECT 2"}},
		{"semicolon in dollar quote", "SELECT $$;$$", []string{"SELECT $$;$$"}},
		{"empty statements", " ; ;-- nothing\n;", nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Split(test.script)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("expected %q, got %q", test.expected, got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		sql       string
		kind      Kind
		tag       string
		returning bool
		params    int
	}{
		{"SELECT * FROM t WHERE a = $1 AND b = $2", Select, "SELECT 3", false, 2},
		{"select $3, $1", Select, "SELECT 3", false, 3},
		{"INSERT INTO t (a) VALUES ($1)", Insert, "INSERT 0 3", false, 1},
		{"insert into t values (1) returning id", Insert, "INSERT 0 3", true, 0},
		{"UPDATE t SET a = (SELECT max(x) FROM u) WHERE id = $1", Update, "UPDATE 3", false, 1},
		{"DELETE FROM t", Delete, "DELETE 3", false, 0},
		{"WITH x AS (SELECT 1) DELETE FROM t USING x RETURNING *", Delete, "DELETE 3", true, 0},
		{"WITH x AS (DELETE FROM t RETURNING *) SELECT * FROM x", Select, "SELECT 3", false, 0},
		{"BEGIN", Begin, "BEGIN", false, 0},
		{"START TRANSACTION", Begin, "START TRANSACTION", false, 0},
		{"end", Commit, "COMMIT", false, 0},
		{"ROLLBACK", Rollback, "ROLLBACK", false, 0},
		{"ROLLBACK TO SAVEPOINT s1", Other, "ROLLBACK", false, 0},
		{"CREATE UNIQUE INDEX i ON t (a)", DDL, "CREATE INDEX", false, 0},
		{"CREATE OR REPLACE VIEW v AS SELECT 1", DDL, "CREATE VIEW", false, 0},
		{"DROP TABLE IF EXISTS t", DDL, "DROP TABLE", false, 0},
		{"SET search_path TO public", Set, "SET", false, 0},
		{"SHOW search_path", Other, "SHOW", false, 0},
		{"VALUES (1), (2)", Other, "SELECT 3", false, 0},
		{"", Other, "SELECT 3", false, 0},
	}

	for _, test := range tests {
		t.Run(test.sql, func(t *testing.T) {
			statement := Classify(test.sql)
			if statement.Kind != test.kind {
				t.Errorf("expected kind %v, got %v", test.kind, statement.Kind)
			}
			if tag := statement.CommandTag(3); tag != test.tag {
				t.Errorf("expected tag %q, got %q", test.tag, tag)
			}
			if statement.Returning != test.returning {
				t.Errorf("expected returning %v, got %v", test.returning, statement.Returning)
			}
			if statement.Params != test.params {
				t.Errorf("expected %d params, got %d", test.params, statement.Params)
			}
		})
	}
}

func TestClassifyIsolation(t *testing.T) {
	tests := []struct{ sql, level string }{
		{"SET TRANSACTION ISOLATION LEVEL READ COMMITTED", "READ COMMITTED"},
		{"set transaction isolation level serializable", "SERIALIZABLE"},
		{"SET TRANSACTION ISOLATION LEVEL REPEATABLE READ, READ ONLY", "REPEATABLE READ"},
		{"SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ UNCOMMITTED", "READ UNCOMMITTED"},
	}

	for _, test := range tests {
		sql, level := test.sql, test.level
		statement := Classify(sql)
		if statement.Kind != SetIsolation {
			t.Errorf("%q: expected SetIsolation, got %v", sql, statement.Kind)
		}
		if statement.Isolation != level {
			t.Errorf("%q: expected %q, got %q", sql, level, statement.Isolation)
		}
		if statement.ReturnsRows() {
			t.Errorf("%q: SET should not return rows", sql)
		}
	}
}

func TestReturnsRows(t *testing.T) {
	if !Classify("SELECT 1").ReturnsRows() {
		t.Error("SELECT should return rows")
	}
	if Classify("INSERT INTO t VALUES (1)").ReturnsRows() {
		t.Error("INSERT without RETURNING should not return rows")
	}
	if !Classify("INSERT INTO t VALUES (1) RETURNING *").ReturnsRows() {
		t.Error("INSERT ... RETURNING should return rows")
	}
	if Classify("CREATE TABLE t (a int)").ReturnsRows() {
		t.Error("DDL should not return rows")
	}
}
