package db

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nickyhof/EmbedDB/core"
)

func TestQueryResultDisplay(t *testing.T) {
	rs := &core.ResultSet{
		ColumnNames: []string{"id", "name", "meta"},
		ColumnTypes: []core.ColumnType{core.Int32, core.Text, core.Json},
		Rows: [][]any{
			{int32(7), "Zoë", json.RawMessage(`{"a":1}`)},
			{int32(12), nil, nil},
		},
	}

	var out bytes.Buffer
	NewQueryResult(rs, 2500*time.Microsecond).Display(&out)

	expected := "" +
		"+----+------+---------+\n" +
		"| id | name | meta    |\n" +
		"+----+------+---------+\n" +
		"|  7 | Zoë  | {\"a\":1} |\n" +
		"| 12 | NULL | NULL    |\n" +
		"+----+------+---------+\n" +
		"2 rows (2.5ms)\n"
	assert.Equal(t, expected, out.String())
}

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{nil, "NULL"},
		{"text", "text"},
		{[]byte("hi"), `\x6869`},
		{[]any{int32(1), nil, "b"}, "{1,NULL,b}"},
		{true, "true"},
		{float64(1.5), "1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, displayValue(tt.value))
	}
}

func TestCommitResultDisplay(t *testing.T) {
	var out bytes.Buffer
	NewCommitResult(3, 2*time.Second).Display(&out)
	assert.Equal(t, "3 record(s) affected (2.0s)\n", out.String())

	out.Reset()
	NewCommitResult(0, 0).Display(&out)
	assert.Equal(t, "OK (<1ms)\n", out.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "<1ms", formatDuration(0.0005))
	assert.Equal(t, "42ms", formatDuration(0.0425))
	assert.Equal(t, "15s", formatDuration(15))
	assert.Equal(t, "2m", formatDuration(120))
	assert.Equal(t, "2m5s", formatDuration(125))
}

func TestTableCutsMultilineCells(t *testing.T) {
	var out bytes.Buffer
	table := NewTable(&out)
	table.Header([]string{"note"})
	table.Row([]string{"one\ntwo"})
	table.Render()

	assert.Equal(t, "+------+\n| note |\n+------+\n| one… |\n+------+\n", out.String())
}
