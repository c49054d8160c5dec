package db

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nickyhof/EmbedDB/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

// Result is what the interactive shell prints after a statement.
type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

type QueryResult struct {
	Columns          []string
	Types            []core.ColumnType
	Data             [][]string
	RecordsRead      int
	ExecutionTimeSec float64
}

type CommitResult struct {
	RecordsAffected  int64
	ExecutionTimeSec float64
}

// NewQueryResult renders the rows of rs as display text.
func NewQueryResult(rs *core.ResultSet, elapsed time.Duration) QueryResult {
	data := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		cells := make([]string, len(row))
		for j, value := range row {
			cells[j] = displayValue(value)
		}
		data[i] = cells
	}
	return QueryResult{
		Columns:          rs.ColumnNames,
		Types:            rs.ColumnTypes,
		Data:             data,
		RecordsRead:      len(rs.Rows),
		ExecutionTimeSec: elapsed.Seconds(),
	}
}

func NewCommitResult(affected int64, elapsed time.Duration) CommitResult {
	return CommitResult{RecordsAffected: affected, ExecutionTimeSec: elapsed.Seconds()}
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case json.RawMessage:
		return string(v)
	case []byte:
		return `\x` + hex.EncodeToString(v)
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = displayValue(elem)
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprint(v)
	}
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Columns) > 0 {
		table := NewTable(w)
		table.Header(result.Columns)
		table.Align(alignments(result.Types))
		table.Bulk(result.Data)
		table.Render()
	}

	noun := "rows"
	if result.RecordsRead == 1 {
		noun = "row"
	}
	fmt.Fprintf(w, "%d %s (%s)\n", result.RecordsRead, noun, result.ExecutionTime())
}

func (result CommitResult) Display(w io.Writer) {
	if result.RecordsAffected == 0 {
		fmt.Fprintf(w, "OK (%s)\n", result.ExecutionTime())
		return
	}
	fmt.Fprintf(w, "%d record(s) affected (%s)\n", result.RecordsAffected, result.ExecutionTime())
}

// alignments right-aligns numeric columns.
func alignments(types []core.ColumnType) []Alignment {
	aligns := make([]Alignment, len(types))
	for i, t := range types {
		switch t {
		case core.Int32, core.Int64, core.Float, core.Double, core.Numeric:
			aligns[i] = AlignRight
		default:
			aligns[i] = AlignLeft
		}
	}
	return aligns
}
