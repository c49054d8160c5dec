package ps

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nickyhof/EmbedDB/sql"
)

// Parser converts the text form of a non-NULL value of one native type.
type Parser = func(text string) (any, error)

type QueryOptions struct {
	// Parsers are applied by native type OID while rows are materialized.
	// Columns without a parser keep their text form.
	Parsers map[uint32]Parser
}

// Field describes one result column.
type Field struct {
	Name       string
	DataTypeID uint32
}

// Results is the outcome of a single statement.
type Results struct {
	Fields []Field
	Rows   [][]any

	// AffectedRows is set for INSERT, UPDATE and DELETE.
	AffectedRows *int64
}

// Query runs one statement with positional ($1, $2, ...) arguments.
func (instance *Instance) Query(ctx context.Context, query string, args []any, opts *QueryOptions) (*Results, error) {
	if err := instance.acquire(ctx); err != nil {
		return nil, err
	}
	defer instance.release()

	return instance.run(ctx, sql.Classify(query), args, opts)
}

// Exec runs a script of one or more statements without arguments.
func (instance *Instance) Exec(ctx context.Context, script string) error {
	if err := instance.acquire(ctx); err != nil {
		return err
	}
	defer instance.release()

	return instance.execScript(ctx, script)
}

// Select scans the rows of a query into dest, a pointer to a slice of
// structs with db tags.
func (instance *Instance) Select(ctx context.Context, dest any, query string, args ...any) error {
	if err := instance.acquire(ctx); err != nil {
		return err
	}
	defer instance.release()

	return instance.selectInto(ctx, dest, query, args...)
}

func (instance *Instance) execScript(ctx context.Context, script string) error {
	for _, statement := range sql.Split(script) {
		if _, err := instance.run(ctx, sql.Classify(statement), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (instance *Instance) selectInto(ctx context.Context, dest any, query string, args ...any) error {
	if instance.isClosed() {
		return ErrClosed
	}
	if err := instance.conn.SelectContext(ctx, dest, query, args...); err != nil {
		return engineError(err)
	}
	return nil
}

// run executes a statement on the pinned connection. The caller holds the
// task slot.
func (instance *Instance) run(ctx context.Context, statement sql.Statement, args []any, opts *QueryOptions) (*Results, error) {
	if instance.isClosed() {
		return nil, ErrClosed
	}
	instance.logger.Debug("run statement", "kind", statement.Kind.String(), "args", len(args))

	// The engine runs every transaction under snapshot isolation. A Tx
	// records the requested level on itself.
	if statement.Kind == sql.SetIsolation {
		return &Results{}, nil
	}

	if !statement.ReturnsRows() {
		result, err := instance.conn.ExecContext(ctx, statement.SQL, args...)
		if err != nil {
			return nil, engineError(err)
		}
		if !statement.Modifies() {
			return &Results{}, nil
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, engineError(err)
		}
		return &Results{AffectedRows: &affected}, nil
	}

	rows, err := instance.conn.QueryxContext(ctx, statement.SQL, args...)
	if err != nil {
		return nil, engineError(err)
	}
	defer rows.Close()

	results, err := instance.materialize(rows, opts)
	if err != nil {
		return nil, err
	}
	if statement.Modifies() {
		affected := int64(len(results.Rows))
		results.AffectedRows = &affected
	}
	return results, nil
}

func (instance *Instance) materialize(rows *sqlx.Rows, opts *QueryOptions) (*Results, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, engineError(err)
	}

	results := &Results{
		Fields: make([]Field, len(columnTypes)),
		Rows:   [][]any{},
	}
	for i, columnType := range columnTypes {
		results.Fields[i] = Field{
			Name:       columnType.Name(),
			DataTypeID: instance.typeOID(columnType.DatabaseTypeName()),
		}
	}

	var parsers map[uint32]Parser
	if opts != nil {
		parsers = opts.Parsers
	}

	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, engineError(err)
		}
		for i, value := range values {
			if value == nil {
				continue
			}
			oid := results.Fields[i].DataTypeID
			text := renderText(value, oid)
			values[i] = text
			if parse, ok := parsers[oid]; ok {
				parsed, err := parse(text)
				if err != nil {
					return nil, fmt.Errorf("failed to parse column %q: %w", results.Fields[i].Name, err)
				}
				values[i] = parsed
			}
		}
		results.Rows = append(results.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, engineError(err)
	}
	return results, nil
}
