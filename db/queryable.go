package db

import (
	"context"
	"log/slog"

	"github.com/nickyhof/EmbedDB/catalog"
	"github.com/nickyhof/EmbedDB/codec"
	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/ps"
)

// client runs a single statement. Both *ps.Instance and *ps.Tx are clients.
type client interface {
	Query(ctx context.Context, query string, args []any, opts *ps.QueryOptions) (*ps.Results, error)
}

// queryable holds what the adapter and its transactions have in common.
type queryable struct {
	client  client
	options *ps.QueryOptions
	logger  *slog.Logger
}

func newQueryable(c client, logger *slog.Logger) queryable {
	return queryable{
		client:  c,
		options: &ps.QueryOptions{Parsers: codec.Parsers()},
		logger:  logger,
	}
}

// Provider names the SQL dialect the adapter speaks.
func (q *queryable) Provider() string {
	return "postgres"
}

// AdapterName identifies the adapter to its caller.
func (q *queryable) AdapterName() string {
	return adapterName
}

// QueryRaw runs a statement and returns its rows with every column mapped to
// an abstract column type.
func (q *queryable) QueryRaw(ctx context.Context, query core.Query) (*core.ResultSet, error) {
	q.logger.Debug("query_raw", "sql", query.SQL, "args", len(query.Args))

	results, err := q.performIO(ctx, query)
	if err != nil {
		return nil, err
	}

	rs := &core.ResultSet{
		ColumnNames: make([]string, len(results.Fields)),
		ColumnTypes: make([]core.ColumnType, len(results.Fields)),
		Rows:        results.Rows,
	}
	for i, field := range results.Fields {
		columnType, err := catalog.MapColumnType(field.DataTypeID)
		if err != nil {
			return nil, err
		}
		rs.ColumnNames[i] = field.Name
		rs.ColumnTypes[i] = columnType
	}
	if rs.Rows == nil {
		rs.Rows = [][]any{}
	}
	return rs, nil
}

// ExecuteRaw runs a statement and returns the number of affected rows, or 0
// when the statement does not report one.
func (q *queryable) ExecuteRaw(ctx context.Context, query core.Query) (int64, error) {
	q.logger.Debug("execute_raw", "sql", query.SQL, "args", len(query.Args))

	results, err := q.performIO(ctx, query)
	if err != nil {
		return 0, err
	}
	if results.AffectedRows == nil {
		return 0, nil
	}
	return *results.AffectedRows, nil
}

func (q *queryable) performIO(ctx context.Context, query core.Query) (*ps.Results, error) {
	args, err := codec.EncodeArgs(query.Args, query.ArgTypes)
	if err != nil {
		return nil, err
	}

	results, err := q.client.Query(ctx, query.SQL, args, q.options)
	if err != nil {
		q.logger.Debug("error in performIO", "error", err)
		return nil, classify(err)
	}
	return results, nil
}
