package db

import (
	"context"
	"log/slog"

	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/ps"
)

const adapterName = "embeddb"

// engine is the part of *ps.Instance the adapter depends on.
type engine interface {
	client
	Transaction(ctx context.Context, fn func(tx *ps.Tx) error) error
	Closed() <-chan struct{}
}

type Options struct {
	// SchemaName overrides the schema reported by ConnectionInfo.
	SchemaName string

	Logger *slog.Logger
}

// Adapter runs queries against one engine instance outside of any
// transaction.
type Adapter struct {
	queryable
	engine     engine
	schemaName string
}

// NewAdapter binds an adapter to instance. It panics when instance is nil.
func NewAdapter(instance *ps.Instance, opts Options) *Adapter {
	if instance == nil {
		panic("db: NewAdapter must be initialized with an engine instance")
	}
	return newAdapter(instance, opts)
}

func newAdapter(e engine, opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "adapter")

	return &Adapter{
		queryable:  newQueryable(e, logger),
		engine:     e,
		schemaName: opts.SchemaName,
	}
}

func (a *Adapter) ConnectionInfo() core.ConnectionInfo {
	return core.ConnectionInfo{SchemaName: a.schemaName}
}

// TransactionContext returns the context transactions are started from.
func (a *Adapter) TransactionContext(ctx context.Context) (*TransactionContext, error) {
	select {
	case <-a.engine.Closed():
		return nil, ps.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return &TransactionContext{
		queryable: a.queryable,
		engine:    a.engine,
	}, nil
}
