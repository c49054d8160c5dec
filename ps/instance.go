package ps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
)

var (
	ErrClosed = errors.New("engine instance is closed")
)

// MemoryDataDir selects an in-memory database.
const MemoryDataDir = "memory://"

const databaseFile = "embeddb.duckdb"

type Options struct {
	// DataDir is the directory holding the database file. Empty or
	// "memory://" keeps everything in memory.
	DataDir string

	Logger *slog.Logger
}

// Instance is one embedded engine with its single pinned connection.
type Instance struct {
	db     *sqlx.DB
	conn   *sqlx.Conn
	logger *slog.Logger

	// queue is the single-slot task queue.
	queue     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	mu         sync.Mutex
	customOIDs map[string]uint32
}

// Open starts an engine instance.
func Open(ctx context.Context, opts Options) (*Instance, error) {
	dsn, err := dataSource(opts.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Connx(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to engine: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	instance := &Instance{
		db:         db,
		conn:       conn,
		logger:     logger.With("component", "engine"),
		queue:      make(chan struct{}, 1),
		closed:     make(chan struct{}),
		customOIDs: make(map[string]uint32),
	}
	instance.logger.Debug("engine started", "data_dir", opts.DataDir)
	return instance, nil
}

func dataSource(dataDir string) (string, error) {
	if dataDir == "" || strings.HasPrefix(dataDir, MemoryDataDir) {
		return "", nil
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dataDir, databaseFile), nil
}

// Close aborts the instance. Waiters, open transactions and every later
// call observe ErrClosed. Close is idempotent.
func (instance *Instance) Close() error {
	instance.closeOnce.Do(func() {
		close(instance.closed)
		connErr := instance.conn.Close()
		dbErr := instance.db.Close()
		instance.closeErr = errors.Join(connErr, dbErr)
		instance.logger.Debug("engine closed")
	})
	return instance.closeErr
}

// Closed returns a channel that is closed when the instance is closed.
func (instance *Instance) Closed() <-chan struct{} {
	return instance.closed
}

func (instance *Instance) isClosed() bool {
	select {
	case <-instance.closed:
		return true
	default:
		return false
	}
}

// acquire takes the task slot, waiting for the current holder to release it.
func (instance *Instance) acquire(ctx context.Context) error {
	if instance.isClosed() {
		return ErrClosed
	}
	select {
	case instance.queue <- struct{}{}:
		if instance.isClosed() {
			<-instance.queue
			return ErrClosed
		}
		return nil
	case <-instance.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (instance *Instance) release() {
	<-instance.queue
}
