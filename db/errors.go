package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nickyhof/EmbedDB/core"
)

var ErrTransactionClosed = errors.New("transaction is already closed")

// classify converts a structured engine failure into a tagged error.
// Any other error is returned unchanged and stays fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	return &core.EngineError{
		Code:     pgErr.Code,
		Severity: pgErr.Severity,
		Message:  pgErr.Message,
		Detail:   pgErr.Detail,
		Column:   pgErr.ColumnName,
		Hint:     pgErr.Hint,
	}
}
