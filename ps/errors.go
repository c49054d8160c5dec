package ps

import (
	"errors"
	"strings"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes reported by the engine host itself.
const (
	codeProtocolViolation    = "08P01"
	codeFeatureNotSupported  = "0A000"
	codeInFailedTransaction  = "25P02"
	codeDuplicatePrepared    = "42P05"
	codeUndefinedPrepared    = "26000"
	codeUndefinedPortal      = "34000"
	codeInvalidParameter     = "22P02"
	codeInternalError        = "XX000"
	codeUniqueViolation      = "23505"
	codeNotNullViolation     = "23502"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeIntegrityViolation   = "23000"
	codeUndefinedTable       = "42P01"
	codeUndefinedColumn      = "42703"
	codeUndefinedObject      = "42704"
	codeDuplicateTable       = "42P07"
	codeDuplicateObject      = "42710"
	codeSyntaxError          = "42601"
	codeDatatypeMismatch     = "42804"
	codeNumericOutOfRange    = "22003"
	codeDivisionByZero       = "22012"
	codeActiveTransaction    = "25001"
	codeNoActiveTransaction  = "25P01"
	codeSerializationFailure = "40001"
	codeInsufficientPrivs    = "42501"
)

// engineError converts an engine failure into the PostgreSQL error shape.
// Errors that did not come from the engine are returned unchanged.
func engineError(err error) error {
	var de *duckdb.Error
	if !errors.As(err, &de) {
		return err
	}

	message := stripErrorPrefix(de.Msg)
	return &pgconn.PgError{
		Severity:            "ERROR",
		SeverityUnlocalized: "ERROR",
		Code:                sqlState(de.Type, message),
		Message:             message,
	}
}

// stripErrorPrefix removes the "Constraint Error: " style category prefix.
func stripErrorPrefix(msg string) string {
	if i := strings.Index(msg, ": "); i > 0 && strings.HasSuffix(msg[:i], "Error") {
		return strings.TrimSpace(msg[i+2:])
	}
	return msg
}

func sqlState(errorType duckdb.ErrorType, message string) string {
	lower := strings.ToLower(message)

	switch errorType {
	case duckdb.ErrorTypeConstraint:
		switch {
		case strings.Contains(lower, "duplicate key"), strings.Contains(lower, "unique"), strings.Contains(lower, "primary key"):
			return codeUniqueViolation
		case strings.Contains(lower, "not null"):
			return codeNotNullViolation
		case strings.Contains(lower, "foreign key"):
			return codeForeignKeyViolation
		case strings.Contains(lower, "check constraint"):
			return codeCheckViolation
		default:
			return codeIntegrityViolation
		}
	case duckdb.ErrorTypeCatalog:
		switch {
		case strings.Contains(lower, "already exists"):
			if strings.Contains(lower, "table") {
				return codeDuplicateTable
			}
			return codeDuplicateObject
		case strings.Contains(lower, "table") && strings.Contains(lower, "does not exist"):
			return codeUndefinedTable
		default:
			return codeUndefinedObject
		}
	case duckdb.ErrorTypeBinder:
		switch {
		case strings.Contains(lower, "column") && strings.Contains(lower, "not found"):
			return codeUndefinedColumn
		case strings.Contains(lower, "does not exist"):
			return codeUndefinedTable
		default:
			return codeDatatypeMismatch
		}
	case duckdb.ErrorTypeParser, duckdb.ErrorTypeSyntax:
		return codeSyntaxError
	case duckdb.ErrorTypeConversion, duckdb.ErrorTypeInvalidInput:
		return codeInvalidParameter
	case duckdb.ErrorTypeOutOfRange:
		return codeNumericOutOfRange
	case duckdb.ErrorTypeDivideByZero:
		return codeDivisionByZero
	case duckdb.ErrorTypeMismatchType:
		return codeDatatypeMismatch
	case duckdb.ErrorTypeNotImplemented:
		return codeFeatureNotSupported
	case duckdb.ErrorTypePermission:
		return codeInsufficientPrivs
	case duckdb.ErrorTypeSerialization:
		return codeSerializationFailure
	case duckdb.ErrorTypeTransaction:
		switch {
		case strings.Contains(lower, "conflict"):
			return codeSerializationFailure
		case strings.Contains(lower, "aborted"):
			return codeInFailedTransaction
		case strings.Contains(lower, "no transaction"):
			return codeNoActiveTransaction
		default:
			return codeActiveTransaction
		}
	default:
		return codeInternalError
	}
}

func protocolError(code, message string) *pgconn.PgError {
	return &pgconn.PgError{
		Severity:            "ERROR",
		SeverityUnlocalized: "ERROR",
		Code:                code,
		Message:             message,
	}
}
