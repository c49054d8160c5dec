package core

import (
	"errors"
	"fmt"
)

// Error kinds carried by tagged errors.
const (
	KindUnsupportedNativeDataType = "UnsupportedNativeDataType"
	KindPostgres                  = "Postgres"
)

// UnsupportedNativeDataTypeError is returned when a result column has a
// native type the adapter cannot represent.
type UnsupportedNativeDataTypeError struct {
	// Type is the catalog name of the native type, or "Unknown".
	Type string
	Code uint32
}

func (e *UnsupportedNativeDataTypeError) Error() string {
	return fmt.Sprintf("Unsupported column type %s", e.Type)
}

func (e *UnsupportedNativeDataTypeError) Kind() string {
	return KindUnsupportedNativeDataType
}

// EngineError is a structured failure reported by the engine.
type EngineError struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
	Column   string `json:"column,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Severity, e.Message, e.Code)
}

func (e *EngineError) Kind() string {
	return KindPostgres
}

type tagged interface {
	error
	Kind() string
}

// KindOf returns the kind of a tagged error anywhere in err's chain, or ""
// when err is untagged and therefore fatal.
func KindOf(err error) string {
	var t tagged
	if errors.As(err, &t) {
		return t.Kind()
	}
	return ""
}

// IsFatal reports whether err carries no tag a caller could branch on.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == ""
}
