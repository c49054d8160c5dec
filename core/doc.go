// Package core provides the types shared across EmbedDB.
//
// The package defines the portable column type enumeration, the query and
// result set contract between the adapter and its caller, transaction
// options, and the tagged error values a caller can branch on.
//
// # Column Types
//
// Every engine column is reported as one of the abstract column types:
//   - Int32, Int64, Float, Double, Numeric: numbers
//   - Boolean
//   - Date, Time, DateTime
//   - Json, Uuid, Text, Bytes, Character
//
// Each scalar type has an array counterpart (Int32Array, TextArray, ...).
//
// # Queries
//
//	query := core.Query{
//	    SQL:  "SELECT id, created_at FROM users WHERE created_at > $1",
//	    Args: []any{"2024-01-01T00:00:00Z"},
//	    ArgTypes: []core.ArgType{
//	        {ScalarType: core.ScalarDateTime, DBType: "TIMESTAMP", Arity: core.ArityScalar},
//	    },
//	}
//
// # Errors
//
// Expected failures are returned as *UnsupportedNativeDataTypeError or
// *EngineError. Use KindOf to branch on them; any other error is fatal.
package core
