// Package catalog maps the engine's native type identifiers to the abstract
// column types in package core.
//
// Native identifiers are PostgreSQL catalog OIDs. Scalar and array types
// have distinct OIDs; an array OID cannot be derived from its element OID.
//
//	columnType, err := catalog.MapColumnType(catalog.TimestampTZ)
//	// columnType == core.DateTime
//
// Identifiers at or above FirstCustomOID belong to extensions and user
// enums and map to core.Text. Any other identifier missing from the table
// yields *core.UnsupportedNativeDataTypeError.
package catalog
