package core

// Arity tells whether an argument is a single value or a list.
type Arity string

const (
	ArityScalar Arity = "scalar"
	ArityList   Arity = "list"
)

// Scalar kinds the caller declares for arguments that need conversion
// before they reach the engine.
const (
	ScalarString   = "string"
	ScalarInt      = "int"
	ScalarBigInt   = "bigint"
	ScalarFloat    = "float"
	ScalarDecimal  = "decimal"
	ScalarBoolean  = "boolean"
	ScalarEnum     = "enum"
	ScalarUuid     = "uuid"
	ScalarJson     = "json"
	ScalarDateTime = "datetime"
	ScalarBytes    = "bytes"
	ScalarUnknown  = "unknown"
)

// ArgType describes one query argument.
type ArgType struct {
	// ScalarType is the declared kind of the value, e.g. ScalarDateTime.
	ScalarType string `json:"scalarType"`

	// DBType is the storage affinity of the target column, e.g. "DATE",
	// "TIME", "TIMETZ" or "TIMESTAMP". Empty when unknown.
	DBType string `json:"dbType,omitempty"`

	Arity Arity `json:"arity"`
}

// Query is a single statement with positional ($1, $2, ...) arguments.
type Query struct {
	SQL      string    `json:"sql"`
	Args     []any     `json:"args"`
	ArgTypes []ArgType `json:"argTypes"`
}

// ResultSet holds the rows returned by a query. ColumnNames and ColumnTypes
// are parallel; column names need not be unique.
type ResultSet struct {
	ColumnNames []string     `json:"columnNames"`
	ColumnTypes []ColumnType `json:"columnTypes"`
	Rows        [][]any      `json:"rows"`
}

// ConnectionInfo describes the connection the adapter is bound to.
type ConnectionInfo struct {
	SchemaName string `json:"schemaName,omitempty"`
}
