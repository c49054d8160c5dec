package catalog

import (
	"github.com/nickyhof/EmbedDB/core"
)

var columnTypes = map[OID]core.ColumnType{
	Int2:        core.Int32,
	Int4:        core.Int32,
	Int8:        core.Int64,
	Oid:         core.Int64,
	Float4:      core.Float,
	Float8:      core.Double,
	Bool:        core.Boolean,
	Date:        core.Date,
	Time:        core.Time,
	TimeTZ:      core.Time,
	Timestamp:   core.DateTime,
	TimestampTZ: core.DateTime,
	Numeric:     core.Numeric,
	Money:       core.Numeric,
	JSON:        core.Json,
	JSONB:       core.Json,
	UUID:        core.Uuid,
	Char:        core.Character,
	BPChar:      core.Text,
	Text:        core.Text,
	Varchar:     core.Text,
	Bit:         core.Text,
	Varbit:      core.Text,
	Inet:        core.Text,
	CIDR:        core.Text,
	XML:         core.Text,
	Bytea:       core.Bytes,

	Int2Array:        core.Int32Array,
	Int4Array:        core.Int32Array,
	Int8Array:        core.Int64Array,
	OidArray:         core.Int64Array,
	Float4Array:      core.FloatArray,
	Float8Array:      core.DoubleArray,
	BoolArray:        core.BooleanArray,
	DateArray:        core.DateArray,
	TimeArray:        core.TimeArray,
	TimeTZArray:      core.TimeArray,
	TimestampArray:   core.DateTimeArray,
	TimestampTZArray: core.DateTimeArray,
	NumericArray:     core.NumericArray,
	MoneyArray:       core.NumericArray,
	JSONArray:        core.JsonArray,
	JSONBArray:       core.JsonArray,
	UUIDArray:        core.UuidArray,
	CharArray:        core.CharacterArray,
	BPCharArray:      core.TextArray,
	TextArray:        core.TextArray,
	VarcharArray:     core.TextArray,
	BitArray:         core.TextArray,
	VarbitArray:      core.TextArray,
	InetArray:        core.TextArray,
	CIDRArray:        core.TextArray,
	XMLArray:         core.TextArray,
	ByteaArray:       core.BytesArray,
}

// MapColumnType converts a native type identifier to an abstract column type.
func MapColumnType(oid OID) (core.ColumnType, error) {
	if columnType, ok := columnTypes[oid]; ok {
		return columnType, nil
	}

	// Extension types and user enums. Whether a value is an enum member is
	// decided by the caller, which has the schema at hand.
	if oid >= FirstCustomOID {
		return core.Text, nil
	}

	return 0, &core.UnsupportedNativeDataTypeError{Type: TypeName(oid), Code: oid}
}
