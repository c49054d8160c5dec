package ps

import (
	"regexp"
	"strings"

	"github.com/nickyhof/EmbedDB/catalog"
)

// firstEnumOID is where identifiers for enum types start.
const firstEnumOID = 16384

var engineTypes = map[string]uint32{
	"BOOLEAN":                  catalog.Bool,
	"BOOL":                     catalog.Bool,
	"TINYINT":                  catalog.Int2,
	"SMALLINT":                 catalog.Int2,
	"UTINYINT":                 catalog.Int2,
	"INTEGER":                  catalog.Int4,
	"INT":                      catalog.Int4,
	"USMALLINT":                catalog.Int4,
	"BIGINT":                   catalog.Int8,
	"UINTEGER":                 catalog.Int8,
	"HUGEINT":                  catalog.Numeric,
	"UHUGEINT":                 catalog.Numeric,
	"UBIGINT":                  catalog.Numeric,
	"VARINT":                   catalog.Numeric,
	"BIGNUM":                   catalog.Numeric,
	"FLOAT":                    catalog.Float4,
	"REAL":                     catalog.Float4,
	"DOUBLE":                   catalog.Float8,
	"DECIMAL":                  catalog.Numeric,
	"NUMERIC":                  catalog.Numeric,
	"VARCHAR":                  catalog.Text,
	"TEXT":                     catalog.Text,
	"STRING":                   catalog.Text,
	"CHAR":                     catalog.BPChar,
	"BLOB":                     catalog.Bytea,
	"BYTEA":                    catalog.Bytea,
	"DATE":                     catalog.Date,
	"TIME":                     catalog.Time,
	"TIMETZ":                   catalog.TimeTZ,
	"TIME WITH TIME ZONE":      catalog.TimeTZ,
	"TIMESTAMP":                catalog.Timestamp,
	"DATETIME":                 catalog.Timestamp,
	"TIMESTAMP_S":              catalog.Timestamp,
	"TIMESTAMP_MS":             catalog.Timestamp,
	"TIMESTAMP_NS":             catalog.Timestamp,
	"TIMESTAMPTZ":              catalog.TimestampTZ,
	"TIMESTAMP WITH TIME ZONE": catalog.TimestampTZ,
	"UUID":                     catalog.UUID,
	"JSON":                     catalog.JSON,
	"INTERVAL":                 catalog.Interval,
	"BIT":                      catalog.Bit,
	"BITSTRING":                catalog.Bit,
	"NULL":                     catalog.Text,
	"SQLNULL":                  catalog.Text,
	"":                         catalog.Text,
}

var fixedArraySuffix = regexp.MustCompile(`\[\d*\]$`)

// typeOID translates an engine type name, as reported for a result column,
// into a PostgreSQL type OID.
func (instance *Instance) typeOID(name string) uint32 {
	name = strings.ToUpper(strings.TrimSpace(name))

	if loc := fixedArraySuffix.FindStringIndex(name); loc != nil {
		elem := instance.typeOID(name[:loc[0]])
		if array, ok := catalog.ArrayOf(elem); ok {
			return array
		}
		return catalog.TextArray
	}

	if oid, ok := engineTypes[name]; ok {
		return oid
	}

	base := name
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "DECIMAL", "NUMERIC":
		return catalog.Numeric
	case "ENUM":
		return instance.enumOID(name)
	case "STRUCT", "MAP", "UNION":
		return catalog.Record
	case "LIST":
		return catalog.TextArray
	}
	if oid, ok := engineTypes[base]; ok {
		return oid
	}
	// User-defined types such as named enums.
	return instance.enumOID(name)
}

// enumOID assigns a stable custom identifier per enum type for the lifetime
// of the instance.
func (instance *Instance) enumOID(name string) uint32 {
	instance.mu.Lock()
	defer instance.mu.Unlock()
	if oid, ok := instance.customOIDs[name]; ok {
		return oid
	}
	oid := uint32(firstEnumOID + len(instance.customOIDs))
	instance.customOIDs[name] = oid
	return oid
}

// typeSize is the fixed on-wire size reported in row descriptions, or -1
// for variable-length types.
func typeSize(oid uint32) int16 {
	switch oid {
	case catalog.Bool, catalog.Char:
		return 1
	case catalog.Int2:
		return 2
	case catalog.Int4, catalog.Float4, catalog.Date, catalog.Oid:
		return 4
	case catalog.Int8, catalog.Float8, catalog.Time, catalog.Timestamp, catalog.TimestampTZ, catalog.Money:
		return 8
	case catalog.TimeTZ:
		return 12
	case catalog.UUID, catalog.Interval:
		return 16
	default:
		return -1
	}
}
