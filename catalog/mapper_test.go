package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/EmbedDB/core"
)

func TestMapColumnTypeDocumentedTable(t *testing.T) {
	tests := []struct {
		oid      OID
		expected core.ColumnType
	}{
		{Bool, core.Boolean},
		{Bytea, core.Bytes},
		{Char, core.Character},
		{Int2, core.Int32},
		{Int4, core.Int32},
		{Int8, core.Int64},
		{Oid, core.Int64},
		{Float4, core.Float},
		{Float8, core.Double},
		{Numeric, core.Numeric},
		{Money, core.Numeric},
		{Date, core.Date},
		{Time, core.Time},
		{TimeTZ, core.Time},
		{Timestamp, core.DateTime},
		{TimestampTZ, core.DateTime},
		{JSON, core.Json},
		{JSONB, core.Json},
		{UUID, core.Uuid},
		{Text, core.Text},
		{Varchar, core.Text},
		{BPChar, core.Text},
		{Bit, core.Text},
		{Varbit, core.Text},
		{Inet, core.Text},
		{CIDR, core.Text},
		{XML, core.Text},

		{1000, core.BooleanArray},
		{1001, core.BytesArray},
		{1002, core.CharacterArray},
		{1005, core.Int32Array},
		{1007, core.Int32Array},
		{1016, core.Int64Array},
		{1028, core.Int64Array},
		{1021, core.FloatArray},
		{1022, core.DoubleArray},
		{1231, core.NumericArray},
		{791, core.NumericArray},
		{1182, core.DateArray},
		{1183, core.TimeArray},
		{1270, core.TimeArray},
		{1115, core.DateTimeArray},
		{1185, core.DateTimeArray},
		{199, core.JsonArray},
		{3807, core.JsonArray},
		{2951, core.UuidArray},
		{1009, core.TextArray},
		{1014, core.TextArray},
		{1015, core.TextArray},
		{1561, core.TextArray},
		{1563, core.TextArray},
		{1041, core.TextArray},
		{651, core.TextArray},
		{143, core.TextArray},
	}

	for _, tt := range tests {
		t.Run(TypeName(tt.oid), func(t *testing.T) {
			got, err := MapColumnType(tt.oid)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMapColumnTypeArraysMatchElements(t *testing.T) {
	for elem, array := range arrayOIDs {
		scalar, err := MapColumnType(elem)
		require.NoError(t, err)
		arrayType, err := MapColumnType(array)
		require.NoError(t, err)

		assert.True(t, arrayType.IsArray(), "oid %d", array)
		assert.Equal(t, scalar, arrayType.Element(), "oid %d", array)
	}
}

func TestMapColumnTypeCustomTypesFallBackToText(t *testing.T) {
	for _, oid := range []OID{10000, 16384, 99999, 1 << 31} {
		got, err := MapColumnType(oid)
		require.NoError(t, err)
		assert.Equal(t, core.Text, got)
	}
}

func TestMapColumnTypeUnsupported(t *testing.T) {
	tests := []struct {
		oid  OID
		name string
	}{
		{Interval, "interval"},
		{Record, "record"},
		{600, "point"},
		{19, "name"},
		{3614, "tsvector"},
		{1187, "Unknown"},
		{9999, "Unknown"},
		{0, "Unknown"},
	}

	for _, tt := range tests {
		_, err := MapColumnType(tt.oid)
		require.Error(t, err)

		var unsupported *core.UnsupportedNativeDataTypeError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, tt.name, unsupported.Type)
		assert.Equal(t, tt.oid, unsupported.Code)
		assert.Equal(t, core.KindUnsupportedNativeDataType, core.KindOf(err))
	}
}

func TestArrayOfAndElementOf(t *testing.T) {
	array, ok := ArrayOf(TimestampTZ)
	require.True(t, ok)
	assert.Equal(t, TimestampTZArray, array)

	elem, ok := ElementOf(ByteaArray)
	require.True(t, ok)
	assert.Equal(t, Bytea, elem)

	_, ok = ArrayOf(Interval)
	assert.False(t, ok)
}
