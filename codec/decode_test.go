package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/EmbedDB/catalog"
	"github.com/nickyhof/EmbedDB/core"
)

func TestDecodeScalars(t *testing.T) {
	cases := []struct {
		oid  catalog.OID
		text string
		want any
	}{
		{catalog.Bool, "t", true},
		{catalog.Bool, "f", false},
		{catalog.Int2, "-32768", int32(-32768)},
		{catalog.Int4, "2147483647", int32(2147483647)},
		{catalog.Int8, "9223372036854775807", int64(9223372036854775807)},
		{catalog.Oid, "4294967295", int64(4294967295)},
		{catalog.Float4, "1.5", float32(1.5)},
		{catalog.Float8, "-0.25", float64(-0.25)},
		{catalog.Numeric, "12345678901234567890.000000001", "12345678901234567890.000000001"},
		{catalog.Money, "$12.50", "12.50"},
		{catalog.Money, "-$1,250.00", "-1250.00"},
		{catalog.Date, "2024-02-29", "2024-02-29"},
		{catalog.Time, "23:59:59.999999", "23:59:59.999999"},
		{catalog.TimeTZ, "12:30:00+05:30", "12:30:00"},
		{catalog.TimeTZ, "12:30:00.5-08", "12:30:00.5"},
		{catalog.Timestamp, "2024-01-02 03:04:05", "2024-01-02T03:04:05+00:00"},
		{catalog.Timestamp, "2024-01-02 03:04:05.123456", "2024-01-02T03:04:05.123456+00:00"},
		{catalog.Timestamp, "infinity", "infinity"},
		{catalog.TimestampTZ, "2024-01-02 03:04:05+00", "2024-01-02T03:04:05+00:00"},
		{catalog.TimestampTZ, "2024-01-02 03:04:05.5+02", "2024-01-02T01:04:05.5+00:00"},
		{catalog.TimestampTZ, "2024-01-01 01:00:00-05:30", "2024-01-01T06:30:00+00:00"},
		{catalog.UUID, "A0EEBC99-9C0B-4EF8-BB6D-6BB9BD380A11", "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"},
		{catalog.Bytea, `\x68656c6c6f`, []byte("hello")},
		{catalog.Text, "plain", "plain"},
		{catalog.Varchar, "", ""},
	}

	parsers := Parsers()
	for _, tc := range cases {
		t.Run(catalog.TypeName(tc.oid)+"/"+tc.text, func(t *testing.T) {
			decode, ok := parsers[tc.oid]
			require.True(t, ok, "no decoder for %d", tc.oid)
			got, err := decode(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	parsers := Parsers()

	_, err := parsers[catalog.Bool]("yes")
	assert.Error(t, err)

	_, err = parsers[catalog.Int4]("2147483648")
	assert.Error(t, err)

	_, err = parsers[catalog.Bytea]("hello")
	assert.ErrorIs(t, err, ErrInvalidBytea)

	_, err = parsers[catalog.Bytea](`\xzz`)
	assert.ErrorIs(t, err, ErrInvalidBytea)

	_, err = parsers[catalog.UUID]("not-a-uuid")
	assert.Error(t, err)
}

func TestJSONKeepsNullStatesApart(t *testing.T) {
	decode := Parsers()[catalog.JSONB]

	null, err := decode("null")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), null)
	assert.NotNil(t, null)

	doc, err := decode(`{"a": [1, 2]}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,2]}`, string(doc.(json.RawMessage)))

	// SQL NULL never reaches a decoder; the engine leaves it as nil.
	v, err := Parsers()[catalog.JSON]("null")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), v)
}

func TestParsersSkipCustomTypes(t *testing.T) {
	parsers := Parsers()
	_, ok := parsers[catalog.FirstCustomOID+5]
	assert.False(t, ok, "custom types are left as text")

	v, err := parsers[catalog.Int4Array]("{1,2}")
	require.NoError(t, err)
	assert.Equal(t, []any{int32(1), int32(2)}, v)
}

func TestEveryDecoderHasArrayVariant(t *testing.T) {
	parsers := Parsers()
	for oid := range scalarDecoders {
		array, ok := catalog.ArrayOf(oid)
		require.True(t, ok, "no array type for %d", oid)
		assert.Contains(t, parsers, array)
	}
}

func TestDateRoundTrip(t *testing.T) {
	in := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	encoded, err := EncodeArg(in, core.ArgType{ScalarType: core.ScalarDateTime, DBType: "DATE"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", encoded)

	decoded, err := Parsers()[catalog.Date](encoded.(string))
	require.NoError(t, err)

	out, err := time.Parse("2006-01-02", decoded.(string))
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}

func TestTimestampRoundTrip(t *testing.T) {
	in := time.Date(2024, time.March, 10, 8, 30, 15, 250*int(time.Millisecond), time.UTC)

	encoded, err := EncodeArg(in, core.ArgType{ScalarType: core.ScalarDateTime, DBType: "TIMESTAMP"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10 08:30:15.250", encoded)

	// The engine stores the value and echoes it back with microsecond precision.
	decoded, err := Parsers()[catalog.Timestamp]("2024-03-10 08:30:15.25")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10T08:30:15.25+00:00", decoded)

	out, err := time.Parse(time.RFC3339Nano, decoded.(string))
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "got %s", out)
}

func TestTimestampTZRoundTripFromOffset(t *testing.T) {
	zone := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2024, time.June, 1, 23, 45, 0, 123*int(time.Millisecond), zone)

	encoded, err := EncodeArg(in, core.ArgType{ScalarType: core.ScalarDateTime, DBType: "TIMESTAMPTZ"})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01 18:15:00.123", encoded)

	for _, engineText := range []string{
		"2024-06-01 18:15:00.123+00",
		"2024-06-01 23:45:00.123+05:30",
	} {
		decoded, err := Parsers()[catalog.TimestampTZ](engineText)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-01T18:15:00.123+00:00", decoded)

		out, err := time.Parse(time.RFC3339Nano, decoded.(string))
		require.NoError(t, err)
		assert.True(t, in.Equal(out), "%s decoded to %s", engineText, out)
	}
}
