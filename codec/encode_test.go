package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/EmbedDB/core"
)

func TestEncodeArgs(t *testing.T) {
	args := []any{
		nil,
		"2024-01-01T12:00:00.000Z",
		"aGVsbG8=",
		42,
		"plain",
	}
	types := []core.ArgType{
		{ScalarType: core.ScalarString, Arity: core.ArityScalar},
		{ScalarType: core.ScalarDateTime, DBType: "TIMESTAMP", Arity: core.ArityScalar},
		{ScalarType: core.ScalarBytes, Arity: core.ArityScalar},
		{ScalarType: core.ScalarInt, Arity: core.ArityScalar},
	}

	got, err := EncodeArgs(args, types)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "2024-01-01 12:00:00", []byte("hello"), 42, "plain"}, got)
}

func TestEncodeTimeByDBType(t *testing.T) {
	ts := time.Date(2023, time.November, 5, 14, 7, 9, 45*int(time.Millisecond), time.FixedZone("", -3*3600))

	cases := map[string]string{
		"DATE":         "2023-11-05",
		"TIME":         "17:07:09.045",
		"timetz":       "17:07:09.045",
		"TIMESTAMP(3)": "2023-11-05 17:07:09.045",
		"":             "2023-11-05 17:07:09.045",
	}
	for dbType, want := range cases {
		assert.Equal(t, want, FormatTime(ts, dbType), dbType)
	}

	whole := time.Date(2023, time.November, 5, 14, 7, 9, 0, time.UTC)
	assert.Equal(t, "14:07:09", FormatTime(whole, "TIME"))
}

func TestEncodeList(t *testing.T) {
	argType := core.ArgType{ScalarType: core.ScalarDateTime, DBType: "DATE", Arity: core.ArityList}

	got, err := EncodeArg([]string{"2024-01-01", "2024-02-01T10:00:00Z"}, argType)
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-01-01", "2024-02-01"}, got)

	got, err = EncodeArg([]any{nil, "2024-03-01"}, argType)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "2024-03-01"}, got)
}

func TestEncodeBytesDoesNotAlias(t *testing.T) {
	backing := []byte("0123456789")
	view := backing[2:5]

	got, err := EncodeArg(view, core.ArgType{ScalarType: core.ScalarBytes})
	require.NoError(t, err)

	b := got.([]byte)
	assert.Equal(t, []byte("234"), b)

	b[0] = 'x'
	assert.Equal(t, []byte("0123456789"), backing)
}

func TestEncodeTypedView(t *testing.T) {
	backing := []uint16{0x0102, 0x0304, 0x0506}

	got, err := EncodeArg(backing[1:2], core.ArgType{ScalarType: core.ScalarBytes})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x03}, got)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, err := EncodeArgs([]any{"yesterday"}, []core.ArgType{{ScalarType: core.ScalarDateTime}})
	assert.ErrorContains(t, err, "argument $1")

	_, err = EncodeArg("%%%", core.ArgType{ScalarType: core.ScalarBytes})
	assert.Error(t, err)
}
