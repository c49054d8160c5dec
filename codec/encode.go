package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/nickyhof/EmbedDB/core"
)

// EncodeArgs converts args for the engine according to argTypes. Arguments
// without a declared type are encoded as untyped scalars.
func EncodeArgs(args []any, argTypes []core.ArgType) ([]any, error) {
	encoded := make([]any, len(args))
	for i, arg := range args {
		var argType core.ArgType
		if i < len(argTypes) {
			argType = argTypes[i]
		}
		v, err := EncodeArg(arg, argType)
		if err != nil {
			return nil, fmt.Errorf("argument $%d: %w", i+1, err)
		}
		encoded[i] = v
	}
	return encoded, nil
}

// EncodeArg converts a single argument.
func EncodeArg(arg any, argType core.ArgType) (any, error) {
	if arg == nil {
		return nil, nil
	}

	if argType.Arity == core.ArityList {
		if list, ok := asList(arg); ok {
			elemType := argType
			elemType.Arity = core.ArityScalar
			out := make([]any, len(list))
			for i, elem := range list {
				v, err := EncodeArg(elem, elemType)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	}

	switch v := arg.(type) {
	case string:
		switch argType.ScalarType {
		case core.ScalarDateTime:
			t, err := ParseDateTime(v)
			if err != nil {
				return nil, err
			}
			return FormatTime(t, argType.DBType), nil
		case core.ScalarBytes:
			b, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, fmt.Errorf("invalid base64 bytes: %w", err)
			}
			return b, nil
		}
		return v, nil
	case time.Time:
		return FormatTime(v, argType.DBType), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return FormatTime(*v, argType.DBType), nil
	case []byte:
		return bytes.Clone(v), nil
	case []int8, []uint16, []int16, []uint32, []int32, []uint64, []int64, []float32, []float64:
		return viewBytes(v)
	}
	return arg, nil
}

// FormatTime renders t in UTC for a column of the given storage type.
// Milliseconds are written only when non-zero.
func FormatTime(t time.Time, dbType string) string {
	t = t.UTC()
	fraction := ""
	if ms := t.Nanosecond() / int(time.Millisecond); ms != 0 {
		fraction = fmt.Sprintf(".%03d", ms)
	}

	switch normalizeDBType(dbType) {
	case "DATE":
		return t.Format("2006-01-02")
	case "TIME", "TIMETZ":
		return t.Format("15:04:05") + fraction
	default:
		return t.Format("2006-01-02 15:04:05") + fraction
	}
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999Z07:00",
	"15:04:05.999999999",
}

// ParseDateTime accepts RFC 3339 and the engine's own date/time spellings.
// Values without a zone are taken as UTC.
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

func normalizeDBType(dbType string) string {
	dbType = strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(dbType, '('); i >= 0 {
		dbType = strings.TrimSpace(dbType[:i])
	}
	return dbType
}

// asList returns the elements of any slice except byte views, which are
// values in their own right.
func asList(arg any) ([]any, bool) {
	if list, ok := arg.([]any); ok {
		return list, true
	}
	if _, ok := arg.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(arg)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// viewBytes copies a typed numeric slice into a new little-endian byte
// slice sized by the view itself.
func viewBytes(view any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(binary.Size(view))
	if err := binary.Write(&buf, binary.LittleEndian, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
