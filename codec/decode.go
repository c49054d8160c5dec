package codec

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nickyhof/EmbedDB/catalog"
)

// Decoder converts one non-NULL engine text value.
type Decoder = func(text string) (any, error)

var ErrInvalidBytea = errors.New("invalid bytea value")

var scalarDecoders = map[catalog.OID]Decoder{
	catalog.Bool:        decodeBool,
	catalog.Int2:        decodeInt32,
	catalog.Int4:        decodeInt32,
	catalog.Int8:        decodeInt64,
	catalog.Oid:         decodeInt64,
	catalog.Float4:      decodeFloat32,
	catalog.Float8:      decodeFloat64,
	catalog.Numeric:     decodeText,
	catalog.Money:       decodeMoney,
	catalog.Date:        decodeText,
	catalog.Time:        decodeText,
	catalog.TimeTZ:      decodeTimeTZ,
	catalog.Timestamp:   decodeTimestamp,
	catalog.TimestampTZ: decodeTimestampTZ,
	catalog.JSON:        decodeJSON,
	catalog.JSONB:       decodeJSON,
	catalog.UUID:        decodeUUID,
	catalog.Bytea:       decodeBytea,
	catalog.Char:        decodeText,
	catalog.BPChar:      decodeText,
	catalog.Text:        decodeText,
	catalog.Varchar:     decodeText,
	catalog.Bit:         decodeText,
	catalog.Varbit:      decodeText,
	catalog.Inet:        decodeText,
	catalog.CIDR:        decodeText,
	catalog.XML:         decodeText,
}

// Parsers returns the decoders for every supported scalar and array type.
// The returned map is freshly allocated and may be modified by the caller.
func Parsers() map[catalog.OID]Decoder {
	parsers := make(map[catalog.OID]Decoder, 2*len(scalarDecoders))
	for oid, decode := range scalarDecoders {
		parsers[oid] = decode
		if array, ok := catalog.ArrayOf(oid); ok {
			parsers[array] = arrayDecoder(decode)
		}
	}
	return parsers
}

func arrayDecoder(elem Decoder) Decoder {
	return func(text string) (any, error) {
		return ParseArray(text, elem)
	}
}

func decodeText(text string) (any, error) {
	return text, nil
}

func decodeBool(text string) (any, error) {
	switch text {
	case "t", "true":
		return true, nil
	case "f", "false":
		return false, nil
	default:
		return nil, fmt.Errorf("invalid boolean value %q", text)
	}
}

func decodeInt32(text string) (any, error) {
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return nil, err
	}
	return int32(n), nil
}

func decodeInt64(text string) (any, error) {
	return strconv.ParseInt(text, 10, 64)
}

func decodeFloat32(text string) (any, error) {
	f, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return nil, err
	}
	return float32(f), nil
}

func decodeFloat64(text string) (any, error) {
	return strconv.ParseFloat(text, 64)
}

// decodeMoney strips the one-character currency symbol and any grouping
// separators, keeping the sign: "-$1,250.00" becomes "-1250.00".
func decodeMoney(text string) (any, error) {
	sign := ""
	if strings.HasPrefix(text, "-") {
		sign = "-"
		text = text[1:]
	}
	if text == "" {
		return nil, fmt.Errorf("invalid money value %q", sign)
	}
	amount := strings.ReplaceAll(text[1:], ",", "")
	return sign + amount, nil
}

func decodeJSON(text string) (any, error) {
	return json.RawMessage(text), nil
}

func decodeUUID(text string) (any, error) {
	id, err := uuid.Parse(text)
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

func decodeBytea(text string) (any, error) {
	if !strings.HasPrefix(text, `\x`) {
		return nil, fmt.Errorf("%w: missing \\x prefix", ErrInvalidBytea)
	}
	b, err := hex.DecodeString(text[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBytea, err)
	}
	return b, nil
}

const engineDateTimeLen = len("2006-01-02 15:04:05")

// decodeTimestamp rewrites "YYYY-MM-DD HH:MM:SS[.ffffff]" as
// "YYYY-MM-DDTHH:MM:SS[.ffffff]+00:00". Values that do not have that shape
// (infinity, BC dates) are returned unchanged.
func decodeTimestamp(text string) (any, error) {
	if !isEngineDateTime(text) {
		return text, nil
	}
	return text[:10] + "T" + text[11:] + "+00:00", nil
}

// decodeTimestampTZ rewrites like decodeTimestamp and converts the trailing
// zone offset to UTC.
func decodeTimestampTZ(text string) (any, error) {
	if !isEngineDateTime(text) {
		return text, nil
	}

	local, offset, err := splitOffset(text, engineDateTimeLen)
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		return local[:10] + "T" + local[11:] + "+00:00", nil
	}

	base, err := time.Parse("2006-01-02 15:04:05", local[:engineDateTimeLen])
	if err != nil {
		return nil, err
	}
	fraction := local[engineDateTimeLen:]
	utc := base.Add(-time.Duration(offset) * time.Second)
	return utc.Format("2006-01-02T15:04:05") + fraction + "+00:00", nil
}

// decodeTimeTZ drops the zone offset from "HH:MM:SS[.ffffff]±HH[:MM]".
func decodeTimeTZ(text string) (any, error) {
	local, _, err := splitOffset(text, len("15:04:05"))
	if err != nil {
		return nil, err
	}
	return local, nil
}

func isEngineDateTime(text string) bool {
	return len(text) >= engineDateTimeLen && text[4] == '-' && text[10] == ' ' && text[13] == ':'
}

// splitOffset separates a trailing "±HH[:MM[:SS]]" offset that starts at or
// after position from and returns it in seconds east of UTC.
func splitOffset(text string, from int) (string, int, error) {
	i := strings.LastIndexAny(text, "+-")
	if i < from {
		return text, 0, nil
	}

	parts := strings.Split(text[i+1:], ":")
	seconds := 0
	for n, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || n > 2 {
			return "", 0, fmt.Errorf("invalid zone offset in %q", text)
		}
		switch n {
		case 0:
			seconds += v * 3600
		case 1:
			seconds += v * 60
		case 2:
			seconds += v
		}
	}
	if text[i] == '-' {
		seconds = -seconds
	}
	return text[:i], seconds, nil
}
