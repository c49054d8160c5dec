package ps

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"github.com/nickyhof/EmbedDB/catalog"
)

// renderText formats a scanned engine value in PostgreSQL text output
// format for a column of type oid. value must not be nil.
func renderText(value any, oid uint32) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "t"
		}
		return "f"
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case *big.Int:
		return v.String()
	case duckdb.Decimal:
		return formatDecimal(v.Value, int(v.Scale))
	case *duckdb.Decimal:
		return formatDecimal(v.Value, int(v.Scale))
	case []byte:
		if oid == catalog.UUID && len(v) == 16 {
			id, _ := uuid.FromBytes(v)
			return id.String()
		}
		if oid == catalog.JSON || oid == catalog.JSONB {
			return string(v)
		}
		return `\x` + hex.EncodeToString(v)
	case time.Time:
		return formatTime(v, oid)
	case duckdb.Interval:
		return formatInterval(v)
	case []any:
		elem, ok := catalog.ElementOf(oid)
		if !ok {
			elem = catalog.Text
		}
		return formatArray(v, elem)
	}

	if id, ok := uuidBytes(value); ok {
		return id.String()
	}
	if oid == catalog.JSON || oid == catalog.JSONB || oid == catalog.Record {
		if b, err := json.Marshal(value); err == nil {
			return string(b)
		}
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(value)
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// formatDecimal writes an unscaled integer with scale digits after the
// decimal point, keeping trailing zeros as PostgreSQL does.
func formatDecimal(unscaled *big.Int, scale int) string {
	if unscaled == nil {
		return "0"
	}
	digits := new(big.Int).Abs(unscaled).String()
	sign := ""
	if unscaled.Sign() < 0 {
		sign = "-"
	}
	if scale <= 0 {
		return sign + digits
	}
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	point := len(digits) - scale
	return sign + digits[:point] + "." + digits[point:]
}

func formatTime(t time.Time, oid uint32) string {
	switch oid {
	case catalog.Date:
		return t.Format("2006-01-02")
	case catalog.Time:
		return t.Format("15:04:05.999999")
	case catalog.TimeTZ:
		return t.Format("15:04:05.999999") + formatOffset(t)
	case catalog.TimestampTZ:
		return t.UTC().Format("2006-01-02 15:04:05.999999") + "+00"
	default:
		return t.Format("2006-01-02 15:04:05.999999")
	}
}

// formatOffset writes a zone offset as +HH or +HH:MM.
func formatOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	s := fmt.Sprintf("%s%02d", sign, offset/3600)
	if minutes := offset % 3600 / 60; minutes != 0 {
		s += fmt.Sprintf(":%02d", minutes)
	}
	return s
}

func formatInterval(interval duckdb.Interval) string {
	var parts []string
	if years, months := interval.Months/12, interval.Months%12; years != 0 || months != 0 {
		if years != 0 {
			parts = append(parts, plural(int64(years), "year"))
		}
		if months != 0 {
			parts = append(parts, plural(int64(months), "mon"))
		}
	}
	if interval.Days != 0 {
		parts = append(parts, plural(int64(interval.Days), "day"))
	}
	if interval.Micros != 0 || len(parts) == 0 {
		d := time.Duration(interval.Micros) * time.Microsecond
		sign := ""
		if d < 0 {
			sign = "-"
			d = -d
		}
		clock := fmt.Sprintf("%s%02d:%02d:%02d", sign, int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
		if micros := d.Microseconds() % 1_000_000; micros != 0 {
			clock += strings.TrimRight(fmt.Sprintf(".%06d", micros), "0")
		}
		parts = append(parts, clock)
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// formatArray renders a list as an array literal such as {1,NULL,"a b"}.
func formatArray(values []any, elem uint32) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, value := range values {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch v := value.(type) {
		case nil:
			sb.WriteString("NULL")
		case []any:
			sb.WriteString(formatArray(v, elem))
		default:
			sb.WriteString(quoteArrayElement(renderText(v, elem)))
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

func quoteArrayElement(s string) string {
	if s != "" && !strings.EqualFold(s, "NULL") && !strings.ContainsAny(s, "{},\"\\ \t\n\r") {
		return s
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// uuidBytes recognizes 16-byte arrays, and pointers to them, as UUIDs.
func uuidBytes(value any) (uuid.UUID, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Array || rv.Len() != 16 || rv.Type().Elem().Kind() != reflect.Uint8 {
		return uuid.UUID{}, false
	}
	var id uuid.UUID
	reflect.Copy(reflect.ValueOf(id[:]), rv)
	return id, true
}
