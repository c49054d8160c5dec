package core

type ColumnType int

// arrayOffset separates scalar types from their array variants.
const arrayOffset = 64

const (
	Int32 ColumnType = iota
	Int64
	Float
	Double
	Numeric
	Boolean
	Character
	Text
	Date
	Time
	DateTime
	Json
	Bytes
	Uuid

	Int32Array     = Int32 + arrayOffset
	Int64Array     = Int64 + arrayOffset
	FloatArray     = Float + arrayOffset
	DoubleArray    = Double + arrayOffset
	NumericArray   = Numeric + arrayOffset
	BooleanArray   = Boolean + arrayOffset
	CharacterArray = Character + arrayOffset
	TextArray      = Text + arrayOffset
	DateArray      = Date + arrayOffset
	TimeArray      = Time + arrayOffset
	DateTimeArray  = DateTime + arrayOffset
	JsonArray      = Json + arrayOffset
	BytesArray     = Bytes + arrayOffset
	UuidArray      = Uuid + arrayOffset
)

var columnTypeNames = map[ColumnType]string{
	Int32:          "Int32",
	Int64:          "Int64",
	Float:          "Float",
	Double:         "Double",
	Numeric:        "Numeric",
	Boolean:        "Boolean",
	Character:      "Character",
	Text:           "Text",
	Date:           "Date",
	Time:           "Time",
	DateTime:       "DateTime",
	Json:           "Json",
	Bytes:          "Bytes",
	Uuid:           "Uuid",
	Int32Array:     "Int32Array",
	Int64Array:     "Int64Array",
	FloatArray:     "FloatArray",
	DoubleArray:    "DoubleArray",
	NumericArray:   "NumericArray",
	BooleanArray:   "BooleanArray",
	CharacterArray: "CharacterArray",
	TextArray:      "TextArray",
	DateArray:      "DateArray",
	TimeArray:      "TimeArray",
	DateTimeArray:  "DateTimeArray",
	JsonArray:      "JsonArray",
	BytesArray:     "BytesArray",
	UuidArray:      "UuidArray",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// IsArray reports whether t is the array variant of a scalar type.
func (t ColumnType) IsArray() bool {
	return t >= arrayOffset
}

// Element returns the scalar type of an array type, or t itself.
func (t ColumnType) Element() ColumnType {
	if t.IsArray() {
		return t - arrayOffset
	}
	return t
}

// ArrayOf returns the array variant of a scalar type.
func ArrayOf(t ColumnType) ColumnType {
	if t.IsArray() {
		return t
	}
	return t + arrayOffset
}

// MarshalText lets column types serialize by name in JSON responses.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
