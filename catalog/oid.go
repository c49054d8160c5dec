package catalog

type OID = uint32

// Scalar type identifiers.
const (
	Bool        OID = 16
	Bytea       OID = 17
	Char        OID = 18
	Int8        OID = 20
	Int2        OID = 21
	Int4        OID = 23
	Text        OID = 25
	Oid         OID = 26
	JSON        OID = 114
	XML         OID = 142
	CIDR        OID = 650
	Float4      OID = 700
	Float8      OID = 701
	Unknown     OID = 705
	Money       OID = 790
	Inet        OID = 869
	BPChar      OID = 1042
	Varchar     OID = 1043
	Date        OID = 1082
	Time        OID = 1083
	Timestamp   OID = 1114
	TimestampTZ OID = 1184
	Interval    OID = 1186
	TimeTZ      OID = 1266
	Bit         OID = 1560
	Varbit      OID = 1562
	Numeric     OID = 1700
	Record      OID = 2249
	UUID        OID = 2950
	JSONB       OID = 3802
)

// Array type identifiers.
const (
	XMLArray         OID = 143
	JSONArray        OID = 199
	CIDRArray        OID = 651
	MoneyArray       OID = 791
	BoolArray        OID = 1000
	ByteaArray       OID = 1001
	CharArray        OID = 1002
	Int2Array        OID = 1005
	Int4Array        OID = 1007
	TextArray        OID = 1009
	BPCharArray      OID = 1014
	VarcharArray     OID = 1015
	Int8Array        OID = 1016
	Float4Array      OID = 1021
	Float8Array      OID = 1022
	OidArray         OID = 1028
	InetArray        OID = 1041
	TimestampArray   OID = 1115
	DateArray        OID = 1182
	TimeArray        OID = 1183
	TimestampTZArray OID = 1185
	NumericArray     OID = 1231
	TimeTZArray      OID = 1270
	BitArray         OID = 1561
	VarbitArray      OID = 1563
	UUIDArray        OID = 2951
	JSONBArray       OID = 3807
)

// FirstCustomOID is the first identifier used for extension and enum types.
const FirstCustomOID OID = 10000

// ArrayOf returns the array identifier for a scalar identifier.
func ArrayOf(elem OID) (OID, bool) {
	oid, ok := arrayOIDs[elem]
	return oid, ok
}

// ElementOf returns the scalar identifier of an array identifier.
func ElementOf(array OID) (OID, bool) {
	oid, ok := elementOIDs[array]
	return oid, ok
}

var arrayOIDs = map[OID]OID{
	Bool:        BoolArray,
	Bytea:       ByteaArray,
	Char:        CharArray,
	Int8:        Int8Array,
	Int2:        Int2Array,
	Int4:        Int4Array,
	Text:        TextArray,
	Oid:         OidArray,
	JSON:        JSONArray,
	XML:         XMLArray,
	CIDR:        CIDRArray,
	Float4:      Float4Array,
	Float8:      Float8Array,
	Money:       MoneyArray,
	Inet:        InetArray,
	BPChar:      BPCharArray,
	Varchar:     VarcharArray,
	Date:        DateArray,
	Time:        TimeArray,
	Timestamp:   TimestampArray,
	TimestampTZ: TimestampTZArray,
	TimeTZ:      TimeTZArray,
	Bit:         BitArray,
	Varbit:      VarbitArray,
	Numeric:     NumericArray,
	UUID:        UUIDArray,
	JSONB:       JSONBArray,
}

var elementOIDs = func() map[OID]OID {
	m := make(map[OID]OID, len(arrayOIDs))
	for elem, array := range arrayOIDs {
		m[array] = elem
	}
	return m
}()
