package od

import "fmt"

// DataType identifies a CoE data type. Values follow the CiA 301/ETG.1000
// coding where one exists.
type DataType uint16

const (
	// TypeNull marks record gap and empty subindices. It is not a value type.
	TypeNull DataType = 0x0000

	TypeBoolean   DataType = 0x0001
	TypeInteger8  DataType = 0x0002
	TypeInteger16 DataType = 0x0003
	TypeInteger32 DataType = 0x0004
	TypeUnsigned8  DataType = 0x0005
	TypeUnsigned16 DataType = 0x0006
	TypeUnsigned32 DataType = 0x0007
	TypeReal32     DataType = 0x0008

	TypeVisibleString DataType = 0x0009
	TypeOctetString   DataType = 0x000A
	TypeUnicodeString DataType = 0x000B

	TypeInteger24 DataType = 0x0010 // not supported
	TypeReal64    DataType = 0x0011
	TypeInteger40 DataType = 0x0012 // not supported
	TypeInteger64 DataType = 0x0015
	TypeUnsigned24 DataType = 0x0016 // not supported
	TypeUnsigned64 DataType = 0x001B

	TypePDOMapping DataType = 0x0021 // not supported

	TypeBit1 DataType = 0x0030
	TypeBit2 DataType = 0x0031
	TypeBit3 DataType = 0x0032
	TypeBit4 DataType = 0x0033
	TypeBit5 DataType = 0x0034
	TypeBit6 DataType = 0x0035
	TypeBit7 DataType = 0x0036
	TypeBit8 DataType = 0x0037

	// TypeBooleanNativeBit1 stores and streams a single native bit but
	// reports TypeBoolean to the protocol. Pure presentation alias.
	TypeBooleanNativeBit1 DataType = 0xFFFE
)

// Supported reports whether objects may be constructed with this type.
// TypeNull is only valid inside record descriptor tables.
func (t DataType) Supported() bool {
	switch t {
	case TypeBoolean, TypeInteger8, TypeInteger16, TypeInteger32, TypeInteger64,
		TypeUnsigned8, TypeUnsigned16, TypeUnsigned32, TypeUnsigned64,
		TypeReal32, TypeReal64,
		TypeVisibleString, TypeOctetString, TypeUnicodeString,
		TypeBit1, TypeBit2, TypeBit3, TypeBit4, TypeBit5, TypeBit6, TypeBit7, TypeBit8,
		TypeBooleanNativeBit1:
		return true
	default:
		return false
	}
}

// IsString reports whether the type is element-counted string data.
func (t DataType) IsString() bool {
	switch t {
	case TypeVisibleString, TypeOctetString, TypeUnicodeString:
		return true
	default:
		return false
	}
}

// IsBitField reports whether the type occupies fewer than eight bits on the
// stream and packs without byte alignment.
func (t DataType) IsBitField() bool {
	return (t >= TypeBit1 && t <= TypeBit8) || t == TypeBooleanNativeBit1
}

// Reported returns the type exposed to the protocol. TypeBooleanNativeBit1
// reports TypeBoolean; every other type reports itself.
func (t DataType) Reported() DataType {
	if t == TypeBooleanNativeBit1 {
		return TypeBoolean
	}
	return t
}

// BitSize returns the stream width in bits of one element. TypeBoolean is
// conventionally stream-encoded in a full byte; the bit1..bit8 types and
// TypeBooleanNativeBit1 are bit-exact. TypeNull returns 0.
func (t DataType) BitSize() int {
	switch t {
	case TypeBoolean, TypeInteger8, TypeUnsigned8, TypeVisibleString, TypeOctetString:
		return 8
	case TypeInteger16, TypeUnsigned16, TypeUnicodeString:
		return 16
	case TypeInteger32, TypeUnsigned32, TypeReal32:
		return 32
	case TypeInteger64, TypeUnsigned64, TypeReal64:
		return 64
	case TypeBooleanNativeBit1:
		return 1
	default:
		if t >= TypeBit1 && t <= TypeBit8 {
			return int(t-TypeBit1) + 1
		}
		return 0
	}
}

// NativeByteSize returns the bytes of native storage one element occupies.
// Bit-sized types occupy one byte of native storage per field; packing within
// that byte is controlled by the record descriptor's bit offset.
func (t DataType) NativeByteSize() int {
	if t.IsBitField() {
		return 1
	}
	return t.BitSize() / 8
}

var dataTypeNames = map[DataType]string{
	TypeNull:              "null",
	TypeBoolean:           "boolean",
	TypeInteger8:          "integer8",
	TypeInteger16:         "integer16",
	TypeInteger32:         "integer32",
	TypeInteger64:         "integer64",
	TypeUnsigned8:         "unsigned8",
	TypeUnsigned16:        "unsigned16",
	TypeUnsigned32:        "unsigned32",
	TypeUnsigned64:        "unsigned64",
	TypeReal32:            "real32",
	TypeReal64:            "real64",
	TypeVisibleString:     "visible_string",
	TypeOctetString:       "octet_string",
	TypeUnicodeString:     "unicode_string",
	TypeInteger24:         "integer24",
	TypeInteger40:         "integer40",
	TypeUnsigned24:        "unsigned24",
	TypePDOMapping:        "pdo_mapping",
	TypeBit1:              "bit1",
	TypeBit2:              "bit2",
	TypeBit3:              "bit3",
	TypeBit4:              "bit4",
	TypeBit5:              "bit5",
	TypeBit6:              "bit6",
	TypeBit7:              "bit7",
	TypeBit8:              "bit8",
	TypeBooleanNativeBit1: "boolean_native_bit1",
}

// String returns the data type name.
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("datatype(0x%04X)", uint16(t))
}

// ParseDataType resolves a data type by its name, e.g. "unsigned16".
func ParseDataType(name string) (DataType, error) {
	for t, n := range dataTypeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeNull, fmt.Errorf("%w: %q", ErrDataTypeNotSupported, name)
}
