// Column type system.
//
// ColumnType is a closed sum over the four column kinds the wire format
// supports: int, float, char(N), varchar(N). Each variant knows how to
// validate a value, compute its encoded size, and encode/decode itself;
// RowCodec and the B+-tree key codec both dispatch through this
// interface rather than switching on a type tag at every call site.
package pagedb

import (
	"encoding/binary"
	"math"
)

// ColumnType is implemented by IntType, FloatType, CharType, VarcharType.
type ColumnType interface {
	// Tag is the single-byte alphabet used to persist key-column types
	// in a B+-tree index metadata block ('i', 'f', 'c', 'v').
	Tag() byte

	// Validate reports whether value can be encoded by this type.
	Validate(value any) error

	// EncodedSize returns the number of bytes Encode would write for value.
	EncodedSize(value any) (int, error)

	// Encode appends the wire encoding of value to dst, returning the result.
	Encode(dst []byte, value any) ([]byte, error)

	// Decode reads one value from the front of b, returning the value
	// and the number of bytes consumed.
	Decode(b []byte) (any, int, error)
}

// IntType is a 4-byte signed little-endian integer.
type IntType struct{}

func (IntType) Tag() byte { return 'i' }

func (IntType) Validate(value any) error {
	v, ok := asInt64(value)
	if !ok {
		return &EncodingError{Msg: "value is not an integer"}
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return &EncodingError{Msg: "integer value out of signed 32-bit range"}
	}
	return nil
}

func (IntType) EncodedSize(value any) (int, error) { return 4, nil }

func (t IntType) Encode(dst []byte, value any) ([]byte, error) {
	if err := t.Validate(value); err != nil {
		return nil, err
	}
	v, _ := asInt64(value)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
	return append(dst, buf[:]...), nil
}

func (IntType) Decode(b []byte) (any, int, error) {
	if len(b) < 4 {
		return nil, 0, &EncodingError{Msg: "truncated int value"}
	}
	v := int32(binary.LittleEndian.Uint32(b[:4]))
	return int(v), 4, nil
}

// FloatType is a 4-byte IEEE-754 little-endian float.
type FloatType struct{}

func (FloatType) Tag() byte { return 'f' }

func (FloatType) Validate(value any) error {
	if _, ok := asFloat64(value); !ok {
		return &EncodingError{Msg: "value is not a float"}
	}
	return nil
}

func (FloatType) EncodedSize(value any) (int, error) { return 4, nil }

func (t FloatType) Encode(dst []byte, value any) ([]byte, error) {
	if err := t.Validate(value); err != nil {
		return nil, err
	}
	v, _ := asFloat64(value)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
	return append(dst, buf[:]...), nil
}

func (FloatType) Decode(b []byte) (any, int, error) {
	if len(b) < 4 {
		return nil, 0, &EncodingError{Msg: "truncated float value"}
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(b[:4]))
	return float64(v), 4, nil
}

// CharType is a fixed-width UTF-8 field, zero-padded or right-truncated
// to exactly Length bytes.
type CharType struct {
	Length int
}

func (CharType) Tag() byte { return 'c' }

func (CharType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return &EncodingError{Msg: "value is not a string"}
	}
	return nil
}

func (t CharType) EncodedSize(value any) (int, error) { return t.Length, nil }

func (t CharType) Encode(dst []byte, value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, &EncodingError{Msg: "value is not a string"}
	}
	b := []byte(s)
	buf := make([]byte, t.Length)
	n := copy(buf, b)
	_ = n
	return append(dst, buf...), nil
}

func (t CharType) Decode(b []byte) (any, int, error) {
	if len(b) < t.Length {
		return nil, 0, &EncodingError{Msg: "truncated char value"}
	}
	raw := b[:t.Length]
	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}
	return string(raw[:end]), t.Length, nil
}

// VarcharType is a length-prefixed (2-byte little-endian) UTF-8 field,
// right-truncated to at most Length bytes.
type VarcharType struct {
	Length int
}

func (VarcharType) Tag() byte { return 'v' }

func (VarcharType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return &EncodingError{Msg: "value is not a string"}
	}
	return nil
}

func (t VarcharType) EncodedSize(value any) (int, error) {
	s, ok := value.(string)
	if !ok {
		return 0, &EncodingError{Msg: "value is not a string"}
	}
	n := len(s)
	if n > t.Length {
		n = t.Length
	}
	return 2 + n, nil
}

func (t VarcharType) Encode(dst []byte, value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, &EncodingError{Msg: "value is not a string"}
	}
	b := []byte(s)
	if len(b) > t.Length {
		b = b[:t.Length]
	}
	if len(b) > 65535 {
		return nil, &EncodingError{Msg: "varchar value exceeds 65535 bytes"}
	}
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(len(b)))
	dst = append(dst, hdr[:]...)
	return append(dst, b...), nil
}

func (VarcharType) Decode(b []byte) (any, int, error) {
	if len(b) < 2 {
		return nil, 0, &EncodingError{Msg: "truncated varchar length prefix"}
	}
	n := int(binary.LittleEndian.Uint16(b[:2]))
	if len(b) < 2+n {
		return nil, 0, &EncodingError{Msg: "truncated varchar value"}
	}
	return string(b[2 : 2+n]), 2 + n, nil
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	default:
		return 0, false
	}
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// typeFromTag resolves a persisted key-type tag byte back into a
// ColumnType. length is required for 'c'/'v' and ignored otherwise.
func typeFromTag(tag byte, length int) (ColumnType, error) {
	switch tag {
	case 'i':
		return IntType{}, nil
	case 'f':
		return FloatType{}, nil
	case 'c':
		return CharType{Length: length}, nil
	case 'v':
		return VarcharType{Length: length}, nil
	default:
		return nil, &SchemaError{Msg: "unknown key type tag"}
	}
}

// typeFromName resolves a catalog "type" string ("int"|"float"|"char"|"varchar").
func typeFromName(name string, length int) (ColumnType, error) {
	switch name {
	case "int":
		return IntType{}, nil
	case "float":
		return FloatType{}, nil
	case "char":
		return CharType{Length: length}, nil
	case "varchar":
		return VarcharType{Length: length}, nil
	default:
		return nil, &SchemaError{Msg: "unknown column type " + name}
	}
}

// typeName returns the catalog "type" string for a ColumnType.
func typeName(t ColumnType) string {
	switch t.(type) {
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case CharType:
		return "char"
	case VarcharType:
		return "varchar"
	default:
		return ""
	}
}

// typeLength returns the declared length for char/varchar, 0 otherwise.
func typeLength(t ColumnType) int {
	switch v := t.(type) {
	case CharType:
		return v.Length
	case VarcharType:
		return v.Length
	default:
		return 0
	}
}
