package colframe

import (
	"fmt"
	"time"
)

// Kind is the element type tag of a column. The set of kinds is closed:
// anything which cannot be represented by one of the primitive kinds is
// stored boxed, as KindObject.
type Kind uint8

const (
	// KindObject stores arbitrary boxed values
	KindObject Kind = iota
	// KindBool stores bool values
	KindBool
	// KindInt8 stores int8 values
	KindInt8
	// KindInt16 stores int16 values
	KindInt16
	// KindInt32 stores int32 values
	KindInt32
	// KindInt64 stores int64 values
	KindInt64
	// KindUint8 stores uint8 values
	KindUint8
	// KindUint16 stores uint16 values
	KindUint16
	// KindUint32 stores uint32 values
	KindUint32
	// KindUint64 stores uint64 values
	KindUint64
	// KindFloat32 stores float32 values
	KindFloat32
	// KindFloat64 stores float64 values
	KindFloat64
	// KindDatetime stores nanosecond-resolution timestamps, exposed as time.Time in UTC
	KindDatetime
	// KindTimedelta stores nanosecond-resolution durations, exposed as time.Duration
	KindTimedelta
)

var kindNames = [...]string{
	KindObject:    "object",
	KindBool:      "bool",
	KindInt8:      "int8",
	KindInt16:     "int16",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindUint8:     "uint8",
	KindUint16:    "uint16",
	KindUint32:    "uint32",
	KindUint64:    "uint64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindDatetime:  "datetime64[ns]",
	KindTimedelta: "timedelta64[ns]",
}

// Kinds returns every supported Kind, in declaration order
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind returns the Kind with the given name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == name {
			return k, nil
		}
	}
	return KindObject, fmt.Errorf("unknown kind %q", name)
}

// MarshalText encodes this Kind as its name
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a Kind from its name
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// String returns the name of this Kind
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Size returns the size in bytes of a single element of this Kind. Boxed
// values report the size of a pointer.
func (k Kind) Size() int {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	default:
		return 8
	}
}

// IsInteger returns true iff this Kind stores signed or unsigned integers
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindUint64
}

// IsUnsigned returns true iff this Kind stores unsigned integers
func (k Kind) IsUnsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

// IsFloat returns true iff this Kind stores floating point numbers
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsTemporal returns true iff this Kind stores nanosecond datetimes or durations
func (k Kind) IsTemporal() bool {
	return k == KindDatetime || k == KindTimedelta
}

// IsNumeric returns true iff this Kind stores integers or floating point numbers
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat()
}

// ToString produces a string representation of a value of this Kind. Nulls are
// rendered as the missing-value marker of the Kind.
func (k Kind) ToString(v interface{}) string {
	if v == nil {
		switch k {
		case KindDatetime, KindTimedelta:
			return "NaT"
		case KindObject:
			return "None"
		default:
			return "NaN"
		}
	}
	switch k {
	case KindFloat32, KindFloat64:
		return fmt.Sprintf("%g", v)
	case KindDatetime:
		return v.(time.Time).Format(time.RFC3339Nano)
	case KindObject:
		if s, ok := v.(string); ok {
			return fmt.Sprintf("%q", s)
		}
	}
	return fmt.Sprint(v)
}
