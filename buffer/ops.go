package buffer

import (
	"encoding/binary"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/colframe"
	errors "github.com/go-sif/colframe/errors"
)

// CompareOp is an elementwise comparison operator
type CompareOp int

const (
	// Eq is ==
	Eq CompareOp = iota
	// Ne is !=
	Ne
	// Lt is <
	Lt
	// Le is <=
	Le
	// Gt is >
	Gt
	// Ge is >=
	Ge
)

// String returns the symbol for this CompareOp
func (op CompareOp) String() string {
	return [...]string{"==", "!=", "<", "<=", ">", ">="}[op]
}

// IsNA returns a mask which is true at every null position
func (b *Buffer) IsNA() []bool {
	mask := make([]bool, b.Len())
	for i := range mask {
		mask[i] = b.isNull(i)
	}
	return mask
}

// FillNA returns a copy of this Buffer with every null replaced by v
func (b *Buffer) FillNA(v interface{}) (*Buffer, error) {
	out := b.ForkCopy()
	for i := 0; i < out.Len(); i++ {
		if out.isNull(i) {
			if err := out.SetInPlace(i, v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// cmp orders two non-null values. ok is false if they have no ordering.
func cmp(a, b interface{}) (c int, ok bool) {
	three := func(less, greater bool) int {
		switch {
		case less:
			return -1
		case greater:
			return 1
		}
		return 0
	}
	if isIntegral(a) && isIntegral(b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)
		if aok && bok {
			return three(ai < bi, ai > bi), true
		}
	}
	if (isIntegral(a) || isFloating(a)) && (isIntegral(b) || isFloating(b)) {
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		return three(af < bf, af > bf), true
	}
	switch x := a.(type) {
	case string:
		if y, yok := b.(string); yok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, yok := b.(bool); yok {
			return three(!x && y, x && !y), true
		}
	case time.Time:
		if y, yok := b.(time.Time); yok {
			return x.Compare(y), true
		}
	case time.Duration:
		if y, yok := b.(time.Duration); yok {
			return three(x < y, x > y), true
		}
	}
	return 0, false
}

// Compare compares every element against a scalar. Nulls compare false, except
// under Ne. Ordering operators fail with a TypeConflictError when the scalar
// has no ordering against the elements.
func (b *Buffer) Compare(op CompareOp, scalar interface{}) ([]bool, error) {
	mask := make([]bool, b.Len())
	for i := range mask {
		v := b.At(i)
		if v == nil || scalar == nil {
			mask[i] = op == Ne
			continue
		}
		c, ok := cmp(v, scalar)
		if !ok {
			switch op {
			case Eq:
				mask[i] = reflect.DeepEqual(v, scalar)
				continue
			case Ne:
				mask[i] = !reflect.DeepEqual(v, scalar)
				continue
			}
			return nil, errors.TypeConflictError{Kind: b.kind, Value: scalar}
		}
		switch op {
		case Eq:
			mask[i] = c == 0
		case Ne:
			mask[i] = c != 0
		case Lt:
			mask[i] = c < 0
		case Le:
			mask[i] = c <= 0
		case Gt:
			mask[i] = c > 0
		case Ge:
			mask[i] = c >= 0
		}
	}
	return mask, nil
}

// Equal returns true iff a and b have the same Kind, length, values and nulls
func Equal(a, b *Buffer) bool {
	if a.kind != b.kind || a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		an, bn := a.isNull(i), b.isNull(i)
		if an != bn {
			return false
		}
		if !an && !reflect.DeepEqual(a.At(i), b.At(i)) {
			return false
		}
	}
	return true
}

// AppendBytes appends a canonical binary encoding of the value at position i
// to dst. Nulls encode as a single zero byte.
func (b *Buffer) AppendBytes(dst []byte, i int) []byte {
	if b.isNull(i) {
		return append(dst, 0)
	}
	dst = append(dst, 1)
	switch v := b.data.get(i).(type) {
	case bool:
		if v {
			return append(dst, 1)
		}
		return append(dst, 0)
	case int8:
		return append(dst, byte(v))
	case int16:
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case int32:
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	case int64:
		return binary.LittleEndian.AppendUint64(dst, uint64(v))
	case uint8:
		return append(dst, v)
	case uint16:
		return binary.LittleEndian.AppendUint16(dst, v)
	case uint32:
		return binary.LittleEndian.AppendUint32(dst, v)
	case uint64:
		return binary.LittleEndian.AppendUint64(dst, v)
	case float32:
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	case float64:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	default:
		return append(dst, colframe.KindObject.ToString(v)...)
	}
}

// Hash returns an xxhash fingerprint of the value at position i, seeded so
// that hashes of several columns may be chained
func (b *Buffer) Hash(i int, seed uint64) uint64 {
	var scratch [8]byte
	buf := binary.LittleEndian.AppendUint64(scratch[:0], seed)
	buf = b.AppendBytes(buf, i)
	return xxhash.Sum64(buf)
}
