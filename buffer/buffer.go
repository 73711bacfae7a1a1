// Package buffer implements Buffer, the contiguous, homogeneously-typed vector
// of values which backs every block of a table.
package buffer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-sif/colframe"
	errors "github.com/go-sif/colframe/errors"
	"github.com/go-sif/colframe/logging"
	uuid "github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// NullSentinel is the default Take position which, when filling is enabled,
// produces a null instead of gathering a value
const NullSentinel = -1

// ID is the identity of a Buffer. Two Buffers with the same ID are the same storage.
type ID = uuid.UUID

// Element enumerates the Go types accepted by Of
type Element interface {
	bool | int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | time.Time | time.Duration
}

// Buffer is a fixed-length, contiguous vector of values sharing a single Kind,
// with an optional validity mask. A Buffer is immutable until copied: only a
// caller which has proven sole ownership may call SetInPlace.
type Buffer struct {
	id       ID
	kind     colframe.Kind
	data     storage
	nulls    *bitset.BitSet // set bits mark nulls. nil means no nulls.
	external bool
}

func newID() ID {
	id, err := uuid.NewV4()
	if err != nil {
		logging.Get().Fatal("failed to generate UUID for Buffer", zap.Error(err))
	}
	return id
}

func wrap(kind colframe.Kind, data storage, nulls *bitset.BitSet) *Buffer {
	return &Buffer{
		id:    newID(),
		kind:  kind,
		data:  data,
		nulls: nulls,
	}
}

// New creates a zero-filled Buffer of the given Kind and length
func New(kind colframe.Kind, n int) *Buffer {
	return wrap(kind, makeStorage(kind, n), nil)
}

// Create builds a Buffer from a list of values, inferring its Kind. Values which
// cannot be unified under a primitive Kind are stored boxed as KindObject. nil
// values, and values whose validity entry is false, are nulls. validity may be nil.
func Create(values []interface{}, validity []bool) (*Buffer, error) {
	return CreateAs(inferKind(values), values, validity)
}

// CreateAs builds a Buffer of the given Kind from a list of values, failing with
// a TypeConflictError if any value cannot be represented by kind
func CreateAs(kind colframe.Kind, values []interface{}, validity []bool) (*Buffer, error) {
	if validity != nil && len(validity) != len(values) {
		return nil, errors.LengthMismatchError{Expected: len(values), Actual: len(validity)}
	}
	b := New(kind, len(values))
	for i, v := range values {
		if v == nil || (validity != nil && !validity[i]) {
			b.setNull(i)
			continue
		}
		if err := b.SetInPlace(i, v); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Of builds a Buffer from a typed Go slice. The slice is copied.
func Of[T Element](values []T) *Buffer {
	switch vs := any(values).(type) {
	case []bool:
		return wrap(colframe.KindBool, vec[bool](vs).clone(), nil)
	case []int:
		out := make(vec[int64], len(vs))
		for i, v := range vs {
			out[i] = int64(v)
		}
		return wrap(colframe.KindInt64, out, nil)
	case []int8:
		return wrap(colframe.KindInt8, vec[int8](vs).clone(), nil)
	case []int16:
		return wrap(colframe.KindInt16, vec[int16](vs).clone(), nil)
	case []int32:
		return wrap(colframe.KindInt32, vec[int32](vs).clone(), nil)
	case []int64:
		return wrap(colframe.KindInt64, vec[int64](vs).clone(), nil)
	case []uint:
		out := make(vec[uint64], len(vs))
		for i, v := range vs {
			out[i] = uint64(v)
		}
		return wrap(colframe.KindUint64, out, nil)
	case []uint8:
		return wrap(colframe.KindUint8, vec[uint8](vs).clone(), nil)
	case []uint16:
		return wrap(colframe.KindUint16, vec[uint16](vs).clone(), nil)
	case []uint32:
		return wrap(colframe.KindUint32, vec[uint32](vs).clone(), nil)
	case []uint64:
		return wrap(colframe.KindUint64, vec[uint64](vs).clone(), nil)
	case []float32:
		return wrap(colframe.KindFloat32, vec[float32](vs).clone(), nil)
	case []float64:
		return wrap(colframe.KindFloat64, vec[float64](vs).clone(), nil)
	case []time.Time:
		out := make(vec[int64], len(vs))
		for i, v := range vs {
			out[i] = v.UnixNano()
		}
		return wrap(colframe.KindDatetime, out, nil)
	case []time.Duration:
		out := make(vec[int64], len(vs))
		for i, v := range vs {
			out[i] = int64(v)
		}
		return wrap(colframe.KindTimedelta, out, nil)
	}
	panic(fmt.Sprintf("buffer.Of: unsupported element type %T", values))
}

// Objects builds a KindObject Buffer holding the given values boxed, without
// attempting to infer a primitive Kind
func Objects(values ...interface{}) *Buffer {
	b, _ := CreateAs(colframe.KindObject, values, nil)
	return b
}

// Extension returns a copy of b marked as an external array. External Buffers
// are never consolidated with other columns.
func Extension(b *Buffer) *Buffer {
	ext := b.ForkCopy()
	ext.external = true
	return ext
}

// ID returns the identity of this Buffer
func (b *Buffer) ID() ID {
	return b.id
}

// Kind returns the element Kind of this Buffer
func (b *Buffer) Kind() colframe.Kind {
	return b.kind
}

// Len returns the number of elements in this Buffer
func (b *Buffer) Len() int {
	return b.data.len()
}

// NBytes returns the number of bytes occupied by the elements of this Buffer
func (b *Buffer) NBytes() int {
	return b.Len() * b.kind.Size()
}

// IsExternal returns true iff this Buffer is an external array which must not be consolidated
func (b *Buffer) IsExternal() bool {
	return b.external
}

// SharesStorage returns true iff b and other are the same storage
func (b *Buffer) SharesStorage(other *Buffer) bool {
	return b != nil && other != nil && b.id == other.id
}

func (b *Buffer) hasNullBit(i int) bool {
	return b.nulls != nil && b.nulls.Test(uint(i))
}

// isNull reports whether position i holds a null. Floating point NaNs are nulls.
func (b *Buffer) isNull(i int) bool {
	if b.hasNullBit(i) {
		return true
	}
	switch v := b.data.get(i).(type) {
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}

func (b *Buffer) setNull(i int) {
	if b.nulls == nil {
		b.nulls = bitset.New(uint(b.Len()))
	}
	b.nulls.Set(uint(i))
	switch b.kind {
	case colframe.KindFloat64:
		b.data.set(i, math.NaN())
	case colframe.KindFloat32:
		b.data.set(i, float32(math.NaN()))
	case colframe.KindObject:
		b.data.set(i, nil)
	}
}

func (b *Buffer) checkIndex(i int) error {
	if i < 0 || i >= b.Len() {
		return errors.IndexOutOfBoundsError{Index: i, Length: b.Len()}
	}
	return nil
}

// IsNull returns true iff the value at position i is null. Positions out of
// range report false.
func (b *Buffer) IsNull(i int) bool {
	if b.checkIndex(i) != nil {
		return false
	}
	return b.isNull(i)
}

// NullCount returns the number of nulls in this Buffer
func (b *Buffer) NullCount() int {
	n := 0
	for i := 0; i < b.Len(); i++ {
		if b.isNull(i) {
			n++
		}
	}
	return n
}

// Get returns the value at position i, or nil if it is null
func (b *Buffer) Get(i int) (interface{}, error) {
	if err := b.checkIndex(i); err != nil {
		return nil, err
	}
	return b.At(i), nil
}

// At returns the value at position i, or nil if it is null. At does not check
// bounds, and is intended for callers which have already validated i.
func (b *Buffer) At(i int) interface{} {
	if b.isNull(i) {
		return nil
	}
	return box(b.kind, b.data.get(i))
}

// Values returns every value in this Buffer, with nulls as nil
func (b *Buffer) Values() []interface{} {
	values := make([]interface{}, b.Len())
	for i := range values {
		values[i] = b.At(i)
	}
	return values
}

// SetInPlace overwrites the value at position i. A nil value writes a null. The
// caller must have established that it is the sole owner of this Buffer: a
// Buffer never checks whether it is shared.
func (b *Buffer) SetInPlace(i int, v interface{}) error {
	if err := b.checkIndex(i); err != nil {
		return err
	}
	if v == nil {
		b.setNull(i)
		return nil
	}
	native, ok := coerce(b.kind, v)
	if !ok {
		return errors.TypeConflictError{Kind: b.kind, Value: v}
	}
	b.data.set(i, native)
	if b.nulls != nil {
		b.nulls.Clear(uint(i))
	}
	return nil
}

// ForkCopy returns a deep copy of this Buffer's storage and validity mask with a
// new identity
func (b *Buffer) ForkCopy() *Buffer {
	var nulls *bitset.BitSet
	if b.nulls != nil {
		nulls = b.nulls.Clone()
	}
	fork := wrap(b.kind, b.data.clone(), nulls)
	fork.external = b.external
	return fork
}

// Take gathers the values at the given positions into a new Buffer. A position
// beyond the end is an IndexOutOfBoundsError. When allowFill is true,
// NullSentinel produces a null and any other negative position is an error.
// Otherwise negative positions count back from the end.
func (b *Buffer) Take(indices []int, allowFill bool) (*Buffer, error) {
	return b.TakeWithSentinel(indices, allowFill, NullSentinel)
}

// TakeWithSentinel is Take with a configurable fill sentinel. The sentinel must
// be negative.
func (b *Buffer) TakeWithSentinel(indices []int, allowFill bool, sentinel int) (*Buffer, error) {
	n := b.Len()
	resolved := make([]int, len(indices))
	for k, i := range indices {
		switch {
		case i >= n:
			return nil, errors.IndexOutOfBoundsError{Index: i, Length: n}
		case i >= 0:
			resolved[k] = i
		case allowFill && i == sentinel:
			resolved[k] = -1
		case allowFill:
			return nil, errors.IndexOutOfBoundsError{Index: i, Length: n}
		case i >= -n:
			resolved[k] = n + i
		default:
			return nil, errors.IndexOutOfBoundsError{Index: i, Length: n}
		}
	}
	out := wrap(b.kind, b.data.take(resolved), nil)
	out.external = b.external
	for k, i := range resolved {
		if i < 0 || b.hasNullBit(i) {
			out.setNull(k)
		}
	}
	return out, nil
}

// Cast converts this Buffer to another Kind, returning a new Buffer. Casting
// fails with a TypeConflictError if any value cannot be represented by kind.
func (b *Buffer) Cast(kind colframe.Kind) (*Buffer, error) {
	if kind == b.kind {
		return b.ForkCopy(), nil
	}
	out := New(kind, b.Len())
	for i := 0; i < b.Len(); i++ {
		if b.isNull(i) {
			out.setNull(i)
			continue
		}
		if err := out.SetInPlace(i, b.castAt(i, kind)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// castAt returns the non-null value at i in a form that a Buffer of the given
// Kind accepts. Temporal values and integers convert through nanoseconds.
func (b *Buffer) castAt(i int, kind colframe.Kind) interface{} {
	switch {
	case b.kind.IsTemporal() && kind.IsNumeric():
		return b.data.get(i)
	case b.kind.IsInteger() && kind.IsTemporal():
		n, ok := asInt(b.data.get(i))
		if !ok {
			break
		}
		if kind == colframe.KindDatetime {
			return time.Unix(0, n).UTC()
		}
		return time.Duration(n)
	}
	return b.At(i)
}

// Concat joins Buffers of the same Kind end to end into a new Buffer
func Concat(bufs ...*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return New(colframe.KindObject, 0), nil
	}
	kind := bufs[0].kind
	total := 0
	for _, b := range bufs {
		if b.kind != kind {
			return nil, errors.TypeConflictError{Kind: kind, Value: b.kind}
		}
		total += b.Len()
	}
	out := New(kind, total)
	off := 0
	for _, b := range bufs {
		b.data.copyInto(out.data, off)
		if b.nulls != nil {
			for i, ok := b.nulls.NextSet(0); ok; i, ok = b.nulls.NextSet(i + 1) {
				out.setNull(off + int(i))
			}
		}
		off += b.Len()
	}
	return out, nil
}

// String returns a descriptive string of this Buffer
func (b *Buffer) String() string {
	const maxShown = 8
	var res strings.Builder
	fmt.Fprintf(&res, "buffer[%d]%s[", b.Len(), b.kind)
	for i := 0; i < b.Len(); i++ {
		if i >= maxShown {
			fmt.Fprintf(&res, " ... %d more", b.Len()-maxShown)
			break
		}
		if i > 0 {
			fmt.Fprint(&res, " ")
		}
		fmt.Fprint(&res, b.kind.ToString(b.At(i)))
	}
	fmt.Fprint(&res, "]")
	return res.String()
}
