package frame

import (
	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/buffer"
)

// Series is a single labelled column. It is a one-column Frame, and shares
// storage and copy-on-write behaviour with the Frame it was taken from.
type Series struct {
	frame *Frame
}

// NewSeries creates a Series holding a copy of buf
func NewSeries(name string, buf *buffer.Buffer, opts ...Option) (*Series, error) {
	f, err := New([]Column{{Name: name, Values: buf}}, opts...)
	if err != nil {
		return nil, err
	}
	return &Series{frame: f}, nil
}

func (s *Series) wrap(f *Frame, err error) (*Series, error) {
	if err != nil {
		return nil, err
	}
	return &Series{frame: f}, nil
}

// Name returns the label of this Series
func (s *Series) Name() string {
	label, _ := s.frame.group.Label(0)
	return label
}

// Len returns the number of values in this Series
func (s *Series) Len() int {
	return s.frame.Len()
}

// Kind returns the element Kind of this Series
func (s *Series) Kind() colframe.Kind {
	kind, _ := s.frame.group.Kind(0)
	return kind
}

// Get returns the value at position i, or nil if it is null
func (s *Series) Get(i int) (interface{}, error) {
	return s.frame.At(i, 0)
}

// Set writes a value at position i. A value the Series' Kind cannot hold
// retypes the Series.
func (s *Series) Set(i int, v interface{}) error {
	return s.frame.SetAt(i, 0, v)
}

// SetRows writes v into the selected positions
func (s *Series) SetRows(rows RowSelector, v interface{}) error {
	return s.frame.SetRows(rows, AllColumns{}, v)
}

// Values returns every value of this Series, with nulls as nil
func (s *Series) Values() []interface{} {
	return s.Buffer().Values()
}

// Buffer returns a packed copy of the values of this Series
func (s *Series) Buffer() *buffer.Buffer {
	buf, _ := s.frame.group.Column(0)
	return buf
}

// Slice returns a view of positions [start, stop), sharing storage with this Series
func (s *Series) Slice(start, stop int) (*Series, error) {
	return s.wrap(s.frame.Slice(start, stop))
}

// Select returns the selected positions. Only slices share storage.
func (s *Series) Select(rows RowSelector) (*Series, error) {
	return s.wrap(s.frame.Select(rows, AllColumns{}))
}

// Filter returns a copy of the values at which mask is true
func (s *Series) Filter(mask []bool) (*Series, error) {
	return s.wrap(s.frame.Filter(mask))
}

// Take returns a copy of the values at the given positions
func (s *Series) Take(positions ...int) (*Series, error) {
	return s.wrap(s.frame.Take(positions...))
}

// Drop returns a copy of this Series without the values at the given positions
func (s *Series) Drop(positions ...int) (*Series, error) {
	normalized, err := normalizePositions(positions, s.Len())
	if err != nil {
		return nil, err
	}
	mask := make([]bool, s.Len())
	for i := range mask {
		mask[i] = true
	}
	for _, i := range normalized {
		mask[i] = false
	}
	return s.Filter(mask)
}

// Compare compares every value against a scalar. Nulls compare false, except
// under buffer.Ne.
func (s *Series) Compare(op buffer.CompareOp, v interface{}) ([]bool, error) {
	return s.Buffer().Compare(op, v)
}

// Eq returns a mask which is true where values equal v
func (s *Series) Eq(v interface{}) ([]bool, error) {
	return s.Compare(buffer.Eq, v)
}

// Gt returns a mask which is true where values are greater than v
func (s *Series) Gt(v interface{}) ([]bool, error) {
	return s.Compare(buffer.Gt, v)
}

// Lt returns a mask which is true where values are less than v
func (s *Series) Lt(v interface{}) ([]bool, error) {
	return s.Compare(buffer.Lt, v)
}

// IsNA returns a mask which is true where values are null
func (s *Series) IsNA() []bool {
	return s.Buffer().IsNA()
}

// FillNA returns a copy of this Series with every null replaced by v
func (s *Series) FillNA(v interface{}) (*Series, error) {
	filled, err := s.Buffer().FillNA(v)
	if err != nil {
		return nil, err
	}
	return NewSeries(s.Name(), filled, s.frame.options()...)
}

// SharesStorage returns true iff this Series and other are backed by the same buffer
func (s *Series) SharesStorage(other *Series) bool {
	return s.storage().SharesStorage(other.storage())
}

// SharesStorageWith returns true iff this Series is backed by the same buffer
// as the column of f carrying the same label
func (s *Series) SharesStorageWith(f *Frame) (bool, error) {
	theirs, err := f.ColumnBuffer(s.Name())
	if err != nil {
		return false, err
	}
	return s.storage().SharesStorage(theirs), nil
}

func (s *Series) storage() *buffer.Buffer {
	loc, _ := s.frame.group.Location(0)
	return s.frame.group.Block(loc.Block).Buffer()
}

// HasUniqueReference returns true iff no other live Frame or Series references
// the storage of this Series
func (s *Series) HasUniqueReference() bool {
	unique, _ := s.frame.HasUniqueReference(0)
	return unique
}

// Copy returns a Series with the same values. A deep copy owns fresh storage.
func (s *Series) Copy(deep bool) *Series {
	return &Series{frame: s.frame.Copy(deep)}
}

// ToFrame returns this Series as a one-column Frame sharing its storage
func (s *Series) ToFrame() *Frame {
	return s.frame.Copy(false)
}

// Equal returns true iff this Series and other have the same name, Kind and values
func (s *Series) Equal(other *Series) bool {
	return s.frame.Equal(other.frame)
}

// String returns a tabular representation of this Series
func (s *Series) String() string {
	return s.frame.String()
}

// Release unregisters this Series from the storage it references
func (s *Series) Release() {
	s.frame.Release()
}
