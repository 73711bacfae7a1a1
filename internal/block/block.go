// Package block implements Blocks, 2-D windows over a single buffer holding
// one or more columns of the same Kind, and Groups, the ordered collections
// of Blocks which back a table.
package block

import (
	"fmt"

	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/buffer"
	errors "github.com/go-sif/colframe/errors"
)

// Block is an immutable, column-major window over a buffer. The element at
// (row r, slot s) lives at buffer position cols[s]*stride + rowOff + r, and
// placement[s] is the logical position of slot s within its Group. Windows
// derived by slicing rows or selecting slots alias the same buffer.
type Block struct {
	buf       *buffer.Buffer
	stride    int // rows per physical column in buf
	rowOff    int
	nrows     int
	cols      []int
	placement []int
}

// FromBuffer wraps a whole buffer as a single-column Block at the given logical position
func FromBuffer(buf *buffer.Buffer, placement int) *Block {
	return &Block{
		buf:       buf,
		stride:    buf.Len(),
		nrows:     buf.Len(),
		cols:      []int{0},
		placement: []int{placement},
	}
}

// fromPacked wraps a buffer holding len(placement) columns of nrows rows each, back to back
func fromPacked(buf *buffer.Buffer, nrows int, placement []int) *Block {
	cols := make([]int, len(placement))
	for i := range cols {
		cols[i] = i
	}
	return &Block{
		buf:       buf,
		stride:    nrows,
		nrows:     nrows,
		cols:      cols,
		placement: placement,
	}
}

func (b *Block) with(cols []int, placement []int) *Block {
	return &Block{
		buf:       b.buf,
		stride:    b.stride,
		rowOff:    b.rowOff,
		nrows:     b.nrows,
		cols:      cols,
		placement: placement,
	}
}

// Kind returns the element Kind of this Block
func (b *Block) Kind() colframe.Kind {
	return b.buf.Kind()
}

// Buffer returns the buffer this Block is a window over
func (b *Block) Buffer() *buffer.Buffer {
	return b.buf
}

// NumRows returns the number of rows in this Block
func (b *Block) NumRows() int {
	return b.nrows
}

// NumCols returns the number of columns (slots) in this Block
func (b *Block) NumCols() int {
	return len(b.cols)
}

// Placement returns the logical position of each slot of this Block
func (b *Block) Placement() []int {
	out := make([]int, len(b.placement))
	copy(out, b.placement)
	return out
}

// Consolidatable returns true iff this Block may be merged with other Blocks of its Kind
func (b *Block) Consolidatable() bool {
	return !b.buf.IsExternal()
}

func (b *Block) offset(row, slot int) int {
	return b.cols[slot]*b.stride + b.rowOff + row
}

func (b *Block) check(row, slot int) error {
	if row < 0 || row >= b.nrows {
		return errors.IndexOutOfBoundsError{Index: row, Length: b.nrows}
	}
	if slot < 0 || slot >= len(b.cols) {
		return errors.IndexOutOfBoundsError{Index: slot, Length: len(b.cols)}
	}
	return nil
}

// Get returns the value at (row, slot), or nil if it is null
func (b *Block) Get(row, slot int) (interface{}, error) {
	if err := b.check(row, slot); err != nil {
		return nil, err
	}
	return b.buf.At(b.offset(row, slot)), nil
}

// Set writes a value at (row, slot) directly into the underlying buffer. The
// caller must own the buffer exclusively, or deliberately intend to write
// through to every other window over it.
func (b *Block) Set(row, slot int, v interface{}) error {
	if err := b.check(row, slot); err != nil {
		return err
	}
	return b.buf.SetInPlace(b.offset(row, slot), v)
}

// SliceRows returns a window over rows [start, stop) of this Block, sharing its buffer
func (b *Block) SliceRows(start, stop int) *Block {
	out := b.with(b.cols, b.placement)
	out.rowOff = b.rowOff + start
	out.nrows = stop - start
	return out
}

// Select returns a window over the given slots of this Block, sharing its
// buffer, with a new logical placement for each selected slot
func (b *Block) Select(slots []int, placement []int) *Block {
	cols := make([]int, len(slots))
	for i, s := range slots {
		cols[i] = b.cols[s]
	}
	p := make([]int, len(placement))
	copy(p, placement)
	return b.with(cols, p)
}

// WithPlacement returns a window identical to this Block with a new logical placement
func (b *Block) WithPlacement(placement []int) *Block {
	return b.with(b.cols, placement)
}

// Take gathers rows into a new, packed Block with its own buffer. rows must
// already be validated against NumRows. A row of buffer.NullSentinel produces
// nulls in every slot.
func (b *Block) Take(rows []int) *Block {
	indices := make([]int, 0, len(rows)*len(b.cols))
	for s := range b.cols {
		for _, r := range rows {
			if r == buffer.NullSentinel {
				indices = append(indices, buffer.NullSentinel)
			} else {
				indices = append(indices, b.offset(r, s))
			}
		}
	}
	buf, err := b.buf.Take(indices, true)
	if err != nil {
		panic(errors.IntegrityViolationError{Err: err})
	}
	return fromPacked(buf, len(rows), b.Placement())
}

// Compact returns a packed copy of this Block with its own buffer
func (b *Block) Compact() *Block {
	rows := make([]int, b.nrows)
	for i := range rows {
		rows[i] = i
	}
	return b.Take(rows)
}

// Column returns a packed copy of a single slot of this Block
func (b *Block) Column(slot int) (*buffer.Buffer, error) {
	if slot < 0 || slot >= len(b.cols) {
		return nil, errors.IndexOutOfBoundsError{Index: slot, Length: len(b.cols)}
	}
	return b.Select([]int{slot}, []int{b.placement[slot]}).Compact().buf, nil
}

// Merge packs several Blocks of the same Kind and row count into a single new
// Block, concatenating their slots in order
func Merge(blocks ...*Block) (*Block, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("cannot merge zero blocks")
	}
	kind, nrows := blocks[0].Kind(), blocks[0].nrows
	bufs := make([]*buffer.Buffer, len(blocks))
	placement := make([]int, 0)
	for i, blk := range blocks {
		if blk.Kind() != kind {
			return nil, errors.TypeConflictError{Kind: kind, Value: blk.Kind()}
		}
		if blk.nrows != nrows {
			return nil, errors.LengthMismatchError{Expected: nrows, Actual: blk.nrows}
		}
		bufs[i] = blk.Compact().buf
		placement = append(placement, blk.placement...)
	}
	buf, err := buffer.Concat(bufs...)
	if err != nil {
		return nil, err
	}
	return fromPacked(buf, nrows, placement), nil
}

// verify checks that every slot of this Block lies within its buffer
func (b *Block) verify() error {
	if len(b.cols) != len(b.placement) {
		return fmt.Errorf("block has %d slots but %d placements", len(b.cols), len(b.placement))
	}
	if b.rowOff < 0 || b.nrows < 0 || b.rowOff+b.nrows > b.stride {
		return fmt.Errorf("block rows [%d, %d) exceed stride %d", b.rowOff, b.rowOff+b.nrows, b.stride)
	}
	for s, c := range b.cols {
		if c < 0 || (c+1)*b.stride > b.buf.Len() {
			return fmt.Errorf("block slot %d (column %d) exceeds buffer of length %d", s, c, b.buf.Len())
		}
	}
	return nil
}

// String returns a descriptive string of this Block
func (b *Block) String() string {
	return fmt.Sprintf("Block(%s, rows=%d, placement=%v)", b.Kind(), b.nrows, b.placement)
}
