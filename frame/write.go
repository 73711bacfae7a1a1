package frame

import (
	"fmt"

	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/buffer"
	errors "github.com/go-sif/colframe/errors"
	"github.com/go-sif/colframe/internal/block"
	"go.uber.org/zap"
)

// mutableBlock returns the Block at index bi, ready to be written in place.
// Under copy-on-write a Block whose buffer is referenced by any other Frame is
// first forked, with every slot it packs, and this Frame is switched to the fork.
func (f *Frame) mutableBlock(bi int) (*block.Block, error) {
	blk := f.group.Block(bi)
	if !f.copyOnWrite() {
		return blk, nil
	}
	var forkedBlock *block.Block
	buf, forked := f.opts.tracker.EnsureMutable(blk.Buffer().ID(), f.owner, func(*buffer.Buffer) *buffer.Buffer {
		forkedBlock = blk.Compact()
		return forkedBlock.Buffer()
	})
	if buf == nil {
		return nil, errors.IntegrityViolationError{
			Err: fmt.Errorf("buffer %s of block %d is not registered to this frame", blk.Buffer().ID(), bi),
		}
	}
	if !forked {
		return blk, nil
	}
	g, err := f.group.WithBlockReplaced(bi, forkedBlock)
	if err != nil {
		return nil, err
	}
	f.setGroup(g)
	return forkedBlock, nil
}

// retype replaces the column at pos with a copy converted to kind, in a Block of its own
func (f *Frame) retype(pos int, kind colframe.Kind) error {
	col, err := f.group.Column(pos)
	if err != nil {
		return err
	}
	cast, err := col.Cast(kind)
	if err != nil {
		return err
	}
	g, err := f.group.WithColumnReplaced(pos, cast)
	if err != nil {
		return err
	}
	f.opts.logger.Debug("retyped column", zap.Int("position", pos),
		zap.Stringer("from", col.Kind()), zap.Stringer("to", kind))
	f.setGroup(g)
	return nil
}

// valueSource supplies the value written to the k-th selected row
type valueSource interface {
	len() int // the number of values, or -1 for a broadcast scalar
	at(k int) interface{}
	kind() colframe.Kind
	fits(k colframe.Kind) bool
}

type scalar struct{ v interface{} }

func (s scalar) len() int { return -1 }

func (s scalar) at(int) interface{} { return s.v }

func (s scalar) kind() colframe.Kind { return buffer.KindOf(s.v) }

func (s scalar) fits(k colframe.Kind) bool { return buffer.CanHold(k, s.v) }

type vector struct{ buf *buffer.Buffer }

func (v vector) len() int { return v.buf.Len() }

func (v vector) at(k int) interface{} { return v.buf.At(k) }

func (v vector) kind() colframe.Kind { return v.buf.Kind() }

func (v vector) fits(k colframe.Kind) bool {
	for i := 0; i < v.buf.Len(); i++ {
		if !buffer.CanHold(k, v.buf.At(i)) {
			return false
		}
	}
	return true
}

func sourceOf(v interface{}) valueSource {
	switch x := v.(type) {
	case *buffer.Buffer:
		return vector{buf: x}
	case *Series:
		buf, err := x.frame.group.Column(0)
		if err == nil {
			return vector{buf: buf}
		}
	}
	return scalar{v: v}
}

// setCells writes values into the given rows of the column at pos. If the
// column's Kind cannot hold a value, the column is first retyped to a Kind
// which can.
func (f *Frame) setCells(pos int, rows []int, src valueSource) error {
	if n := src.len(); n >= 0 && n != len(rows) {
		return errors.LengthMismatchError{Expected: len(rows), Actual: n}
	}
	if len(rows) == 0 {
		return nil
	}
	kind, err := f.group.Kind(pos)
	if err != nil {
		return err
	}
	if !src.fits(kind) {
		if err := f.retype(pos, buffer.Unify(kind, src.kind())); err != nil {
			return err
		}
	}
	loc, err := f.group.Location(pos)
	if err != nil {
		return err
	}
	blk, err := f.mutableBlock(loc.Block)
	if err != nil {
		return err
	}
	for k, row := range rows {
		if err := blk.Set(row, loc.Offset, src.at(k)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frame) checkRow(row int) error {
	if row < 0 || row >= f.Len() {
		return errors.IndexOutOfBoundsError{Index: row, Length: f.Len()}
	}
	return nil
}

// SetAt writes a value at (row, col). A value the column's Kind cannot hold
// retypes the column.
func (f *Frame) SetAt(row, col int, v interface{}) error {
	if err := f.checkRow(row); err != nil {
		return err
	}
	if _, err := f.group.Location(col); err != nil {
		return err
	}
	return f.setCells(col, []int{row}, scalar{v: v})
}

// Set writes a value at row of the column carrying label
func (f *Frame) Set(row int, label string, v interface{}) error {
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return err
	}
	return f.SetAt(row, pos, v)
}

// SetRows writes v into the selected cells. v may be a scalar, which is
// broadcast, or a *buffer.Buffer or *Series holding one value per selected row,
// which is written to each selected column.
func (f *Frame) SetRows(rows RowSelector, cols ColumnSelector, v interface{}) error {
	colPlan, err := cols.resolveColumns(f.group)
	if err != nil {
		return err
	}
	rowPlan, err := rows.resolveRows(f.Len())
	if err != nil {
		return err
	}
	positions := rowPlan.positions()
	src := sourceOf(v)
	for _, pos := range colPlan.positions {
		if err := f.setCells(pos, positions, src); err != nil {
			return err
		}
	}
	return nil
}

// SetWhere writes a scalar into every cell at which mask, a Frame of bool
// columns shaped like this one, is true
func (f *Frame) SetWhere(mask *Frame, v interface{}) error {
	if mask.Len() != f.Len() || mask.NumColumns() != f.NumColumns() {
		return errors.KeyError{
			Key:    "mask",
			Reason: fmt.Sprintf("mask is %dx%d, expected %dx%d", mask.Len(), mask.NumColumns(), f.Len(), f.NumColumns()),
		}
	}
	selected := make([][]int, f.NumColumns())
	for pos := range selected {
		for row := 0; row < f.Len(); row++ {
			m, err := mask.At(row, pos)
			if err != nil {
				return err
			}
			b, ok := m.(bool)
			if m != nil && !ok {
				return errors.KeyError{Key: "mask", Reason: fmt.Sprintf("mask column %d is not boolean", pos)}
			}
			if b {
				selected[pos] = append(selected[pos], row)
			}
		}
	}
	for pos, rows := range selected {
		if err := f.setCells(pos, rows, scalar{v: v}); err != nil {
			return err
		}
	}
	return nil
}

// SetColumn replaces the column carrying label with a copy of buf, or appends
// it if no column carries label. Storage shared with other Frames is never
// written.
func (f *Frame) SetColumn(label string, buf *buffer.Buffer) error {
	if !f.HasColumn(label) {
		return f.Insert(f.NumColumns(), label, buf)
	}
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return err
	}
	g, err := f.group.WithColumnReplaced(pos, buf.ForkCopy())
	if err != nil {
		return err
	}
	f.setGroup(g)
	return nil
}

// SetSeries replaces or appends the column carrying label with a copy of s
func (f *Frame) SetSeries(label string, s *Series) error {
	buf, err := s.frame.group.Column(0)
	if err != nil {
		return err
	}
	return f.SetColumn(label, buf)
}

// SetColumns replaces or appends each labelled column with a fresh column
// holding v in every row. The Kind of the new columns is that of v.
func (f *Frame) SetColumns(labels []string, v interface{}) error {
	values := make([]interface{}, f.Len())
	for i := range values {
		values[i] = v
	}
	buf, err := buffer.CreateAs(buffer.KindOf(v), values, nil)
	if err != nil {
		return err
	}
	for _, label := range labels {
		if err := f.SetColumn(label, buf); err != nil {
			return err
		}
	}
	return nil
}

// Insert adds a copy of buf as a new column at pos. The label may duplicate an
// existing one. The new column is stored in a Block of its own until the Frame
// is consolidated.
func (f *Frame) Insert(pos int, label string, buf *buffer.Buffer) error {
	g, err := f.group.WithColumnAdded(label, buf.ForkCopy(), pos)
	if err != nil {
		return err
	}
	f.setGroup(g)
	return nil
}

// Delete removes every column carrying label. The remaining columns keep
// sharing storage with other Frames.
func (f *Frame) Delete(label string) error {
	g, err := f.group.WithColumnDropped(label)
	if err != nil {
		return errors.KeyError{Key: label, Err: err}
	}
	f.setGroup(g)
	return nil
}

// Rename relabels every column carrying oldLabel
func (f *Frame) Rename(oldLabel, newLabel string) error {
	g, err := f.group.WithColumnRenamed(oldLabel, newLabel)
	if err != nil {
		return errors.KeyError{Key: oldLabel, Err: err}
	}
	f.setGroup(g)
	return nil
}

// Cast converts the column carrying label to kind
func (f *Frame) Cast(label string, kind colframe.Kind) error {
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return err
	}
	if current, _ := f.group.Kind(pos); current == kind {
		return nil
	}
	return f.retype(pos, kind)
}

// Consolidate packs every column of the same Kind into a single Block.
// Consolidating an already consolidated Frame does nothing.
func (f *Frame) Consolidate() error {
	g, merged, err := f.group.Consolidate()
	if err != nil {
		return err
	}
	if merged {
		f.opts.logger.Debug("consolidated blocks",
			zap.Int("before", f.group.NumBlocks()),
			zap.Int("after", g.NumBlocks()))
		f.setGroup(g)
	}
	return nil
}
