package frame

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	errors "github.com/go-sif/colframe/errors"
	"github.com/go-sif/colframe/internal/block"
)

// End may be used as the Stop of a RowSlice or ColumnRange to select through
// the last row or column
const End = math.MaxInt

// RowSelector selects rows of a Frame. It is one of AllRows, RowSlice, RowMask
// or RowPositions.
type RowSelector interface {
	resolveRows(n int) (rowPlan, error)
}

// ColumnSelector selects columns of a Frame. It is one of AllColumns,
// ColumnLabels, ColumnRange, ColumnSpan, ColumnMask or ColumnPositions.
type ColumnSelector interface {
	resolveColumns(g *block.Group) (columnPlan, error)
}

// AllRows selects every row
type AllRows struct{}

// RowSlice selects rows by position, with the semantics of a Python slice:
// negative bounds count back from the end and out of range bounds are clamped.
// A Step of 0 is treated as 1. Only slices with a Step of 1 alias storage.
type RowSlice struct {
	Start int
	Stop  int
	Step  int
}

// RowMask selects the rows at which the mask is true. Its length must equal the
// number of rows.
type RowMask []bool

// RowPositions selects rows by position, in the given order. Negative positions
// count back from the end.
type RowPositions []int

// AllColumns selects every column
type AllColumns struct{}

// ColumnLabels selects columns by label. A label carried by several columns
// selects all of them.
type ColumnLabels []string

// ColumnRange selects the columns at positions [Start, Stop), with the bounds
// semantics of RowSlice
type ColumnRange struct {
	Start int
	Stop  int
}

// ColumnSpan selects the columns from label First through label Last, inclusive
type ColumnSpan struct {
	First string
	Last  string
}

// ColumnMask selects the columns at which the mask is true
type ColumnMask []bool

// ColumnPositions selects columns by position, in the given order. Negative
// positions count back from the end.
type ColumnPositions []int

type rowShape int

const (
	rowsAll rowShape = iota
	rowsSlice
	rowsGather
)

// rowPlan is a resolved RowSelector
type rowPlan struct {
	shape       rowShape
	start, stop int
	rows        []int
}

type columnShape int

const (
	columnsAll columnShape = iota
	columnsSingle
	columnsRange
	columnsList
)

// columnPlan is a resolved ColumnSelector
type columnPlan struct {
	shape     columnShape
	positions []int
}

func clampIndex(i, n, lo, hi int) int {
	if i < 0 {
		i += n
		if i < lo {
			i = lo
		}
	} else if i > hi {
		i = hi
	}
	return i
}

// sliceIndices computes the positions selected by a Python-style slice over n
// elements
func sliceIndices(start, stop, step, n int) []int {
	if step == 0 {
		step = 1
	}
	var indices []int
	if step > 0 {
		start, stop = clampIndex(start, n, 0, n), clampIndex(stop, n, 0, n)
		for i := start; i < stop; i += step {
			indices = append(indices, i)
		}
	} else {
		start, stop = clampIndex(start, n, -1, n-1), clampIndex(stop, n, -1, n-1)
		for i := start; i > stop; i += step {
			indices = append(indices, i)
		}
	}
	return indices
}

func normalizePositions(positions []int, n int) ([]int, error) {
	out := make([]int, len(positions))
	for k, i := range positions {
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, errors.IndexOutOfBoundsError{Index: positions[k], Length: n}
		}
		out[k] = i
	}
	return out, nil
}

func maskPositions(mask []bool, n int, what string) ([]int, error) {
	if len(mask) != n {
		return nil, errors.KeyError{
			Key:    what,
			Reason: fmt.Sprintf("boolean mask has length %d, expected %d", len(mask), n),
		}
	}
	selected := roaring.New()
	for i, b := range mask {
		if b {
			selected.Add(uint32(i))
		}
	}
	positions := make([]int, 0, selected.GetCardinality())
	it := selected.Iterator()
	for it.HasNext() {
		positions = append(positions, int(it.Next()))
	}
	return positions, nil
}

func (AllRows) resolveRows(n int) (rowPlan, error) {
	return rowPlan{shape: rowsAll, start: 0, stop: n}, nil
}

func (s RowSlice) resolveRows(n int) (rowPlan, error) {
	if s.Step == 0 || s.Step == 1 {
		start, stop := clampIndex(s.Start, n, 0, n), clampIndex(s.Stop, n, 0, n)
		if stop < start {
			stop = start
		}
		return rowPlan{shape: rowsSlice, start: start, stop: stop}, nil
	}
	return rowPlan{shape: rowsGather, rows: sliceIndices(s.Start, s.Stop, s.Step, n)}, nil
}

func (m RowMask) resolveRows(n int) (rowPlan, error) {
	rows, err := maskPositions(m, n, "row mask")
	if err != nil {
		return rowPlan{}, err
	}
	return rowPlan{shape: rowsGather, rows: rows}, nil
}

func (p RowPositions) resolveRows(n int) (rowPlan, error) {
	rows, err := normalizePositions(p, n)
	if err != nil {
		return rowPlan{}, err
	}
	return rowPlan{shape: rowsGather, rows: rows}, nil
}

// positions expands a rowPlan to explicit row positions
func (p rowPlan) positions() []int {
	if p.shape == rowsGather {
		return p.rows
	}
	rows := make([]int, 0, p.stop-p.start)
	for i := p.start; i < p.stop; i++ {
		rows = append(rows, i)
	}
	return rows
}

func allPositions(n int) []int {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return positions
}

func (AllColumns) resolveColumns(g *block.Group) (columnPlan, error) {
	return columnPlan{shape: columnsAll, positions: allPositions(g.NumCols())}, nil
}

func (l ColumnLabels) resolveColumns(g *block.Group) (columnPlan, error) {
	positions := make([]int, 0, len(l))
	for _, label := range l {
		matches, err := g.Positions(label)
		if err != nil {
			return columnPlan{}, errors.KeyError{Key: label, Err: err}
		}
		positions = append(positions, matches...)
	}
	return columnPlan{shape: columnsList, positions: positions}, nil
}

func (r ColumnRange) resolveColumns(g *block.Group) (columnPlan, error) {
	return columnPlan{shape: columnsRange, positions: sliceIndices(r.Start, r.Stop, 1, g.NumCols())}, nil
}

func (s ColumnSpan) resolveColumns(g *block.Group) (columnPlan, error) {
	first, err := uniquePosition(g, s.First)
	if err != nil {
		return columnPlan{}, err
	}
	last, err := uniquePosition(g, s.Last)
	if err != nil {
		return columnPlan{}, err
	}
	return columnPlan{shape: columnsRange, positions: sliceIndices(first, last+1, 1, g.NumCols())}, nil
}

func (m ColumnMask) resolveColumns(g *block.Group) (columnPlan, error) {
	positions, err := maskPositions(m, g.NumCols(), "column mask")
	if err != nil {
		return columnPlan{}, err
	}
	return columnPlan{shape: columnsList, positions: positions}, nil
}

func (p ColumnPositions) resolveColumns(g *block.Group) (columnPlan, error) {
	positions, err := normalizePositions(p, g.NumCols())
	if err != nil {
		return columnPlan{}, err
	}
	return columnPlan{shape: columnsList, positions: positions}, nil
}

// uniquePosition resolves a label carried by exactly one column
func uniquePosition(g *block.Group, label string) (int, error) {
	positions, err := g.Positions(label)
	if err != nil {
		return 0, errors.KeyError{Key: label, Err: err}
	}
	if len(positions) > 1 {
		return 0, errors.KeyError{
			Key:    label,
			Reason: fmt.Sprintf("label is ambiguous, %d columns carry it", len(positions)),
		}
	}
	return positions[0], nil
}

// withinOneBlock returns true iff every position is stored in the same Block
func withinOneBlock(g *block.Group, positions []int) bool {
	blockIdx := -1
	for _, pos := range positions {
		loc, err := g.Location(pos)
		if err != nil {
			return false
		}
		if blockIdx >= 0 && loc.Block != blockIdx {
			return false
		}
		blockIdx = loc.Block
	}
	return true
}
