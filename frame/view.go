package frame

import (
	"go.uber.org/zap"
)

// aliasColumns decides whether a column selection may share storage with this
// Frame. Under copy-on-write every selection aliases. Under legacy sharing only
// whole-frame and single-column access alias, and positional ranges alias when
// they lie within a single Block.
func (f *Frame) aliasColumns(plan columnPlan) bool {
	if f.copyOnWrite() {
		return true
	}
	switch plan.shape {
	case columnsAll, columnsSingle:
		return true
	case columnsRange:
		return withinOneBlock(f.group, plan.positions)
	}
	return false
}

// Select constructs a Frame from a subset of the rows and columns of this
// Frame. Row slices with a step of 1 share storage with this Frame. Masks and
// positional row selections always copy. Whether column selections share
// storage depends on the Mode. Nothing is registered unless both selectors
// resolve.
func (f *Frame) Select(rows RowSelector, cols ColumnSelector) (*Frame, error) {
	colPlan, err := cols.resolveColumns(f.group)
	if err != nil {
		return nil, err
	}
	rowPlan, err := rows.resolveRows(f.Len())
	if err != nil {
		return nil, err
	}
	return f.view(rowPlan, colPlan)
}

func (f *Frame) view(rowPlan rowPlan, colPlan columnPlan) (*Frame, error) {
	g := f.group
	if colPlan.shape != columnsAll {
		selected, err := g.SelectColumns(colPlan.positions)
		if err != nil {
			return nil, err
		}
		g = selected
	}
	aliased := f.aliasColumns(colPlan)
	switch rowPlan.shape {
	case rowsSlice:
		sliced, err := g.SliceRows(rowPlan.start, rowPlan.stop)
		if err != nil {
			return nil, err
		}
		g = sliced
	case rowsGather:
		// gathered rows are private copies
		g = g.TakeRows(rowPlan.rows)
	}
	if !aliased && rowPlan.shape != rowsGather {
		g = g.Copy()
	}
	f.opts.logger.Debug("constructed view",
		zap.Bool("shared", aliased && rowPlan.shape != rowsGather),
		zap.Int("rows", g.NumRows()),
		zap.Int("columns", g.NumCols()),
		zap.Stringer("mode", f.opts.mode.Resolve()))
	return newFrame(g, f.opts), nil
}

// Slice returns a view of rows [start, stop), sharing storage with this Frame
func (f *Frame) Slice(start, stop int) (*Frame, error) {
	return f.Select(RowSlice{Start: start, Stop: stop}, AllColumns{})
}

// Columns returns the columns carrying the given labels
func (f *Frame) Columns(labels ...string) (*Frame, error) {
	return f.Select(AllRows{}, ColumnLabels(labels))
}

// ColumnRange returns the columns at positions [start, stop)
func (f *Frame) ColumnRange(start, stop int) (*Frame, error) {
	return f.Select(AllRows{}, ColumnRange{Start: start, Stop: stop})
}

// Filter returns a copy of the rows at which mask is true
func (f *Frame) Filter(mask []bool) (*Frame, error) {
	return f.Select(RowMask(mask), AllColumns{})
}

// Take returns a copy of the rows at the given positions
func (f *Frame) Take(rows ...int) (*Frame, error) {
	return f.Select(RowPositions(rows), AllColumns{})
}

// Copy returns a Frame with the same contents. A deep copy owns fresh storage. A
// shallow copy shares storage with this Frame like any other view.
func (f *Frame) Copy(deep bool) *Frame {
	g := f.group
	if deep {
		g = g.Copy()
	}
	return newFrame(g, f.opts)
}

// Column returns the column carrying label as a Series which shares storage
// with this Frame. The label must be carried by exactly one column.
func (f *Frame) Column(label string) (*Series, error) {
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return nil, err
	}
	return f.columnAt(pos)
}

// ColumnAt returns the column at pos as a Series which shares storage with this Frame
func (f *Frame) ColumnAt(pos int) (*Series, error) {
	if pos < 0 {
		pos += f.NumColumns()
	}
	if _, err := f.group.Label(pos); err != nil {
		return nil, err
	}
	return f.columnAt(pos)
}

func (f *Frame) columnAt(pos int) (*Series, error) {
	view, err := f.view(
		rowPlan{shape: rowsAll, start: 0, stop: f.Len()},
		columnPlan{shape: columnsSingle, positions: []int{pos}},
	)
	if err != nil {
		return nil, err
	}
	return &Series{frame: view}, nil
}
