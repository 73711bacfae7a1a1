package block

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/buffer"
	errors "github.com/go-sif/colframe/errors"
	"github.com/go-sif/colframe/schema"
	"github.com/hashicorp/go-multierror"
)

// Group is an immutable, ordered collection of Blocks sharing a row count,
// together with the ColumnIndex mapping logical columns onto them. Every
// operation returns a new Group. Blocks are shared between Groups wherever
// they are unchanged.
type Group struct {
	blocks []*Block
	nrows  int
	index  colframe.ColumnIndex
}

// newGroup assembles a Group from Blocks whose placements form a permutation
// of [0, len(labels))
func newGroup(blocks []*Block, labels []string, nrows int) *Group {
	locs := make([]colframe.Location, len(labels))
	for bi, blk := range blocks {
		for s, p := range blk.placement {
			locs[p] = colframe.Location{Block: bi, Offset: s}
		}
	}
	idx, err := schema.Rebuild(labels, locs)
	if err != nil {
		panic(errors.IntegrityViolationError{Err: err})
	}
	return &Group{blocks: blocks, nrows: nrows, index: idx}
}

// Empty returns a Group with no columns and the given number of rows
func Empty(nrows int) *Group {
	return newGroup(nil, nil, nrows)
}

type kindGroup struct {
	kind      colframe.Kind
	positions []int
}

// groupByKind buckets positions by Kind, in order of first appearance
func groupByKind(kinds []colframe.Kind, consolidatable []bool) (groups []*kindGroup, singles []int) {
	byKind := make(map[colframe.Kind]*kindGroup)
	for pos, kind := range kinds {
		if !consolidatable[pos] {
			singles = append(singles, pos)
			continue
		}
		g, ok := byKind[kind]
		if !ok {
			g = &kindGroup{kind: kind}
			byKind[kind] = g
			groups = append(groups, g)
		}
		g.positions = append(g.positions, pos)
	}
	return groups, singles
}

// FromColumns builds a consolidated Group from labelled buffers. Columns of the
// same Kind are packed into a single Block. External buffers each get a Block
// of their own. The input buffers are copied.
func FromColumns(labels []string, bufs []*buffer.Buffer) (*Group, error) {
	if len(labels) != len(bufs) {
		return nil, errors.LengthMismatchError{Expected: len(labels), Actual: len(bufs)}
	}
	if len(bufs) == 0 {
		return Empty(0), nil
	}
	nrows := bufs[0].Len()
	kinds := make([]colframe.Kind, len(bufs))
	consolidatable := make([]bool, len(bufs))
	for i, buf := range bufs {
		if buf.Len() != nrows {
			return nil, errors.LengthMismatchError{Expected: nrows, Actual: buf.Len()}
		}
		kinds[i] = buf.Kind()
		consolidatable[i] = !buf.IsExternal()
	}
	groups, singles := groupByKind(kinds, consolidatable)
	blocks := make([]*Block, 0, len(groups)+len(singles))
	for _, g := range groups {
		members := make([]*buffer.Buffer, len(g.positions))
		for i, pos := range g.positions {
			members[i] = bufs[pos]
		}
		packed, err := buffer.Concat(members...)
		if err != nil {
			return nil, err
		}
		placement := make([]int, len(g.positions))
		copy(placement, g.positions)
		blocks = append(blocks, fromPacked(packed, nrows, placement))
	}
	for _, pos := range singles {
		blocks = append(blocks, FromBuffer(bufs[pos].ForkCopy(), pos))
	}
	labelsCopy := make([]string, len(labels))
	copy(labelsCopy, labels)
	return newGroup(blocks, labelsCopy, nrows), nil
}

// NumRows returns the number of rows in this Group
func (g *Group) NumRows() int {
	return g.nrows
}

// NumCols returns the number of logical columns in this Group
func (g *Group) NumCols() int {
	return g.index.NumColumns()
}

// NumBlocks returns the number of Blocks in this Group
func (g *Group) NumBlocks() int {
	return len(g.blocks)
}

// Block returns the Block at index i
func (g *Group) Block(i int) *Block {
	return g.blocks[i]
}

// Blocks returns the Blocks of this Group
func (g *Group) Blocks() []*Block {
	out := make([]*Block, len(g.blocks))
	copy(out, g.blocks)
	return out
}

// Index returns a copy of the ColumnIndex of this Group
func (g *Group) Index() colframe.ColumnIndex {
	return g.index.Clone()
}

// Labels returns the column labels of this Group, in position order
func (g *Group) Labels() []string {
	return g.index.Labels()
}

// Label returns the label of the column at pos
func (g *Group) Label(pos int) (string, error) {
	return g.index.Label(pos)
}

// Positions returns every position carrying label
func (g *Group) Positions(label string) ([]int, error) {
	return g.index.Positions(label)
}

// Location returns the physical Location of the column at pos
func (g *Group) Location(pos int) (colframe.Location, error) {
	return g.index.ResolvePosition(pos)
}

// Kind returns the Kind of the column at pos
func (g *Group) Kind(pos int) (colframe.Kind, error) {
	loc, err := g.Location(pos)
	if err != nil {
		return colframe.KindObject, err
	}
	return g.blocks[loc.Block].Kind(), nil
}

// Buffers returns the distinct buffers referenced by this Group
func (g *Group) Buffers() []*buffer.Buffer {
	bufs := make([]*buffer.Buffer, 0, len(g.blocks))
	seen := make(map[buffer.ID]bool, len(g.blocks))
	for _, blk := range g.blocks {
		if !seen[blk.buf.ID()] {
			seen[blk.buf.ID()] = true
			bufs = append(bufs, blk.buf)
		}
	}
	return bufs
}

// Get returns the value at (row, pos)
func (g *Group) Get(row, pos int) (interface{}, error) {
	loc, err := g.Location(pos)
	if err != nil {
		return nil, err
	}
	return g.blocks[loc.Block].Get(row, loc.Offset)
}

// Set writes a value at (row, pos) directly into the underlying buffer
func (g *Group) Set(row, pos int, v interface{}) error {
	loc, err := g.Location(pos)
	if err != nil {
		return err
	}
	return g.blocks[loc.Block].Set(row, loc.Offset, v)
}

// Column returns a packed copy of the column at pos
func (g *Group) Column(pos int) (*buffer.Buffer, error) {
	loc, err := g.Location(pos)
	if err != nil {
		return nil, err
	}
	return g.blocks[loc.Block].Column(loc.Offset)
}

// IsConsolidated returns true iff no two consolidatable Blocks share a Kind
func (g *Group) IsConsolidated() bool {
	seen := make(map[colframe.Kind]bool)
	for _, blk := range g.blocks {
		if !blk.Consolidatable() {
			continue
		}
		if seen[blk.Kind()] {
			return false
		}
		seen[blk.Kind()] = true
	}
	return true
}

// Consolidate merges every consolidatable Block of the same Kind into a single
// Block. A Group which is already consolidated is returned unchanged, and
// merged is false.
func (g *Group) Consolidate() (consolidated *Group, merged bool, err error) {
	if g.IsConsolidated() {
		return g, false, nil
	}
	byKind := make(map[colframe.Kind][]*Block)
	order := make([]colframe.Kind, 0)
	for _, blk := range g.blocks {
		if !blk.Consolidatable() {
			continue
		}
		if _, ok := byKind[blk.Kind()]; !ok {
			order = append(order, blk.Kind())
		}
		byKind[blk.Kind()] = append(byKind[blk.Kind()], blk)
	}
	blocks := make([]*Block, 0, len(order))
	for _, kind := range order {
		members := byKind[kind]
		if len(members) == 1 {
			blocks = append(blocks, members[0])
			continue
		}
		m, err := Merge(members...)
		if err != nil {
			return nil, false, err
		}
		blocks = append(blocks, m)
	}
	for _, blk := range g.blocks {
		if !blk.Consolidatable() {
			blocks = append(blocks, blk)
		}
	}
	return newGroup(blocks, g.Labels(), g.nrows), true, nil
}

// WithColumnAdded returns a Group with buf inserted as a new single-column Block
// at logical position pos. The Group is not consolidated, so that several
// columns may be added before a single call to Consolidate. buf is not copied.
func (g *Group) WithColumnAdded(label string, buf *buffer.Buffer, pos int) (*Group, error) {
	ncols := g.NumCols()
	if pos < 0 || pos > ncols {
		return nil, errors.IndexOutOfBoundsError{Index: pos, Length: ncols + 1}
	}
	nrows := g.nrows
	if ncols == 0 && nrows == 0 {
		nrows = buf.Len()
	}
	if buf.Len() != nrows {
		return nil, errors.LengthMismatchError{Expected: nrows, Actual: buf.Len()}
	}
	for _, blk := range g.blocks {
		if blk.buf.ID() == buf.ID() {
			return nil, errors.IntegrityViolationError{Err: fmt.Errorf("buffer %s is already part of this group", buf.ID())}
		}
	}
	blocks := make([]*Block, 0, len(g.blocks)+1)
	for _, blk := range g.blocks {
		placement := blk.Placement()
		for s, p := range placement {
			if p >= pos {
				placement[s] = p + 1
			}
		}
		blocks = append(blocks, blk.WithPlacement(placement))
	}
	blocks = append(blocks, FromBuffer(buf, pos))
	labels := g.Labels()
	labels = append(labels, "")
	copy(labels[pos+1:], labels[pos:])
	labels[pos] = label
	return newGroup(blocks, labels, nrows), nil
}

// WithPositionsDropped returns a Group without the columns at the given
// positions. Remaining slots keep their Blocks and buffers, and Blocks left with
// no slots are removed.
func (g *Group) WithPositionsDropped(positions ...int) (*Group, error) {
	dropped := roaring.New()
	for _, pos := range positions {
		if pos < 0 || pos >= g.NumCols() {
			return nil, errors.IndexOutOfBoundsError{Index: pos, Length: g.NumCols()}
		}
		dropped.Add(uint32(pos))
	}
	blocks := make([]*Block, 0, len(g.blocks))
	for _, blk := range g.blocks {
		slots := make([]int, 0, len(blk.placement))
		placement := make([]int, 0, len(blk.placement))
		for s, p := range blk.placement {
			if dropped.Contains(uint32(p)) {
				continue
			}
			slots = append(slots, s)
			// Rank counts dropped positions <= p, none of which equal p
			placement = append(placement, p-int(dropped.Rank(uint32(p))))
		}
		if len(slots) > 0 {
			blocks = append(blocks, blk.Select(slots, placement))
		}
	}
	labels := make([]string, 0, g.NumCols()-int(dropped.GetCardinality()))
	for pos, label := range g.Labels() {
		if !dropped.Contains(uint32(pos)) {
			labels = append(labels, label)
		}
	}
	return newGroup(blocks, labels, g.nrows), nil
}

// WithColumnDropped returns a Group without any column carrying label
func (g *Group) WithColumnDropped(label string) (*Group, error) {
	positions, err := g.Positions(label)
	if err != nil {
		return nil, err
	}
	return g.WithPositionsDropped(positions...)
}

// WithColumnRenamed returns a Group in which every column carrying oldLabel is
// relabelled newLabel
func (g *Group) WithColumnRenamed(oldLabel, newLabel string) (*Group, error) {
	idx := g.index.Clone()
	if err := idx.Rename(oldLabel, newLabel); err != nil {
		return nil, err
	}
	return &Group{blocks: g.blocks, nrows: g.nrows, index: idx}, nil
}

// WithColumnReplaced returns a Group in which the column at pos is backed by buf,
// in a Block of its own, keeping its label
func (g *Group) WithColumnReplaced(pos int, buf *buffer.Buffer) (*Group, error) {
	label, err := g.Label(pos)
	if err != nil {
		return nil, err
	}
	if buf.Len() != g.nrows {
		return nil, errors.LengthMismatchError{Expected: g.nrows, Actual: buf.Len()}
	}
	dropped, err := g.WithPositionsDropped(pos)
	if err != nil {
		return nil, err
	}
	return dropped.WithColumnAdded(label, buf, pos)
}

// WithBlockReplaced returns a Group in which the Block at index i is replaced by
// blk, which must cover the same logical positions and rows
func (g *Group) WithBlockReplaced(i int, blk *Block) (*Group, error) {
	if i < 0 || i >= len(g.blocks) {
		return nil, errors.IndexOutOfBoundsError{Index: i, Length: len(g.blocks)}
	}
	old := g.blocks[i]
	if blk.nrows != old.nrows {
		return nil, errors.LengthMismatchError{Expected: old.nrows, Actual: blk.nrows}
	}
	if !slices.Equal(blk.placement, old.placement) {
		return nil, errors.IntegrityViolationError{Err: fmt.Errorf("replacement block placement %v differs from %v", blk.placement, old.placement)}
	}
	blocks := g.Blocks()
	blocks[i] = blk
	return &Group{blocks: blocks, nrows: g.nrows, index: g.index}, nil
}

// SliceRows returns a Group over rows [start, stop), sharing every buffer
func (g *Group) SliceRows(start, stop int) (*Group, error) {
	if start < 0 || stop > g.nrows || start > stop {
		return nil, errors.IndexOutOfBoundsError{Index: stop, Length: g.nrows}
	}
	blocks := make([]*Block, len(g.blocks))
	for i, blk := range g.blocks {
		blocks[i] = blk.SliceRows(start, stop)
	}
	return &Group{blocks: blocks, nrows: stop - start, index: g.index}, nil
}

// SelectColumns returns a Group of the columns at the given positions, in the
// given order, sharing the buffers of this Group. A column selected more than
// once is shared only by its first selection. Later selections are copied.
func (g *Group) SelectColumns(positions []int) (*Group, error) {
	type selection struct {
		slots     []int
		placement []int
	}
	perBlock := make(map[int]*selection)
	order := make([]int, 0)
	seen := make(map[colframe.Location]bool)
	labels := make([]string, len(positions))
	copies := make([]*Block, 0)
	for newPos, pos := range positions {
		loc, err := g.Location(pos)
		if err != nil {
			return nil, err
		}
		labels[newPos], _ = g.Label(pos)
		blk := g.blocks[loc.Block]
		if seen[loc] {
			copies = append(copies, blk.Select([]int{loc.Offset}, []int{newPos}).Compact())
			continue
		}
		seen[loc] = true
		sel, ok := perBlock[loc.Block]
		if !ok {
			sel = &selection{}
			perBlock[loc.Block] = sel
			order = append(order, loc.Block)
		}
		sel.slots = append(sel.slots, loc.Offset)
		sel.placement = append(sel.placement, newPos)
	}
	blocks := make([]*Block, 0, len(order)+len(copies))
	for _, bi := range order {
		sel := perBlock[bi]
		blocks = append(blocks, g.blocks[bi].Select(sel.slots, sel.placement))
	}
	blocks = append(blocks, copies...)
	return newGroup(blocks, labels, g.nrows), nil
}

// TakeRows returns a Group of the given rows, copied into new buffers. rows
// must already be validated against NumRows. buffer.NullSentinel rows produce nulls.
func (g *Group) TakeRows(rows []int) *Group {
	blocks := make([]*Block, len(g.blocks))
	for i, blk := range g.blocks {
		blocks[i] = blk.Take(rows)
	}
	return &Group{blocks: blocks, nrows: len(rows), index: g.index}
}

// Copy returns a Group with the same layout whose Blocks own fresh buffers
func (g *Group) Copy() *Group {
	blocks := make([]*Block, len(g.blocks))
	for i, blk := range g.blocks {
		blocks[i] = blk.Compact()
	}
	return &Group{blocks: blocks, nrows: g.nrows, index: g.index}
}

// VerifyIntegrity checks every structural invariant of this Group, returning an
// IntegrityViolationError describing all violations found
func (g *Group) VerifyIntegrity() error {
	var result *multierror.Error
	ncols := g.NumCols()
	owners := make(map[buffer.ID]int)
	covered := make([]bool, ncols)
	for bi, blk := range g.blocks {
		if err := blk.verify(); err != nil {
			result = multierror.Append(result, fmt.Errorf("block %d: %w", bi, err))
			continue
		}
		if blk.nrows != g.nrows {
			result = multierror.Append(result, fmt.Errorf("block %d has %d rows, group has %d", bi, blk.nrows, g.nrows))
		}
		if other, ok := owners[blk.buf.ID()]; ok {
			result = multierror.Append(result, fmt.Errorf("blocks %d and %d share buffer %s", other, bi, blk.buf.ID()))
		}
		owners[blk.buf.ID()] = bi
		for s, p := range blk.placement {
			if p < 0 || p >= ncols {
				result = multierror.Append(result, fmt.Errorf("block %d slot %d placed at %d, outside %d columns", bi, s, p, ncols))
				continue
			}
			if covered[p] {
				result = multierror.Append(result, fmt.Errorf("position %d placed by more than one slot", p))
			}
			covered[p] = true
			loc, err := g.index.ResolvePosition(p)
			if err != nil || loc != (colframe.Location{Block: bi, Offset: s}) {
				result = multierror.Append(result, fmt.Errorf("index location %v for position %d disagrees with block %d slot %d", loc, p, bi, s))
			}
		}
	}
	for p, ok := range covered {
		if !ok {
			result = multierror.Append(result, fmt.Errorf("position %d is not placed in any block", p))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.IntegrityViolationError{Err: err}
	}
	return nil
}
