// Package frame implements Frame and Series, tables of labelled, typed columns
// whose views share storage with their parents and copy it only when written.
package frame

import (
	"fmt"
	"runtime"

	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/buffer"
	errors "github.com/go-sif/colframe/errors"
	"github.com/go-sif/colframe/internal/block"
	"github.com/go-sif/colframe/internal/refs"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Column is a labelled buffer used to construct a Frame
type Column struct {
	Name   string
	Values *buffer.Buffer
}

// Frame is a table of labelled, typed columns stored in Blocks. Frames derived
// from another Frame by slicing or selecting columns are views which may share
// storage with it. Under ModeCopyOnWrite a write to a Frame never becomes
// visible through any other Frame. Under ModeLegacy writes go straight to
// shared storage. A Frame is not safe for concurrent use.
type Frame struct {
	group      *block.Group
	opts       *options
	owner      refs.OwnerID
	registered map[buffer.ID]struct{}
	cleanup    runtime.Cleanup
	released   bool
}

// ownerRelease is the state needed to release a Frame's registrations once the
// Frame is unreachable. It must not reference the Frame.
type ownerRelease struct {
	tracker *refs.Tracker
	owner   refs.OwnerID
	logger  *zap.Logger
}

func releaseUnreachable(r ownerRelease) {
	if n := r.tracker.ReleaseOwner(r.owner); n > 0 {
		r.logger.Debug("released unreachable frame", zap.Uint64("owner", uint64(r.owner)), zap.Int("buffers", n))
	}
}

// New creates a Frame from labelled columns of equal length. Columns of the same
// Kind are packed into shared Blocks. The input buffers are copied.
func New(cols []Column, opts ...Option) (*Frame, error) {
	labels := make([]string, len(cols))
	bufs := make([]*buffer.Buffer, len(cols))
	for i, c := range cols {
		if c.Values == nil {
			return nil, errors.KeyError{Key: c.Name, Reason: "column has no values"}
		}
		labels[i], bufs[i] = c.Name, c.Values
	}
	g, err := block.FromColumns(labels, bufs)
	if err != nil {
		return nil, err
	}
	return newFrame(g, createOptionsWithDefaults(opts)), nil
}

// newFrame wraps a Group as a Frame, registering every buffer it references
func newFrame(g *block.Group, opts *options) *Frame {
	f := &Frame{
		group:      g,
		opts:       opts,
		owner:      opts.tracker.NewOwner(),
		registered: make(map[buffer.ID]struct{}),
	}
	f.syncRefs()
	f.cleanup = runtime.AddCleanup(f, releaseUnreachable, ownerRelease{
		tracker: opts.tracker,
		owner:   f.owner,
		logger:  opts.logger,
	})
	return f
}

// syncRefs brings the tracker's view of this Frame's buffers up to date with its Group
func (f *Frame) syncRefs() {
	if f.released {
		return
	}
	current := make(map[buffer.ID]struct{})
	for _, buf := range f.group.Buffers() {
		current[buf.ID()] = struct{}{}
		if _, ok := f.registered[buf.ID()]; !ok {
			f.opts.tracker.Register(buf, f.owner)
		}
	}
	for id := range f.registered {
		if _, ok := current[id]; !ok {
			f.opts.tracker.Unregister(id, f.owner)
		}
	}
	f.registered = current
}

// setGroup replaces the Group of this Frame and updates its registrations
func (f *Frame) setGroup(g *block.Group) {
	f.group = g
	f.syncRefs()
}

// Release unregisters this Frame from the storage it references, so that other
// Frames sharing that storage may write to it without copying. A released Frame
// must not be used again. Frames which are not released are unregistered once
// they become unreachable.
func (f *Frame) Release() {
	if f.released {
		return
	}
	f.cleanup.Stop()
	f.opts.tracker.ReleaseOwner(f.owner)
	f.registered = nil
	f.released = true
}

// Mode returns the sharing Mode of this Frame, as configured
func (f *Frame) Mode() colframe.Mode {
	return f.opts.mode
}

func (f *Frame) copyOnWrite() bool {
	return f.opts.mode.Resolve() == colframe.ModeCopyOnWrite
}

// Len returns the number of rows in this Frame
func (f *Frame) Len() int {
	return f.group.NumRows()
}

// NumColumns returns the number of columns in this Frame
func (f *Frame) NumColumns() int {
	return f.group.NumCols()
}

// NumBlocks returns the number of Blocks storing this Frame's columns
func (f *Frame) NumBlocks() int {
	return f.group.NumBlocks()
}

// Labels returns the column labels of this Frame, in position order
func (f *Frame) Labels() []string {
	return f.group.Labels()
}

// Index returns a copy of this Frame's ColumnIndex
func (f *Frame) Index() colframe.ColumnIndex {
	return f.group.Index()
}

// Kinds returns the Kind of each column, in position order
func (f *Frame) Kinds() []colframe.Kind {
	kinds := make([]colframe.Kind, f.NumColumns())
	for pos := range kinds {
		kinds[pos], _ = f.group.Kind(pos)
	}
	return kinds
}

// MemoryUsage returns the number of bytes each column's values occupy, in
// position order. Boxed values count as one pointer each.
func (f *Frame) MemoryUsage() []int {
	usage := make([]int, f.NumColumns())
	for pos, kind := range f.Kinds() {
		usage[pos] = f.Len() * kind.Size()
	}
	return usage
}

// Kind returns the Kind of the column carrying label
func (f *Frame) Kind(label string) (colframe.Kind, error) {
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return colframe.KindObject, err
	}
	return f.group.Kind(pos)
}

// HasColumn returns true iff at least one column carries label
func (f *Frame) HasColumn(label string) bool {
	_, err := f.group.Positions(label)
	return err == nil
}

// At returns the value at (row, col), or nil if it is null
func (f *Frame) At(row, col int) (interface{}, error) {
	return f.group.Get(row, col)
}

// Value returns the value at row of the column carrying label
func (f *Frame) Value(row int, label string) (interface{}, error) {
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return nil, err
	}
	return f.group.Get(row, pos)
}

// ColumnValues returns every value of the column carrying label, with nulls as nil
func (f *Frame) ColumnValues(label string) ([]interface{}, error) {
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return nil, err
	}
	buf, err := f.group.Column(pos)
	if err != nil {
		return nil, err
	}
	return buf.Values(), nil
}

// ColumnBuffer returns the buffer storing the column carrying label. The buffer
// may be shared and must only be read.
func (f *Frame) ColumnBuffer(label string) (*buffer.Buffer, error) {
	pos, err := uniquePosition(f.group, label)
	if err != nil {
		return nil, err
	}
	loc, err := f.group.Location(pos)
	if err != nil {
		return nil, err
	}
	return f.group.Block(loc.Block).Buffer(), nil
}

// SharesStorage returns true iff the columns carrying label in this Frame and in
// other are backed by the same buffer
func (f *Frame) SharesStorage(other *Frame, label string) (bool, error) {
	mine, err := f.ColumnBuffer(label)
	if err != nil {
		return false, err
	}
	theirs, err := other.ColumnBuffer(label)
	if err != nil {
		return false, err
	}
	return mine.SharesStorage(theirs), nil
}

// HasUniqueReference returns true iff no other live Frame references the
// storage of the column at pos
func (f *Frame) HasUniqueReference(pos int) (bool, error) {
	loc, err := f.group.Location(pos)
	if err != nil {
		return false, err
	}
	id := f.group.Block(loc.Block).Buffer().ID()
	return f.opts.tracker.HasUniqueOwner(id), nil
}

// VerifyIntegrity checks the structural invariants of this Frame's Blocks and
// that every buffer it references is registered
func (f *Frame) VerifyIntegrity() error {
	var result *multierror.Error
	if err := f.group.VerifyIntegrity(); err != nil {
		result = multierror.Append(result, err)
	}
	if !f.released {
		for _, buf := range f.group.Buffers() {
			if f.opts.tracker.Owners(buf.ID()) == 0 {
				result = multierror.Append(result, fmt.Errorf("buffer %s is not registered", buf.ID()))
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.IntegrityViolationError{Err: err}
	}
	return nil
}
