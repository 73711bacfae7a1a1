package schema

import (
	"fmt"

	"github.com/go-sif/colframe"
	errors "github.com/go-sif/colframe/errors"
)

// column pairs a logical label with the physical slot storing it
type column struct {
	label string
	loc   colframe.Location
}

// index is an ordered mapping from column labels to Locations. Labels may
// repeat, so lookups by label return every match in position order.
type index struct {
	cols   []column
	byName map[string][]int // positions per label, rebuilt after structural edits
}

// CreateIndex is a factory for ColumnIndexes
func CreateIndex() colframe.ColumnIndex {
	return &index{
		cols:   make([]column, 0),
		byName: make(map[string][]int),
	}
}

// Rebuild creates a ColumnIndex from labels and their Locations, in position order
func Rebuild(labels []string, locs []colframe.Location) (colframe.ColumnIndex, error) {
	if len(labels) != len(locs) {
		return nil, errors.LengthMismatchError{Expected: len(labels), Actual: len(locs)}
	}
	idx := &index{cols: make([]column, len(labels))}
	for i, label := range labels {
		idx.cols[i] = column{label: label, loc: locs[i]}
	}
	idx.reindex()
	return idx, nil
}

func (s *index) reindex() {
	s.byName = make(map[string][]int, len(s.cols))
	for pos, c := range s.cols {
		s.byName[c.label] = append(s.byName[c.label], pos)
	}
}

func (s *index) checkPosition(pos int) error {
	if pos < 0 || pos >= len(s.cols) {
		return errors.IndexOutOfBoundsError{Index: pos, Length: len(s.cols)}
	}
	return nil
}

// Clone returns a copy of this ColumnIndex
func (s *index) Clone() colframe.ColumnIndex {
	cols := make([]column, len(s.cols))
	copy(cols, s.cols)
	clone := &index{cols: cols}
	clone.reindex()
	return clone
}

// Equals returns nil iff this and another ColumnIndex have the same labels,
// in the same order, at the same Locations
func (s *index) Equals(other colframe.ColumnIndex) error {
	if s.NumColumns() != other.NumColumns() {
		return fmt.Errorf("Column indexes have unequal numbers of columns")
	}
	return s.ForEachColumn(func(pos int, label string, loc colframe.Location) error {
		otherLabel, err := other.Label(pos)
		if err != nil {
			return err
		}
		if label != otherLabel {
			return fmt.Errorf("Column %d labels do not match: %q != %q", pos, label, otherLabel)
		}
		otherLoc, err := other.ResolvePosition(pos)
		if err != nil {
			return err
		}
		if loc != otherLoc {
			return fmt.Errorf("Column %d locations do not match", pos)
		}
		return nil
	})
}

// NumColumns returns the number of columns in this ColumnIndex
func (s *index) NumColumns() int {
	return len(s.cols)
}

// NLevels returns the number of label levels. Labels are flat.
func (s *index) NLevels() int {
	return 1
}

// HasColumn returns true iff at least one column carries label
func (s *index) HasColumn(label string) bool {
	return len(s.byName[label]) > 0
}

// Label returns the label of the column at pos
func (s *index) Label(pos int) (string, error) {
	if err := s.checkPosition(pos); err != nil {
		return "", err
	}
	return s.cols[pos].label, nil
}

// Labels returns the labels in this ColumnIndex, in position order
func (s *index) Labels() []string {
	labels := make([]string, len(s.cols))
	for i, c := range s.cols {
		labels[i] = c.label
	}
	return labels
}

// Positions returns every position carrying label, in ascending order
func (s *index) Positions(label string) ([]int, error) {
	positions, ok := s.byName[label]
	if !ok || len(positions) == 0 {
		return nil, errors.ColumnNotFoundError{Label: label}
	}
	out := make([]int, len(positions))
	copy(out, positions)
	return out, nil
}

// Resolve returns the Locations of every column carrying label, in position order
func (s *index) Resolve(label string) ([]colframe.Location, error) {
	positions, err := s.Positions(label)
	if err != nil {
		return nil, err
	}
	locs := make([]colframe.Location, len(positions))
	for i, pos := range positions {
		locs[i] = s.cols[pos].loc
	}
	return locs, nil
}

// ResolvePosition returns the Location of the column at pos
func (s *index) ResolvePosition(pos int) (colframe.Location, error) {
	if err := s.checkPosition(pos); err != nil {
		return colframe.Location{}, err
	}
	return s.cols[pos].loc, nil
}

// Insert defines a new column at pos, shifting later columns right. A pos equal
// to NumColumns appends.
func (s *index) Insert(label string, pos int, loc colframe.Location) error {
	if pos < 0 || pos > len(s.cols) {
		return errors.IndexOutOfBoundsError{Index: pos, Length: len(s.cols) + 1}
	}
	s.cols = append(s.cols, column{})
	copy(s.cols[pos+1:], s.cols[pos:])
	s.cols[pos] = column{label: label, loc: loc}
	s.reindex()
	return nil
}

// Remove drops every column carrying label
func (s *index) Remove(label string) error {
	if !s.HasColumn(label) {
		return errors.ColumnNotFoundError{Label: label}
	}
	kept := s.cols[:0]
	for _, c := range s.cols {
		if c.label != label {
			kept = append(kept, c)
		}
	}
	s.cols = kept
	s.reindex()
	return nil
}

// RemovePosition drops the column at pos, shifting later columns left
func (s *index) RemovePosition(pos int) error {
	if err := s.checkPosition(pos); err != nil {
		return err
	}
	s.cols = append(s.cols[:pos], s.cols[pos+1:]...)
	s.reindex()
	return nil
}

// Rename relabels every column carrying oldLabel
func (s *index) Rename(oldLabel string, newLabel string) error {
	positions, err := s.Positions(oldLabel)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		s.cols[pos].label = newLabel
	}
	s.reindex()
	return nil
}

// Relocate points the column at pos to a new Location
func (s *index) Relocate(pos int, loc colframe.Location) error {
	if err := s.checkPosition(pos); err != nil {
		return err
	}
	s.cols[pos].loc = loc
	return nil
}

// ForEachColumn iterates over the columns in this ColumnIndex, in position order
func (s *index) ForEachColumn(fn func(pos int, label string, loc colframe.Location) error) error {
	for pos, c := range s.cols {
		if err := fn(pos, c.label, c.loc); err != nil {
			return err
		}
	}
	return nil
}
