package frame

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/go-sif/colframe/buffer"
)

// WriteTab writes this Frame as an aligned table: a header of labels, a row of
// Kinds, then one line per row
func (f *Frame) WriteTab(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	labels := f.Labels()
	kinds := f.Kinds()
	header := make([]string, len(labels))
	kindRow := make([]string, len(kinds))
	for i := range labels {
		header[i] = labels[i]
		kindRow[i] = kinds[i].String()
	}
	fmt.Fprintf(tw, "\t%s\n", strings.Join(header, "\t"))
	fmt.Fprintf(tw, "\t%s\n", strings.Join(kindRow, "\t"))
	cells := make([]string, len(labels))
	for row := 0; row < f.Len(); row++ {
		for pos := range labels {
			v, err := f.At(row, pos)
			if err != nil {
				return err
			}
			cells[pos] = kinds[pos].ToString(v)
		}
		fmt.Fprintf(tw, "%d\t%s\n", row, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// String returns a tabular representation of this Frame
func (f *Frame) String() string {
	var b strings.Builder
	if err := f.WriteTab(&b); err != nil {
		return fmt.Sprintf("Frame(error: %v)", err)
	}
	return b.String()
}

// Equal returns true iff this Frame and other have the same labels, Kinds and
// values. Physical layout and sharing are ignored.
func (f *Frame) Equal(other *Frame) bool {
	if f.Len() != other.Len() || !reflect.DeepEqual(f.Labels(), other.Labels()) {
		return false
	}
	for pos := 0; pos < f.NumColumns(); pos++ {
		mine, err := f.group.Column(pos)
		if err != nil {
			return false
		}
		theirs, err := other.group.Column(pos)
		if err != nil {
			return false
		}
		if !buffer.Equal(mine, theirs) {
			return false
		}
	}
	return true
}

// HashRows returns an xxhash fingerprint of each row. Rows with equal values in
// every column have equal fingerprints.
func (f *Frame) HashRows(seed uint64) ([]uint64, error) {
	hashes := make([]uint64, f.Len())
	for i := range hashes {
		hashes[i] = seed
	}
	for pos := 0; pos < f.NumColumns(); pos++ {
		col, err := f.group.Column(pos)
		if err != nil {
			return nil, err
		}
		for row := range hashes {
			hashes[row] = col.Hash(row, hashes[row])
		}
	}
	return hashes, nil
}
