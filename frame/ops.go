package frame

import (
	"github.com/go-sif/colframe/buffer"
)

func (f *Frame) options() []Option {
	return []Option{
		WithMode(f.opts.mode),
		WithTracker(f.opts.tracker),
		WithLogger(f.opts.logger),
	}
}

// mapColumns builds a new Frame, with the same labels and options, from one
// buffer per column of this Frame
func (f *Frame) mapColumns(fn func(col *buffer.Buffer) (*buffer.Buffer, error)) (*Frame, error) {
	labels := f.Labels()
	cols := make([]Column, len(labels))
	for pos, label := range labels {
		col, err := f.group.Column(pos)
		if err != nil {
			return nil, err
		}
		out, err := fn(col)
		if err != nil {
			return nil, err
		}
		cols[pos] = Column{Name: label, Values: out}
	}
	return New(cols, f.options()...)
}

// Compare compares every value against a scalar, returning a Frame of bool
// columns. Nulls compare false, except under buffer.Ne.
func (f *Frame) Compare(op buffer.CompareOp, v interface{}) (*Frame, error) {
	return f.mapColumns(func(col *buffer.Buffer) (*buffer.Buffer, error) {
		mask, err := col.Compare(op, v)
		if err != nil {
			return nil, err
		}
		return buffer.Of(mask), nil
	})
}

// IsNA returns a Frame of bool columns which are true where values are null
func (f *Frame) IsNA() (*Frame, error) {
	return f.mapColumns(func(col *buffer.Buffer) (*buffer.Buffer, error) {
		return buffer.Of(col.IsNA()), nil
	})
}

// FillNA returns a copy of this Frame with every null replaced by v
func (f *Frame) FillNA(v interface{}) (*Frame, error) {
	return f.mapColumns(func(col *buffer.Buffer) (*buffer.Buffer, error) {
		return col.FillNA(v)
	})
}
