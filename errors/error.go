package errors

import (
	"fmt"
	"strings"

	"github.com/go-sif/colframe"
)

// TypeConflictError occurs when a value cannot be represented by the Kind of the
// storage it is written to, or when a set of values cannot be unified under a
// requested Kind
type TypeConflictError struct {
	Kind  colframe.Kind
	Value interface{}
}

// Error returns a textual representation of this TypeConflictError
func (e TypeConflictError) Error() string {
	return fmt.Sprintf("Value %v of type %T cannot be stored as %s", e.Value, e.Value, e.Kind)
}

// IndexOutOfBoundsError occurs when a position lies outside of a buffer, block or table
type IndexOutOfBoundsError struct {
	Index  int
	Length int
}

// Error returns a textual representation of this IndexOutOfBoundsError
func (e IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("Index %d is out of bounds for length %d", e.Index, e.Length)
}

// ColumnNotFoundError occurs when a column label has no mapping in a ColumnIndex
type ColumnNotFoundError struct{ Label string }

// Error returns a textual representation of this ColumnNotFoundError
func (e ColumnNotFoundError) Error() string {
	return fmt.Sprintf("Column %q does not exist", e.Label)
}

// IntegrityViolationError occurs when an internal consistency check fails. It
// indicates a defect rather than bad input.
type IntegrityViolationError struct{ Err error }

// Error returns a textual representation of this IntegrityViolationError
func (e IntegrityViolationError) Error() string {
	return fmt.Sprintf("Integrity violation: %v", e.Err)
}

// Unwrap returns the underlying violation(s)
func (e IntegrityViolationError) Unwrap() error { return e.Err }

// KeyError occurs when a selector used to construct a view, or to address a
// column, is invalid
type KeyError struct {
	Key    interface{}
	Reason string
	Err    error
}

// Error returns a textual representation of this KeyError
func (e KeyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invalid key %v", e.Key)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the cause of this KeyError, if any
func (e KeyError) Unwrap() error { return e.Err }

// LengthMismatchError occurs when a column's length does not match the number of
// rows of the table it is added to
type LengthMismatchError struct {
	Expected int
	Actual   int
}

// Error returns a textual representation of this LengthMismatchError
func (e LengthMismatchError) Error() string {
	return fmt.Sprintf("Length mismatch: expected %d values, got %d", e.Expected, e.Actual)
}
