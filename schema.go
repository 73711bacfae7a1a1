package colframe

// ColumnIndex is a mapping from logical column labels and positions to
// physical Locations. Duplicate labels are permitted, and are disambiguated
// by position. Edits are pure metadata edits and never touch column data.
type ColumnIndex interface {
	Clone() ColumnIndex
	Equals(other ColumnIndex) error
	NumColumns() int
	NLevels() int
	HasColumn(label string) bool
	Label(pos int) (string, error)
	Labels() []string
	Positions(label string) ([]int, error)            // Positions returns every logical position carrying label
	Resolve(label string) ([]Location, error)         // Resolve returns the Locations of every column carrying label
	ResolvePosition(pos int) (Location, error)        // ResolvePosition returns the Location of the column at pos
	Insert(label string, pos int, loc Location) error // Insert adds a column at pos, shifting later columns right
	Remove(label string) error                        // Remove drops every column carrying label
	RemovePosition(pos int) error                     // RemovePosition drops the column at pos
	Rename(oldLabel string, newLabel string) error    // Rename relabels every column carrying oldLabel
	Relocate(pos int, loc Location) error             // Relocate points the column at pos to a new Location
	ForEachColumn(fn func(pos int, label string, loc Location) error) error
}
