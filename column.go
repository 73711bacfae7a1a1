package colframe

// Location describes the physical slot of a logical column: the index of the
// block storing it and the offset of the column within that block.
type Location struct {
	Block  int // Block is the index of the block within its group
	Offset int // Offset is the column offset within the block
}
