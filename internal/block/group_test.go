package block

import (
	goerrors "errors"
	"testing"

	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/buffer"
	errors "github.com/go-sif/colframe/errors"
	"github.com/stretchr/testify/require"
)

func createTestGroup(t *testing.T) *Group {
	g, err := FromColumns(
		[]string{"a", "b", "c"},
		[]*buffer.Buffer{
			buffer.Of([]int64{1, 2, 3}),
			buffer.Of([]int64{4, 5, 6}),
			buffer.Of([]float64{0.1, 0.2, 0.3}),
		},
	)
	require.Nil(t, err)
	require.Nil(t, g.VerifyIntegrity())
	return g
}

func column(t *testing.T, g *Group, pos int) []interface{} {
	buf, err := g.Column(pos)
	require.Nil(t, err)
	return buf.Values()
}

// sameContents compares logical labels and values, ignoring physical layout
func sameContents(t *testing.T, expected, actual *Group) {
	require.Equal(t, expected.Labels(), actual.Labels())
	require.Equal(t, expected.NumRows(), actual.NumRows())
	for pos := 0; pos < expected.NumCols(); pos++ {
		require.Equal(t, column(t, expected, pos), column(t, actual, pos))
	}
}

func TestFromColumnsConsolidates(t *testing.T) {
	g := createTestGroup(t)
	require.Equal(t, 2, g.NumBlocks())
	require.Equal(t, 3, g.NumRows())
	require.True(t, g.IsConsolidated())
	loc, err := g.Location(1)
	require.Nil(t, err)
	require.Equal(t, colframe.Location{Block: 0, Offset: 1}, loc)
	kind, err := g.Kind(2)
	require.Nil(t, err)
	require.Equal(t, colframe.KindFloat64, kind)
	v, err := g.Get(2, 1)
	require.Nil(t, err)
	require.Equal(t, int64(6), v)
}

func TestFromColumnsCopiesInput(t *testing.T) {
	buf := buffer.Of([]int64{1, 2})
	g, err := FromColumns([]string{"a"}, []*buffer.Buffer{buf})
	require.Nil(t, err)
	require.False(t, g.Block(0).Buffer().SharesStorage(buf))
}

func TestFromColumnsLengthMismatch(t *testing.T) {
	_, err := FromColumns([]string{"a", "b"}, []*buffer.Buffer{buffer.Of([]int64{1}), buffer.Of([]int64{1, 2})})
	var lm errors.LengthMismatchError
	require.True(t, goerrors.As(err, &lm))
	_, err = FromColumns([]string{"a"}, nil)
	require.NotNil(t, err)
}

func TestExternalBlocksStayApart(t *testing.T) {
	ext := buffer.Extension(buffer.Of([]int64{7, 8, 9}))
	g := createTestGroup(t)
	g, err := g.WithColumnAdded("d", ext, 3)
	require.Nil(t, err)
	g, err = g.WithColumnAdded("e", buffer.Extension(buffer.Of([]int64{1, 1, 1})), 4)
	require.Nil(t, err)
	require.True(t, g.IsConsolidated())
	c, merged, err := g.Consolidate()
	require.Nil(t, err)
	require.False(t, merged)
	require.True(t, c == g)
}

func TestConsolidateIdempotent(t *testing.T) {
	g := createTestGroup(t)
	g, err := g.WithColumnAdded("d", buffer.Of([]int64{7, 8, 9}), 1)
	require.Nil(t, err)
	g, err = g.WithColumnAdded("e", buffer.Of([]float64{1, 2, 3}), 0)
	require.Nil(t, err)
	require.Equal(t, 4, g.NumBlocks())
	require.False(t, g.IsConsolidated())
	require.Nil(t, g.VerifyIntegrity())

	once, merged, err := g.Consolidate()
	require.Nil(t, err)
	require.True(t, merged)
	require.Equal(t, 2, once.NumBlocks())
	require.Nil(t, once.VerifyIntegrity())
	sameContents(t, g, once)

	twice, merged, err := once.Consolidate()
	require.Nil(t, err)
	require.False(t, merged)
	require.True(t, twice == once)
	require.Nil(t, once.Index().Equals(twice.Index()))
}

func TestInsertThenDropRoundTrip(t *testing.T) {
	g := createTestGroup(t)
	added, err := g.WithColumnAdded("x", buffer.Of([]int64{9, 9, 9}), 1)
	require.Nil(t, err)
	require.Equal(t, []string{"a", "x", "b", "c"}, added.Labels())
	require.Nil(t, added.VerifyIntegrity())
	dropped, err := added.WithColumnDropped("x")
	require.Nil(t, err)
	require.Nil(t, dropped.VerifyIntegrity())
	sameContents(t, g, dropped)
}

func TestWithColumnAddedErrors(t *testing.T) {
	g := createTestGroup(t)
	_, err := g.WithColumnAdded("x", buffer.Of([]int64{1}), 0)
	var lm errors.LengthMismatchError
	require.True(t, goerrors.As(err, &lm))
	_, err = g.WithColumnAdded("x", buffer.Of([]int64{1, 2, 3}), 5)
	var oob errors.IndexOutOfBoundsError
	require.True(t, goerrors.As(err, &oob))
	_, err = g.WithColumnAdded("x", g.Block(1).Buffer(), 0)
	var iv errors.IntegrityViolationError
	require.True(t, goerrors.As(err, &iv))

	empty := Empty(0)
	g, err = empty.WithColumnAdded("x", buffer.Of([]int64{1, 2}), 0)
	require.Nil(t, err)
	require.Equal(t, 2, g.NumRows())
}

func TestDropKeepsBuffers(t *testing.T) {
	g := createTestGroup(t)
	dropped, err := g.WithPositionsDropped(0)
	require.Nil(t, err)
	require.Equal(t, []string{"b", "c"}, dropped.Labels())
	require.True(t, dropped.Block(0).Buffer().SharesStorage(g.Block(0).Buffer()))
	require.Equal(t, []interface{}{int64(4), int64(5), int64(6)}, column(t, dropped, 0))
	require.Nil(t, dropped.VerifyIntegrity())

	dropped, err = g.WithPositionsDropped(0, 1)
	require.Nil(t, err)
	require.Equal(t, 1, dropped.NumBlocks())
	_, err = g.WithPositionsDropped(3)
	require.NotNil(t, err)
	_, err = g.WithColumnDropped("zzz")
	var cnf errors.ColumnNotFoundError
	require.True(t, goerrors.As(err, &cnf))
}

func TestRenameAndReplace(t *testing.T) {
	g := createTestGroup(t)
	renamed, err := g.WithColumnRenamed("a", "z")
	require.Nil(t, err)
	require.Equal(t, []string{"z", "b", "c"}, renamed.Labels())
	require.Equal(t, []string{"a", "b", "c"}, g.Labels())

	replaced, err := g.WithColumnReplaced(0, buffer.Of([]float64{7, 8, 9}))
	require.Nil(t, err)
	require.Equal(t, []string{"a", "b", "c"}, replaced.Labels())
	kind, err := replaced.Kind(0)
	require.Nil(t, err)
	require.Equal(t, colframe.KindFloat64, kind)
	require.Nil(t, replaced.VerifyIntegrity())
	_, err = g.WithColumnReplaced(0, buffer.Of([]float64{1}))
	require.NotNil(t, err)
}

func TestWithBlockReplaced(t *testing.T) {
	g := createTestGroup(t)
	compact := g.Block(0).Compact()
	replaced, err := g.WithBlockReplaced(0, compact)
	require.Nil(t, err)
	require.True(t, replaced.Block(0) == compact)
	require.Nil(t, replaced.VerifyIntegrity())
	_, err = g.WithBlockReplaced(0, g.Block(1))
	require.NotNil(t, err)
	_, err = g.WithBlockReplaced(5, compact)
	require.NotNil(t, err)
}

func TestSliceRows(t *testing.T) {
	g := createTestGroup(t)
	sliced, err := g.SliceRows(1, 3)
	require.Nil(t, err)
	require.Equal(t, 2, sliced.NumRows())
	require.Equal(t, []interface{}{int64(2), int64(3)}, column(t, sliced, 0))
	for i := range sliced.Blocks() {
		require.True(t, sliced.Block(i).Buffer().SharesStorage(g.Block(i).Buffer()))
	}
	require.Nil(t, sliced.VerifyIntegrity())
	_, err = g.SliceRows(2, 4)
	require.NotNil(t, err)
}

func TestSelectColumns(t *testing.T) {
	g := createTestGroup(t)
	sel, err := g.SelectColumns([]int{2, 0})
	require.Nil(t, err)
	require.Equal(t, []string{"c", "a"}, sel.Labels())
	require.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, column(t, sel, 1))
	require.Nil(t, sel.VerifyIntegrity())
	require.Equal(t, 2, sel.NumBlocks())

	dup, err := g.SelectColumns([]int{0, 0})
	require.Nil(t, err)
	require.Equal(t, 2, dup.NumBlocks())
	require.False(t, dup.Block(1).Buffer().SharesStorage(g.Block(0).Buffer()))
	require.Nil(t, dup.VerifyIntegrity())

	_, err = g.SelectColumns([]int{3})
	require.NotNil(t, err)
}

func TestTakeRowsAndCopy(t *testing.T) {
	g := createTestGroup(t)
	taken := g.TakeRows([]int{2, 0})
	require.Equal(t, []interface{}{0.3, 0.1}, column(t, taken, 2))
	require.Nil(t, taken.VerifyIntegrity())
	for _, buf := range taken.Buffers() {
		for _, orig := range g.Buffers() {
			require.False(t, buf.SharesStorage(orig))
		}
	}
	copied := g.Copy()
	sameContents(t, g, copied)
	require.False(t, copied.Block(0).Buffer().SharesStorage(g.Block(0).Buffer()))
}

func TestVerifyIntegrityReportsViolations(t *testing.T) {
	g := createTestGroup(t)
	broken := &Group{blocks: g.Blocks(), nrows: 5, index: g.index}
	err := broken.VerifyIntegrity()
	var iv errors.IntegrityViolationError
	require.True(t, goerrors.As(err, &iv))

	shared := &Group{blocks: []*Block{g.Block(0), g.Block(0).Select([]int{0}, []int{2})}, nrows: 3, index: g.index}
	require.NotNil(t, shared.VerifyIntegrity())
}
