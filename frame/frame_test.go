package frame

import (
	goerrors "errors"
	"math"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/buffer"
	errors "github.com/go-sif/colframe/errors"
	"github.com/stretchr/testify/require"
)

func requireKeyError(t *testing.T, err error) errors.KeyError {
	require.NotNil(t, err)
	var ke errors.KeyError
	require.True(t, goerrors.As(err, &ke), err.Error())
	return ke
}

func TestNew(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	require.Equal(t, 3, df.Len())
	require.Equal(t, 3, df.NumColumns())
	require.Equal(t, 2, df.NumBlocks())
	require.Equal(t, []string{"a", "b", "c"}, df.Labels())
	require.Equal(t, []colframe.Kind{colframe.KindInt64, colframe.KindInt64, colframe.KindFloat64}, df.Kinds())
	require.Nil(t, df.VerifyIntegrity())

	v, err := df.At(1, 2)
	require.Nil(t, err)
	require.Equal(t, 0.2, v)
	v, err = df.Value(2, "b")
	require.Nil(t, err)
	require.Equal(t, int64(6), v)
	require.True(t, df.HasColumn("c"))
	require.False(t, df.HasColumn("d"))
}

func TestNewCopiesInput(t *testing.T) {
	input := buffer.Of([]int64{1, 2, 3})
	df, err := New([]Column{{Name: "a", Values: input}}, testOptions(colframe.ModeLegacy)...)
	require.Nil(t, err)
	require.Nil(t, df.Set(0, "a", 100))
	require.Equal(t, int64(1), input.At(0))
	col, err := df.ColumnBuffer("a")
	require.Nil(t, err)
	require.False(t, col.SharesStorage(input))
}

func TestNewErrors(t *testing.T) {
	_, err := New([]Column{{Name: "a"}}, testOptions(colframe.ModeCopyOnWrite)...)
	ke := requireKeyError(t, err)
	require.Equal(t, "a", ke.Key)

	_, err = New([]Column{
		{Name: "a", Values: buffer.Of([]int64{1, 2, 3})},
		{Name: "b", Values: buffer.Of([]int64{1, 2})},
	}, testOptions(colframe.ModeCopyOnWrite)...)
	var lm errors.LengthMismatchError
	require.True(t, goerrors.As(err, &lm))
}

func TestViewsShareStorageImmediately(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			df := createTestFrame(t, mode)
			view, err := df.Slice(0, 2)
			require.Nil(t, err)
			mine, err := df.ColumnBuffer("c")
			require.Nil(t, err)
			theirs, err := view.ColumnBuffer("c")
			require.Nil(t, err)
			require.Equal(t, mine.ID(), theirs.ID())

			unique, err := df.HasUniqueReference(2)
			require.Nil(t, err)
			require.False(t, unique)
		})
	}
}

func TestParentWriteNotVisibleInView(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	view, err := df.Slice(1, 3)
	require.Nil(t, err)
	require.Nil(t, df.Set(1, "b", 50))
	stats := df.opts.tracker.Stats()
	require.Equal(t, int64(1), stats.Forks)
	require.Equal(t, int64(6), stats.ForkedElements)
	require.Equal(t, int64(48), stats.ForkedBytes)
	require.Equal(t, ints(5, 6), values(t, view, "b"))
	require.Equal(t, ints(4, 50, 6), values(t, df, "b"))
	// the fork takes both int columns, and the view keeps the original
	require.False(t, shares(t, df, view, "a"))
	require.True(t, shares(t, df, view, "c"))
	require.Nil(t, df.VerifyIntegrity())
	require.Nil(t, view.VerifyIntegrity())
}

func TestUniqueOwnerWritesInPlace(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	before, err := df.ColumnBuffer("a")
	require.Nil(t, err)
	require.Nil(t, df.Set(0, "a", 10))
	after, err := df.ColumnBuffer("a")
	require.Nil(t, err)
	require.True(t, before.SharesStorage(after))
	stats := df.opts.tracker.Stats()
	require.Equal(t, int64(0), stats.Forks)
	require.Equal(t, int64(1), stats.InPlace)
}

func TestMemoryUsage(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	require.Equal(t, []int{24, 24, 24}, df.MemoryUsage())

	df = createDtypeFrame(t, colframe.ModeCopyOnWrite, colframe.KindInt16)
	require.Equal(t, []int{24, 24, 6}, df.MemoryUsage())
	view, err := df.Slice(0, 1)
	require.Nil(t, err)
	require.Equal(t, []int{8, 8, 2}, view.MemoryUsage())
}

func TestSteppedSliceCopies(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			df := createFourRowFrame(t, mode)
			view, err := df.Select(RowSlice{Start: 0, Stop: End, Step: 2}, AllColumns{})
			require.Nil(t, err)
			require.Equal(t, ints(1, 3), values(t, view, "a"))
			require.False(t, shares(t, df, view, "a"))

			reversed, err := df.Select(RowSlice{Start: -1, Stop: -End, Step: -1}, AllColumns{})
			require.Nil(t, err)
			require.Equal(t, ints(4, 3, 2, 1), values(t, reversed, "a"))
		})
	}
}

func TestNegativeSliceBounds(t *testing.T) {
	df := createFourRowFrame(t, colframe.ModeCopyOnWrite)
	view, err := df.Slice(-3, -1)
	require.Nil(t, err)
	require.Equal(t, ints(2, 3), values(t, view, "a"))

	empty, err := df.Slice(3, 1)
	require.Nil(t, err)
	require.Equal(t, 0, empty.Len())
	require.Equal(t, 3, empty.NumColumns())
}

func TestSelectErrors(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	tracked := df.opts.tracker.Len()

	_, err := df.Select(RowMask{true, false}, AllColumns{})
	requireKeyError(t, err)

	_, err = df.Select(AllRows{}, ColumnMask{true})
	requireKeyError(t, err)

	_, err = df.Select(RowPositions{0, 3}, AllColumns{})
	var oob errors.IndexOutOfBoundsError
	require.True(t, goerrors.As(err, &oob))
	require.Equal(t, 3, oob.Index)

	_, err = df.Select(AllRows{}, ColumnPositions{-4})
	require.True(t, goerrors.As(err, &oob))

	_, err = df.Select(RowSlice{Start: 0, Stop: 1}, ColumnLabels{"a", "missing"})
	ke := requireKeyError(t, err)
	require.Equal(t, "missing", ke.Key)
	var cnf errors.ColumnNotFoundError
	require.True(t, goerrors.As(err, &cnf))

	_, err = df.Select(AllRows{}, ColumnSpan{First: "c", Last: "missing"})
	requireKeyError(t, err)

	// failed selections register nothing
	require.Equal(t, tracked, df.opts.tracker.Len())
	unique, err := df.HasUniqueReference(0)
	require.Nil(t, err)
	require.True(t, unique)
}

func TestNegativePositions(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	view, err := df.Select(RowPositions{-1, 0}, ColumnPositions{-1})
	require.Nil(t, err)
	require.Equal(t, []string{"c"}, view.Labels())
	require.Equal(t, floats(0.3, 0.1), values(t, view, "c"))

	s, err := df.ColumnAt(-2)
	require.Nil(t, err)
	require.Equal(t, "b", s.Name())
}

func TestDuplicateLabels(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	require.Nil(t, df.Insert(3, "a", buffer.Of([]float64{7, 8, 9})))
	require.Equal(t, []string{"a", "b", "c", "a"}, df.Labels())

	_, err := df.Column("a")
	requireKeyError(t, err)
	_, err = df.Value(0, "a")
	requireKeyError(t, err)

	both, err := df.Columns("a")
	require.Nil(t, err)
	require.Equal(t, []string{"a", "a"}, both.Labels())
	require.Equal(t, []colframe.Kind{colframe.KindInt64, colframe.KindFloat64}, both.Kinds())

	// selecting the same column twice yields two independent columns
	twice, err := df.Select(AllRows{}, ColumnPositions{1, 1})
	require.Nil(t, err)
	require.Nil(t, twice.VerifyIntegrity())
	require.Nil(t, twice.SetAt(0, 0, 40))
	v, err := twice.At(0, 1)
	require.Nil(t, err)
	require.Equal(t, int64(4), v)

	require.Nil(t, df.Delete("a"))
	require.Equal(t, []string{"b", "c"}, df.Labels())
	require.Nil(t, df.VerifyIntegrity())
}

func TestInsertThenDeleteRoundTrip(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			df := createTestFrame(t, mode)
			orig := df.Copy(true)
			require.Nil(t, df.Insert(1, "x", buffer.Objects("p", "q", "r")))
			require.Equal(t, []string{"a", "x", "b", "c"}, df.Labels())
			require.Nil(t, df.VerifyIntegrity())
			require.Nil(t, df.Delete("x"))
			require.True(t, df.Equal(orig))
			require.Nil(t, df.VerifyIntegrity())
		})
	}
}

func TestInsertErrors(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	err := df.Insert(0, "x", buffer.Of([]int64{1}))
	var lm errors.LengthMismatchError
	require.True(t, goerrors.As(err, &lm))

	err = df.Insert(5, "x", buffer.Of([]int64{1, 2, 3}))
	var oob errors.IndexOutOfBoundsError
	require.True(t, goerrors.As(err, &oob))

	requireKeyError(t, df.Delete("missing"))
	requireKeyError(t, df.Rename("missing", "y"))
	require.Equal(t, []string{"a", "b", "c"}, df.Labels())
}

func TestConsolidate(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	require.Nil(t, df.SetColumn("d", buffer.Of([]int64{7, 8, 9})))
	require.Nil(t, df.SetColumn("e", buffer.Of([]float64{1, 2, 3})))
	require.Equal(t, 4, df.NumBlocks())
	orig := df.Copy(true)

	require.Nil(t, df.Consolidate())
	require.Equal(t, 2, df.NumBlocks())
	require.True(t, df.Equal(orig))
	require.Nil(t, df.VerifyIntegrity())

	require.Nil(t, df.Consolidate())
	require.Equal(t, 2, df.NumBlocks())
	require.True(t, df.Equal(orig))
}

func TestConsolidateLeavesViewsAlone(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	require.Nil(t, df.SetColumn("d", buffer.Of([]int64{7, 8, 9})))
	view, err := df.Slice(0, 2)
	require.Nil(t, err)

	require.Nil(t, df.Consolidate())
	require.Nil(t, df.Set(0, "d", 70))
	require.Equal(t, ints(7, 8), values(t, view, "d"))
	require.Nil(t, view.VerifyIntegrity())
}

func TestRenameAndCast(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	view, err := df.Slice(0, End)
	require.Nil(t, err)

	require.Nil(t, df.Rename("a", "z"))
	require.Equal(t, []string{"z", "b", "c"}, df.Labels())
	require.Equal(t, []string{"a", "b", "c"}, view.Labels())

	require.Nil(t, df.Cast("b", colframe.KindFloat64))
	kind, err := df.Kind("b")
	require.Nil(t, err)
	require.Equal(t, colframe.KindFloat64, kind)
	require.Equal(t, floats(4, 5, 6), values(t, df, "b"))
	viewKind, err := view.Kind("b")
	require.Nil(t, err)
	require.Equal(t, colframe.KindInt64, viewKind)
	require.Nil(t, df.VerifyIntegrity())
}

func TestSetUpcastsColumn(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			df := createTestFrame(t, mode)
			require.Nil(t, df.Set(0, "a", 1.5))
			kind, err := df.Kind("a")
			require.Nil(t, err)
			require.Equal(t, colframe.KindFloat64, kind)
			require.Equal(t, floats(1.5, 2, 3), values(t, df, "a"))
			// b is untouched
			bKind, err := df.Kind("b")
			require.Nil(t, err)
			require.Equal(t, colframe.KindInt64, bKind)
			require.Nil(t, df.VerifyIntegrity())
		})
	}
}

func TestSetOutOfFloat32RangeUpcasts(t *testing.T) {
	df, err := New([]Column{{Name: "f", Values: buffer.Of([]float32{1, 2})}}, testOptions(colframe.ModeCopyOnWrite)...)
	require.Nil(t, err)
	require.Nil(t, df.Set(0, "f", 1e300))
	kind, err := df.Kind("f")
	require.Nil(t, err)
	require.Equal(t, colframe.KindFloat64, kind)
	require.Equal(t, floats(1e300, 2), values(t, df, "f"))

	require.NotNil(t, df.Cast("f", colframe.KindFloat32))

	df, err = New([]Column{{Name: "f", Values: buffer.Of([]float32{1, 2})}}, testOptions(colframe.ModeCopyOnWrite)...)
	require.Nil(t, err)
	require.Nil(t, df.Set(0, "f", 0.5))
	kind, err = df.Kind("f")
	require.Nil(t, err)
	require.Equal(t, colframe.KindFloat32, kind)
}

func TestSetNull(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	require.Nil(t, df.Set(1, "a", nil))
	require.Nil(t, df.Set(1, "c", nil))
	require.Equal(t, []interface{}{int64(1), nil, int64(3)}, values(t, df, "a"))

	na, err := df.IsNA()
	require.Nil(t, err)
	require.Equal(t, []interface{}{false, true, false}, values(t, na, "a"))
	require.Equal(t, []interface{}{false, false, false}, values(t, na, "b"))
	require.Equal(t, []interface{}{false, true, false}, values(t, na, "c"))

	filled, err := df.FillNA(0)
	require.Nil(t, err)
	require.Equal(t, ints(1, 0, 3), values(t, filled, "a"))
	require.Equal(t, floats(0.1, 0, 0.3), values(t, filled, "c"))
}

func TestSetErrors(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	var oob errors.IndexOutOfBoundsError
	require.True(t, goerrors.As(df.Set(3, "a", 1), &oob))
	require.True(t, goerrors.As(df.SetAt(0, 3, 1), &oob))
	requireKeyError(t, df.Set(0, "missing", 1))

	err := df.SetRows(RowSlice{Start: 0, Stop: 2}, ColumnLabels{"a"}, buffer.Of([]int64{1, 2, 3}))
	var lm errors.LengthMismatchError
	require.True(t, goerrors.As(err, &lm))

	mask, err := df.Compare(buffer.Gt, 1)
	require.Nil(t, err)
	small, err := mask.Slice(0, 1)
	require.Nil(t, err)
	requireKeyError(t, df.SetWhere(small, 0))
}

func TestCompare(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	mask, err := df.Compare(buffer.Ge, 3)
	require.Nil(t, err)
	require.Equal(t, []colframe.Kind{colframe.KindBool, colframe.KindBool, colframe.KindBool}, mask.Kinds())
	require.Equal(t, []interface{}{false, false, true}, values(t, mask, "a"))
	require.Equal(t, []interface{}{true, true, true}, values(t, mask, "b"))
	require.Equal(t, []interface{}{false, false, false}, values(t, mask, "c"))
}

func TestModeDefaultFollowsProcessDefault(t *testing.T) {
	previous := colframe.SetDefaultMode(colframe.ModeLegacy)
	defer colframe.SetDefaultMode(previous)

	df := createTestFrame(t, colframe.ModeDefault)
	require.Equal(t, colframe.ModeDefault, df.Mode())
	view, err := df.Slice(0, 2)
	require.Nil(t, err)
	require.Nil(t, view.Set(0, "a", 100))
	require.Equal(t, ints(100, 2, 3), values(t, df, "a"))

	colframe.SetDefaultMode(colframe.ModeCopyOnWrite)
	require.Nil(t, view.Set(0, "a", 200))
	require.Equal(t, ints(100, 2, 3), values(t, df, "a"))
	require.Equal(t, ints(200, 2), values(t, view, "a"))
}

func TestRelease(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	view, err := df.Slice(0, 2)
	require.Nil(t, err)
	unique, err := df.HasUniqueReference(0)
	require.Nil(t, err)
	require.False(t, unique)

	view.Release()
	view.Release()
	unique, err = df.HasUniqueReference(0)
	require.Nil(t, err)
	require.True(t, unique)

	before, err := df.ColumnBuffer("a")
	require.Nil(t, err)
	require.Nil(t, df.Set(0, "a", 100))
	after, err := df.ColumnBuffer("a")
	require.Nil(t, err)
	require.True(t, before.SharesStorage(after))
}

func TestUnreachableViewsAreReleased(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	func() {
		view, err := df.Slice(0, 2)
		require.Nil(t, err)
		require.Equal(t, 2, view.Len())
	}()
	require.Eventually(t, func() bool {
		runtime.GC()
		unique, err := df.HasUniqueReference(0)
		return err == nil && unique
	}, 5*time.Second, 10*time.Millisecond)
}

func TestVerifyIntegrityDetectsUnregisteredBuffer(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	view, err := df.Slice(0, 2)
	require.Nil(t, err)
	df.Release()
	// the view is still registered, the released frame reports nothing
	require.Nil(t, df.VerifyIntegrity())
	require.Nil(t, view.VerifyIntegrity())

	buf, err := view.ColumnBuffer("a")
	require.Nil(t, err)
	view.opts.tracker.Unregister(buf.ID(), view.owner)
	err = view.VerifyIntegrity()
	var iv errors.IntegrityViolationError
	require.True(t, goerrors.As(err, &iv))
}

func TestString(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	out := df.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, []string{"a", "b", "c"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"int64", "int64", "float64"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"0", "1", "4", "0.1"}, strings.Fields(lines[2]))
}

func TestHashRows(t *testing.T) {
	df, err := New([]Column{
		{Name: "a", Values: buffer.Of([]int64{1, 2, 1})},
		{Name: "b", Values: buffer.Objects("x", "y", "x")},
		{Name: "c", Values: buffer.Of([]float64{math.NaN(), 1, math.NaN()})},
	}, testOptions(colframe.ModeCopyOnWrite)...)
	require.Nil(t, err)
	hashes, err := df.HashRows(0)
	require.Nil(t, err)
	require.Len(t, hashes, 3)
	require.Equal(t, hashes[0], hashes[2])
	require.NotEqual(t, hashes[0], hashes[1])

	view, err := df.Slice(0, End)
	require.Nil(t, err)
	again, err := view.HashRows(0)
	require.Nil(t, err)
	require.Equal(t, hashes, again)

	seeded, err := df.HashRows(1)
	require.Nil(t, err)
	require.NotEqual(t, hashes[0], seeded[0])
}

func TestEqual(t *testing.T) {
	df := createTestFrame(t, colframe.ModeCopyOnWrite)
	other := createTestFrame(t, colframe.ModeLegacy)
	require.True(t, df.Equal(other))
	require.Nil(t, other.Set(0, "c", 0.5))
	require.False(t, df.Equal(other))

	renamed := df.Copy(false)
	require.Nil(t, renamed.Rename("a", "z"))
	require.False(t, df.Equal(renamed))

	short, err := df.Slice(0, 2)
	require.Nil(t, err)
	require.False(t, df.Equal(short))
}
