package table

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl := New("a", "b", "c")
	require.NoError(t, tbl.Append(Row{Int(1), Int(2), String("x")}))
	require.NoError(t, tbl.Append(Row{Int(2), Int(4), String("y")}))
	require.NoError(t, tbl.Append(Row{Int(3), Int(6), String("z")}))
	return tbl
}

func TestAppend_SchemaMismatch(t *testing.T) {
	tbl := New("a", "b")

	err := tbl.Append(Row{Int(1)})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrSchemaMismatch))
	assert.Equal(t, 0, tbl.Len())

	require.NoError(t, tbl.Append(Row{Int(1), Int(2)}))
	assert.Equal(t, 1, tbl.Len())
}

func TestRow_IndexError(t *testing.T) {
	tbl := newTestTable(t)

	for _, idx := range []int{-1, 3, 100} {
		_, err := tbl.Row(idx)
		require.Error(t, err)
		assert.True(t, IsKind(err, ErrIndex), "index %d", idx)

		err = tbl.SetRow(idx, Row{Int(0), Int(0), String("")})
		assert.True(t, IsKind(err, ErrIndex), "index %d", idx)
	}

	require.NoError(t, tbl.SetRow(1, Row{Int(9), Int(9), String("q")}))
	row, err := tbl.Row(1)
	require.NoError(t, err)
	assert.Equal(t, Row{Int(9), Int(9), String("q")}, row)
}

func TestValues_FirstMatchAndLookupError(t *testing.T) {
	tbl := New("a", "a")
	require.NoError(t, tbl.Append(Row{Int(1), Int(2)}))

	vals, err := tbl.Values("a")
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(1)}, vals)

	_, err = tbl.Values("missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrLookup))
}

func TestSliceColThenChain_Reconstructs(t *testing.T) {
	tbl := newTestTable(t)

	for split := 0; split <= tbl.NumFields(); split++ {
		left := tbl.SliceCol(0, split)
		right := tbl.SliceCol(split, tbl.NumFields())
		joined := left.Chain(right)

		assert.Equal(t, tbl.Fields(), joined.Fields(), "split %d", split)
		assert.Equal(t, tbl.Rows(), joined.Rows(), "split %d", split)
	}
}

func TestChain_TruncatesToShorter(t *testing.T) {
	tbl := newTestTable(t)
	other := New("d")
	require.NoError(t, other.Append(Row{Bool(true)}))

	joined := tbl.Chain(other)
	assert.Equal(t, []string{"a", "b", "c", "d"}, joined.Fields())
	require.Equal(t, 1, joined.Len())
	row, err := joined.Row(0)
	require.NoError(t, err)
	assert.Equal(t, Row{Int(1), Int(2), String("x"), Bool(true)}, row)
}

func TestCopy_NoAliasing(t *testing.T) {
	src := newTestTable(t)
	dst := New("other")
	require.NoError(t, dst.Append(Row{Int(42)}))

	dst.Copy(src)
	assert.Equal(t, src.Fields(), dst.Fields())
	assert.Equal(t, src.Rows(), dst.Rows())

	require.NoError(t, src.SetRow(0, Row{Int(-1), Int(-1), String("changed")}))
	row, err := dst.Row(0)
	require.NoError(t, err)
	assert.Equal(t, Int(1), row[0])
}

func TestSliceCol_DoesNotAlias(t *testing.T) {
	tbl := newTestTable(t)
	sliced := tbl.SliceCol(0, 2)

	require.NoError(t, sliced.SetRow(0, Row{Int(100), Int(200)}))
	row, err := tbl.Row(0)
	require.NoError(t, err)
	assert.Equal(t, Int(1), row[0])
}

func TestSelect(t *testing.T) {
	tbl := newTestTable(t)
	mask := roaring.New()
	mask.Add(0)
	mask.Add(2)
	mask.Add(10)

	selected := tbl.Select(mask)
	assert.Equal(t, tbl.Fields(), selected.Fields())
	vals, err := selected.Values("a")
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(1), Int(3)}, vals)

	assert.Equal(t, 0, tbl.Select(nil).Len())
}

func TestHead(t *testing.T) {
	tbl := newTestTable(t)

	tests := []struct {
		name   string
		offset int
		n      int
		want   []Value
	}{
		{"first two", 0, 2, []Value{Int(1), Int(2)}},
		{"all", 0, -1, []Value{Int(1), Int(2), Int(3)}},
		{"offset", 1, 5, []Value{Int(2), Int(3)}},
		{"offset past end", 7, 1, []Value{}},
		{"zero", 0, 0, []Value{}},
		{"offset with max count", 1, math.MaxInt, []Value{Int(2), Int(3)}},
		{"max count", 0, math.MaxInt, []Value{Int(1), Int(2), Int(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals, err := tbl.Head(tt.offset, tt.n).Values("a")
			require.NoError(t, err)
			assert.Equal(t, tt.want, vals)
		})
	}
}

func TestSetFields(t *testing.T) {
	tbl := newTestTable(t)

	err := tbl.SetFields([]string{"only"})
	assert.True(t, IsKind(err, ErrSchemaMismatch))

	require.NoError(t, tbl.SetFields([]string{"x", "y", "z"}))
	assert.Equal(t, []string{"x", "y", "z"}, tbl.Fields())
}

func TestString(t *testing.T) {
	tbl := New("name", "n")
	require.NoError(t, tbl.Append(Row{String("abseil"), Int(3)}))
	require.NoError(t, tbl.Append(Row{None(), Float(1.5)}))

	assert.Equal(t, "[name, n]\n[abseil, 3]\n[NULL, 1.5]", tbl.String())
}

func TestReorder(t *testing.T) {
	tbl := newTestTable(t)

	reordered := tbl.Reorder([]int{2, 0, 5, -1})
	assert.Equal(t, tbl.Fields(), reordered.Fields())
	vals, err := reordered.Values("a")
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(3), Int(1)}, vals)

	require.NoError(t, reordered.SetRow(0, Row{Int(0), Int(0), String("")}))
	row, err := tbl.Row(2)
	require.NoError(t, err)
	assert.Equal(t, Int(3), row[0])
}
