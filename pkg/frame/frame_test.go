package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New(
		[]string{"player_name", "team", "points", "average"},
		[][]Value{
			{"Bellingham", "Real Madrid", 120.0, 8.5},
			{"Lewandowski", "Barcelona", 98.0, 6.1},
			{"Griezmann", "Atletico", 110.0, 7.2},
			{"Vinicius", "Real Madrid", 110.0, 7.9},
		},
	)
	require.NoError(t, err)
	return f
}

func TestNewValidation(t *testing.T) {
	t.Run("duplicate column", func(t *testing.T) {
		_, err := New([]string{"a", "a"}, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate column")
	})

	t.Run("ragged row", func(t *testing.T) {
		_, err := New([]string{"a", "b"}, [][]Value{{1}})
		assert.Error(t, err)
	})

	t.Run("empty column name", func(t *testing.T) {
		_, err := New([]string{""}, nil)
		assert.Error(t, err)
	})
}

func TestFromRecords(t *testing.T) {
	f := FromRecords([]map[string]Value{
		{"b": 2.0, "a": 1.0},
		{"a": 3.0},
	})
	assert.Equal(t, []string{"a", "b"}, f.Columns())
	assert.Equal(t, 2, f.NumRows())
	col, err := f.Column("b")
	require.NoError(t, err)
	assert.Equal(t, []Value{2.0, nil}, col)
}

func TestCopyIsDeep(t *testing.T) {
	f := testFrame(t)
	c := f.Copy()
	c.rows[0][0] = "mutated"
	assert.Equal(t, "Bellingham", f.rows[0][0])
}

func TestHeadTail(t *testing.T) {
	f := testFrame(t)
	assert.Equal(t, 2, f.Head(2).NumRows())
	assert.Equal(t, 4, f.Head(10).NumRows())
	assert.Equal(t, 0, f.Head(-1).NumRows())

	tail := f.Tail(1)
	require.Equal(t, 1, tail.NumRows())
	assert.Equal(t, "Vinicius", tail.rows[0][0])
}

func TestSelect(t *testing.T) {
	f := testFrame(t)
	sel, err := f.Select([]string{"team", "points"})
	require.NoError(t, err)
	assert.Equal(t, []string{"team", "points"}, sel.Columns())
	assert.Equal(t, 4, sel.NumRows())

	_, err = f.Select([]string{"missing"})
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	f := testFrame(t)
	out, err := f.Filter([]bool{true, false, false, true})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, "Bellingham", out.rows[0][0])
	assert.Equal(t, "Vinicius", out.rows[1][0])

	_, err = f.Filter([]bool{true})
	assert.Error(t, err)
}

func TestSortBy(t *testing.T) {
	f := testFrame(t)

	t.Run("descending single column", func(t *testing.T) {
		out, err := f.SortBy([]string{"average"}, []bool{false})
		require.NoError(t, err)
		names, _ := out.Column("player_name")
		assert.Equal(t, []Value{"Bellingham", "Vinicius", "Griezmann", "Lewandowski"}, names)
	})

	t.Run("tie break on second column", func(t *testing.T) {
		out, err := f.SortBy([]string{"points", "average"}, []bool{false, true})
		require.NoError(t, err)
		names, _ := out.Column("player_name")
		// Griezmann (7.2) before Vinicius (7.9) on the 110-point tie.
		assert.Equal(t, []Value{"Bellingham", "Griezmann", "Vinicius", "Lewandowski"}, names)
	})

	t.Run("does not mutate source", func(t *testing.T) {
		_, err := f.SortBy([]string{"points"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Bellingham", f.rows[0][0])
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := f.SortBy([]string{"nope"}, nil)
		assert.Error(t, err)
	})
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(nil, 1))
	assert.Equal(t, -1, Compare(1, "a"))
	assert.Equal(t, 0, Compare(2, 2.0))
	assert.Equal(t, 1, Compare("b", "a"))
	assert.Equal(t, -1, Compare(false, true))
	assert.Equal(t, -1, Compare(int64(3), 4.5))
}

func TestRecordsRoundTrip(t *testing.T) {
	f := testFrame(t)
	recs := f.Records()
	require.Len(t, recs, 4)
	assert.Equal(t, "Barcelona", recs[1]["team"])
}
