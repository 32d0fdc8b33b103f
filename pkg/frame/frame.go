// Package frame provides the tabular dataset type shared by the data tools,
// the result normalizer and the transformation interpreter.
//
// Invariants:
// - Column names are unique and ordered.
// - Every row has exactly one cell per column.
// - All operations return a new Frame; a Frame is never mutated in place.
package frame

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a single cell. Supported concrete types are nil, bool, string,
// int, int64 and float64. Anything else is carried opaquely and compares
// by its string form.
type Value interface{}

// Frame is an immutable-by-convention tabular dataset.
type Frame struct {
	cols []string
	rows [][]Value
}

// New creates a Frame from a column list and row-major cells.
func New(cols []string, rows [][]Value) (*Frame, error) {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c == "" {
			return nil, fmt.Errorf("empty column name")
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate column name: %s", c)
		}
		seen[c] = true
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(cols))
		}
	}
	return &Frame{cols: append([]string(nil), cols...), rows: rows}, nil
}

// MustNew is New for static fixtures; it panics on invalid shapes.
func MustNew(cols []string, rows [][]Value) *Frame {
	f, err := New(cols, rows)
	if err != nil {
		panic(err)
	}
	return f
}

// FromRecords builds a Frame from a list of column->value records.
// Column order is the sorted union of keys so the result is deterministic
// regardless of map iteration order.
func FromRecords(records []map[string]Value) *Frame {
	colSet := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			colSet[k] = true
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	rows := make([][]Value, 0, len(records))
	for _, rec := range records {
		row := make([]Value, len(cols))
		for i, c := range cols {
			row[i] = rec[c]
		}
		rows = append(rows, row)
	}
	return &Frame{cols: cols, rows: rows}
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return len(f.rows) }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns a copy of the ordered column names.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	return f.colIndex(name) >= 0
}

// Column returns the values of the named column.
func (f *Frame) Column(name string) ([]Value, error) {
	idx := f.colIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column: %s", name)
	}
	out := make([]Value, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []Value {
	return append([]Value(nil), f.rows[i]...)
}

// Copy returns a deep copy. Cells are scalars, so copying the row slices
// is sufficient.
func (f *Frame) Copy() *Frame {
	rows := make([][]Value, len(f.rows))
	for i, r := range f.rows {
		rows[i] = append([]Value(nil), r...)
	}
	return &Frame{cols: append([]string(nil), f.cols...), rows: rows}
}

// Head returns the first n rows (all rows if n exceeds the row count).
func (f *Frame) Head(n int) *Frame {
	if n < 0 {
		n = 0
	}
	if n > len(f.rows) {
		n = len(f.rows)
	}
	return f.slice(0, n)
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	if n < 0 {
		n = 0
	}
	if n > len(f.rows) {
		n = len(f.rows)
	}
	return f.slice(len(f.rows)-n, len(f.rows))
}

// Select returns a Frame restricted to the named columns, in the given order.
func (f *Frame) Select(cols []string) (*Frame, error) {
	idxs := make([]int, len(cols))
	for i, c := range cols {
		idx := f.colIndex(c)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column: %s", c)
		}
		idxs[i] = idx
	}
	rows := make([][]Value, len(f.rows))
	for ri, r := range f.rows {
		row := make([]Value, len(idxs))
		for i, idx := range idxs {
			row[i] = r[idx]
		}
		rows[ri] = row
	}
	return &Frame{cols: append([]string(nil), cols...), rows: rows}, nil
}

// Filter returns the rows for which mask is true. The mask length must
// match the row count.
func (f *Frame) Filter(mask []bool) (*Frame, error) {
	if len(mask) != len(f.rows) {
		return nil, fmt.Errorf("mask length %d does not match %d rows", len(mask), len(f.rows))
	}
	var rows [][]Value
	for i, keep := range mask {
		if keep {
			rows = append(rows, append([]Value(nil), f.rows[i]...))
		}
	}
	return &Frame{cols: append([]string(nil), f.cols...), rows: rows}, nil
}

// SortBy returns the Frame sorted by the given columns. ascending is either
// empty (all ascending), a single element applied to every column, or one
// element per column. The sort is stable.
func (f *Frame) SortBy(cols []string, ascending []bool) (*Frame, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("sort requires at least one column")
	}
	switch len(ascending) {
	case 0:
		ascending = make([]bool, len(cols))
		for i := range ascending {
			ascending[i] = true
		}
	case 1:
		asc := ascending[0]
		ascending = make([]bool, len(cols))
		for i := range ascending {
			ascending[i] = asc
		}
	case len(cols):
	default:
		return nil, fmt.Errorf("ascending has %d entries for %d sort columns", len(ascending), len(cols))
	}

	idxs := make([]int, len(cols))
	for i, c := range cols {
		idx := f.colIndex(c)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column: %s", c)
		}
		idxs[i] = idx
	}

	out := f.Copy()
	sort.SliceStable(out.rows, func(a, b int) bool {
		for i, idx := range idxs {
			c := Compare(out.rows[a][idx], out.rows[b][idx])
			if c == 0 {
				continue
			}
			if ascending[i] {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return out, nil
}

// Records converts the Frame back into column->value records.
func (f *Frame) Records() []map[string]Value {
	out := make([]map[string]Value, len(f.rows))
	for i, r := range f.rows {
		rec := make(map[string]Value, len(f.cols))
		for ci, c := range f.cols {
			rec[c] = r[ci]
		}
		out[i] = rec
	}
	return out
}

// String renders a compact shape summary, not the data.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame[%d rows x %d cols]", len(f.rows), len(f.cols))
}

func (f *Frame) slice(lo, hi int) *Frame {
	rows := make([][]Value, 0, hi-lo)
	for i := lo; i < hi; i++ {
		rows = append(rows, append([]Value(nil), f.rows[i]...))
	}
	return &Frame{cols: append([]string(nil), f.cols...), rows: rows}
}

func (f *Frame) colIndex(name string) int {
	for i, c := range f.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Compare orders two cell values: nil < numbers < strings < bool.
// Numbers compare numerically across int/int64/float64.
func Compare(a, b Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0: // both nil
		return 0
	case 1:
		fa, _ := AsFloat(a)
		fb, _ := AsFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

// AsFloat converts a numeric cell to float64.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func rank(v Value) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int64, float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}
