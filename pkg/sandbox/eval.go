package sandbox

import (
	"fmt"
	"math"

	"github.com/marcvidal/datapilot/pkg/frame"
)

// evalEnv holds the frame bindings visible to a snippet. It starts with
// only the input binding; everything else a snippet sees it created itself.
type evalEnv struct {
	frames map[string]*frame.Frame
}

func newEvalEnv(input *frame.Frame) *evalEnv {
	return &evalEnv{frames: map[string]*frame.Frame{InputBinding: input}}
}

func (env *evalEnv) run(prog *program) error {
	for _, stmt := range prog.stmts {
		f, err := env.evalFrame(stmt.expr)
		if err != nil {
			return fmt.Errorf("line %d: %w", stmt.line, err)
		}
		env.frames[stmt.target] = f
	}
	return nil
}

func (env *evalEnv) evalFrame(expr frameExpr) (*frame.Frame, error) {
	switch e := expr.(type) {
	case varRef:
		f, ok := env.frames[e.name]
		if !ok {
			return nil, fmt.Errorf("unknown name %q", e.name)
		}
		return f, nil

	case methodCall:
		recv, err := env.evalFrame(e.recv)
		if err != nil {
			return nil, err
		}
		switch e.method {
		case "copy":
			return recv.Copy(), nil
		case "head", "tail":
			n, err := env.evalScalarNumber(e.n)
			if err != nil {
				return nil, fmt.Errorf(".%s: %w", e.method, err)
			}
			// Negative counts mean "all but n" in the source idiom; that
			// form is outside the grammar, so fail instead of guessing.
			if n < 0 {
				return nil, fmt.Errorf(".%s: negative row count %g", e.method, n)
			}
			if e.method == "head" {
				return recv.Head(int(n)), nil
			}
			return recv.Tail(int(n)), nil
		case "sort_values":
			return recv.SortBy(e.cols, e.ascending)
		}
		return nil, fmt.Errorf("unsupported method .%s", e.method)

	case selectIndex:
		recv, err := env.evalFrame(e.recv)
		if err != nil {
			return nil, err
		}
		return recv.Select(e.cols)

	case maskIndex:
		recv, err := env.evalFrame(e.recv)
		if err != nil {
			return nil, err
		}
		mask, err := env.evalMask(e.mask, recv.NumRows())
		if err != nil {
			return nil, err
		}
		return recv.Filter(mask)
	}
	return nil, fmt.Errorf("unsupported expression")
}

// evalMask evaluates a boolean mask against a frame of wantRows rows.
// Series references must resolve to a frame of the same length, mirroring
// the index alignment the pandas idiom relies on.
func (env *evalEnv) evalMask(m maskExpr, wantRows int) ([]bool, error) {
	switch e := m.(type) {
	case maskBinary:
		left, err := env.evalMask(e.left, wantRows)
		if err != nil {
			return nil, err
		}
		right, err := env.evalMask(e.right, wantRows)
		if err != nil {
			return nil, err
		}
		out := make([]bool, wantRows)
		for i := range out {
			if e.op == "&" {
				out[i] = left[i] && right[i]
			} else {
				out[i] = left[i] || right[i]
			}
		}
		return out, nil

	case maskCompare:
		values, err := env.seriesValues(e.series, wantRows)
		if err != nil {
			return nil, err
		}
		rhs, err := env.evalScalarValue(e.value)
		if err != nil {
			return nil, err
		}
		out := make([]bool, len(values))
		for i, v := range values {
			out[i] = compareCell(v, e.op, rhs)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported mask expression")
}

func (env *evalEnv) seriesValues(s seriesRef, wantRows int) ([]frame.Value, error) {
	base, ok := env.frames[s.base]
	if !ok {
		return nil, fmt.Errorf("unknown name %q", s.base)
	}
	if base.NumRows() != wantRows {
		return nil, fmt.Errorf("mask over %q (%d rows) does not align with %d rows", s.base, base.NumRows(), wantRows)
	}
	return base.Column(s.column)
}

// evalScalarValue produces the comparison right-hand side.
func (env *evalEnv) evalScalarValue(s scalarExpr) (frame.Value, error) {
	switch e := s.(type) {
	case litScalar:
		switch e.kind {
		case "number":
			return e.num, nil
		case "string":
			return e.str, nil
		case "bool":
			return e.b, nil
		case "none":
			return nil, nil
		}
	case lenCall, unaryCall, aggCall:
		n, err := env.evalScalarNumber(s)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, fmt.Errorf("unsupported scalar expression")
}

// evalScalarNumber evaluates the numeric scalar forms: literals, len(),
// abs(), round() and the series aggregates.
func (env *evalEnv) evalScalarNumber(s scalarExpr) (float64, error) {
	switch e := s.(type) {
	case nil:
		return 0, fmt.Errorf("missing numeric argument")
	case litScalar:
		if e.kind != "number" {
			return 0, fmt.Errorf("expected a number, got %s literal", e.kind)
		}
		return e.num, nil
	case lenCall:
		f, ok := env.frames[e.arg]
		if !ok {
			return 0, fmt.Errorf("unknown name %q", e.arg)
		}
		return float64(f.NumRows()), nil
	case unaryCall:
		n, err := env.evalScalarNumber(e.arg)
		if err != nil {
			return 0, err
		}
		if e.fn == "abs" {
			return math.Abs(n), nil
		}
		return math.Round(n), nil
	case aggCall:
		base, ok := env.frames[e.series.base]
		if !ok {
			return 0, fmt.Errorf("unknown name %q", e.series.base)
		}
		col, err := base.Column(e.series.column)
		if err != nil {
			return 0, err
		}
		return aggregate(e.fn, col)
	}
	return 0, fmt.Errorf("unsupported numeric expression")
}

func aggregate(fn string, col []frame.Value) (float64, error) {
	var acc float64
	seen := false
	for _, v := range col {
		n, ok := frame.AsFloat(v)
		if !ok {
			continue
		}
		if !seen {
			acc = n
			seen = true
			continue
		}
		switch fn {
		case "min":
			if n < acc {
				acc = n
			}
		case "max":
			if n > acc {
				acc = n
			}
		case "sum":
			acc += n
		}
	}
	if !seen && fn != "sum" {
		return 0, fmt.Errorf(".%s over a column with no numeric values", fn)
	}
	return acc, nil
}

// compareCell applies one comparison between a cell and a scalar.
// A nil cell compares false under every operator except !=, matching the
// NaN semantics of the source idiom.
func compareCell(cell frame.Value, op string, rhs frame.Value) bool {
	if cell == nil {
		return op == "!=" && rhs != nil
	}
	if rhs == nil {
		return op == "!="
	}

	cellNum, cellIsNum := frame.AsFloat(cell)
	rhsNum, rhsIsNum := frame.AsFloat(rhs)
	if cellIsNum && rhsIsNum {
		switch op {
		case "==":
			return cellNum == rhsNum
		case "!=":
			return cellNum != rhsNum
		case ">":
			return cellNum > rhsNum
		case ">=":
			return cellNum >= rhsNum
		case "<":
			return cellNum < rhsNum
		case "<=":
			return cellNum <= rhsNum
		}
		return false
	}

	c := frame.Compare(cell, rhs)
	mismatched := cellIsNum != rhsIsNum ||
		(!cellIsNum && fmt.Sprintf("%T", cell) != fmt.Sprintf("%T", rhs))
	if mismatched {
		// Cross-type ordering comparisons are always false; only
		// equality semantics are defined.
		switch op {
		case "==":
			return false
		case "!=":
			return true
		}
		return false
	}

	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	}
	return false
}
