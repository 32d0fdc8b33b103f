// Package sandbox validates and executes model-generated transformation
// snippets against a tabular dataset.
//
// The snippet text is never executed as host code. After the lexical
// contract check it is compiled into a closed transformation AST (copy,
// filter, sort, head/tail, column selection) and interpreted by trusted
// code over frame.Frame. The only ambient capabilities are the frame
// operations and a small set of safe scalar functions.
package sandbox

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/marcvidal/datapilot/pkg/frame"
)

// Executor runs validated snippets. It holds no state between invocations;
// each Run is independent.
type Executor struct{}

// NewExecutor creates a snippet executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Run executes a transformation snippet against the input dataset and
// returns the dataset bound to df_out. Failure is total: no partial
// result is ever returned.
//
// The contract is re-validated here even if the caller already validated
// the snippet; a string that crosses the execution boundary is never
// trusted on past checks.
func (e *Executor) Run(code string, input *frame.Frame) (*frame.Frame, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	if err := ValidateContract(code); err != nil {
		log.Warn().Err(err).Msg("Snippet rejected by contract validator")
		return nil, err
	}

	prog, err := parse(StripImports(code))
	if err != nil {
		return nil, fmt.Errorf("snippet parse error: %w", err)
	}

	env := newEvalEnv(input)
	if err := env.run(prog); err != nil {
		return nil, fmt.Errorf("snippet execution error: %w", err)
	}

	out, ok := env.frames[OutputBinding]
	if !ok {
		return nil, ErrNoOutput
	}
	if out == nil {
		return nil, ErrOutputNotFrame
	}

	log.Debug().
		Int("rows_in", input.NumRows()).
		Int("rows_out", out.NumRows()).
		Int("cols_out", out.NumCols()).
		Msg("Snippet executed")

	return out, nil
}
