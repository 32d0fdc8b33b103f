package sandbox

import "errors"

var (
	// ErrNilInput is returned when Run is called without an input dataset
	ErrNilInput = errors.New("nil input dataset")

	// ErrNoOutput is returned when the snippet never binds df_out
	ErrNoOutput = errors.New("code did not produce df_out")

	// ErrOutputNotFrame is returned when df_out is not a tabular dataset
	ErrOutputNotFrame = errors.New("df_out is not a DataFrame")
)
