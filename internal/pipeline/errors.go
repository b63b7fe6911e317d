package pipeline

import (
	"errors"
	"fmt"
)

// Failure taxonomy of a processing run. Every error result wraps exactly one
// of these, so callers can branch with errors.Is without parsing messages.
var (
	// ErrSourceNotFound covers everything that keeps the loader from
	// producing a cube, above all a missing input path.
	ErrSourceNotFound = errors.New("source not found")

	// ErrBandUnavailable marks a wavelength target outside the cube's
	// spectral coverage. It never fails a run: the soil-moisture map
	// degrades to zeros instead, and the condition is logged with this
	// error attached.
	ErrBandUnavailable = errors.New("band unavailable")

	// ErrComputationFailure covers unexpected failures (including
	// recovered panics) while deriving maps or statistics.
	ErrComputationFailure = errors.New("computation failure")

	// ErrOutputWriteFailure covers directory and artifact write errors.
	ErrOutputWriteFailure = errors.New("output write failure")

	// ErrCancelled reports a context cancelled or expired at a stage
	// boundary.
	ErrCancelled = errors.New("cancelled")
)

// StageError attributes a failure to the run stage that raised it and to a
// taxonomy kind. It matches both the kind and the underlying error under
// errors.Is/errors.As.
type StageError struct {
	Kind  error
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// failure wraps err with its stage and taxonomy kind.
func failure(kind error, stage Stage, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// kindOf maps a stage to the taxonomy kind its failures carry.
func kindOf(stage Stage) error {
	switch stage {
	case StageLoading:
		return ErrSourceNotFound
	case StageWritingOutputs:
		return ErrOutputWriteFailure
	default:
		return ErrComputationFailure
	}
}
