package pipeline

import "fmt"

// Stage names one phase of a processing run. A run walks the stages in
// order; Done and Error are terminal.
type Stage string

const (
	StageLoading             Stage = "loading"
	StagePreprocessing       Stage = "preprocessing"
	StageComputingIndices    Stage = "computing_indices"
	StageComputingStatistics Stage = "computing_statistics"
	StageWritingOutputs      Stage = "writing_outputs"
	StageDone                Stage = "done"
	StageError               Stage = "error"
)

// forward is the only legal successor of each non-terminal stage. Error is
// reachable from every non-terminal stage and is not listed here.
var forward = map[Stage]Stage{
	StageLoading:             StagePreprocessing,
	StagePreprocessing:       StageComputingIndices,
	StageComputingIndices:    StageComputingStatistics,
	StageComputingStatistics: StageWritingOutputs,
	StageWritingOutputs:      StageDone,
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageError
}

// machine tracks the current stage of a run and validates transitions. Runs
// start in Loading.
type machine struct {
	stage Stage
}

func newMachine() *machine {
	return &machine{stage: StageLoading}
}

// advance moves the machine to the next stage. Any non-terminal stage may
// enter Error; otherwise only the forward successor is legal.
func (m *machine) advance(to Stage) error {
	if m.stage.Terminal() {
		return fmt.Errorf("run already finished in stage %s", m.stage)
	}
	if to != StageError && forward[m.stage] != to {
		return fmt.Errorf("invalid stage transition %s -> %s", m.stage, to)
	}
	m.stage = to
	return nil
}
