package pipeline

import (
	"errors"
	"fmt"

	"github.com/Veraticus/smartspend/internal/common"
)

// State is a pipeline stage.
type State int

// Pipeline states, in order.
const (
	StateIdle State = iota
	StateIngesting
	StateResolving
	StateEvaluating
	StateSummarizing
	StateDone
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateIngesting:   "ingesting",
	StateResolving:   "resolving",
	StateEvaluating:  "evaluating",
	StateSummarizing: "summarizing",
	StateDone:        "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Stages lists the working states in execution order.
func Stages() []State {
	return []State{StateIngesting, StateResolving, StateEvaluating, StateSummarizing}
}

// StageError reports a run aborted inside Stage. It matches both
// common.ErrStageFailed and the underlying error with errors.Is.
type StageError struct {
	Err   error
	Stage State
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline aborted while %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{common.ErrStageFailed, e.Err}
}

// FailedStage returns the stage err aborted in, if err is a StageError.
func FailedStage(err error) (State, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return StateIdle, false
}
