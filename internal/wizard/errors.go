package wizard

import (
	"fmt"

	"github.com/reelforge/reelforge/internal/domain"
)

// StepNotFoundError reports a step id that does not exist in the mode's
// definition table. This is a configuration bug on the caller's side.
type StepNotFoundError struct {
	Mode   domain.Mode
	StepID string
}

func (e *StepNotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("step %q is not defined for mode %s", e.StepID, e.Mode)
}

// StepHiddenError reports a step that exists but is filtered out under the
// current context, e.g. the voiceover step of a project with voiceover off.
type StepHiddenError struct {
	Mode   domain.Mode
	StepID string
}

func (e *StepHiddenError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("step %q is hidden for mode %s under the current settings", e.StepID, e.Mode)
}

// StepNotReachableError reports a navigation attempt into a future step that
// has not been completed yet.
type StepNotReachableError struct {
	StepID      string
	CurrentStep string
}

func (e *StepNotReachableError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("step %q is not reachable: complete step %q first", e.StepID, e.CurrentStep)
}

// TerminalStepLockedError reports any navigation attempted after the wizard
// entered its terminal step. The terminal step is a one-way latch.
type TerminalStepLockedError struct {
	StepID string
}

func (e *TerminalStepLockedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("wizard is locked at terminal step %q", e.StepID)
}
