// Package result defines result macros, the ordered capability-call
// sequences bound to trigger macros, and the sequencer that executes
// them across scheduling ticks.
package result

import (
	"errors"
	"fmt"

	"github.com/keebforge/kllcore/internal/keystate"
)

// Definition errors.
var (
	// ErrNoSteps indicates a result macro with no steps.
	ErrNoSteps = errors.New("result: macro has no steps")

	// ErrBadStepState indicates a step whose action is not press, hold
	// or release.
	ErrBadStepState = errors.New("result: step state must be press, hold or release")
)

// Step is one capability call in a result macro.
type Step struct {
	// Capability is the dispatch-table index to invoke.
	Capability int

	// Args is the packed argument bytes for the capability.
	Args []byte

	// State is the action for this step: press, hold or release. It is
	// independent of the other steps, so one macro can press, hold and
	// release the same capability with other calls in between.
	State keystate.State

	// DelayTicks is how many scheduling ticks to wait after this step
	// before the next one runs. Zero means the next step runs in the
	// same tick.
	DelayTicks uint32
}

// Macro is an immutable result definition.
type Macro struct {
	Steps []Step
}

// Validate checks the structural invariants of the definition.
// Capability index and argument schema are checked by the table set.
func (m Macro) Validate() error {
	if len(m.Steps) == 0 {
		return ErrNoSteps
	}
	for i, step := range m.Steps {
		switch step.State {
		case keystate.StatePress, keystate.StateHold, keystate.StateRelease:
		default:
			return fmt.Errorf("step %d: %w", i, ErrBadStepState)
		}
	}
	return nil
}
