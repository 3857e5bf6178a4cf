// Package trigger defines combo-sequence trigger macros and the state
// machine that matches them against normalized scan events.
package trigger

import (
	"errors"
	"fmt"

	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/scancode"
)

// MaxComboKeys is the most conditions one combo may hold. Satisfaction
// is tracked in a 64-bit mask, so the cap is structural.
const MaxComboKeys = 64

// Definition errors.
var (
	// ErrNoCombos indicates a trigger macro with an empty combo sequence.
	ErrNoCombos = errors.New("trigger: macro has no combos")

	// ErrEmptyCombo indicates a combo with no conditions.
	ErrEmptyCombo = errors.New("trigger: combo has no conditions")

	// ErrComboTooLarge indicates a combo with more than MaxComboKeys conditions.
	ErrComboTooLarge = errors.New("trigger: combo exceeds condition limit")

	// ErrDuplicateCode indicates a combo listing the same scan code twice.
	ErrDuplicateCode = errors.New("trigger: duplicate scan code in combo")

	// ErrBadConditionState indicates a condition requiring the off state.
	ErrBadConditionState = errors.New("trigger: condition state must be press, hold or release")
)

// Condition is one requirement inside a combo: a scan code observed in
// a specific key state.
type Condition struct {
	Code  scancode.Code
	State keystate.State
}

// String returns a form like "press 0x04".
func (c Condition) String() string {
	return c.State.String() + " " + c.Code.String()
}

// Combo is a set of conditions that must all hold simultaneously.
// A non-zero TimeoutTicks bounds how long the combo may sit partially
// matched before the owning record resets.
type Combo struct {
	Conditions   []Condition
	TimeoutTicks uint32
}

// references returns the index of the condition for code, or -1.
func (c Combo) references(code scancode.Code) int {
	for i, cond := range c.Conditions {
		if cond.Code == code {
			return i
		}
	}
	return -1
}

// Macro is an immutable trigger definition: an ordered combo sequence
// bound to one result macro. Sequence order is the required temporal
// order of the gesture.
type Macro struct {
	Combos []Combo

	// Result is the index of the bound result macro.
	Result int
}

// Validate checks the structural invariants of the definition.
// Result index range is checked by the table set, not here.
func (m Macro) Validate() error {
	if len(m.Combos) == 0 {
		return ErrNoCombos
	}
	for ci, combo := range m.Combos {
		if len(combo.Conditions) == 0 {
			return fmt.Errorf("combo %d: %w", ci, ErrEmptyCombo)
		}
		if len(combo.Conditions) > MaxComboKeys {
			return fmt.Errorf("combo %d: %w", ci, ErrComboTooLarge)
		}
		seen := make(map[scancode.Code]bool, len(combo.Conditions))
		for _, cond := range combo.Conditions {
			if cond.State != keystate.StatePress && cond.State != keystate.StateHold && cond.State != keystate.StateRelease {
				return fmt.Errorf("combo %d (%s): %w", ci, cond, ErrBadConditionState)
			}
			if seen[cond.Code] {
				return fmt.Errorf("combo %d (%s): %w", ci, cond.Code, ErrDuplicateCode)
			}
			seen[cond.Code] = true
		}
	}
	return nil
}

// SubscribesTo reports whether any combo in the macro references code.
func (m Macro) SubscribesTo(code scancode.Code) bool {
	for _, combo := range m.Combos {
		if combo.references(code) >= 0 {
			return true
		}
	}
	return false
}
