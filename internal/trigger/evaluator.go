package trigger

import (
	"fmt"

	"github.com/keebforge/kllcore/internal/keystate"
)

// outcome classifies what a key-state event means for one condition.
type outcome uint8

const (
	// outcomeNeutral: the event neither helps nor breaks the condition.
	outcomeNeutral outcome = iota

	// outcomeSatisfy: the condition is now met.
	outcomeSatisfy

	// outcomeViolate: the event is inconsistent with the combo's pattern.
	outcomeViolate
)

// classify decides the effect of an observed state on a condition.
// Only a press edge satisfies a press requirement; the hold states that
// follow are neutral, so a completed press trigger does not re-fire
// every tick the key stays down. A press is likewise neutral for a hold
// requirement (the hold may still arrive). Releasing a key that a press
// or hold condition needs breaks the combo, as does re-pressing a key
// whose release already matched.
func classify(required, got keystate.State, satisfied bool) outcome {
	switch required {
	case keystate.StatePress:
		switch got {
		case keystate.StatePress:
			return outcomeSatisfy
		case keystate.StateHold:
			return outcomeNeutral
		default:
			return outcomeViolate
		}
	case keystate.StateHold:
		if got == keystate.StateHold {
			return outcomeSatisfy
		}
		if got == keystate.StatePress {
			return outcomeNeutral
		}
		return outcomeViolate
	case keystate.StateRelease:
		if got == keystate.StateRelease {
			return outcomeSatisfy
		}
		if satisfied {
			return outcomeViolate
		}
		return outcomeNeutral
	default:
		return outcomeNeutral
	}
}

// Evaluator advances every trigger-macro record against the stream of
// normalized scan events. One instance owns the whole record arena; it
// must only be touched from the dispatch loop.
type Evaluator struct {
	macros  []Macro
	records []Record
}

// NewEvaluator validates the definitions and builds the record arena.
func NewEvaluator(macros []Macro) (*Evaluator, error) {
	for i, m := range macros {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("macro %d: %w", i, err)
		}
	}
	return &Evaluator{
		macros:  macros,
		records: make([]Record, len(macros)),
	}, nil
}

// Len returns the number of trigger macros.
func (e *Evaluator) Len() int {
	return len(e.macros)
}

// Macro returns the definition at index i.
func (e *Evaluator) Macro(i int) Macro {
	return e.macros[i]
}

// Record returns a copy of the evaluation record at index i.
func (e *Evaluator) Record(i int) Record {
	return e.records[i]
}

// Feed re-evaluates every macro whose current combo references the
// event's scan code. Idle macros only start matching when their index
// appears in candidates, the trigger list the layer stack resolved for
// this event; pending macros keep receiving events regardless of layer
// changes. Completed macro indices are returned in ascending table
// order and their records return to idle, so each completion fires
// exactly once.
func (e *Evaluator) Feed(ev keystate.Event, candidates []int) []int {
	if ev.State == keystate.StateOff {
		return nil
	}

	var completed []int
	for i := range e.records {
		rec := &e.records[i]
		if rec.Phase == PhaseReset {
			rec.clear()
		}

		combo := e.macros[i].Combos[rec.Pos]
		ci := combo.references(ev.Code)
		if ci < 0 {
			continue
		}

		bit := uint64(1) << uint(ci)
		already := rec.Satisfied&bit != 0

		switch classify(combo.Conditions[ci].State, ev.State, already) {
		case outcomeSatisfy:
			if rec.Phase == PhaseIdle {
				if !containsIndex(candidates, i) {
					continue
				}
				rec.Phase = PhasePending
			}
			rec.Satisfied |= bit

		case outcomeViolate:
			if rec.Phase == PhasePending {
				rec.clear()
				rec.Phase = PhaseReset
			}
			continue

		case outcomeNeutral:
			continue
		}

		if rec.Satisfied == fullMask(len(combo.Conditions)) {
			rec.advance()
			if rec.Pos == len(e.macros[i].Combos) {
				rec.Phase = PhaseCompleted
				completed = append(completed, i)
				rec.clear()
			}
		}
	}
	return completed
}

// Tick advances per-record tick counters and applies combo timeouts.
// Records in the reset phase settle back to idle.
func (e *Evaluator) Tick() {
	for i := range e.records {
		rec := &e.records[i]
		switch rec.Phase {
		case PhaseReset:
			rec.clear()
		case PhasePending:
			rec.Ticks++
			timeout := e.macros[i].Combos[rec.Pos].TimeoutTicks
			if timeout > 0 && rec.Ticks > timeout {
				rec.clear()
				rec.Phase = PhaseReset
			}
		}
	}
}

// fullMask returns a mask with the low n bits set.
func fullMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

func containsIndex(list []int, i int) bool {
	for _, v := range list {
		if v == i {
			return true
		}
	}
	return false
}
