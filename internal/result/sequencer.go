package result

import (
	"errors"
	"fmt"
)

// InvokeFunc dispatches one step to the capability table. The engine
// supplies a closure that also applies any returned commands.
type InvokeFunc func(step Step) error

// instance is the pending-completion state of one started macro.
type instance struct {
	macro int
	step  int
	wait  uint32
}

// Sequencer executes started result macros step by step. Steps of one
// macro run in table order and never reorder; a step's delay is
// represented as a not-yet-due instance re-checked on later ticks, so
// the sequencer never blocks event intake. Multiple macros may be in
// flight at once, each advancing independently.
type Sequencer struct {
	macros []Macro
	invoke InvokeFunc
	active []instance
}

// NewSequencer validates the macro table and builds a sequencer.
func NewSequencer(macros []Macro, invoke InvokeFunc) (*Sequencer, error) {
	if invoke == nil {
		return nil, errors.New("result: nil invoke func")
	}
	for i, m := range macros {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("macro %d: %w", i, err)
		}
	}
	return &Sequencer{macros: macros, invoke: invoke}, nil
}

// Len returns the number of result macros.
func (s *Sequencer) Len() int {
	return len(s.macros)
}

// Pending returns the number of macros still executing.
func (s *Sequencer) Pending() int {
	return len(s.active)
}

// Start instantiates macro i and synchronously runs its steps up to
// the first delayed step; the remainder executes on later ticks. An
// out-of-range index means a corrupt table, which halts. A step error
// abandons the rest of that instance.
func (s *Sequencer) Start(i int) error {
	if i < 0 || i >= len(s.macros) {
		panic(fmt.Sprintf("result: macro index %d out of range (table length %d)", i, len(s.macros)))
	}
	inst := instance{macro: i}
	done, err := s.run(&inst)
	if err != nil {
		return err
	}
	if !done {
		s.active = append(s.active, inst)
	}
	return nil
}

// Tick advances every in-flight macro by one scheduling tick, running
// any steps that have come due. Errors from distinct instances are
// joined; an erroring instance is dropped.
func (s *Sequencer) Tick() error {
	var errs []error
	kept := s.active[:0]
	for idx := range s.active {
		inst := s.active[idx]
		if inst.wait > 0 {
			inst.wait--
		}
		if inst.wait > 0 {
			kept = append(kept, inst)
			continue
		}
		done, err := s.run(&inst)
		if err != nil {
			errs = append(errs, fmt.Errorf("macro %d step %d: %w", inst.macro, inst.step, err))
			continue
		}
		if !done {
			kept = append(kept, inst)
		}
	}
	s.active = kept
	return errors.Join(errs...)
}

// run executes steps until the macro finishes or a step sets a delay.
// Returns true when the instance is complete.
func (s *Sequencer) run(inst *instance) (bool, error) {
	steps := s.macros[inst.macro].Steps
	for inst.step < len(steps) {
		step := steps[inst.step]
		if err := s.invoke(step); err != nil {
			return false, err
		}
		inst.step++
		if step.DelayTicks > 0 && inst.step < len(steps) {
			inst.wait = step.DelayTicks
			return false, nil
		}
	}
	return true, nil
}
