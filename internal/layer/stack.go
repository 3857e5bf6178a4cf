package layer

import (
	"errors"
	"fmt"

	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/scancode"
)

// Stack errors.
var (
	// ErrNoDefault indicates a stack built without a default layer.
	ErrNoDefault = errors.New("layer: stack needs a default layer")

	// ErrUnknownLayer indicates a layer index outside the definition table.
	ErrUnknownLayer = errors.New("layer: unknown layer index")

	// ErrDefaultLayer indicates an attempt to toggle the default layer.
	ErrDefaultLayer = errors.New("layer: default layer cannot be toggled")
)

// Stack tracks which layers are active and resolves scan codes through
// them. Layer 0 is the default: always present at the bottom, always
// enabled. Activation order defines precedence; the most recently
// activated layer is consulted first. The stack is single-writer state
// owned by the dispatch loop.
type Stack struct {
	defs  []Definition
	modes []Mode

	// order lists active non-default layers, oldest first.
	order []int

	// latch bookkeeping: pressSeen arms latched layers for removal on
	// the following release.
	pressSeen bool
}

// NewStack creates a stack over the layer definitions. defs[0] is the
// default layer and must exist.
func NewStack(defs []Definition) (*Stack, error) {
	if len(defs) == 0 {
		return nil, ErrNoDefault
	}
	return &Stack{
		defs:  defs,
		modes: make([]Mode, len(defs)),
	}, nil
}

// Len returns the number of layer definitions.
func (s *Stack) Len() int {
	return len(s.defs)
}

// Mode returns the enable mode of the given layer.
func (s *Stack) Mode(l int) Mode {
	if l <= 0 || l >= len(s.modes) {
		return ModeOff
	}
	return s.modes[l]
}

// Active returns the layer indices that resolution consults, top first,
// ending with the default layer.
func (s *Stack) Active() []int {
	out := make([]int, 0, len(s.order)+1)
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.order[i])
	}
	return append(out, 0)
}

// Resolve walks the active layers top-down and returns the trigger
// indices of the first layer that binds code. A nil return means no
// layer binds the code, which is a valid state, not an error.
func (s *Stack) Resolve(code scancode.Code) []int {
	for i := len(s.order) - 1; i >= 0; i-- {
		if triggers := s.defs[s.order[i]].Triggers(code); triggers != nil {
			return triggers
		}
	}
	return s.defs[0].Triggers(code)
}

// ShiftOn activates a layer in shift mode. Activating an already
// active layer is a no-op.
func (s *Stack) ShiftOn(l int) error {
	if err := s.check(l); err != nil {
		return err
	}
	if s.modes[l] != ModeOff {
		return nil
	}
	s.activate(l, ModeShift)
	return nil
}

// ShiftOff deactivates a layer that is in shift mode. Latched or
// locked layers are not affected by a shift release.
func (s *Stack) ShiftOff(l int) error {
	if err := s.check(l); err != nil {
		return err
	}
	if s.modes[l] == ModeShift {
		s.deactivate(l)
	}
	return nil
}

// Latch activates a layer in latch mode. The layer deactivates after
// the next full press-release of any key, reported via NoteEvent.
func (s *Stack) Latch(l int) error {
	if err := s.check(l); err != nil {
		return err
	}
	if s.modes[l] != ModeOff {
		return nil
	}
	s.activate(l, ModeLatch)
	s.pressSeen = false
	return nil
}

// LockToggle toggles a layer's locked state. Locking an already active
// shift or latch layer upgrades it to locked in place.
func (s *Stack) LockToggle(l int) error {
	if err := s.check(l); err != nil {
		return err
	}
	switch s.modes[l] {
	case ModeLock:
		s.deactivate(l)
	case ModeOff:
		s.activate(l, ModeLock)
	default:
		s.modes[l] = ModeLock
	}
	return nil
}

// NoteEvent feeds latch bookkeeping. The dispatch loop calls it for
// every normalized event after trigger evaluation: a press following a
// latch arms it, and the matching release drops all latched layers.
func (s *Stack) NoteEvent(state keystate.State) {
	if !s.hasLatched() {
		s.pressSeen = false
		return
	}
	switch state {
	case keystate.StatePress:
		s.pressSeen = true
	case keystate.StateRelease:
		if s.pressSeen {
			s.dropLatched()
			s.pressSeen = false
		}
	}
}

func (s *Stack) check(l int) error {
	if l == 0 {
		return ErrDefaultLayer
	}
	if l < 0 || l >= len(s.defs) {
		return fmt.Errorf("%w: %d", ErrUnknownLayer, l)
	}
	return nil
}

func (s *Stack) activate(l int, mode Mode) {
	s.modes[l] = mode
	s.order = append(s.order, l)
}

func (s *Stack) deactivate(l int) {
	s.modes[l] = ModeOff
	for i, v := range s.order {
		if v == l {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Stack) hasLatched() bool {
	for _, l := range s.order {
		if s.modes[l] == ModeLatch {
			return true
		}
	}
	return false
}

func (s *Stack) dropLatched() {
	for i := len(s.order) - 1; i >= 0; i-- {
		if s.modes[s.order[i]] == ModeLatch {
			s.deactivate(s.order[i])
		}
	}
}
