// Package keystate models per-key switch states and the debounce
// machinery that turns raw matrix readings into clean state events.
package keystate

import (
	"fmt"

	"github.com/keebforge/kllcore/internal/scancode"
)

// State is the reported condition of a key switch.
type State uint8

const (
	// StateOff indicates the key is up and has already reported its release.
	StateOff State = iota

	// StatePress indicates the key went down this scan.
	StatePress

	// StateHold indicates the key is still down after reporting a press.
	StateHold

	// StateRelease indicates the key went up this scan.
	StateRelease
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StatePress:
		return "press"
	case StateHold:
		return "hold"
	case StateRelease:
		return "release"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// IsActive returns true while the key is down.
func (s State) IsActive() bool {
	return s == StatePress || s == StateHold
}

// stateNameMap maps state names (lowercase) to State values.
var stateNameMap = map[string]State{
	"off":     StateOff,
	"press":   StatePress,
	"hold":    StateHold,
	"release": StateRelease,
}

// FromName returns the State for a given name.
func FromName(name string) (State, bool) {
	s, ok := stateNameMap[name]
	return s, ok
}

// Event is a state change for one key, as produced by the scan module
// and consumed by the trigger evaluator.
type Event struct {
	// Code is the scan code the event refers to. For raw events this is
	// the node-local code; after normalization it is canonical.
	Code scancode.Code

	// State is the reported key condition.
	State State

	// Ticks counts scheduling ticks the key has spent in State.
	Ticks uint32
}

// String returns a compact form like "press 0x04".
func (e Event) String() string {
	return e.State.String() + " " + e.Code.String()
}
