// Package layer implements the stacked-layer scan-code resolution
// scheme: a default layer that is always enabled, shadowed by layers
// activated in shift, latch or lock mode, most recent first.
package layer

import (
	"fmt"

	"github.com/keebforge/kllcore/internal/scancode"
)

// Mode is a layer's enable mode.
type Mode uint8

const (
	// ModeOff indicates the layer is inactive.
	ModeOff Mode = iota

	// ModeShift indicates the layer is active while its trigger key is held.
	ModeShift

	// ModeLatch indicates the layer is active until the next full
	// press-release of any key.
	ModeLatch

	// ModeLock indicates the layer is active until explicitly toggled off.
	ModeLock
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeShift:
		return "shift"
	case ModeLatch:
		return "latch"
	case ModeLock:
		return "lock"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// modeNameMap maps mode names (lowercase) to Mode values.
var modeNameMap = map[string]Mode{
	"off":   ModeOff,
	"shift": ModeShift,
	"latch": ModeLatch,
	"lock":  ModeLock,
}

// ModeFromName returns the Mode for a given name.
func ModeFromName(name string) (Mode, bool) {
	m, ok := modeNameMap[name]
	return m, ok
}

// Map is a sparse scan-code mapping to trigger-macro indices. Codes
// absent from the map fall through to the next layer down.
type Map map[scancode.Code][]int

// Definition is an immutable layer: a name and its scan map.
type Definition struct {
	Name string
	Map  Map
}

// Triggers returns the trigger indices bound to code, or nil.
func (d Definition) Triggers(code scancode.Code) []int {
	return d.Map[code]
}
