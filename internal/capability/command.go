package capability

import "fmt"

// CommandKind enumerates the layer-stack mutations a capability may
// request from the dispatch loop.
type CommandKind uint8

const (
	// CmdLayerShiftOn activates a layer in shift mode.
	CmdLayerShiftOn CommandKind = iota

	// CmdLayerShiftOff deactivates a shift-mode layer.
	CmdLayerShiftOff

	// CmdLayerLatch activates a layer until the next full press-release.
	CmdLayerLatch

	// CmdLayerLockToggle toggles a layer's locked state.
	CmdLayerLockToggle
)

// String returns the command kind name.
func (k CommandKind) String() string {
	switch k {
	case CmdLayerShiftOn:
		return "layer-shift-on"
	case CmdLayerShiftOff:
		return "layer-shift-off"
	case CmdLayerLatch:
		return "layer-latch"
	case CmdLayerLockToggle:
		return "layer-lock-toggle"
	default:
		return fmt.Sprintf("CommandKind(%d)", k)
	}
}

// Command is a deferred state mutation returned by a capability.
type Command struct {
	Kind  CommandKind
	Layer int
}

// String returns a form like "layer-shift-on 1".
func (c Command) String() string {
	return fmt.Sprintf("%s %d", c.Kind, c.Layer)
}
