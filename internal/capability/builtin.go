package capability

import (
	"encoding/binary"
	"fmt"

	"github.com/keebforge/kllcore/internal/hid"
	"github.com/keebforge/kllcore/internal/keystate"
)

// Builtin capability names, stable across table builds.
const (
	NameNone       = "none"
	NameEmitKey    = "emitKey"
	NameEmitText   = "emitText"
	NameLayerShift = "layerShift"
	NameLayerLatch = "layerLatch"
	NameLayerLock  = "layerLock"
)

// TextLookup resolves a 16-bit pool index to a UTF-8 string. The
// keymap string pool implements it.
type TextLookup interface {
	Lookup(index uint16) (string, error)
}

// Builtins returns the standard capability set in a fixed order:
// none, emitKey, emitText, layerShift, layerLatch, layerLock.
func Builtins(out Output, text TextLookup) []Descriptor {
	return []Descriptor{
		{Name: NameNone, ArgBytes: 0, Func: noOp},
		{Name: NameEmitKey, ArgBytes: 2, Func: emitKey(out)},
		{Name: NameEmitText, ArgBytes: 2, Func: emitText(out, text)},
		{Name: NameLayerShift, ArgBytes: 1, Func: layerShift},
		{Name: NameLayerLatch, ArgBytes: 1, Func: layerLatch},
		{Name: NameLayerLock, ArgBytes: 1, Func: layerLock},
	}
}

// noOp does nothing; generated tables use it for padding entries.
func noOp(Invocation) ([]Command, error) {
	return nil, nil
}

// emitKey presses or releases a HID usage. Args: usage, little endian.
func emitKey(out Output) Func {
	return func(inv Invocation) ([]Command, error) {
		usage := hid.Usage(binary.LittleEndian.Uint16(inv.Args))
		switch inv.State {
		case keystate.StatePress:
			return nil, out.KeyPress(usage)
		case keystate.StateRelease:
			return nil, out.KeyRelease(usage)
		default:
			// Held keys keep their report bit; nothing new to emit.
			return nil, nil
		}
	}
}

// emitText sends a pooled UTF-8 string once, on press.
// Args: pool index, little endian.
func emitText(out Output, text TextLookup) Func {
	return func(inv Invocation) ([]Command, error) {
		if inv.State != keystate.StatePress {
			return nil, nil
		}
		index := binary.LittleEndian.Uint16(inv.Args)
		s, err := text.Lookup(index)
		if err != nil {
			return nil, fmt.Errorf("capability: %s: %w", NameEmitText, err)
		}
		return nil, out.Text(s)
	}
}

// layerShift activates a layer while the trigger key is held.
// Args: layer index.
func layerShift(inv Invocation) ([]Command, error) {
	layer := int(inv.Args[0])
	switch inv.State {
	case keystate.StatePress:
		return []Command{{Kind: CmdLayerShiftOn, Layer: layer}}, nil
	case keystate.StateRelease:
		return []Command{{Kind: CmdLayerShiftOff, Layer: layer}}, nil
	default:
		return nil, nil
	}
}

// layerLatch arms a layer for the next keypress. Args: layer index.
func layerLatch(inv Invocation) ([]Command, error) {
	if inv.State != keystate.StatePress {
		return nil, nil
	}
	return []Command{{Kind: CmdLayerLatch, Layer: int(inv.Args[0])}}, nil
}

// layerLock toggles a layer's locked state. Args: layer index.
func layerLock(inv Invocation) ([]Command, error) {
	if inv.State != keystate.StatePress {
		return nil, nil
	}
	return []Command{{Kind: CmdLayerLockToggle, Layer: int(inv.Args[0])}}, nil
}
