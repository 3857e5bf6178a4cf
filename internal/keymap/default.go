package keymap

import (
	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/hid"
	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/layer"
	"github.com/keebforge/kllcore/internal/result"
	"github.com/keebforge/kllcore/internal/scancode"
	"github.com/keebforge/kllcore/internal/trigger"
)

// defaultRunes are the keys the compiled-in layout types directly.
const defaultRunes = "abcdefghijklmnopqrstuvwxyz1234567890 \n\t"

// DefaultFnCode is the scan code the compiled-in layout uses to shift
// to the fn layer (the caps-lock position).
const DefaultFnCode = scancode.Code(hid.UsageCapsLock)

// DefaultTables builds the compiled-in demo layout: a US-style default
// layer where each key's scan code equals its HID usage, plus an fn
// layer (shifted from the caps-lock position) that types a pooled
// string from the h key. Useful for the simulator and as a layout
// example; real boards load their generated layout file instead.
func DefaultTables(out capability.Output) (*Tables, error) {
	pool, err := NewUTF8Pool([]string{"hello"})
	if err != nil {
		return nil, err
	}
	table, err := capability.NewTable(capability.Builtins(out, pool))
	if err != nil {
		return nil, err
	}

	emitKey, _ := table.Lookup(capability.NameEmitKey)
	emitText, _ := table.Lookup(capability.NameEmitText)
	layerShift, _ := table.Lookup(capability.NameLayerShift)

	var (
		results  []result.Macro
		triggers []trigger.Macro
		defMap   = make(layer.Map)
		fnMap    = make(layer.Map)
	)

	// Letter/digit keys: pressing the key types its character.
	for _, r := range defaultRunes {
		usage, ok := hid.UsageForRune(r)
		if !ok {
			continue
		}
		code := scancode.Code(usage)
		args := []byte{byte(usage), byte(usage >> 8)}
		results = append(results, result.Macro{Steps: []result.Step{
			{Capability: emitKey, Args: args, State: keystate.StatePress},
			{Capability: emitKey, Args: args, State: keystate.StateRelease},
		}})
		triggers = append(triggers, trigger.Macro{
			Combos: []trigger.Combo{{Conditions: []trigger.Condition{
				{Code: code, State: keystate.StatePress},
			}}},
			Result: len(results) - 1,
		})
		defMap[code] = []int{len(triggers) - 1}
	}

	// Fn shift: press activates the fn layer, release restores.
	results = append(results, result.Macro{Steps: []result.Step{
		{Capability: layerShift, Args: []byte{1}, State: keystate.StatePress},
	}})
	triggers = append(triggers, trigger.Macro{
		Combos: []trigger.Combo{{Conditions: []trigger.Condition{
			{Code: DefaultFnCode, State: keystate.StatePress},
		}}},
		Result: len(results) - 1,
	})
	fnPress := len(triggers) - 1

	results = append(results, result.Macro{Steps: []result.Step{
		{Capability: layerShift, Args: []byte{1}, State: keystate.StateRelease},
	}})
	triggers = append(triggers, trigger.Macro{
		Combos: []trigger.Combo{{Conditions: []trigger.Condition{
			{Code: DefaultFnCode, State: keystate.StateRelease},
		}}},
		Result: len(results) - 1,
	})
	defMap[DefaultFnCode] = []int{fnPress, len(triggers) - 1}

	// Fn layer: h types the pooled greeting.
	results = append(results, result.Macro{Steps: []result.Step{
		{Capability: emitText, Args: []byte{0, 0}, State: keystate.StatePress},
	}})
	triggers = append(triggers, trigger.Macro{
		Combos: []trigger.Combo{{Conditions: []trigger.Condition{
			{Code: scancode.Code(hid.UsageH), State: keystate.StatePress},
		}}},
		Result: len(results) - 1,
	})
	fnMap[scancode.Code(hid.UsageH)] = []int{len(triggers) - 1}

	tables := &Tables{
		Name:          "default",
		MaxScanCode:   scancode.Limit,
		Capabilities:  table,
		ResultMacros:  results,
		TriggerMacros: triggers,
		Layers: []layer.Definition{
			{Name: "default", Map: defMap},
			{Name: "fn", Map: fnMap},
		},
		Offsets: scancode.OffsetList{0},
		Strings: pool,
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables, nil
}
