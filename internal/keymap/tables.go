// Package keymap assembles the generated table set that binds the
// runtime together: capabilities, trigger and result macros, per-layer
// scan maps, interconnect offsets and the ancillary tables. The table
// set is the binary contract between the build-time compiler and the
// engine; Validate enforces every cross-table invariant once at load
// time so the runtime can treat violations as unreachable.
package keymap

import (
	"errors"
	"fmt"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/layer"
	"github.com/keebforge/kllcore/internal/result"
	"github.com/keebforge/kllcore/internal/scancode"
	"github.com/keebforge/kllcore/internal/trigger"
)

// Validation errors.
var (
	// ErrNoCapabilities indicates an empty capability table.
	ErrNoCapabilities = errors.New("keymap: no capabilities")

	// ErrNoLayers indicates a table set without a default layer.
	ErrNoLayers = errors.New("keymap: no layers")

	// ErrBadResultIndex indicates a trigger macro referencing a result
	// macro outside the table.
	ErrBadResultIndex = errors.New("keymap: result index out of range")

	// ErrBadCapabilityIndex indicates a result step referencing a
	// capability outside the table.
	ErrBadCapabilityIndex = errors.New("keymap: capability index out of range")

	// ErrBadArgBytes indicates a result step whose packed arguments do
	// not match the capability schema.
	ErrBadArgBytes = errors.New("keymap: step args do not match capability schema")

	// ErrBadTriggerIndex indicates a layer binding referencing a
	// trigger macro outside the table.
	ErrBadTriggerIndex = errors.New("keymap: trigger index out of range")

	// ErrCodeOutOfRange indicates a scan code at or beyond MaxScanCode.
	ErrCodeOutOfRange = errors.New("keymap: scan code out of range")
)

// Tables is the full generated table set consumed by the engine.
// Everything here is immutable after Validate; the only runtime-mutable
// state (trigger records, layer enable modes) lives in the engine.
type Tables struct {
	// Name labels the layout, for logs and tooling.
	Name string

	// MaxScanCode is the exclusive bound of the canonical code space.
	MaxScanCode scancode.Code

	// Capabilities is the indexed dispatch table.
	Capabilities *capability.Table

	// ResultMacros is the indexed result-macro table.
	ResultMacros []result.Macro

	// TriggerMacros is the indexed trigger-macro table. The engine
	// builds the parallel record arena from it.
	TriggerMacros []trigger.Macro

	// Layers holds the per-layer scan maps; index 0 is the default.
	Layers []layer.Definition

	// Offsets is the per-interconnect-node scan-code base offset list.
	Offsets scancode.OffsetList

	// Positions holds the physical key positions, index-aligned with
	// scan codes. May be empty; consumed only by layout tooling.
	Positions []Position

	// RotationMax holds per-index maximum rotation parameters for
	// analog converters. May be empty.
	RotationMax []uint8

	// Strings is the shared UTF-8 pool for text-emitting capabilities.
	Strings *UTF8Pool
}

// Validate checks every cross-table invariant. A table set that passes
// makes the runtime's out-of-range paths unreachable.
func (t *Tables) Validate() error {
	if t.MaxScanCode == 0 || t.MaxScanCode > scancode.Limit {
		return fmt.Errorf("keymap: max scan code %d outside (0, %d]", t.MaxScanCode, scancode.Limit)
	}
	if t.Capabilities == nil || t.Capabilities.Len() == 0 {
		return ErrNoCapabilities
	}
	if len(t.Layers) == 0 {
		return ErrNoLayers
	}

	for node, off := range t.Offsets {
		if off >= t.MaxScanCode {
			return fmt.Errorf("keymap: node %d offset %s: %w", node, off, ErrCodeOutOfRange)
		}
	}

	for i, m := range t.ResultMacros {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("result macro %d: %w", i, err)
		}
		for si, step := range m.Steps {
			if step.Capability < 0 || step.Capability >= t.Capabilities.Len() {
				return fmt.Errorf("result macro %d step %d: %w", i, si, ErrBadCapabilityIndex)
			}
			want := t.Capabilities.Descriptor(step.Capability).ArgBytes
			if len(step.Args) != want {
				return fmt.Errorf("result macro %d step %d (%s): %w: got %d, want %d",
					i, si, t.Capabilities.Descriptor(step.Capability).Name, ErrBadArgBytes, len(step.Args), want)
			}
		}
	}

	for i, m := range t.TriggerMacros {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("trigger macro %d: %w", i, err)
		}
		if m.Result < 0 || m.Result >= len(t.ResultMacros) {
			return fmt.Errorf("trigger macro %d: %w: %d", i, ErrBadResultIndex, m.Result)
		}
		for ci, combo := range m.Combos {
			for _, cond := range combo.Conditions {
				if cond.Code >= t.MaxScanCode {
					return fmt.Errorf("trigger macro %d combo %d (%s): %w", i, ci, cond.Code, ErrCodeOutOfRange)
				}
			}
		}
	}

	for li, def := range t.Layers {
		for code, triggers := range def.Map {
			if code >= t.MaxScanCode {
				return fmt.Errorf("layer %d (%s) code %s: %w", li, def.Name, code, ErrCodeOutOfRange)
			}
			if len(triggers) == 0 {
				return fmt.Errorf("layer %d (%s) code %s: empty trigger list", li, def.Name, code)
			}
			for _, ti := range triggers {
				if ti < 0 || ti >= len(t.TriggerMacros) {
					return fmt.Errorf("layer %d (%s) code %s: %w: %d", li, def.Name, code, ErrBadTriggerIndex, ti)
				}
			}
		}
	}

	if len(t.Positions) > int(t.MaxScanCode) {
		return fmt.Errorf("keymap: %d positions for %d scan codes", len(t.Positions), t.MaxScanCode)
	}
	return nil
}
