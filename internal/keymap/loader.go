package keymap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/layer"
	"github.com/keebforge/kllcore/internal/result"
	"github.com/keebforge/kllcore/internal/scancode"
	"github.com/keebforge/kllcore/internal/trigger"
)

// Loader errors.
var (
	// ErrUnknownFormat indicates a layout file extension with no decoder.
	ErrUnknownFormat = errors.New("keymap: unknown layout format")

	// ErrUnknownCapability indicates a step naming a capability absent
	// from the table.
	ErrUnknownCapability = errors.New("keymap: unknown capability")

	// ErrUnknownState indicates an unparseable key-state name.
	ErrUnknownState = errors.New("keymap: unknown key state")
)

// Layout is the on-disk layout definition, the editable stand-in for
// the compiler-emitted table header. TOML is the primary format; YAML
// is accepted for generated layouts.
type Layout struct {
	Name        string        `toml:"name" yaml:"name"`
	MaxScanCode int           `toml:"max_scan_code" yaml:"max_scan_code"`
	Offsets     []int         `toml:"offsets" yaml:"offsets"`
	Strings     []string      `toml:"strings" yaml:"strings"`
	Scripts     []ScriptSpec  `toml:"scripts" yaml:"scripts"`
	Results     []ResultSpec  `toml:"results" yaml:"results"`
	Triggers    []TriggerSpec `toml:"triggers" yaml:"triggers"`
	Layers      []LayerSpec   `toml:"layers" yaml:"layers"`
	Positions   []PosSpec     `toml:"positions" yaml:"positions"`
	RotationMax []int         `toml:"rotation_max" yaml:"rotation_max"`
}

// ScriptSpec declares a Lua-implemented capability. The loader does not
// compile scripts; the host turns these into descriptors and passes
// them to Build.
type ScriptSpec struct {
	Name   string `toml:"name" yaml:"name"`
	Args   int    `toml:"args" yaml:"args"`
	Source string `toml:"source" yaml:"source"`
	File   string `toml:"file" yaml:"file"`
}

// StepSpec is one result-macro step. State defaults to press.
type StepSpec struct {
	Capability string `toml:"capability" yaml:"capability"`
	Args       []int  `toml:"args" yaml:"args"`
	State      string `toml:"state" yaml:"state"`
	Delay      int    `toml:"delay" yaml:"delay"`
}

// ResultSpec is one result macro.
type ResultSpec struct {
	Steps []StepSpec `toml:"steps" yaml:"steps"`
}

// ConditionSpec is one combo condition. State defaults to press.
type ConditionSpec struct {
	Code  int    `toml:"code" yaml:"code"`
	State string `toml:"state" yaml:"state"`
}

// ComboSpec is one combo in a trigger sequence.
type ComboSpec struct {
	Timeout    int             `toml:"timeout" yaml:"timeout"`
	Conditions []ConditionSpec `toml:"conditions" yaml:"conditions"`
}

// TriggerSpec is one trigger macro.
type TriggerSpec struct {
	Result int         `toml:"result" yaml:"result"`
	Combos []ComboSpec `toml:"combos" yaml:"combos"`
}

// BindingSpec binds a scan code to trigger macros within a layer.
type BindingSpec struct {
	Code     int   `toml:"code" yaml:"code"`
	Triggers []int `toml:"triggers" yaml:"triggers"`
}

// LayerSpec is one layer; the first layer in the file is the default.
type LayerSpec struct {
	Name     string        `toml:"name" yaml:"name"`
	Bindings []BindingSpec `toml:"bindings" yaml:"bindings"`
}

// PosSpec is a physical position for one scan code.
type PosSpec struct {
	Code int     `toml:"code" yaml:"code"`
	X    float64 `toml:"x" yaml:"x"`
	Y    float64 `toml:"y" yaml:"y"`
	Z    float64 `toml:"z" yaml:"z"`
	RX   float64 `toml:"rx" yaml:"rx"`
	RY   float64 `toml:"ry" yaml:"ry"`
	RZ   float64 `toml:"rz" yaml:"rz"`
}

// LoadFile reads and parses a layout file, choosing the decoder by
// file extension.
func LoadFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keymap: reading layout %s: %w", path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes layout data. ext selects the format: ".toml" or
// ".yaml"/".yml".
func Parse(data []byte, ext string) (*Layout, error) {
	var l Layout
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("keymap: parsing toml layout: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("keymap: parsing yaml layout: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	return &l, nil
}

// Build assembles and validates the table set. The capability table is
// the builtins followed by extra descriptors (typically compiled from
// the layout's script specs) in order.
func (l *Layout) Build(out capability.Output, extra []capability.Descriptor) (*Tables, error) {
	if l.MaxScanCode <= 0 || l.MaxScanCode > int(scancode.Limit) {
		return nil, fmt.Errorf("keymap: max scan code %d outside (0, %d]", l.MaxScanCode, scancode.Limit)
	}

	pool, err := NewUTF8Pool(l.Strings)
	if err != nil {
		return nil, err
	}

	caps := append(capability.Builtins(out, pool), extra...)
	table, err := capability.NewTable(caps)
	if err != nil {
		return nil, err
	}

	results := make([]result.Macro, 0, len(l.Results))
	for ri, rs := range l.Results {
		steps := make([]result.Step, 0, len(rs.Steps))
		for si, ss := range rs.Steps {
			ci, ok := table.Lookup(ss.Capability)
			if !ok {
				return nil, fmt.Errorf("result %d step %d: %w: %q", ri, si, ErrUnknownCapability, ss.Capability)
			}
			st, err := parseState(ss.State)
			if err != nil {
				return nil, fmt.Errorf("result %d step %d: %w", ri, si, err)
			}
			args, err := packArgs(ss.Args)
			if err != nil {
				return nil, fmt.Errorf("result %d step %d: %w", ri, si, err)
			}
			steps = append(steps, result.Step{
				Capability: ci,
				Args:       args,
				State:      st,
				DelayTicks: uint32(ss.Delay),
			})
		}
		results = append(results, result.Macro{Steps: steps})
	}

	triggers := make([]trigger.Macro, 0, len(l.Triggers))
	for ti, ts := range l.Triggers {
		combos := make([]trigger.Combo, 0, len(ts.Combos))
		for ci, cs := range ts.Combos {
			conds := make([]trigger.Condition, 0, len(cs.Conditions))
			for _, cond := range cs.Conditions {
				st, err := parseState(cond.State)
				if err != nil {
					return nil, fmt.Errorf("trigger %d combo %d: %w", ti, ci, err)
				}
				conds = append(conds, trigger.Condition{
					Code:  scancode.Code(cond.Code),
					State: st,
				})
			}
			combos = append(combos, trigger.Combo{
				Conditions:   conds,
				TimeoutTicks: uint32(cs.Timeout),
			})
		}
		triggers = append(triggers, trigger.Macro{Combos: combos, Result: ts.Result})
	}

	layers := make([]layer.Definition, 0, len(l.Layers))
	for _, ls := range l.Layers {
		m := make(layer.Map, len(ls.Bindings))
		for _, b := range ls.Bindings {
			m[scancode.Code(b.Code)] = b.Triggers
		}
		layers = append(layers, layer.Definition{Name: ls.Name, Map: m})
	}

	offsets := make(scancode.OffsetList, 0, len(l.Offsets))
	for _, off := range l.Offsets {
		offsets = append(offsets, scancode.Code(off))
	}
	if len(offsets) == 0 {
		// Single-matrix boards omit the offset list; node 0 is implied.
		offsets = scancode.OffsetList{0}
	}

	var positions []Position
	if len(l.Positions) > 0 {
		positions = make([]Position, l.MaxScanCode)
		for _, ps := range l.Positions {
			if ps.Code < 0 || ps.Code >= l.MaxScanCode {
				return nil, fmt.Errorf("position for code %d: %w", ps.Code, ErrCodeOutOfRange)
			}
			positions[ps.Code] = Position{X: ps.X, Y: ps.Y, Z: ps.Z, RX: ps.RX, RY: ps.RY, RZ: ps.RZ}
		}
	}

	rotation := make([]uint8, 0, len(l.RotationMax))
	for i, r := range l.RotationMax {
		if r < 0 || r > 0xFF {
			return nil, fmt.Errorf("keymap: rotation max %d at index %d outside [0, 255]", r, i)
		}
		rotation = append(rotation, uint8(r))
	}

	tables := &Tables{
		Name:          l.Name,
		MaxScanCode:   scancode.Code(l.MaxScanCode),
		Capabilities:  table,
		ResultMacros:  results,
		TriggerMacros: triggers,
		Layers:        layers,
		Offsets:       offsets,
		Positions:     positions,
		RotationMax:   rotation,
		Strings:       pool,
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables, nil
}

// parseState maps a layout state name to a key state; empty means press.
func parseState(name string) (keystate.State, error) {
	if name == "" {
		return keystate.StatePress, nil
	}
	st, ok := keystate.FromName(strings.ToLower(name))
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return st, nil
}

// packArgs converts layout arg values to packed bytes.
func packArgs(args []int) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for i, a := range args {
		if a < 0 || a > 0xFF {
			return nil, fmt.Errorf("keymap: arg %d value %d outside [0, 255]", i, a)
		}
		out = append(out, byte(a))
	}
	return out, nil
}
