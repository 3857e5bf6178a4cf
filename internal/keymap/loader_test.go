package keymap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/scancode"
)

const tomlLayout = `
name = "sixty"
max_scan_code = 64
offsets = [0, 32]
strings = ["hello"]
rotation_max = [255, 16]

[[results]]
  [[results.steps]]
  capability = "emitKey"
  args = [4, 0]
  state = "press"

  [[results.steps]]
  capability = "emitKey"
  args = [4, 0]
  state = "release"
  delay = 2

[[results]]
  [[results.steps]]
  capability = "emitText"
  args = [0, 0]

[[triggers]]
result = 0

  [[triggers.combos]]
    [[triggers.combos.conditions]]
    code = 4

[[triggers]]
result = 1

  [[triggers.combos]]
  timeout = 10

    [[triggers.combos.conditions]]
    code = 4

    [[triggers.combos.conditions]]
    code = 5

[[layers]]
name = "default"

  [[layers.bindings]]
  code = 4
  triggers = [0]

  [[layers.bindings]]
  code = 5
  triggers = [1]

[[layers]]
name = "fn"

  [[layers.bindings]]
  code = 4
  triggers = [1]

[[positions]]
code = 4
x = 19.05
y = 9.5
`

const yamlLayout = `
name: tiny
max_scan_code: 16
results:
  - steps:
      - capability: emitKey
        args: [5, 0]
triggers:
  - result: 0
    combos:
      - conditions:
          - code: 5
layers:
  - name: default
    bindings:
      - code: 5
        triggers: [0]
`

func TestParseTOML(t *testing.T) {
	l, err := Parse([]byte(tomlLayout), ".toml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if l.Name != "sixty" {
		t.Errorf("Name = %q, want %q", l.Name, "sixty")
	}
	if l.MaxScanCode != 64 {
		t.Errorf("MaxScanCode = %d, want 64", l.MaxScanCode)
	}
	if len(l.Results) != 2 || len(l.Triggers) != 2 || len(l.Layers) != 2 {
		t.Fatalf("got %d results, %d triggers, %d layers",
			len(l.Results), len(l.Triggers), len(l.Layers))
	}
	if l.Results[0].Steps[1].Delay != 2 {
		t.Errorf("step delay = %d, want 2", l.Results[0].Steps[1].Delay)
	}
	if l.Triggers[1].Combos[0].Timeout != 10 {
		t.Errorf("combo timeout = %d, want 10", l.Triggers[1].Combos[0].Timeout)
	}
	if len(l.Triggers[1].Combos[0].Conditions) != 2 {
		t.Errorf("got %d conditions, want 2", len(l.Triggers[1].Combos[0].Conditions))
	}
}

func TestParseYAML(t *testing.T) {
	l, err := Parse([]byte(yamlLayout), ".yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if l.Name != "tiny" || l.MaxScanCode != 16 {
		t.Errorf("got name %q max %d", l.Name, l.MaxScanCode)
	}
	if len(l.Layers) != 1 || len(l.Layers[0].Bindings) != 1 {
		t.Fatalf("unexpected layer shape: %+v", l.Layers)
	}
}

func TestParseUnknownFormat(t *testing.T) {
	if _, err := Parse([]byte("{}"), ".json"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Parse() error = %v, want ErrUnknownFormat", err)
	}
}

func TestBuildTOML(t *testing.T) {
	l, err := Parse([]byte(tomlLayout), ".toml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tables, err := l.Build(capability.NewRecorder(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if tables.MaxScanCode != 64 {
		t.Errorf("MaxScanCode = %d, want 64", tables.MaxScanCode)
	}
	if got := tables.Offsets; len(got) != 2 || got[0] != 0 || got[1] != 32 {
		t.Errorf("Offsets = %v", got)
	}
	if got := tables.Strings.Len(); got != 1 {
		t.Errorf("Strings.Len() = %d, want 1", got)
	}

	emitKey, _ := tables.Capabilities.Lookup(capability.NameEmitKey)
	step := tables.ResultMacros[0].Steps[1]
	if step.Capability != emitKey || step.State != keystate.StateRelease || step.DelayTicks != 2 {
		t.Errorf("step = %+v", step)
	}

	combo := tables.TriggerMacros[1].Combos[0]
	if combo.TimeoutTicks != 10 || len(combo.Conditions) != 2 {
		t.Errorf("combo = %+v", combo)
	}
	// Omitted condition state defaults to press.
	if combo.Conditions[0].State != keystate.StatePress {
		t.Errorf("condition state = %v, want press", combo.Conditions[0].State)
	}

	if len(tables.Positions) != 64 {
		t.Fatalf("len(Positions) = %d, want 64", len(tables.Positions))
	}
	if p := tables.Positions[4]; p.X != 19.05 || p.Y != 9.5 {
		t.Errorf("Positions[4] = %v", p)
	}
	if len(tables.RotationMax) != 2 || tables.RotationMax[0] != 255 {
		t.Errorf("RotationMax = %v", tables.RotationMax)
	}
}

func TestBuildDefaultsOffsets(t *testing.T) {
	l, err := Parse([]byte(yamlLayout), ".yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tables, err := l.Build(capability.NewRecorder(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(tables.Offsets) != 1 || tables.Offsets[0] != 0 {
		t.Errorf("Offsets = %v, want [0]", tables.Offsets)
	}
}

func TestBuildErrors(t *testing.T) {
	base := func() *Layout {
		l, err := Parse([]byte(yamlLayout), ".yaml")
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		return l
	}

	t.Run("unknown capability", func(t *testing.T) {
		l := base()
		l.Results[0].Steps[0].Capability = "warpDrive"
		if _, err := l.Build(capability.NewRecorder(), nil); !errors.Is(err, ErrUnknownCapability) {
			t.Errorf("Build() error = %v, want ErrUnknownCapability", err)
		}
	})

	t.Run("unknown state", func(t *testing.T) {
		l := base()
		l.Results[0].Steps[0].State = "wiggle"
		if _, err := l.Build(capability.NewRecorder(), nil); !errors.Is(err, ErrUnknownState) {
			t.Errorf("Build() error = %v, want ErrUnknownState", err)
		}
	})

	t.Run("arg out of byte range", func(t *testing.T) {
		l := base()
		l.Results[0].Steps[0].Args = []int{300, 0}
		if _, err := l.Build(capability.NewRecorder(), nil); err == nil {
			t.Error("Build() with arg 300: want error")
		}
	})

	t.Run("max scan code too large", func(t *testing.T) {
		l := base()
		l.MaxScanCode = int(scancode.Limit) + 1
		if _, err := l.Build(capability.NewRecorder(), nil); err == nil {
			t.Error("Build() beyond code space: want error")
		}
	})

	t.Run("position code out of range", func(t *testing.T) {
		l := base()
		l.Positions = []PosSpec{{Code: 16}}
		if _, err := l.Build(capability.NewRecorder(), nil); !errors.Is(err, ErrCodeOutOfRange) {
			t.Errorf("Build() error = %v, want ErrCodeOutOfRange", err)
		}
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.toml")
	if err := os.WriteFile(path, []byte(tomlLayout), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if l.Name != "sixty" {
		t.Errorf("Name = %q, want %q", l.Name, "sixty")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFile() on missing file: want error")
	}
}

func TestDefaultTables(t *testing.T) {
	rec := capability.NewRecorder()
	tables, err := DefaultTables(rec)
	if err != nil {
		t.Fatalf("DefaultTables() error = %v", err)
	}
	if err := tables.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if len(tables.Layers) != 2 {
		t.Fatalf("got %d layers, want 2", len(tables.Layers))
	}
	// The fn position binds both its press and release triggers.
	if got := tables.Layers[0].Map[DefaultFnCode]; len(got) != 2 {
		t.Errorf("fn bindings = %v, want two triggers", got)
	}
	if got, err := tables.Strings.Lookup(0); err != nil || got != "hello" {
		t.Errorf("Strings.Lookup(0) = %q, %v", got, err)
	}
}
