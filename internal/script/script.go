// Package script compiles Lua-defined capabilities declared in a
// layout into dispatch-table descriptors. A scripted capability is a
// Lua chunk returning a function; the engine invokes it like any
// builtin, with the trigger state and packed argument bytes.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/hid"
	"github.com/keebforge/kllcore/internal/keymap"
)

// Script errors.
var (
	// ErrNoSource indicates a script spec with neither inline source
	// nor a file reference.
	ErrNoSource = errors.New("script: no source")

	// ErrNotFunction indicates a chunk that did not return a function.
	ErrNotFunction = errors.New("script: chunk did not return a function")

	// ErrBadCommand indicates a script returning a malformed command table.
	ErrBadCommand = errors.New("script: malformed command")

	// ErrNoName indicates a script spec without a capability name.
	ErrNoName = errors.New("script: capability has no name")
)

// commandKinds maps the command names scripts return to engine commands.
var commandKinds = map[string]capability.CommandKind{
	"layer_shift_on":    capability.CmdLayerShiftOn,
	"layer_shift_off":   capability.CmdLayerShiftOff,
	"layer_latch":       capability.CmdLayerLatch,
	"layer_lock_toggle": capability.CmdLayerLockToggle,
}

// Engine owns a single sandboxed Lua state shared by every scripted
// capability. The state is not goroutine-safe; the dispatch loop is the
// only caller, so every invocation runs on one goroutine.
type Engine struct {
	l   *lua.LState
	out capability.Output
}

// NewEngine creates a script engine emitting into out.
func NewEngine(out capability.Output) *Engine {
	l := lua.NewState()
	e := &Engine{l: l, out: out}
	e.sandbox()
	e.installAPI()
	return e
}

// Close releases the Lua state. No capability compiled by this engine
// may be invoked afterwards.
func (e *Engine) Close() {
	e.l.Close()
}

// sandbox strips the loaders that would let a layout script reach the
// filesystem or load arbitrary chunks at run time.
func (e *Engine) sandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		e.l.SetGlobal(name, lua.LNil)
	}
	if pkg, ok := e.l.GetGlobal("package").(*lua.LTable); ok {
		e.l.SetField(pkg, "path", lua.LString(""))
		e.l.SetField(pkg, "cpath", lua.LString(""))
	}
}

// installAPI registers the kb table: press/release by HID usage number
// and text emission, backed by the engine's output.
func (e *Engine) installAPI() {
	kb := e.l.NewTable()
	e.l.SetField(kb, "press", e.l.NewFunction(func(l *lua.LState) int {
		usage := l.CheckInt(1)
		if err := e.out.KeyPress(hid.Usage(usage)); err != nil {
			l.RaiseError("press: %v", err)
		}
		return 0
	}))
	e.l.SetField(kb, "release", e.l.NewFunction(func(l *lua.LState) int {
		usage := l.CheckInt(1)
		if err := e.out.KeyRelease(hid.Usage(usage)); err != nil {
			l.RaiseError("release: %v", err)
		}
		return 0
	}))
	e.l.SetField(kb, "text", e.l.NewFunction(func(l *lua.LState) int {
		if err := e.out.Text(l.CheckString(1)); err != nil {
			l.RaiseError("text: %v", err)
		}
		return 0
	}))
	e.l.SetGlobal("kb", kb)
}

// Compile turns one script spec into a capability descriptor. File
// references resolve relative to baseDir.
func (e *Engine) Compile(spec keymap.ScriptSpec, baseDir string) (capability.Descriptor, error) {
	if spec.Name == "" {
		return capability.Descriptor{}, ErrNoName
	}
	if spec.Args < 0 || spec.Args > 0xFF {
		return capability.Descriptor{}, fmt.Errorf("script %s: arg count %d outside [0, 255]", spec.Name, spec.Args)
	}

	src := spec.Source
	if src == "" {
		if spec.File == "" {
			return capability.Descriptor{}, fmt.Errorf("%w: %s", ErrNoSource, spec.Name)
		}
		data, err := os.ReadFile(filepath.Join(baseDir, spec.File))
		if err != nil {
			return capability.Descriptor{}, fmt.Errorf("script %s: %w", spec.Name, err)
		}
		src = string(data)
	}

	fn, err := e.l.LoadString(src)
	if err != nil {
		return capability.Descriptor{}, fmt.Errorf("script %s: %w", spec.Name, err)
	}
	e.l.Push(fn)
	if err := e.l.PCall(0, 1, nil); err != nil {
		return capability.Descriptor{}, fmt.Errorf("script %s: %w", spec.Name, err)
	}
	handler, ok := e.l.Get(-1).(*lua.LFunction)
	e.l.Pop(1)
	if !ok {
		return capability.Descriptor{}, fmt.Errorf("%w: %s", ErrNotFunction, spec.Name)
	}

	name := spec.Name
	return capability.Descriptor{
		Name:     name,
		ArgBytes: spec.Args,
		Func:     e.invoker(name, handler),
	}, nil
}

// CompileAll compiles every spec in order, as the loader expects for
// the extra-descriptor list.
func (e *Engine) CompileAll(specs []keymap.ScriptSpec, baseDir string) ([]capability.Descriptor, error) {
	descs := make([]capability.Descriptor, 0, len(specs))
	for _, spec := range specs {
		d, err := e.Compile(spec, baseDir)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// invoker adapts a compiled Lua handler to the capability signature.
// The handler receives the state name followed by one integer per
// argument byte, and may return a table of command tables.
func (e *Engine) invoker(name string, handler *lua.LFunction) capability.Func {
	return func(inv capability.Invocation) ([]capability.Command, error) {
		e.l.Push(handler)
		e.l.Push(lua.LString(inv.State.String()))
		for _, b := range inv.Args {
			e.l.Push(lua.LNumber(b))
		}
		if err := e.l.PCall(1+len(inv.Args), 1, nil); err != nil {
			return nil, fmt.Errorf("script %s: %w", name, err)
		}
		ret := e.l.Get(-1)
		e.l.Pop(1)
		return e.commands(name, ret)
	}
}

// commands converts a handler's return value into engine commands. nil
// and false mean no commands.
func (e *Engine) commands(name string, v lua.LValue) ([]capability.Command, error) {
	switch t := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return nil, nil
	case *lua.LTable:
		var cmds []capability.Command
		var convErr error
		t.ForEach(func(_, item lua.LValue) {
			if convErr != nil {
				return
			}
			entry, ok := item.(*lua.LTable)
			if !ok {
				convErr = fmt.Errorf("script %s: %w: entry is %s", name, ErrBadCommand, item.Type())
				return
			}
			kindName, ok := e.l.GetField(entry, "kind").(lua.LString)
			if !ok {
				convErr = fmt.Errorf("script %s: %w: missing kind", name, ErrBadCommand)
				return
			}
			kind, ok := commandKinds[string(kindName)]
			if !ok {
				convErr = fmt.Errorf("script %s: %w: unknown kind %q", name, ErrBadCommand, string(kindName))
				return
			}
			layerNum, ok := e.l.GetField(entry, "layer").(lua.LNumber)
			if !ok {
				convErr = fmt.Errorf("script %s: %w: missing layer", name, ErrBadCommand)
				return
			}
			cmds = append(cmds, capability.Command{Kind: kind, Layer: int(layerNum)})
		})
		if convErr != nil {
			return nil, convErr
		}
		return cmds, nil
	default:
		return nil, fmt.Errorf("script %s: %w: returned %s", name, ErrBadCommand, v.Type())
	}
}
