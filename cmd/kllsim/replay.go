package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/engine"
	"github.com/keebforge/kllcore/internal/hid"
	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/scancode"
)

// flushTicks bounds how long a replay waits for delayed result-macro
// steps after the script ends.
const flushTicks = 64

// replayer holds the state of one script run: the engine under test,
// its output recorder, and a debounced switch per scanned key.
type replayer struct {
	eng      *engine.Engine
	rec      *capability.Recorder
	w        io.Writer
	switches map[scancode.Code]*keystate.Switch
}

// runReplay executes a scan-event script line by line and prints every
// resulting output action. Script grammar, one directive per line:
//
//	press <key>        key goes down (clean edge)
//	release <key>      key goes up (clean edge)
//	scan <key> <on|off> [n]
//	                   n raw matrix samples through the debouncer
//	                   (default 1); settled edges reach the engine
//	tick [n]           advance n scheduling ticks (default 1)
//	# ...              comment
//
// <key> is a hex scan code like 0x04 or a single US-layout character.
// Events take effect on the next tick, exactly as on hardware.
func runReplay(eng *engine.Engine, rec *capability.Recorder, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := &replayer{
		eng:      eng,
		rec:      rec,
		w:        w,
		switches: make(map[scancode.Code]*keystate.Switch),
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.line(line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Let delayed steps drain.
	for i := 0; i < flushTicks && eng.Stats().PendingMacros > 0; i++ {
		if err := r.tick(); err != nil {
			return err
		}
	}
	return nil
}

func (r *replayer) line(line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "press", "release":
		if len(fields) != 2 {
			return fmt.Errorf("%s wants one key argument", fields[0])
		}
		code, err := parseKey(fields[1])
		if err != nil {
			return err
		}
		state := keystate.StatePress
		if fields[0] == "release" {
			state = keystate.StateRelease
		}
		return r.eng.OfferCode(code, state)

	case "scan":
		if len(fields) != 3 && len(fields) != 4 {
			return fmt.Errorf("scan wants <key> <on|off> [n]")
		}
		code, err := parseKey(fields[1])
		if err != nil {
			return err
		}
		var on bool
		switch fields[2] {
		case "on":
			on = true
		case "off":
		default:
			return fmt.Errorf("bad scan reading %q", fields[2])
		}
		n := 1
		if len(fields) == 4 {
			v, err := strconv.Atoi(fields[3])
			if err != nil || v < 1 {
				return fmt.Errorf("bad sample count %q", fields[3])
			}
			n = v
		}
		return r.scan(code, on, n)

	case "tick":
		n := 1
		if len(fields) == 2 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 1 {
				return fmt.Errorf("bad tick count %q", fields[1])
			}
			n = v
		}
		for i := 0; i < n; i++ {
			if err := r.tick(); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown directive %q", fields[0])
	}
}

// scan runs n raw samples through the key's debounced switch; only
// settled press and release edges are offered to the engine.
func (r *replayer) scan(code scancode.Code, on bool, n int) error {
	sw, ok := r.switches[code]
	if !ok {
		sw = keystate.NewSwitch(keystate.DefaultDebounceConfig())
		r.switches[code] = sw
	}
	for i := 0; i < n; i++ {
		switch st := sw.Scan(on); st {
		case keystate.StatePress, keystate.StateRelease:
			if err := r.eng.OfferCode(code, st); err != nil {
				return err
			}
		}
	}
	return nil
}

// tick advances the engine one tick and prints the output actions it
// produced.
func (r *replayer) tick() error {
	if err := r.eng.Tick(); err != nil {
		return err
	}
	for _, ev := range r.rec.Events() {
		fmt.Fprintln(r.w, formatOutput(ev))
	}
	r.rec.Reset()
	return nil
}

// parseKey accepts a hex scan code (0x04) or a single US-layout rune.
func parseKey(s string) (scancode.Code, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("bad scan code %q", s)
		}
		return scancode.Code(v), nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("bad key %q", s)
	}
	usage, ok := hid.UsageForRune(runes[0])
	if !ok {
		return 0, fmt.Errorf("no scan code for %q", s)
	}
	return scancode.Code(usage), nil
}

// formatOutput renders one recorded action, preferring the character a
// usage maps to over its raw number.
func formatOutput(ev capability.OutputEvent) string {
	switch ev.Kind {
	case "text":
		return fmt.Sprintf("text %q", ev.Text)
	default:
		if r, ok := hid.RuneForUsage(ev.Usage); ok {
			return fmt.Sprintf("%s %q", ev.Kind, r)
		}
		return fmt.Sprintf("%s 0x%02X", ev.Kind, uint16(ev.Usage))
	}
}
