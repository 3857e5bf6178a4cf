package keystate

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateOff, "off"},
		{StatePress, "press"},
		{StateHold, "hold"},
		{StateRelease, "release"},
		{State(42), "State(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestFromName(t *testing.T) {
	for _, name := range []string{"off", "press", "hold", "release"} {
		s, ok := FromName(name)
		if !ok {
			t.Errorf("FromName(%q) not found", name)
			continue
		}
		if s.String() != name {
			t.Errorf("FromName(%q).String() = %q", name, s.String())
		}
	}
	if _, ok := FromName("bogus"); ok {
		t.Error("FromName(bogus) should not resolve")
	}
}

func TestIsActive(t *testing.T) {
	if StateOff.IsActive() || StateRelease.IsActive() {
		t.Error("off/release should not be active")
	}
	if !StatePress.IsActive() || !StateHold.IsActive() {
		t.Error("press/hold should be active")
	}
}

// fast debounce config: 1 cycle of stability flips the settled state.
var testCfg = DebounceConfig{ScanPeriodUS: 1000, DebounceUS: 1000, IdleMS: 2}

func TestDebouncerIgnoresBounce(t *testing.T) {
	d := NewDebouncer(testCfg)

	// Alternate readings never settle.
	for i := 0; i < 10; i++ {
		d.Record(i%2 == 0)
	}
	if d.Settled() {
		t.Error("bouncing input should not settle on")
	}
}

func TestDebouncerSettles(t *testing.T) {
	d := NewDebouncer(testCfg)

	d.Record(true) // bounce, restarts window
	on, _, _ := d.Record(true)
	if !on {
		t.Error("stable on reading should settle on")
	}

	d.Record(false)
	on, _, _ = d.Record(false)
	if on {
		t.Error("stable off reading should settle off")
	}
}

func TestDebouncerIdle(t *testing.T) {
	d := NewDebouncer(testCfg)

	var idle bool
	for i := 0; i < 10; i++ {
		_, idle, _ = d.Record(false)
	}
	if !idle {
		t.Error("key off for many cycles should be idle")
	}

	d.Record(true)
	_, idle, _ = d.Record(true)
	if idle {
		t.Error("pressed key should not be idle")
	}
}

func TestSwitchEdges(t *testing.T) {
	s := NewSwitch(testCfg)

	// Stabilize on: first reading is a bounce, second settles.
	if got := s.Scan(true); got != StateOff {
		t.Errorf("during debounce: got %v, want off", got)
	}
	if got := s.Scan(true); got != StatePress {
		t.Errorf("rising edge: got %v, want press", got)
	}
	if got := s.Scan(true); got != StateHold {
		t.Errorf("steady on: got %v, want hold", got)
	}

	// Stabilize off.
	if got := s.Scan(false); got != StateHold {
		t.Errorf("during debounce: got %v, want hold", got)
	}
	if got := s.Scan(false); got != StateRelease {
		t.Errorf("falling edge: got %v, want release", got)
	}
	if got := s.Scan(false); got != StateOff {
		t.Errorf("steady off: got %v, want off", got)
	}
}
