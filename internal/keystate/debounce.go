package keystate

// DebounceConfig sets the timing constants for a Debouncer.
// All keys on a matrix share one configuration.
type DebounceConfig struct {
	// ScanPeriodUS is the microseconds between matrix scans.
	ScanPeriodUS uint32

	// DebounceUS is how long a reading must stay stable before the
	// settled state changes.
	DebounceUS uint32

	// IdleMS is how long a key must stay off before it is considered idle.
	IdleMS uint32
}

// DefaultDebounceConfig matches a 1 kHz scan with 5 ms debounce.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		ScanPeriodUS: 1000,
		DebounceUS:   5000,
		IdleMS:       1000,
	}
}

// Debouncer filters raw GPIO readings for a single key. The raw state
// tracks every bounce; the settled state only changes once a reading
// has been stable for the configured debounce interval.
type Debouncer struct {
	cfg DebounceConfig

	rawOn     bool
	settledOn bool
	idle      bool

	// cycles since the last raw-state bounce
	sinceBounce uint32

	// cycles since the settled state last changed
	sinceChange uint32
}

// NewDebouncer creates a debouncer with the given timing configuration.
func NewDebouncer(cfg DebounceConfig) *Debouncer {
	return &Debouncer{cfg: cfg}
}

// Record registers one raw reading and returns the settled on-state,
// whether the key is idle, and the cycles spent in the settled state.
func (d *Debouncer) Record(on bool) (bool, bool, uint32) {
	if on != d.rawOn {
		// Raw bounce: restart the stability window.
		d.rawOn = on
		d.sinceBounce = 0
		return d.settledOn, d.idle, d.sinceChange
	}

	d.sinceBounce++

	if d.sinceBounce*d.cfg.ScanPeriodUS >= d.cfg.DebounceUS && d.rawOn != d.settledOn {
		d.settledOn = d.rawOn
		d.sinceChange = 0
		d.idle = false
		return d.settledOn, d.idle, d.sinceChange
	}

	d.sinceChange++

	// Idle only applies to keys that have been off for a while.
	d.idle = !d.settledOn && d.sinceChange*d.cfg.ScanPeriodUS/1000 >= d.cfg.IdleMS

	return d.settledOn, d.idle, d.sinceChange
}

// Settled returns the current debounced on-state.
func (d *Debouncer) Settled() bool {
	return d.settledOn
}

// Switch layers state reporting on top of a Debouncer: a rising settled
// edge reports a press, a falling edge a release, and steady states
// report hold or off.
type Switch struct {
	deb  *Debouncer
	last bool
}

// NewSwitch creates a switch tracker with the given debounce configuration.
func NewSwitch(cfg DebounceConfig) *Switch {
	return &Switch{deb: NewDebouncer(cfg)}
}

// Scan registers a raw reading and returns the resulting key state.
func (s *Switch) Scan(on bool) State {
	settled, _, _ := s.deb.Record(on)

	var st State
	switch {
	case settled && !s.last:
		st = StatePress
	case settled && s.last:
		st = StateHold
	case !settled && s.last:
		st = StateRelease
	default:
		st = StateOff
	}
	s.last = settled
	return st
}
