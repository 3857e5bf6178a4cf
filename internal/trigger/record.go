package trigger

import "fmt"

// Phase is the evaluation state of one trigger-macro record.
type Phase uint8

const (
	// PhaseIdle indicates no progress through the combo sequence.
	PhaseIdle Phase = iota

	// PhasePending indicates a partial match in progress.
	PhasePending

	// PhaseCompleted indicates the full sequence matched. Completion is
	// edge-triggered: the evaluator reports it once and returns the
	// record to idle.
	PhaseCompleted

	// PhaseReset indicates a condition was violated before the sequence
	// completed. The record returns to idle on the next event or tick.
	PhaseReset
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseCompleted:
		return "completed"
	case PhaseReset:
		return "reset"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// Record is the mutable evaluation state for one trigger macro. Records
// live in an arena parallel to the definition table, one slot per
// macro, for the life of the process.
type Record struct {
	// Phase is the current evaluation phase.
	Phase Phase

	// Pos is the index of the combo currently being matched.
	Pos int

	// Satisfied is a bitmask over the current combo's conditions.
	Satisfied uint64

	// Ticks counts scheduling ticks spent in the current combo.
	Ticks uint32
}

// clear returns the record to idle with no progress.
func (r *Record) clear() {
	r.Phase = PhaseIdle
	r.Pos = 0
	r.Satisfied = 0
	r.Ticks = 0
}

// advance moves matching to the next combo in the sequence.
func (r *Record) advance() {
	r.Pos++
	r.Satisfied = 0
	r.Ticks = 0
}
