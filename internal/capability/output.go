package capability

import (
	"sync"

	"github.com/keebforge/kllcore/internal/hid"
)

// Output is the transport the builtin capabilities emit into. The real
// firmware hands these to the USB/HID driver; hosts and tests supply
// their own implementations.
type Output interface {
	// KeyPress reports a HID usage going down.
	KeyPress(usage hid.Usage) error

	// KeyRelease reports a HID usage going up.
	KeyRelease(usage hid.Usage) error

	// Text emits a UTF-8 string (HID-IO style host text injection).
	Text(s string) error
}

// OutputEvent is one recorded output action.
type OutputEvent struct {
	// Kind is "press", "release" or "text".
	Kind string

	// Usage is set for press and release events.
	Usage hid.Usage

	// Text is set for text events.
	Text string
}

// Recorder is an Output that remembers everything emitted. Used by the
// simulator and by tests to observe capability side effects.
type Recorder struct {
	mu     sync.Mutex
	events []OutputEvent
}

// NewRecorder creates an empty output recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// KeyPress records a key-down event.
func (r *Recorder) KeyPress(usage hid.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, OutputEvent{Kind: "press", Usage: usage})
	return nil
}

// KeyRelease records a key-up event.
func (r *Recorder) KeyRelease(usage hid.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, OutputEvent{Kind: "release", Usage: usage})
	return nil
}

// Text records a text emission.
func (r *Recorder) Text(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, OutputEvent{Kind: "text", Text: s})
	return nil
}

// Events returns a copy of the recorded events in order.
func (r *Recorder) Events() []OutputEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OutputEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the recording.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
