package trigger

import (
	"errors"
	"testing"

	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/scancode"
)

func press(code scancode.Code) keystate.Event {
	return keystate.Event{Code: code, State: keystate.StatePress}
}

func hold(code scancode.Code) keystate.Event {
	return keystate.Event{Code: code, State: keystate.StateHold}
}

func release(code scancode.Code) keystate.Event {
	return keystate.Event{Code: code, State: keystate.StateRelease}
}

func singlePress(code scancode.Code, result int) Macro {
	return Macro{
		Combos: []Combo{{Conditions: []Condition{{Code: code, State: keystate.StatePress}}}},
		Result: result,
	}
}

func TestMacroValidate(t *testing.T) {
	tooBig := make([]Condition, MaxComboKeys+1)
	for i := range tooBig {
		tooBig[i] = Condition{Code: scancode.Code(i), State: keystate.StatePress}
	}

	tests := []struct {
		name    string
		macro   Macro
		wantErr error
	}{
		{"valid", singlePress(0x04, 0), nil},
		{"no combos", Macro{}, ErrNoCombos},
		{"empty combo", Macro{Combos: []Combo{{}}}, ErrEmptyCombo},
		{"too large", Macro{Combos: []Combo{{Conditions: tooBig}}}, ErrComboTooLarge},
		{
			"duplicate code",
			Macro{Combos: []Combo{{Conditions: []Condition{
				{Code: 0x04, State: keystate.StatePress},
				{Code: 0x04, State: keystate.StateRelease},
			}}}},
			ErrDuplicateCode,
		},
		{
			"off condition",
			Macro{Combos: []Combo{{Conditions: []Condition{{Code: 0x04, State: keystate.StateOff}}}}},
			ErrBadConditionState,
		},
	}

	for _, tt := range tests {
		err := tt.macro.Validate()
		if tt.wantErr == nil {
			if err != nil {
				t.Errorf("%s: Validate = %v, want nil", tt.name, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: Validate = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestSinglePressCompletes(t *testing.T) {
	e, err := NewEvaluator([]Macro{singlePress(0x04, 0)})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	done := e.Feed(press(0x04), []int{0})
	if len(done) != 1 || done[0] != 0 {
		t.Fatalf("Feed = %v, want [0]", done)
	}

	// Completion is edge-triggered: the record is idle again.
	if got := e.Record(0).Phase; got != PhaseIdle {
		t.Errorf("record phase after completion = %v, want idle", got)
	}

	// The release of the same key must not re-fire.
	if done := e.Feed(release(0x04), []int{0}); len(done) != 0 {
		t.Errorf("release re-fired: %v", done)
	}
}

func TestHoldDoesNotRefirePressTrigger(t *testing.T) {
	e, err := NewEvaluator([]Macro{singlePress(0x04, 0)})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	if done := e.Feed(press(0x04), []int{0}); len(done) != 1 {
		t.Fatalf("press did not fire: %v", done)
	}
	// The key stays down; synthesized holds must not complete the
	// press condition again.
	for i := 0; i < 3; i++ {
		if done := e.Feed(hold(0x04), []int{0}); len(done) != 0 {
			t.Fatalf("hold %d re-fired press trigger: %v", i, done)
		}
		e.Tick()
	}
}

func TestIdleNeedsCandidate(t *testing.T) {
	e, err := NewEvaluator([]Macro{singlePress(0x04, 0)})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	if done := e.Feed(press(0x04), nil); len(done) != 0 {
		t.Errorf("macro fired without being resolved by any layer: %v", done)
	}
	if got := e.Record(0).Phase; got != PhaseIdle {
		t.Errorf("record phase = %v, want idle", got)
	}
}

func TestChordCombo(t *testing.T) {
	chord := Macro{
		Combos: []Combo{{Conditions: []Condition{
			{Code: 0x04, State: keystate.StatePress},
			{Code: 0x05, State: keystate.StatePress},
		}}},
	}
	e, err := NewEvaluator([]Macro{chord})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	if done := e.Feed(press(0x04), []int{0}); len(done) != 0 {
		t.Fatalf("half chord fired: %v", done)
	}
	if got := e.Record(0).Phase; got != PhasePending {
		t.Fatalf("record phase = %v, want pending", got)
	}

	done := e.Feed(press(0x05), []int{0})
	if len(done) != 1 {
		t.Fatalf("full chord did not fire: %v", done)
	}
}

func TestChordViolationResets(t *testing.T) {
	chord := Macro{
		Combos: []Combo{{Conditions: []Condition{
			{Code: 0x04, State: keystate.StatePress},
			{Code: 0x05, State: keystate.StatePress},
		}}},
	}
	e, err := NewEvaluator([]Macro{chord})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	e.Feed(press(0x04), []int{0})
	if done := e.Feed(release(0x04), []int{0}); len(done) != 0 {
		t.Fatalf("violated chord fired: %v", done)
	}
	if got := e.Record(0).Phase; got != PhaseReset {
		t.Fatalf("record phase = %v, want reset", got)
	}

	e.Tick()
	if got := e.Record(0).Phase; got != PhaseIdle {
		t.Errorf("record phase after tick = %v, want idle", got)
	}
}

func TestComboSequence(t *testing.T) {
	// Gesture: press 0x04, then release 0x04, then press 0x05.
	seq := Macro{
		Combos: []Combo{
			{Conditions: []Condition{{Code: 0x04, State: keystate.StatePress}}},
			{Conditions: []Condition{{Code: 0x04, State: keystate.StateRelease}}},
			{Conditions: []Condition{{Code: 0x05, State: keystate.StatePress}}},
		},
	}
	e, err := NewEvaluator([]Macro{seq})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	if done := e.Feed(press(0x04), []int{0}); len(done) != 0 {
		t.Fatalf("fired after combo 1: %v", done)
	}
	if done := e.Feed(release(0x04), []int{0}); len(done) != 0 {
		t.Fatalf("fired after combo 2: %v", done)
	}
	if got := e.Record(0).Pos; got != 2 {
		t.Fatalf("record pos = %d, want 2", got)
	}
	done := e.Feed(press(0x05), []int{0})
	if len(done) != 1 {
		t.Fatalf("sequence did not complete: %v", done)
	}
}

func TestHoldConditionNeutralOnPress(t *testing.T) {
	m := Macro{
		Combos: []Combo{{Conditions: []Condition{{Code: 0x04, State: keystate.StateHold}}}},
	}
	e, err := NewEvaluator([]Macro{m})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	// Press is on the way to a hold: no progress, no reset.
	if done := e.Feed(press(0x04), []int{0}); len(done) != 0 {
		t.Fatalf("press completed a hold condition: %v", done)
	}
	if got := e.Record(0).Phase; got != PhaseIdle {
		t.Fatalf("record phase = %v, want idle", got)
	}

	done := e.Feed(hold(0x04), []int{0})
	if len(done) != 1 {
		t.Fatalf("hold did not complete: %v", done)
	}
}

func TestComboTimeout(t *testing.T) {
	chord := Macro{
		Combos: []Combo{{
			Conditions: []Condition{
				{Code: 0x04, State: keystate.StatePress},
				{Code: 0x05, State: keystate.StatePress},
			},
			TimeoutTicks: 2,
		}},
	}
	e, err := NewEvaluator([]Macro{chord})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	e.Feed(press(0x04), []int{0})
	e.Tick()
	e.Tick()
	if got := e.Record(0).Phase; got != PhasePending {
		t.Fatalf("record phase within timeout = %v, want pending", got)
	}
	e.Tick()
	if got := e.Record(0).Phase; got != PhaseReset {
		t.Fatalf("record phase past timeout = %v, want reset", got)
	}
}

func TestTieBreakAscendingIndex(t *testing.T) {
	e, err := NewEvaluator([]Macro{
		singlePress(0x04, 0),
		singlePress(0x04, 1),
		singlePress(0x05, 2),
	})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	// Both subscribers complete from one event, lowest index first.
	done := e.Feed(press(0x04), []int{1, 0})
	if len(done) != 2 || done[0] != 0 || done[1] != 1 {
		t.Fatalf("Feed = %v, want [0 1]", done)
	}
}

func TestPendingSurvivesLayerChange(t *testing.T) {
	chord := Macro{
		Combos: []Combo{{Conditions: []Condition{
			{Code: 0x04, State: keystate.StatePress},
			{Code: 0x05, State: keystate.StatePress},
		}}},
	}
	e, err := NewEvaluator([]Macro{chord})
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	e.Feed(press(0x04), []int{0})

	// Second key arrives with the macro no longer resolved by the stack;
	// the pending record still advances.
	done := e.Feed(press(0x05), nil)
	if len(done) != 1 {
		t.Fatalf("pending macro lost events after layer change: %v", done)
	}
}

func TestSubscribesTo(t *testing.T) {
	m := Macro{
		Combos: []Combo{
			{Conditions: []Condition{{Code: 0x04, State: keystate.StatePress}}},
			{Conditions: []Condition{{Code: 0x05, State: keystate.StateRelease}}},
		},
	}
	if !m.SubscribesTo(0x04) || !m.SubscribesTo(0x05) {
		t.Error("macro should subscribe to codes in any combo")
	}
	if m.SubscribesTo(0x06) {
		t.Error("macro should not subscribe to unreferenced codes")
	}
}
