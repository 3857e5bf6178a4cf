package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/engine"
	"github.com/keebforge/kllcore/internal/hid"
	"github.com/keebforge/kllcore/internal/keymap"
	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/scancode"
)

// transcriptLines caps the output history kept on screen.
const transcriptLines = 256

// runInteractive drives the engine from terminal input. Typed
// characters become a press-release tap of the matching scan code;
// F1 toggles the demo layout's fn position since terminals do not
// report key-up events. Esc or Ctrl-C exits.
func runInteractive(eng *engine.Engine, rec *capability.Recorder) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	// Wake the event loop periodically to collect engine output.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	var transcript []string
	fnDown := false

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()

		case *tcell.EventInterrupt:
			for _, out := range rec.Events() {
				transcript = appendLine(transcript, formatOutput(out))
			}
			rec.Reset()
			draw(screen, eng, transcript, fnDown)

		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
				return nil

			case ev.Key() == tcell.KeyF1:
				state := keystate.StatePress
				if fnDown {
					state = keystate.StateRelease
				}
				fnDown = !fnDown
				if err := eng.OfferCode(keymap.DefaultFnCode, state); err != nil {
					transcript = appendLine(transcript, fmt.Sprintf("! %v", err))
				}

			case ev.Key() == tcell.KeyRune:
				transcript = tap(eng, transcript, ev.Rune())

			case ev.Key() == tcell.KeyEnter:
				transcript = tap(eng, transcript, '\n')

			case ev.Key() == tcell.KeyTab:
				transcript = tap(eng, transcript, '\t')
			}
		}
	}
}

// tap offers a press and release of the scan code matching r.
func tap(eng *engine.Engine, transcript []string, r rune) []string {
	usage, ok := hid.UsageForRune(r)
	if !ok {
		return appendLine(transcript, fmt.Sprintf("! no scan code for %q", r))
	}
	code := scancode.Code(usage)
	if err := eng.OfferCode(code, keystate.StatePress); err != nil {
		return appendLine(transcript, fmt.Sprintf("! %v", err))
	}
	if err := eng.OfferCode(code, keystate.StateRelease); err != nil {
		return appendLine(transcript, fmt.Sprintf("! %v", err))
	}
	return transcript
}

func appendLine(transcript []string, line string) []string {
	transcript = append(transcript, line)
	if len(transcript) > transcriptLines {
		transcript = transcript[len(transcript)-transcriptLines:]
	}
	return transcript
}

func draw(screen tcell.Screen, eng *engine.Engine, transcript []string, fnDown bool) {
	screen.Clear()
	width, height := screen.Size()
	stats := eng.Stats()

	header := fmt.Sprintf(" kllsim  layout=%s  layers=%v  ticks=%d  dropped=%d",
		stats.Layout, stats.ActiveLayers, stats.Ticks, stats.Dropped)
	if fnDown {
		header += "  [fn]"
	}
	drawText(screen, 0, 0, width, header, tcell.StyleDefault.Reverse(true))

	rows := height - 2
	start := 0
	if len(transcript) > rows {
		start = len(transcript) - rows
	}
	for i, line := range transcript[start:] {
		drawText(screen, 0, i+1, width, line, tcell.StyleDefault)
	}

	footer := " type to send keys | F1 toggles fn | Esc quits"
	drawText(screen, 0, height-1, width, footer, tcell.StyleDefault.Dim(true))
	screen.Show()
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= width {
			break
		}
		screen.SetContent(col, y, r, nil, style)
		col++
	}
}
