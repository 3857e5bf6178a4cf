// Package engine runs the dispatch loop that turns raw scan events
// into capability invocations: normalize, resolve through the layer
// stack, evaluate trigger macros, sequence result macros. All mutable
// runtime state has a single writer, the tick goroutine; the scan side
// only touches the event queue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/keymap"
	"github.com/keebforge/kllcore/internal/keystate"
	"github.com/keebforge/kllcore/internal/layer"
	"github.com/keebforge/kllcore/internal/result"
	"github.com/keebforge/kllcore/internal/scancode"
	"github.com/keebforge/kllcore/internal/trigger"
)

// ErrUnknownCommand is returned when a capability emits a layer
// command the engine cannot apply.
var ErrUnknownCommand = errors.New("engine: unknown capability command")

// runtime bundles everything derived from one table set. Reload swaps
// the whole bundle atomically, so a tick never sees tables from two
// generations.
type runtime struct {
	tables *keymap.Tables
	norm   *scancode.Normalizer
	stack  *layer.Stack
	eval   *trigger.Evaluator
	seq    *result.Sequencer

	// held and downTicks track keys between press and release for
	// hold-state synthesis, indexed by canonical code.
	held      []bool
	downTicks []uint32
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	RunID         string
	Layout        string
	Ticks         uint64
	Dropped       uint64
	QueueLen      int
	PendingMacros int
	ActiveLayers  []int
}

// statsSnap carries the Stats fields the tick loop mutates. The tick
// side publishes a fresh value after every cycle so Stats never reads
// live dispatch state.
type statsSnap struct {
	pending int
	layers  []int
}

// Engine owns the dispatch loop state. Offer may be called from one
// producer goroutine; Tick and Run belong to the consumer side. Reload
// and Stats are safe from any goroutine.
type Engine struct {
	id  string
	log *zap.Logger

	q         *queue
	queueCap  int
	holdTicks uint32

	rt    atomic.Pointer[runtime]
	snap  atomic.Pointer[statsSnap]
	ticks atomic.Uint64
}

// New creates an engine over a validated table set.
func New(tables *keymap.Tables, opts ...Option) (*Engine, error) {
	e := &Engine{
		id:        uuid.NewString(),
		log:       zap.NewNop(),
		holdTicks: DefaultHoldTicks,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.q = newQueue(e.queueCap)

	rt, err := e.newRuntime(tables)
	if err != nil {
		return nil, err
	}
	e.rt.Store(rt)
	e.publishStats(rt)

	e.log.Info("engine ready",
		zap.String("run_id", e.id),
		zap.String("layout", tables.Name),
		zap.Int("layers", len(tables.Layers)),
		zap.Int("triggers", len(tables.TriggerMacros)),
		zap.Int("results", len(tables.ResultMacros)),
		zap.Int("capabilities", tables.Capabilities.Len()))
	return e, nil
}

// ID returns the unique id of this engine run.
func (e *Engine) ID() string {
	return e.id
}

// Tables returns the current table set.
func (e *Engine) Tables() *keymap.Tables {
	return e.rt.Load().tables
}

// newRuntime derives the per-table-set runtime. The sequencer's invoke
// closure applies returned layer commands to this runtime's stack,
// keeping capabilities free of shared mutable state.
func (e *Engine) newRuntime(tables *keymap.Tables) (*runtime, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	norm, err := scancode.NewNormalizer(tables.MaxScanCode, tables.Offsets)
	if err != nil {
		return nil, err
	}
	stack, err := layer.NewStack(tables.Layers)
	if err != nil {
		return nil, err
	}
	eval, err := trigger.NewEvaluator(tables.TriggerMacros)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		tables:    tables,
		norm:      norm,
		stack:     stack,
		eval:      eval,
		held:      make([]bool, tables.MaxScanCode),
		downTicks: make([]uint32, tables.MaxScanCode),
	}
	rt.seq, err = result.NewSequencer(tables.ResultMacros, func(step result.Step) error {
		cmds, err := tables.Capabilities.Invoke(step.Capability, step.Args, step.State)
		if err != nil {
			return err
		}
		for _, cmd := range cmds {
			if err := rt.apply(cmd); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// apply executes one layer command against the stack.
func (rt *runtime) apply(cmd capability.Command) error {
	switch cmd.Kind {
	case capability.CmdLayerShiftOn:
		return rt.stack.ShiftOn(cmd.Layer)
	case capability.CmdLayerShiftOff:
		return rt.stack.ShiftOff(cmd.Layer)
	case capability.CmdLayerLatch:
		return rt.stack.Latch(cmd.Layer)
	case capability.CmdLayerLockToggle:
		return rt.stack.LockToggle(cmd.Layer)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
	}
}

// Reload swaps in a new table set between ticks. Trigger records, layer
// modes and in-flight result macros reset; the canonical event stream
// simply continues against the new tables.
func (e *Engine) Reload(tables *keymap.Tables) error {
	rt, err := e.newRuntime(tables)
	if err != nil {
		return err
	}
	// Snapshot the fresh runtime before it becomes visible to the tick
	// loop; after the store it is no longer safe to read off-thread.
	snap := &statsSnap{layers: rt.stack.Active()}
	e.rt.Store(rt)
	e.snap.Store(snap)
	e.log.Info("layout reloaded",
		zap.String("run_id", e.id),
		zap.String("layout", tables.Name))
	return nil
}

// Offer normalizes a node-local scan event and queues it for the next
// tick. A full queue drops this event and returns ErrQueueFull;
// normalization failures drop it with the underlying error.
func (e *Engine) Offer(node uint8, local scancode.Code, state keystate.State) error {
	code, err := e.rt.Load().norm.Normalize(node, local)
	if err != nil {
		return err
	}
	return e.OfferCode(code, state)
}

// OfferCode queues an already-canonical scan event.
func (e *Engine) OfferCode(code scancode.Code, state keystate.State) error {
	rt := e.rt.Load()
	if code >= rt.norm.Max() {
		return fmt.Errorf("%w: %s", scancode.ErrOutOfRange, code)
	}
	ev := keystate.Event{Code: code, State: state, Ticks: uint32(e.ticks.Load())}
	if !e.q.push(ev) {
		return ErrQueueFull
	}
	return nil
}

// Tick runs one dispatch cycle: run result-macro steps whose delay
// expired on earlier ticks, drain queued events, synthesize hold
// states for keys still down and advance trigger timeouts. Capability
// errors are joined and returned; the engine stays consistent and
// keeps running after them.
func (e *Engine) Tick() error {
	rt := e.rt.Load()
	var errs []error

	// Due delayed steps run before this cycle's events, so a delay of
	// n ticks set by a macro started mid-cycle spans n full ticks.
	if err := rt.seq.Tick(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[scancode.Code]bool)
	for {
		ev, ok := e.q.pop()
		if !ok {
			break
		}
		seen[ev.Code] = true
		if err := e.process(rt, ev); err != nil {
			errs = append(errs, err)
		}
	}

	// Keys that stayed down produce hold events, in ascending code
	// order so evaluation is deterministic.
	for code := range rt.held {
		if !rt.held[code] || seen[scancode.Code(code)] {
			continue
		}
		rt.downTicks[code]++
		if rt.downTicks[code] < e.holdTicks {
			continue
		}
		ev := keystate.Event{
			Code:  scancode.Code(code),
			State: keystate.StateHold,
			Ticks: uint32(e.ticks.Load()),
		}
		if err := e.process(rt, ev); err != nil {
			errs = append(errs, err)
		}
	}

	rt.eval.Tick()
	e.ticks.Add(1)
	e.publishStats(rt)
	return errors.Join(errs...)
}

// process runs one event through layer resolution, trigger evaluation
// and result-macro starts.
func (e *Engine) process(rt *runtime, ev keystate.Event) error {
	switch ev.State {
	case keystate.StatePress:
		rt.held[ev.Code] = true
		rt.downTicks[ev.Code] = 0
	case keystate.StateRelease:
		rt.held[ev.Code] = false
	}

	candidates := rt.stack.Resolve(ev.Code)
	completed := rt.eval.Feed(ev, candidates)

	// Latch bookkeeping runs before result macros start, so a latch
	// activated by this very press is not armed by it.
	rt.stack.NoteEvent(ev.State)

	var errs []error
	for _, ti := range completed {
		ri := rt.tables.TriggerMacros[ti].Result
		e.log.Debug("trigger completed",
			zap.Int("trigger", ti),
			zap.Int("result", ri),
			zap.Stringer("event", ev))
		if err := rt.seq.Start(ri); err != nil {
			errs = append(errs, fmt.Errorf("trigger %d: %w", ti, err))
		}
	}
	return errors.Join(errs...)
}

// Run ticks the engine at a fixed period until the context ends.
func (e *Engine) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Tick(); err != nil {
				e.log.Warn("tick error", zap.Error(err))
			}
		}
	}
}

// publishStats records the tick-loop-owned stats fields for off-thread
// readers. Only the goroutine that owns rt may call it.
func (e *Engine) publishStats(rt *runtime) {
	e.snap.Store(&statsSnap{
		pending: rt.seq.Pending(),
		layers:  rt.stack.Active(),
	})
}

// Stats snapshots the engine's counters. It is safe from any
// goroutine: counters are atomic and the layer/sequencer fields come
// from the snapshot the last completed tick published.
func (e *Engine) Stats() Stats {
	snap := e.snap.Load()
	return Stats{
		RunID:         e.id,
		Layout:        e.rt.Load().tables.Name,
		Ticks:         e.ticks.Load(),
		Dropped:       e.q.droppedCount(),
		QueueLen:      e.q.len(),
		PendingMacros: snap.pending,
		ActiveLayers:  snap.layers,
	}
}
