package engine

import (
	"errors"
	"sync/atomic"

	"github.com/keebforge/kllcore/internal/keystate"
)

// ErrQueueFull is returned when an offered event is dropped because
// the dispatch loop has fallen behind.
var ErrQueueFull = errors.New("engine: event queue full")

// DefaultQueueCapacity holds one full matrix scan of a large board.
const DefaultQueueCapacity = 256

// queue is a single-producer single-consumer ring buffer between the
// scan side and the dispatch loop. When full it drops the newest event
// and counts the drop; already-queued events are never displaced, so
// an overloaded consumer sees a prefix of the true event stream rather
// than one with holes in the middle.
type queue struct {
	buf     []keystate.Event
	head    atomic.Uint64
	tail    atomic.Uint64
	dropped atomic.Uint64
}

func newQueue(capacity int) *queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &queue{buf: make([]keystate.Event, capacity)}
}

// push appends an event. Producer side only.
func (q *queue) push(ev keystate.Event) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail%uint64(len(q.buf))] = ev
	q.tail.Store(tail + 1)
	return true
}

// pop removes the oldest event. Consumer side only.
func (q *queue) pop() (keystate.Event, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return keystate.Event{}, false
	}
	ev := q.buf[head%uint64(len(q.buf))]
	q.head.Store(head + 1)
	return ev, true
}

// len reports the number of queued events.
func (q *queue) len() int {
	return int(q.tail.Load() - q.head.Load())
}

// droppedCount reports the running total of dropped events.
func (q *queue) droppedCount() uint64 {
	return q.dropped.Load()
}
