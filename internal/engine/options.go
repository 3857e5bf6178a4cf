package engine

import "go.uber.org/zap"

// DefaultHoldTicks is the number of ticks a key must stay down before
// the engine synthesizes hold events for it.
const DefaultHoldTicks = 1

// Option configures an Engine during creation.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithQueueCapacity sets the event queue capacity.
func WithQueueCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueCap = n
		}
	}
}

// WithHoldTicks sets how many ticks a key stays down before hold
// events are synthesized for it.
func WithHoldTicks(n uint32) Option {
	return func(e *Engine) {
		if n > 0 {
			e.holdTicks = n
		}
	}
}
