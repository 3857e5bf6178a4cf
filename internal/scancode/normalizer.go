package scancode

import (
	"errors"
	"fmt"
)

// Normalizer errors.
var (
	// ErrUnknownNode indicates an interconnect node id with no offset entry.
	ErrUnknownNode = errors.New("scancode: unknown interconnect node")

	// ErrOutOfRange indicates a normalized code at or beyond the build's bound.
	ErrOutOfRange = errors.New("scancode: code out of range")
)

// Normalizer maps (interconnect node, local scan code) pairs to
// canonical codes. Normalization never mutates state; an out-of-range
// result is reported so the caller can drop the event and keep running.
type Normalizer struct {
	max     Code
	offsets OffsetList
}

// NewNormalizer creates a normalizer for the given scan-code bound and
// interconnect offsets. The bound must be in (0, Limit].
func NewNormalizer(max Code, offsets OffsetList) (*Normalizer, error) {
	if max == 0 || max > Limit {
		return nil, fmt.Errorf("scancode: bound %d outside (0, %d]", max, Limit)
	}
	for node, off := range offsets {
		if off >= max {
			return nil, fmt.Errorf("scancode: node %d offset %s at or beyond bound %d", node, off, max)
		}
	}
	return &Normalizer{max: max, offsets: offsets}, nil
}

// Max returns the exclusive upper bound of the canonical code space.
func (n *Normalizer) Max() Code {
	return n.max
}

// Normalize converts a node-local scan code to a canonical one.
// Returns ErrUnknownNode for nodes without an offset entry and
// ErrOutOfRange when the sum would leave the valid code space.
// It never wraps.
func (n *Normalizer) Normalize(node uint8, local Code) (Code, error) {
	if int(node) >= len(n.offsets) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	code := n.offsets[node] + local
	if code < local || code >= n.max {
		return 0, fmt.Errorf("%w: node %d local %s", ErrOutOfRange, node, local)
	}
	return code, nil
}
