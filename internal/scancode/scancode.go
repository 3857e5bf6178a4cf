// Package scancode defines the canonical scan-code space and the
// normalizer that maps interconnect-local codes into it.
package scancode

import "fmt"

// Code identifies a physical key position in the canonical scan-code space.
type Code uint16

// Limit is the largest bound any build may declare for the scan-code
// space. A build's valid codes are [0, max) for its declared bound,
// which never exceeds Limit.
const Limit Code = 0x100

// String returns the conventional hex form, e.g. "0x04".
func (c Code) String() string {
	return fmt.Sprintf("0x%02X", uint16(c))
}

// OffsetList holds the per-interconnect-node base offset added to
// local scan codes. Index is the interconnect node id; node 0 is the
// main matrix and conventionally has offset 0.
type OffsetList []Code
