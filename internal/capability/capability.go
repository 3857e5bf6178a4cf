// Package capability provides the indexed, schema-typed call table that
// result macros dispatch into, along with the builtin capabilities.
//
// Capabilities never mutate shared engine state. Anything that should
// change the layer stack is expressed as a Command in the return value
// and applied by the dispatch loop, keeping a single writer.
package capability

import (
	"fmt"

	"github.com/keebforge/kllcore/internal/keystate"
)

// Invocation carries one capability call.
type Invocation struct {
	// Args is the packed argument bytes; length always equals the
	// descriptor's ArgBytes for validated tables.
	Args []byte

	// State is the step action driving the call: press, hold or release.
	State keystate.State
}

// Func is a capability implementation.
type Func func(inv Invocation) ([]Command, error)

// Descriptor describes one table entry: a stable name, a fixed argument
// byte count, and the implementation.
type Descriptor struct {
	Name     string
	ArgBytes int
	Func     Func
}

// Table is the flat, index-addressed capability dispatch table. The
// index is the stable ABI referenced by result-macro steps.
type Table struct {
	caps   []Descriptor
	byName map[string]int
}

// NewTable builds a dispatch table from descriptors. Names must be
// unique and non-empty.
func NewTable(caps []Descriptor) (*Table, error) {
	byName := make(map[string]int, len(caps))
	for i, c := range caps {
		if c.Name == "" {
			return nil, fmt.Errorf("capability %d: empty name", i)
		}
		if c.Func == nil {
			return nil, fmt.Errorf("capability %d (%s): nil func", i, c.Name)
		}
		if c.ArgBytes < 0 {
			return nil, fmt.Errorf("capability %d (%s): negative arg bytes", i, c.Name)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("capability %d: duplicate name %q", i, c.Name)
		}
		byName[c.Name] = i
	}
	return &Table{caps: caps, byName: byName}, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.caps)
}

// Descriptor returns the entry at index i.
func (t *Table) Descriptor(i int) Descriptor {
	return t.caps[i]
}

// Lookup returns the index for a capability name.
func (t *Table) Lookup(name string) (int, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// Invoke dispatches to the capability at index i. An out-of-range index
// or an argument length that does not match the schema can only come
// from a corrupt or unvalidated table, so both halt rather than
// continue with undefined behavior.
func (t *Table) Invoke(i int, args []byte, state keystate.State) ([]Command, error) {
	if i < 0 || i >= len(t.caps) {
		panic(fmt.Sprintf("capability: index %d out of range (table length %d)", i, len(t.caps)))
	}
	c := t.caps[i]
	if len(args) != c.ArgBytes {
		panic(fmt.Sprintf("capability: %s wants %d arg bytes, got %d", c.Name, c.ArgBytes, len(args)))
	}
	return c.Func(Invocation{Args: args, State: state})
}
