package keymap

import (
	"errors"
	"fmt"
)

// Pool errors.
var (
	// ErrBadStringIndex indicates a pool index with no string.
	ErrBadStringIndex = errors.New("keymap: string index out of range")

	// ErrPoolTooLarge indicates more strings than a 16-bit index can address.
	ErrPoolTooLarge = errors.New("keymap: string pool exceeds 16-bit index space")

	// ErrEmbeddedNUL indicates a string containing a NUL byte, which
	// would truncate it in the pool.
	ErrEmbeddedNUL = errors.New("keymap: string contains NUL byte")
)

// UTF8Pool stores every layout string in one shared byte pool. Strings
// are NUL-terminated and addressed by a 16-bit ordinal; single
// characters use the same storage instead of a 32-bit code point.
type UTF8Pool struct {
	data    []byte
	offsets []int
}

// NewUTF8Pool builds a pool from the given strings.
func NewUTF8Pool(strs []string) (*UTF8Pool, error) {
	if len(strs) > 0xFFFF {
		return nil, ErrPoolTooLarge
	}
	p := &UTF8Pool{offsets: make([]int, 0, len(strs))}
	for i, s := range strs {
		for j := 0; j < len(s); j++ {
			if s[j] == 0 {
				return nil, fmt.Errorf("string %d: %w", i, ErrEmbeddedNUL)
			}
		}
		p.offsets = append(p.offsets, len(p.data))
		p.data = append(p.data, s...)
		p.data = append(p.data, 0)
	}
	return p, nil
}

// Len returns the number of strings in the pool.
func (p *UTF8Pool) Len() int {
	return len(p.offsets)
}

// Size returns the pool's byte size including terminators.
func (p *UTF8Pool) Size() int {
	return len(p.data)
}

// Lookup returns the string at the given 16-bit index.
func (p *UTF8Pool) Lookup(index uint16) (string, error) {
	if int(index) >= len(p.offsets) {
		return "", fmt.Errorf("%w: %d", ErrBadStringIndex, index)
	}
	start := p.offsets[index]
	end := start
	for p.data[end] != 0 {
		end++
	}
	return string(p.data[start:end]), nil
}
