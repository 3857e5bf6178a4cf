package scancode

import (
	"errors"
	"testing"
)

func TestNewNormalizerBounds(t *testing.T) {
	tests := []struct {
		name    string
		max     Code
		offsets OffsetList
		wantErr bool
	}{
		{"zero bound", 0, nil, true},
		{"beyond limit", Limit + 1, nil, true},
		{"at limit", Limit, OffsetList{0}, false},
		{"offset beyond bound", 0x10, OffsetList{0, 0x10}, true},
		{"valid offsets", 0x100, OffsetList{0, 0x80}, false},
	}

	for _, tt := range tests {
		_, err := NewNormalizer(tt.max, tt.offsets)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: NewNormalizer error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestNormalize(t *testing.T) {
	n, err := NewNormalizer(0x100, OffsetList{0, 0x80})
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}

	tests := []struct {
		name    string
		node    uint8
		local   Code
		want    Code
		wantErr error
	}{
		{"node 0 identity", 0, 0x04, 0x04, nil},
		{"node 1 offset", 1, 0x04, 0x84, nil},
		{"node 1 overflow", 1, 0x80, 0, ErrOutOfRange},
		{"local at bound", 0, 0x100, 0, ErrOutOfRange},
		{"unknown node", 2, 0x04, 0, ErrUnknownNode},
	}

	for _, tt := range tests {
		got, err := n.Normalize(tt.node, tt.local)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: Normalize = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n, err := NewNormalizer(0x100, OffsetList{0, 0x40})
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}

	first, err := n.Normalize(1, 0x10)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for i := 0; i < 100; i++ {
		got, err := n.Normalize(1, 0x10)
		if err != nil || got != first {
			t.Fatalf("iteration %d: Normalize = %s, %v; want %s, nil", i, got, err, first)
		}
	}
}
