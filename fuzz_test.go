//go:build gofuzz
// +build gofuzz

package wasmprep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasmprep/internal/wasm"
	"github.com/tetratelabs/wasmprep/internal/wasm/binary"
)

func TestFuzz(t *testing.T) {
	withoutMemory := addOneModule()
	withoutMemory.MemorySection = nil

	tests := []struct {
		name     string
		source   []byte
		expected int
	}{
		{name: "not wasm", source: []byte("pooh"), expected: 0},
		{name: "accepted", source: binary.EncodeModule(withoutMemory), expected: 1},
		{name: "float denied", source: binary.EncodeModule(f32Module()), expected: 0},
		{name: "memory over the cap", source: binary.EncodeModule(addOneModule()), expected: 0},
		{name: "invalid body", source: binary.EncodeModule(&wasm.Module{
			TypeSection:     []*wasm.FunctionType{i32_i32},
			FunctionSection: []wasm.Index{0},
			CodeSection:     []*wasm.Code{{Body: []byte{wasm.OpcodeEnd}}},
		}), expected: 0},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Fuzz(tc.source))
		})
	}
}
