package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasmprep/internal/wasm"
)

func TestFormat(t *testing.T) {
	code, err := Compile(wasm.Features20191205, singleFunctionModule(i32_i32, nil, []byte{
		wasm.OpcodeLocalGet, 0,
		wasm.OpcodeEnd,
	}), 0)
	require.NoError(t, err)
	require.Equal(t, `0000 Pick 0
0001 Drop [1..1]
0002 Br return
`, Format(code))
}
