package binary

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wasmprep/internal/leb128"
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// maxLocals bounds the declared locals of one function, which are expanded from their run-length encoding on decode.
// Engines such as wasmtime use the same limit.
const maxLocals = 50000

func decodeCode(r *bytes.Reader) (*wasm.Code, error) {
	ss, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("get the size of code: %w", err)
	} else if uint64(ss) > uint64(r.Len()) {
		return nil, fmt.Errorf("code size %d exceeds the remaining %d bytes", ss, r.Len())
	}

	code := make([]byte, ss)
	_, _ = r.Read(code)
	cr := bytes.NewReader(code)

	// parse locals
	ls, err := decodeVectorSize(cr)
	if err != nil {
		return nil, fmt.Errorf("get the size locals: %v", err)
	}

	var localTypes []wasm.ValueType
	var sum uint64
	for i := uint32(0); i < ls; i++ {
		n, _, err := leb128.DecodeUint32(cr)
		if err != nil {
			return nil, fmt.Errorf("read n of locals: %v", err)
		}
		if sum += uint64(n); sum > maxLocals {
			return nil, fmt.Errorf("too many locals: %d", sum)
		}

		b, err := cr.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read type of local: %v", err)
		}
		switch vt := b; vt {
		case wasm.ValueTypeI32, wasm.ValueTypeF32, wasm.ValueTypeI64, wasm.ValueTypeF64:
			for j := uint32(0); j < n; j++ {
				localTypes = append(localTypes, vt)
			}
		default:
			return nil, fmt.Errorf("invalid local type: 0x%x", vt)
		}
	}

	body := code[len(code)-cr.Len():]
	if len(body) == 0 || body[len(body)-1] != wasm.OpcodeEnd {
		return nil, fmt.Errorf("expr not end with OpcodeEnd")
	}

	return &wasm.Code{LocalTypes: localTypes, Body: body}, nil
}

// encodeCode returns the wasm.Code encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// Note: LocalTypes are run-length encoded, so consecutive locals of the same type share one entry.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-code
func encodeCode(c *wasm.Code) []byte {
	var localGroups [][2]uint32 // count, type
	for _, vt := range c.LocalTypes {
		if n := len(localGroups); n > 0 && localGroups[n-1][1] == uint32(vt) {
			localGroups[n-1][0]++
		} else {
			localGroups = append(localGroups, [2]uint32{1, uint32(vt)})
		}
	}

	code := leb128.EncodeUint32(uint32(len(localGroups)))
	for _, g := range localGroups {
		code = append(code, leb128.EncodeUint32(g[0])...)
		code = append(code, byte(g[1]))
	}
	code = append(code, c.Body...)
	return append(leb128.EncodeUint32(uint32(len(code))), code...)
}
