// Package policy implements deployment gates which reject otherwise valid modules.
package policy

import (
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// DenyFloatingPoint rejects modules using floating point, which is not deterministic across hosts.
//
// Instructions of wasm.FloatClassF64 are always denied. Instructions of wasm.FloatClassF32 are only denied when
// allowF32 is true, while the signatures of defined functions may use f32 only in that case. Both polarities are kept
// as deployed modules depend on them.
//
// The first violation is returned as a *wasm.Error of wasm.ErrorKindFloatPolicy, located at the function and offset
// of the instruction, or at the type index of the signature.
func DenyFloatingPoint(m *wasm.Module, allowF32 bool) error {
	importedCount := m.ImportFuncCount()
	var in wasm.Instruction
	for i, code := range m.CodeSection {
		funcIdx := importedCount + wasm.Index(i)
		body := wasm.NewBodyReader(code.Body)
		for body.HasNext() {
			if err := body.Next(&in); err != nil {
				return err.InFunction(funcIdx)
			}
			switch in.FloatClass() {
			case wasm.FloatClassF64:
				return floatOperationDenied(funcIdx, &in, "f64")
			case wasm.FloatClassF32:
				if allowF32 {
					return floatOperationDenied(funcIdx, &in, "f32")
				}
			}
		}
	}

	for _, typeIdx := range m.FunctionSection {
		// An invalid type index is the decoder's or compiler's concern.
		if int(typeIdx) >= len(m.TypeSection) {
			continue
		}
		if deniedSignature(m.TypeSection[typeIdx], allowF32) {
			return &wasm.Error{
				Kind:         wasm.ErrorKindFloatPolicy,
				TypeIndex:    typeIdx,
				HasTypeIndex: true,
				Msg:          "Use of floating point types denied",
			}
		}
	}
	return nil
}

func floatOperationDenied(funcIdx wasm.Index, in *wasm.Instruction, width string) error {
	err := &wasm.Error{
		Kind:        wasm.ErrorKindFloatPolicy,
		Offset:      in.Offset,
		Instruction: in.Name(),
		Msg:         width + " Floating point operation denied: " + in.Name(),
	}
	return err.InFunction(funcIdx)
}

// deniedSignature checks the params and the first result, which is the only one in WebAssembly 1.0.
func deniedSignature(ft *wasm.FunctionType, allowF32 bool) bool {
	denied := func(t wasm.ValueType) bool {
		if allowF32 {
			return t == wasm.ValueTypeF64
		}
		return wasm.IsFloat(t)
	}
	for _, t := range ft.Params {
		if denied(t) {
			return true
		}
	}
	return len(ft.Results) > 0 && denied(ft.Results[0])
}
