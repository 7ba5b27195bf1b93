// Package vs compares what this module accepts with what other WebAssembly runtimes accept, and benchmarks them.
package vs

import (
	"github.com/tetratelabs/wasmprep/internal/wasm"
	"github.com/tetratelabs/wasmprep/internal/wasm/binary"
)

var (
	i32, i64, f64 = wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF64
	v_v           = &wasm.FunctionType{}
	v_i32         = &wasm.FunctionType{Results: []wasm.ValueType{i32}}
	i32_i32       = &wasm.FunctionType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}
	i32i32_i32    = &wasm.FunctionType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}}
	i64_i64       = &wasm.FunctionType{Params: []wasm.ValueType{i64}, Results: []wasm.ValueType{i64}}
	f64f64_f64    = &wasm.FunctionType{Params: []wasm.ValueType{f64, f64}, Results: []wasm.ValueType{f64}}
)

// corpusCase is a module every runtime must agree on: all accept it or all reject it.
type corpusCase struct {
	name   string
	module *wasm.Module
	valid  bool
	// mvpOnly is true when runtimes enabling post-1.0 features by default accept the module.
	mvpOnly bool
}

func (c *corpusCase) binary() []byte {
	return binary.EncodeModule(c.module)
}

// singleFunction defines one exported function "f" with the given signature and body.
func singleFunction(typ *wasm.FunctionType, localTypes []wasm.ValueType, body ...byte) *wasm.Module {
	return &wasm.Module{
		TypeSection:     []*wasm.FunctionType{typ},
		FunctionSection: []wasm.Index{0},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "f", Index: 0}},
		CodeSection:     []*wasm.Code{{LocalTypes: localTypes, Body: body}},
	}
}

func withMemory(m *wasm.Module) *wasm.Module {
	m.MemorySection = []*wasm.MemoryType{{Min: 1}}
	return m
}

func withImmutableGlobal(m *wasm.Module) *wasm.Module {
	m.GlobalSection = []*wasm.Global{{
		Type: &wasm.GlobalType{ValType: i32},
		Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0}},
	}}
	return m
}

// facIterBody computes the factorial of its i64 parameter with a loop.
var facIterBody = []byte{
	wasm.OpcodeI64Const, 1, wasm.OpcodeLocalSet, 1, // result := 1
	wasm.OpcodeBlock, wasm.BlockTypeEmpty,
	wasm.OpcodeLoop, wasm.BlockTypeEmpty,
	wasm.OpcodeLocalGet, 0, wasm.OpcodeI64Eqz, wasm.OpcodeBrIf, 1, // exit when n == 0
	wasm.OpcodeLocalGet, 1, wasm.OpcodeLocalGet, 0, wasm.OpcodeI64Mul, wasm.OpcodeLocalSet, 1,
	wasm.OpcodeLocalGet, 0, wasm.OpcodeI64Const, 1, wasm.OpcodeI64Sub, wasm.OpcodeLocalSet, 0,
	wasm.OpcodeBr, 0,
	wasm.OpcodeEnd,
	wasm.OpcodeEnd,
	wasm.OpcodeLocalGet, 1,
	wasm.OpcodeEnd,
}

var corpus = []*corpusCase{
	{
		name:   "add",
		module: singleFunction(i32i32_i32, nil, wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 1, wasm.OpcodeI32Add, wasm.OpcodeEnd),
		valid:  true,
	},
	{
		name:   "fac iterative",
		module: singleFunction(i64_i64, []wasm.ValueType{i64}, facIterBody...),
		valid:  true,
	},
	{
		name: "if else",
		module: singleFunction(i32_i32, nil,
			wasm.OpcodeLocalGet, 0, wasm.OpcodeIf, i32, wasm.OpcodeI32Const, 1, wasm.OpcodeElse, wasm.OpcodeI32Const, 2,
			wasm.OpcodeEnd, wasm.OpcodeEnd),
		valid: true,
	},
	{
		name: "br drops extra values",
		module: singleFunction(v_v, nil,
			wasm.OpcodeBlock, i32, wasm.OpcodeI32Const, 1, wasm.OpcodeI32Const, 2, wasm.OpcodeBr, 0, wasm.OpcodeEnd,
			wasm.OpcodeDrop, wasm.OpcodeEnd),
		valid: true,
	},
	{
		name: "br_table",
		module: singleFunction(i32_i32, nil,
			wasm.OpcodeBlock, wasm.BlockTypeEmpty,
			wasm.OpcodeBlock, wasm.BlockTypeEmpty,
			wasm.OpcodeLocalGet, 0, wasm.OpcodeBrTable, 2, 0, 1, 1,
			wasm.OpcodeEnd,
			wasm.OpcodeI32Const, 10, wasm.OpcodeReturn,
			wasm.OpcodeEnd,
			wasm.OpcodeI32Const, 20, wasm.OpcodeEnd),
		valid: true,
	},
	{
		name:   "polymorphic stack after unreachable",
		module: singleFunction(v_i32, nil, wasm.OpcodeUnreachable, wasm.OpcodeI32Add, wasm.OpcodeEnd),
		valid:  true,
	},
	{
		name: "select",
		module: singleFunction(i32_i32, nil,
			wasm.OpcodeI32Const, 1, wasm.OpcodeI32Const, 2, wasm.OpcodeLocalGet, 0, wasm.OpcodeSelect, wasm.OpcodeEnd),
		valid: true,
	},
	{
		name: "memory",
		module: withMemory(singleFunction(i32_i32, nil,
			wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Store, 2, 0,
			wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Load, 2, 4, wasm.OpcodeEnd)),
		valid: true,
	},
	{
		name:   "floating point",
		module: singleFunction(f64f64_f64, nil, wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 1, wasm.OpcodeF64Add, wasm.OpcodeEnd),
		valid:  true,
	},
	{
		name:   "global.get",
		module: withImmutableGlobal(singleFunction(v_i32, nil, wasm.OpcodeGlobalGet, 0, wasm.OpcodeEnd)),
		valid:  true,
	},
	{
		name:   "result type mismatch",
		module: singleFunction(v_i32, nil, wasm.OpcodeI64Const, 1, wasm.OpcodeEnd),
	},
	{
		name:   "missing result",
		module: singleFunction(v_i32, nil, wasm.OpcodeEnd),
	},
	{
		name:   "extra value",
		module: singleFunction(v_v, nil, wasm.OpcodeI32Const, 1, wasm.OpcodeEnd),
	},
	{
		name:   "stack underflow",
		module: singleFunction(v_i32, nil, wasm.OpcodeI32Const, 1, wasm.OpcodeI32Add, wasm.OpcodeEnd),
	},
	{
		name:   "operand type mismatch",
		module: singleFunction(v_i32, nil, wasm.OpcodeI32Const, 1, wasm.OpcodeI64Const, 1, wasm.OpcodeI32Add, wasm.OpcodeEnd),
	},
	{
		name:   "br depth out of range",
		module: singleFunction(v_v, nil, wasm.OpcodeBlock, wasm.BlockTypeEmpty, wasm.OpcodeBr, 2, wasm.OpcodeEnd, wasm.OpcodeEnd),
	},
	{
		name:   "else without if",
		module: singleFunction(v_v, nil, wasm.OpcodeBlock, wasm.BlockTypeEmpty, wasm.OpcodeElse, wasm.OpcodeEnd, wasm.OpcodeEnd),
	},
	{
		name: "if without else with a result",
		module: singleFunction(i32_i32, nil,
			wasm.OpcodeLocalGet, 0, wasm.OpcodeIf, i32, wasm.OpcodeI32Const, 1, wasm.OpcodeEnd, wasm.OpcodeEnd),
	},
	{
		name:   "local index out of range",
		module: singleFunction(i32_i32, nil, wasm.OpcodeLocalGet, 1, wasm.OpcodeEnd),
	},
	{
		name:   "load without memory",
		module: singleFunction(i32_i32, nil, wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Load, 2, 0, wasm.OpcodeEnd),
	},
	{
		name:   "alignment too large",
		module: withMemory(singleFunction(i32_i32, nil, wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Load, 3, 0, wasm.OpcodeEnd)),
	},
	{
		name: "global.set immutable",
		module: withImmutableGlobal(singleFunction(v_v, nil,
			wasm.OpcodeI32Const, 1, wasm.OpcodeGlobalSet, 0, wasm.OpcodeEnd)),
	},
	{
		name:    "sign extension disabled",
		module:  singleFunction(i32_i32, nil, wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Extend8S, wasm.OpcodeEnd),
		mvpOnly: true,
	},
	{
		name:   "missing end",
		module: singleFunction(v_v, nil, wasm.OpcodeNop),
	},
	{
		name: "global initializer of another type",
		module: func() *wasm.Module {
			m := singleFunction(v_v, nil, wasm.OpcodeEnd)
			m.GlobalSection = []*wasm.Global{{
				Type: &wasm.GlobalType{ValType: i32},
				Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI64Const, Data: []byte{0}},
			}}
			return m
		}(),
	},
	{
		name: "start function with params",
		module: func() *wasm.Module {
			m := singleFunction(i32_i32, nil, wasm.OpcodeLocalGet, 0, wasm.OpcodeEnd)
			m.StartSection = new(wasm.Index)
			return m
		}(),
	},
	{
		name: "start function out of range",
		module: func() *wasm.Module {
			m := singleFunction(v_v, nil, wasm.OpcodeEnd)
			start := wasm.Index(1)
			m.StartSection = &start
			return m
		}(),
	},
	{
		name: "data without memory",
		module: func() *wasm.Module {
			m := singleFunction(v_v, nil, wasm.OpcodeEnd)
			m.DataSection = []*wasm.DataSegment{{
				OffsetExpression: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0}},
				Init:             []byte("hello"),
			}}
			return m
		}(),
	},
	{
		name: "exported function out of range",
		module: func() *wasm.Module {
			m := singleFunction(v_v, nil, wasm.OpcodeEnd)
			m.ExportSection[0].Index = 1
			return m
		}(),
	},
	{
		name: "two memories",
		module: func() *wasm.Module {
			m := singleFunction(v_v, nil, wasm.OpcodeEnd)
			m.MemorySection = []*wasm.MemoryType{{Min: 3}, {Min: 4}}
			return m
		}(),
		mvpOnly: true, // multi-memory
	},
}
