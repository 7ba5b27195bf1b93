package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasmprep/internal/wasm"
)

var (
	v_v        = &wasm.FunctionType{}
	v_i32      = &wasm.FunctionType{Results: []wasm.ValueType{i32}}
	i32_v      = &wasm.FunctionType{Params: []wasm.ValueType{i32}}
	i32_i32    = &wasm.FunctionType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}
	i32i32_i32 = &wasm.FunctionType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}}
)

// singleFunctionModule returns a module defining one function of the given type.
func singleFunctionModule(ft *wasm.FunctionType, localTypes []wasm.ValueType, body []byte) *wasm.Module {
	return &wasm.Module{
		TypeSection:     []*wasm.FunctionType{ft},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []*wasm.Code{{LocalTypes: localTypes, Body: body}},
	}
}

// requireResolvedBranches ensures every branch address is an operation index or ReturnAddress.
func requireResolvedBranches(t *testing.T, code *Instructions) {
	valid := func(address uint64) {
		if address != ReturnAddress {
			require.Less(t, address, uint64(len(code.Operations)))
		}
	}
	for _, op := range code.Operations {
		switch op.Kind {
		case OperationKindBr:
			valid(op.U1)
		case OperationKindBrIf:
			valid(op.U1)
			valid(op.U2)
		case OperationKindBrTable:
			for i := 0; i < len(op.Us); i += 2 {
				valid(op.Us[i])
			}
		}
	}
}

func TestCompile(t *testing.T) {
	nop := NopInclusiveRange.AsU64()
	tests := []struct {
		name            string
		module          *wasm.Module
		expected        *Instructions
		enabledFeatures wasm.Features
	}{
		{
			name:   "nullary",
			module: singleFunctionModule(v_v, nil, []byte{wasm.OpcodeEnd}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: []
					newOperationBr(ReturnAddress), // return!
				},
			},
		},
		{
			name:   "identity",
			module: singleFunctionModule(i32_i32, nil, []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeEnd}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationPick(0),                                // [$x, $x]
					newOperationDrop(InclusiveRange{Start: 1, End: 1}), // [$x]
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name:   "locals start at zero",
			module: singleFunctionModule(v_v, []wasm.ValueType{i64, f32}, []byte{wasm.OpcodeEnd}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: []
					newOperationConstI64(0),                            // [$l0]
					newOperationConstF32(0),                            // [$l0, $l1]
					newOperationDrop(InclusiveRange{Start: 0, End: 1}), // []
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name: "add",
			module: singleFunctionModule(i32i32_i32, nil, []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeLocalGet, 1,
				wasm.OpcodeI32Add,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x, $y]
					newOperationPick(1),                                         // [$x, $y, $x]
					newOperationPick(1),                                         // [$x, $y, $x, $y]
					newOperationUnsignedType(OperationKindAdd, UnsignedTypeI32), // [$x, $y, $x+$y]
					newOperationDrop(InclusiveRange{Start: 1, End: 2}),          // [$x+$y]
					newOperationBr(ReturnAddress),                               // return!
				},
				MaxStackHeight: 4,
			},
		},
		{
			name: "local.tee",
			module: singleFunctionModule(i32_i32, nil, []byte{
				wasm.OpcodeI32Const, 5,
				wasm.OpcodeLocalTee, 0,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationConstI32(5),                            // [$x, 5]
					newOperationPick(0),                                // [$x, 5, 5]
					newOperationSet(2),                                 // [5, 5]
					newOperationDrop(InclusiveRange{Start: 1, End: 1}), // [5]
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 3,
			},
		},
		{
			name: "local.set",
			module: singleFunctionModule(i32_v, nil, []byte{
				wasm.OpcodeI32Const, 1,
				wasm.OpcodeLocalSet, 0,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationConstI32(1),                            // [$x, 1]
					newOperationSet(1),                                 // [1]
					newOperationDrop(InclusiveRange{Start: 0, End: 0}), // []
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name: "if else",
			module: singleFunctionModule(i32_i32, nil, []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeIf, wasm.ValueTypeI32,
				wasm.OpcodeI32Const, 1,
				wasm.OpcodeElse,
				wasm.OpcodeI32Const, 2,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationPick(0),                                // [$x, $x]
					newOperationBrIf(2, 4, NopInclusiveRange),          // [$x]
					newOperationConstI32(1),                            // [$x, 1]
					newOperationBr(5),                                  // [$x, 1]
					newOperationConstI32(2),                            // [$x, 2]
					newOperationDrop(InclusiveRange{Start: 1, End: 1}), // [$r]
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name: "if without else",
			module: singleFunctionModule(i32_v, nil, []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeIf, wasm.BlockTypeEmpty,
				wasm.OpcodeNop,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationPick(0),                                // [$x, $x]
					newOperationBrIf(2, 2, NopInclusiveRange),          // [$x]
					newOperationDrop(InclusiveRange{Start: 0, End: 0}), // []
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name: "loop br_if",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeLoop, wasm.BlockTypeEmpty,
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeBrIf, 0,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: []
					newOperationConstI32(0),                   // [0]
					newOperationBrIf(0, 2, NopInclusiveRange), // []
					newOperationBr(ReturnAddress),             // return!
				},
				MaxStackHeight: 1,
			},
		},
		{
			name: "br drops to the block height",
			module: singleFunctionModule(v_i32, nil, []byte{
				wasm.OpcodeBlock, wasm.ValueTypeI32,
				wasm.OpcodeI32Const, 1,
				wasm.OpcodeI32Const, 2,
				wasm.OpcodeBr, 0,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: []
					newOperationConstI32(1),                            // [1]
					newOperationConstI32(2),                            // [1, 2]
					newOperationDrop(InclusiveRange{Start: 1, End: 1}), // [2]
					newOperationBr(4),                                  // [2]
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name: "br_table",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeBlock, wasm.BlockTypeEmpty,
				wasm.OpcodeBlock, wasm.BlockTypeEmpty,
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeBrTable, 1, 0, 1,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: []
					newOperationConstI32(0),                       // [0]
					newOperationBrTable([]uint64{2, nop, 2, nop}), // []
					newOperationBr(ReturnAddress),                 // return!
				},
				MaxStackHeight: 1,
			},
		},
		{
			name: "return",
			module: singleFunctionModule(i32_i32, nil, []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeReturn,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationPick(0),                                // [$x, $x]
					newOperationDrop(InclusiveRange{Start: 1, End: 1}), // [$x]
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name: "sign-extension-ops",
			module: singleFunctionModule(i32_i32, nil, []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeI32Extend8S,
				wasm.OpcodeEnd,
			}),
			enabledFeatures: wasm.FeatureSignExtensionOps,
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationPick(0),                                // [$x, $x]
					newOperation(OperationKindSignExtend32From8),       // [$x, $y]
					newOperationDrop(InclusiveRange{Start: 1, End: 1}), // [$y]
					newOperationBr(ReturnAddress),                      // return!
				},
				MaxStackHeight: 2,
			},
		},
		{
			name: "nontrapping-float-to-int-conversion",
			module: singleFunctionModule(&wasm.FunctionType{Params: []wasm.ValueType{f64}, Results: []wasm.ValueType{i64}}, nil, []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeMiscPrefix, wasm.OpcodeMiscI64TruncSatF64U,
				wasm.OpcodeEnd,
			}),
			enabledFeatures: wasm.FeatureNonTrappingFloatToIntConversion,
			expected: &Instructions{
				Operations: []Operation{ // begin with params: [$x]
					newOperationPick(0),                                  // [$x, $x]
					newOperationITruncFromF(Float64, SignedUint64, true), // [$x, $y]
					newOperationDrop(InclusiveRange{Start: 1, End: 1}),   // [$y]
					newOperationBr(ReturnAddress),                        // return!
				},
				MaxStackHeight: 2,
			},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			enabledFeatures := tc.enabledFeatures
			if enabledFeatures == 0 {
				enabledFeatures = wasm.Features20191205
			}
			res, err := Compile(enabledFeatures, tc.module, 0)
			require.NoError(t, err)
			require.Equal(t, tc.expected, res)
			requireResolvedBranches(t, res)
		})
	}
}

func TestCompile_Block(t *testing.T) {
	tests := []struct {
		name     string
		module   *wasm.Module
		expected *Instructions
	}{
		{
			name: "br then unreachable",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeBlock, wasm.BlockTypeEmpty,
				wasm.OpcodeBr, 0,
				wasm.OpcodeUnreachable,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{ // begin with params: []
					newOperationBr(1),             // jump to the continuation
					newOperationBr(ReturnAddress), // return!
				},
			},
		},
		{
			name: "type-i32-i32",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeBlock, wasm.BlockTypeEmpty,
				wasm.OpcodeBr, 0,
				wasm.OpcodeI32Add,
				wasm.OpcodeDrop,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			// (func (export "type-i32-i32") (block (drop (i32.add (br 0)))))
			expected: &Instructions{
				Operations: []Operation{ // begin with params: []
					newOperationBr(1),
					// Note: i32.add comes after br 0 so is unreachable. The br instruction is stack-polymorphic, so
					// it substitutes for the two i32 parameters to add.
					newOperationBr(ReturnAddress), // return!
				},
			},
		},
		{
			name: "nested block in unreachable code emits nothing",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeUnreachable,
				wasm.OpcodeBlock, wasm.BlockTypeEmpty,
				wasm.OpcodeI32Const, 1,
				wasm.OpcodeBrIf, 0,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expected: &Instructions{
				Operations: []Operation{
					newOperationUnreachable(),
				},
			},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			res, err := Compile(wasm.Features20191205, tc.module, 0)
			require.NoError(t, err)
			require.Equal(t, tc.expected, res)
			requireResolvedBranches(t, res)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	memory := func(m *wasm.Module) *wasm.Module {
		m.MemorySection = []*wasm.MemoryType{{Min: 1}}
		return m
	}
	tests := []struct {
		name        string
		module      *wasm.Module
		features    wasm.Features
		expectedErr string
		kind        error
	}{
		{
			name:        "missing result",
			module:      singleFunctionModule(v_i32, nil, []byte{wasm.OpcodeEnd}),
			expectedErr: "type error: function[0] end at 0x0: type mismatch at the end of function: expected [i32] but the stack is empty",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name: "f64 operand to i32.add",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeF64Const, 0, 0, 0, 0, 0, 0, 0, 0,
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeI32Add,
				wasm.OpcodeDrop,
				wasm.OpcodeEnd,
			}),
			expectedErr: "type error: function[0] i32.add at 0xb: cannot pop the operand for i32.add: f64 != i32",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name: "values pushed in unreachable code are typed",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeUnreachable,
				wasm.OpcodeI64Const, 0,
				wasm.OpcodeI32Add,
				wasm.OpcodeDrop,
				wasm.OpcodeEnd,
			}),
			expectedErr: "type error: function[0] i32.add at 0x3: cannot pop the operand for i32.add: i64 != i32",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name:        "stack underflow",
			module:      singleFunctionModule(v_v, nil, []byte{wasm.OpcodeDrop, wasm.OpcodeEnd}),
			expectedErr: "type error: function[0] drop at 0x0: cannot pop the operand for drop: stack underflow",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name:        "extra values at the end",
			module:      singleFunctionModule(v_v, nil, []byte{wasm.OpcodeI32Const, 0, wasm.OpcodeEnd}),
			expectedErr: "type error: function[0] end at 0x2: type mismatch at the end of function: expected [] but 1 extra values remain",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name: "if with result but no else",
			module: singleFunctionModule(v_i32, nil, []byte{
				wasm.OpcodeI32Const, 1,
				wasm.OpcodeIf, wasm.ValueTypeI32,
				wasm.OpcodeI32Const, 1,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expectedErr: "type error: function[0] end at 0x6: type mismatch on if without else: expected [i32] but the else branch is empty",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name: "br_table inconsistent arity",
			module: singleFunctionModule(v_i32, nil, []byte{
				wasm.OpcodeBlock, wasm.ValueTypeI32,
				wasm.OpcodeBlock, wasm.BlockTypeEmpty,
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeBrTable, 1, 0, 1,
				wasm.OpcodeEnd,
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expectedErr: "type error: function[0] br_table at 0x8: type mismatch on the br_table operation: inconsistent arity 0 != 1",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name: "select operands differ",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeI64Const, 0,
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeSelect,
				wasm.OpcodeDrop,
				wasm.OpcodeEnd,
			}),
			expectedErr: "type error: function[0] select at 0x6: type mismatch on the operands of select: i32 != i64",
			kind:        wasm.ErrTypeMismatch,
		},
		{
			name: "br index out of range",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeBr, 1,
				wasm.OpcodeEnd,
			}),
			expectedErr: "control structure error: function[0] br at 0x0: invalid br operation: index out of range",
			kind:        wasm.ErrControlStructure,
		},
		{
			name:        "else outside if",
			module:      singleFunctionModule(v_v, nil, []byte{wasm.OpcodeElse, wasm.OpcodeEnd}),
			expectedErr: "control structure error: function[0] else at 0x0: else instruction must be used in if block",
			kind:        wasm.ErrControlStructure,
		},
		{
			name: "second else",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeIf, wasm.BlockTypeEmpty,
				wasm.OpcodeElse,
				wasm.OpcodeElse,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expectedErr: "control structure error: function[0] else at 0x5: else instruction must be used in if block",
			kind:        wasm.ErrControlStructure,
		},
		{
			name:        "local index",
			module:      singleFunctionModule(i32_v, nil, []byte{wasm.OpcodeLocalGet, 1, wasm.OpcodeDrop, wasm.OpcodeEnd}),
			expectedErr: "malformed: function[0] local.get at 0x0: invalid local index for local.get 1 >= 1",
			kind:        wasm.ErrMalformed,
		},
		{
			name: "memory access without memory",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeI32Load, 2, 0,
				wasm.OpcodeDrop,
				wasm.OpcodeEnd,
			}),
			expectedErr: "malformed: function[0] i32.load at 0x2: memory must exist for i32.load",
			kind:        wasm.ErrMalformed,
		},
		{
			name: "alignment larger than natural",
			module: memory(singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeI32Load, 3, 0,
				wasm.OpcodeDrop,
				wasm.OpcodeEnd,
			})),
			expectedErr: "malformed: function[0] i32.load at 0x2: invalid memory alignment 3 > 2",
			kind:        wasm.ErrMalformed,
		},
		{
			name:        "call index",
			module:      singleFunctionModule(v_v, nil, []byte{wasm.OpcodeCall, 1, wasm.OpcodeEnd}),
			expectedErr: "malformed: function[0] call at 0x0: invalid function index 1",
			kind:        wasm.ErrMalformed,
		},
		{
			name: "call_indirect without table",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeCallIndirect, 0, 0,
				wasm.OpcodeEnd,
			}),
			expectedErr: "malformed: function[0] call_indirect at 0x2: table not given while having call_indirect",
			kind:        wasm.ErrMalformed,
		},
		{
			name:        "sign-extension-ops disabled",
			module:      singleFunctionModule(i32_i32, nil, []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Extend8S, wasm.OpcodeEnd}),
			expectedErr: "malformed: function[0] i32.extend8_s at 0x2: i32.extend8_s invalid as feature sign-extension-ops is disabled",
			kind:        wasm.ErrMalformed,
		},
		{
			name: "nontrapping-float-to-int-conversion disabled",
			module: singleFunctionModule(v_v, nil, []byte{
				wasm.OpcodeF32Const, 0, 0, 0, 0,
				wasm.OpcodeMiscPrefix, wasm.OpcodeMiscI32TruncSatF32S,
				wasm.OpcodeDrop,
				wasm.OpcodeEnd,
			}),
			expectedErr: "malformed: function[0] i32.trunc_sat_f32_s at 0x5: i32.trunc_sat_f32_s invalid as feature nontrapping-float-to-int-conversion is disabled",
			kind:        wasm.ErrMalformed,
		},
		{
			name:        "trailing bytes",
			module:      singleFunctionModule(v_v, nil, []byte{wasm.OpcodeEnd, wasm.OpcodeNop}),
			expectedErr: "malformed: function[0]: unexpected instructions after the end of the function",
			kind:        wasm.ErrMalformed,
		},
		{
			name:        "body ends early",
			module:      singleFunctionModule(v_v, nil, []byte{wasm.OpcodeBlock, wasm.BlockTypeEmpty, wasm.OpcodeEnd}),
			expectedErr: "malformed: function[0]: unexpected end of body",
			kind:        wasm.ErrMalformed,
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			features := tc.features
			if features == 0 {
				features = wasm.Features20191205
			}
			_, err := Compile(features, tc.module, 0)
			require.EqualError(t, err, tc.expectedErr)
			require.True(t, errors.Is(err, tc.kind))
		})
	}
}

func TestCompile_GlobalSetImmutable(t *testing.T) {
	m := singleFunctionModule(v_v, nil, []byte{
		wasm.OpcodeI32Const, 0,
		wasm.OpcodeGlobalSet, 0,
		wasm.OpcodeEnd,
	})
	m.GlobalSection = []*wasm.Global{{
		Type: &wasm.GlobalType{ValType: i32},
		Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0}},
	}}
	_, err := Compile(wasm.Features20191205, m, 0)
	require.EqualError(t, err, "malformed: function[0] global.set at 0x2: global.set when not mutable")

	m.GlobalSection[0].Type.Mutable = true
	res, err := Compile(wasm.Features20191205, m, 0)
	require.NoError(t, err)
	require.Equal(t, []Operation{
		newOperationConstI32(0),
		newOperationGlobalSet(0),
		newOperationBr(ReturnAddress),
	}, res.Operations)
}

func TestCompile_FunctionIndexIncludesImports(t *testing.T) {
	m := singleFunctionModule(v_i32, nil, []byte{wasm.OpcodeEnd})
	m.ImportSection = []*wasm.Import{
		{Type: wasm.ExternTypeFunc, Module: "env", Name: "f", DescFunc: 0},
		{Type: wasm.ExternTypeMemory, Module: "env", Name: "mem", DescMem: &wasm.MemoryType{Min: 1}},
		{Type: wasm.ExternTypeFunc, Module: "env", Name: "g", DescFunc: 0},
	}

	_, err := Compile(wasm.Features20191205, m, 0)
	var werr *wasm.Error
	require.True(t, errors.As(err, &werr))
	require.True(t, werr.HasFuncIndex)
	require.Equal(t, wasm.Index(2), werr.FuncIndex)
	require.Equal(t, uint64(0), werr.Offset)
}

func TestCompile_InvalidTypeIndex(t *testing.T) {
	m := singleFunctionModule(v_v, nil, []byte{wasm.OpcodeEnd})
	m.FunctionSection[0] = 3
	_, err := Compile(wasm.Features20191205, m, 0)
	var werr *wasm.Error
	require.True(t, errors.As(err, &werr))
	require.Equal(t, wasm.ErrorKindMalformed, werr.Kind)
	require.True(t, werr.HasTypeIndex)
	require.Equal(t, wasm.Index(3), werr.TypeIndex)
}

func TestCompile_CallIndirect(t *testing.T) {
	m := singleFunctionModule(i32_i32, nil, []byte{
		wasm.OpcodeLocalGet, 0,
		wasm.OpcodeI32Const, 0,
		wasm.OpcodeCallIndirect, 0, 0,
		wasm.OpcodeEnd,
	})
	m.TableSection = []*wasm.TableType{{ElemType: wasm.ElemTypeFuncref}}

	res, err := Compile(wasm.Features20191205, m, 0)
	require.NoError(t, err)
	require.Equal(t, []Operation{ // begin with params: [$x]
		newOperationPick(0),                                // [$x, $x]
		newOperationConstI32(0),                            // [$x, $x, 0]
		newOperationCallIndirect(0, 0),                     // [$x, $r]
		newOperationDrop(InclusiveRange{Start: 1, End: 1}), // [$r]
		newOperationBr(ReturnAddress),                      // return!
	}, res.Operations)
	require.Equal(t, 3, res.MaxStackHeight)
}

func TestCompile_Memory(t *testing.T) {
	m := singleFunctionModule(v_v, nil, []byte{
		wasm.OpcodeI32Const, 0,
		wasm.OpcodeI64Const, 1,
		wasm.OpcodeI64Store32, 2, 8,
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeMemoryGrow, 0,
		wasm.OpcodeI32Load8U, 0, 4,
		wasm.OpcodeDrop,
		wasm.OpcodeEnd,
	})
	m.MemorySection = []*wasm.MemoryType{{Min: 1}}

	res, err := Compile(wasm.Features20191205, m, 0)
	require.NoError(t, err)
	require.Equal(t, []Operation{
		newOperationConstI32(0),
		newOperationConstI64(1),
		newOperationStore32(MemoryArg{Alignment: 2, Offset: 8}),
		newOperationConstI32(1),
		newOperationMemoryGrow(),
		newOperationLoad8(SignedUint32, MemoryArg{Alignment: 0, Offset: 4}),
		newOperationDrop(InclusiveRange{Start: 0, End: 0}),
		newOperationBr(ReturnAddress),
	}, res.Operations)
	require.Equal(t, 2, res.MaxStackHeight)
}

func TestLowerNumeric(t *testing.T) {
	// Every opcode with a static signature lowers to an operation.
	for op := 0; op < 256; op++ {
		o := wasm.Opcode(op)
		if opcodeSignature(o) == nil || o == wasm.OpcodeNop || (o >= wasm.OpcodeI32Load && o <= wasm.OpcodeMemoryGrow) {
			continue
		}
		require.NotPanics(t, func() { lowerNumeric(o, 0) }, wasm.InstructionName(o))
	}

	require.Equal(t, newOperationSignedType(OperationKindLt, SignedTypeUint64), lowerNumeric(wasm.OpcodeI64LtU, 0))
	require.Equal(t, newOperationSignedType(OperationKindGe, SignedTypeFloat64), lowerNumeric(wasm.OpcodeF64Ge, 0))
	require.Equal(t, newOperationFloat(OperationKindNearest, Float64), lowerNumeric(wasm.OpcodeF64Nearest, 0))
	require.Equal(t, newOperationConstI32(0xffffffff), lowerNumeric(wasm.OpcodeI32Const, 0xffffffffffffffff))
}
