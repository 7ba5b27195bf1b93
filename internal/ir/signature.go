package ir

import (
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// signature represents how a Wasm opcode manipulates the value stack in terms of value types.
type signature struct {
	in, out []wasm.ValueType
}

var (
	i32, i64, f32, f64 = wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64

	signature_None_None   = &signature{}
	signature_None_I32    = &signature{out: []wasm.ValueType{i32}}
	signature_None_I64    = &signature{out: []wasm.ValueType{i64}}
	signature_None_F32    = &signature{out: []wasm.ValueType{f32}}
	signature_None_F64    = &signature{out: []wasm.ValueType{f64}}
	signature_I32_I32     = &signature{in: []wasm.ValueType{i32}, out: []wasm.ValueType{i32}}
	signature_I32_I64     = &signature{in: []wasm.ValueType{i32}, out: []wasm.ValueType{i64}}
	signature_I32_F32     = &signature{in: []wasm.ValueType{i32}, out: []wasm.ValueType{f32}}
	signature_I32_F64     = &signature{in: []wasm.ValueType{i32}, out: []wasm.ValueType{f64}}
	signature_I64_I32     = &signature{in: []wasm.ValueType{i64}, out: []wasm.ValueType{i32}}
	signature_I64_I64     = &signature{in: []wasm.ValueType{i64}, out: []wasm.ValueType{i64}}
	signature_I64_F32     = &signature{in: []wasm.ValueType{i64}, out: []wasm.ValueType{f32}}
	signature_I64_F64     = &signature{in: []wasm.ValueType{i64}, out: []wasm.ValueType{f64}}
	signature_F32_I32     = &signature{in: []wasm.ValueType{f32}, out: []wasm.ValueType{i32}}
	signature_F32_I64     = &signature{in: []wasm.ValueType{f32}, out: []wasm.ValueType{i64}}
	signature_F32_F32     = &signature{in: []wasm.ValueType{f32}, out: []wasm.ValueType{f32}}
	signature_F32_F64     = &signature{in: []wasm.ValueType{f32}, out: []wasm.ValueType{f64}}
	signature_F64_I32     = &signature{in: []wasm.ValueType{f64}, out: []wasm.ValueType{i32}}
	signature_F64_I64     = &signature{in: []wasm.ValueType{f64}, out: []wasm.ValueType{i64}}
	signature_F64_F32     = &signature{in: []wasm.ValueType{f64}, out: []wasm.ValueType{f32}}
	signature_F64_F64     = &signature{in: []wasm.ValueType{f64}, out: []wasm.ValueType{f64}}
	signature_I32I32_None = &signature{in: []wasm.ValueType{i32, i32}}
	signature_I32I64_None = &signature{in: []wasm.ValueType{i32, i64}}
	signature_I32F32_None = &signature{in: []wasm.ValueType{i32, f32}}
	signature_I32F64_None = &signature{in: []wasm.ValueType{i32, f64}}
	signature_I32I32_I32  = &signature{in: []wasm.ValueType{i32, i32}, out: []wasm.ValueType{i32}}
	signature_I64I64_I32  = &signature{in: []wasm.ValueType{i64, i64}, out: []wasm.ValueType{i32}}
	signature_I64I64_I64  = &signature{in: []wasm.ValueType{i64, i64}, out: []wasm.ValueType{i64}}
	signature_F32F32_I32  = &signature{in: []wasm.ValueType{f32, f32}, out: []wasm.ValueType{i32}}
	signature_F32F32_F32  = &signature{in: []wasm.ValueType{f32, f32}, out: []wasm.ValueType{f32}}
	signature_F64F64_I32  = &signature{in: []wasm.ValueType{f64, f64}, out: []wasm.ValueType{i32}}
	signature_F64F64_F64  = &signature{in: []wasm.ValueType{f64, f64}, out: []wasm.ValueType{f64}}
)

// opcodeSignature returns the static signature of the given opcode, or nil when the opcode's effect on the stack
// depends on the module or on the control frames, as is the case of calls, variables and control instructions.
//
// The returned signature is shared, and must not be modified.
func opcodeSignature(op wasm.Opcode) *signature {
	switch op {
	case wasm.OpcodeNop:
		return signature_None_None
	case wasm.OpcodeI32Load, wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U:
		return signature_I32_I32
	case wasm.OpcodeI64Load, wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
		return signature_I32_I64
	case wasm.OpcodeF32Load:
		return signature_I32_F32
	case wasm.OpcodeF64Load:
		return signature_I32_F64
	case wasm.OpcodeI32Store, wasm.OpcodeI32Store8, wasm.OpcodeI32Store16:
		return signature_I32I32_None
	case wasm.OpcodeI64Store, wasm.OpcodeI64Store8, wasm.OpcodeI64Store16, wasm.OpcodeI64Store32:
		return signature_I32I64_None
	case wasm.OpcodeF32Store:
		return signature_I32F32_None
	case wasm.OpcodeF64Store:
		return signature_I32F64_None
	case wasm.OpcodeMemorySize:
		return signature_None_I32
	case wasm.OpcodeMemoryGrow:
		return signature_I32_I32
	case wasm.OpcodeI32Const:
		return signature_None_I32
	case wasm.OpcodeI64Const:
		return signature_None_I64
	case wasm.OpcodeF32Const:
		return signature_None_F32
	case wasm.OpcodeF64Const:
		return signature_None_F64
	case wasm.OpcodeI32Eqz:
		return signature_I32_I32
	case wasm.OpcodeI32Eq, wasm.OpcodeI32Ne, wasm.OpcodeI32LtS,
		wasm.OpcodeI32LtU, wasm.OpcodeI32GtS, wasm.OpcodeI32GtU,
		wasm.OpcodeI32LeS, wasm.OpcodeI32LeU, wasm.OpcodeI32GeS,
		wasm.OpcodeI32GeU:
		return signature_I32I32_I32
	case wasm.OpcodeI64Eqz:
		return signature_I64_I32
	case wasm.OpcodeI64Eq, wasm.OpcodeI64Ne, wasm.OpcodeI64LtS,
		wasm.OpcodeI64LtU, wasm.OpcodeI64GtS, wasm.OpcodeI64GtU,
		wasm.OpcodeI64LeS, wasm.OpcodeI64LeU, wasm.OpcodeI64GeS,
		wasm.OpcodeI64GeU:
		return signature_I64I64_I32
	case wasm.OpcodeF32Eq, wasm.OpcodeF32Ne, wasm.OpcodeF32Lt,
		wasm.OpcodeF32Gt, wasm.OpcodeF32Le, wasm.OpcodeF32Ge:
		return signature_F32F32_I32
	case wasm.OpcodeF64Eq, wasm.OpcodeF64Ne, wasm.OpcodeF64Lt,
		wasm.OpcodeF64Gt, wasm.OpcodeF64Le, wasm.OpcodeF64Ge:
		return signature_F64F64_I32
	case wasm.OpcodeI32Clz, wasm.OpcodeI32Ctz, wasm.OpcodeI32Popcnt:
		return signature_I32_I32
	case wasm.OpcodeI32Add, wasm.OpcodeI32Sub, wasm.OpcodeI32Mul,
		wasm.OpcodeI32DivS, wasm.OpcodeI32DivU, wasm.OpcodeI32RemS,
		wasm.OpcodeI32RemU, wasm.OpcodeI32And, wasm.OpcodeI32Or,
		wasm.OpcodeI32Xor, wasm.OpcodeI32Shl, wasm.OpcodeI32ShrS,
		wasm.OpcodeI32ShrU, wasm.OpcodeI32Rotl, wasm.OpcodeI32Rotr:
		return signature_I32I32_I32
	case wasm.OpcodeI64Clz, wasm.OpcodeI64Ctz, wasm.OpcodeI64Popcnt:
		return signature_I64_I64
	case wasm.OpcodeI64Add, wasm.OpcodeI64Sub, wasm.OpcodeI64Mul,
		wasm.OpcodeI64DivS, wasm.OpcodeI64DivU, wasm.OpcodeI64RemS,
		wasm.OpcodeI64RemU, wasm.OpcodeI64And, wasm.OpcodeI64Or,
		wasm.OpcodeI64Xor, wasm.OpcodeI64Shl, wasm.OpcodeI64ShrS,
		wasm.OpcodeI64ShrU, wasm.OpcodeI64Rotl, wasm.OpcodeI64Rotr:
		return signature_I64I64_I64
	case wasm.OpcodeF32Abs, wasm.OpcodeF32Neg, wasm.OpcodeF32Ceil,
		wasm.OpcodeF32Floor, wasm.OpcodeF32Trunc, wasm.OpcodeF32Nearest,
		wasm.OpcodeF32Sqrt:
		return signature_F32_F32
	case wasm.OpcodeF32Add, wasm.OpcodeF32Sub, wasm.OpcodeF32Mul,
		wasm.OpcodeF32Div, wasm.OpcodeF32Min, wasm.OpcodeF32Max,
		wasm.OpcodeF32Copysign:
		return signature_F32F32_F32
	case wasm.OpcodeF64Abs, wasm.OpcodeF64Neg, wasm.OpcodeF64Ceil,
		wasm.OpcodeF64Floor, wasm.OpcodeF64Trunc, wasm.OpcodeF64Nearest,
		wasm.OpcodeF64Sqrt:
		return signature_F64_F64
	case wasm.OpcodeF64Add, wasm.OpcodeF64Sub, wasm.OpcodeF64Mul,
		wasm.OpcodeF64Div, wasm.OpcodeF64Min, wasm.OpcodeF64Max,
		wasm.OpcodeF64Copysign:
		return signature_F64F64_F64
	case wasm.OpcodeI32WrapI64:
		return signature_I64_I32
	case wasm.OpcodeI32TruncF32S, wasm.OpcodeI32TruncF32U:
		return signature_F32_I32
	case wasm.OpcodeI32TruncF64S, wasm.OpcodeI32TruncF64U:
		return signature_F64_I32
	case wasm.OpcodeI64ExtendI32S, wasm.OpcodeI64ExtendI32U:
		return signature_I32_I64
	case wasm.OpcodeI64TruncF32S, wasm.OpcodeI64TruncF32U:
		return signature_F32_I64
	case wasm.OpcodeI64TruncF64S, wasm.OpcodeI64TruncF64U:
		return signature_F64_I64
	case wasm.OpcodeF32ConvertI32S, wasm.OpcodeF32ConvertI32U:
		return signature_I32_F32
	case wasm.OpcodeF32ConvertI64S, wasm.OpcodeF32ConvertI64U:
		return signature_I64_F32
	case wasm.OpcodeF32DemoteF64:
		return signature_F64_F32
	case wasm.OpcodeF64ConvertI32S, wasm.OpcodeF64ConvertI32U:
		return signature_I32_F64
	case wasm.OpcodeF64ConvertI64S, wasm.OpcodeF64ConvertI64U:
		return signature_I64_F64
	case wasm.OpcodeF64PromoteF32:
		return signature_F32_F64
	case wasm.OpcodeI32ReinterpretF32:
		return signature_F32_I32
	case wasm.OpcodeI64ReinterpretF64:
		return signature_F64_I64
	case wasm.OpcodeF32ReinterpretI32:
		return signature_I32_F32
	case wasm.OpcodeF64ReinterpretI64:
		return signature_I64_F64
	case wasm.OpcodeI32Extend8S, wasm.OpcodeI32Extend16S:
		return signature_I32_I32
	case wasm.OpcodeI64Extend8S, wasm.OpcodeI64Extend16S, wasm.OpcodeI64Extend32S:
		return signature_I64_I64
	}
	return nil
}

// miscOpcodeSignature returns the signature of the non-trapping float-to-int conversions.
func miscOpcodeSignature(op wasm.OpcodeMisc) *signature {
	switch op {
	case wasm.OpcodeMiscI32TruncSatF32S, wasm.OpcodeMiscI32TruncSatF32U:
		return signature_F32_I32
	case wasm.OpcodeMiscI32TruncSatF64S, wasm.OpcodeMiscI32TruncSatF64U:
		return signature_F64_I32
	case wasm.OpcodeMiscI64TruncSatF32S, wasm.OpcodeMiscI64TruncSatF32U:
		return signature_F32_I64
	case wasm.OpcodeMiscI64TruncSatF64S, wasm.OpcodeMiscI64TruncSatF64U:
		return signature_F64_I64
	}
	return nil
}

// funcTypeToSignature returns a signature popping the params and pushing the results of the given type.
func funcTypeToSignature(tps *wasm.FunctionType) *signature {
	return &signature{in: tps.Params, out: tps.Results}
}
