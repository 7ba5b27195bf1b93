package ir

import (
	"fmt"
	"math"
	"strings"
)

// UnsignedInt is an integer type whose signedness doesn't matter to the operation.
type UnsignedInt byte

const (
	UnsignedInt32 UnsignedInt = iota
	UnsignedInt64
)

func (s UnsignedInt) String() (ret string) {
	switch s {
	case UnsignedInt32:
		ret = "i32"
	case UnsignedInt64:
		ret = "i64"
	}
	return
}

type SignedInt byte

const (
	SignedInt32 SignedInt = iota
	SignedInt64
	SignedUint32
	SignedUint64
)

func (s SignedInt) String() (ret string) {
	switch s {
	case SignedUint32:
		ret = "u32"
	case SignedUint64:
		ret = "u64"
	case SignedInt32:
		ret = "s32"
	case SignedInt64:
		ret = "s64"
	}
	return
}

type Float byte

const (
	Float32 Float = iota
	Float64
)

func (s Float) String() (ret string) {
	switch s {
	case Float32:
		ret = "f32"
	case Float64:
		ret = "f64"
	}
	return
}

type UnsignedType byte

const (
	UnsignedTypeI32 UnsignedType = iota
	UnsignedTypeI64
	UnsignedTypeF32
	UnsignedTypeF64
)

func (s UnsignedType) String() (ret string) {
	switch s {
	case UnsignedTypeI32:
		ret = "i32"
	case UnsignedTypeI64:
		ret = "i64"
	case UnsignedTypeF32:
		ret = "f32"
	case UnsignedTypeF64:
		ret = "f64"
	}
	return
}

type SignedType byte

const (
	SignedTypeInt32 SignedType = iota
	SignedTypeUint32
	SignedTypeInt64
	SignedTypeUint64
	SignedTypeFloat32
	SignedTypeFloat64
)

func (s SignedType) String() (ret string) {
	switch s {
	case SignedTypeInt32:
		ret = "s32"
	case SignedTypeUint32:
		ret = "u32"
	case SignedTypeInt64:
		ret = "s64"
	case SignedTypeUint64:
		ret = "u64"
	case SignedTypeFloat32:
		ret = "f32"
	case SignedTypeFloat64:
		ret = "f64"
	}
	return
}

// OperationKind is the Kind of an Operation.
type OperationKind uint16

// String implements fmt.Stringer.
func (o OperationKind) String() (ret string) {
	switch o {
	case OperationKindUnreachable:
		ret = "Unreachable"
	case OperationKindBr:
		ret = "Br"
	case OperationKindBrIf:
		ret = "BrIf"
	case OperationKindBrTable:
		ret = "BrTable"
	case OperationKindCall:
		ret = "Call"
	case OperationKindCallIndirect:
		ret = "CallIndirect"
	case OperationKindDrop:
		ret = "Drop"
	case OperationKindSelect:
		ret = "Select"
	case OperationKindPick:
		ret = "Pick"
	case OperationKindSet:
		ret = "Set"
	case OperationKindGlobalGet:
		ret = "GlobalGet"
	case OperationKindGlobalSet:
		ret = "GlobalSet"
	case OperationKindLoad:
		ret = "Load"
	case OperationKindLoad8:
		ret = "Load8"
	case OperationKindLoad16:
		ret = "Load16"
	case OperationKindLoad32:
		ret = "Load32"
	case OperationKindStore:
		ret = "Store"
	case OperationKindStore8:
		ret = "Store8"
	case OperationKindStore16:
		ret = "Store16"
	case OperationKindStore32:
		ret = "Store32"
	case OperationKindMemorySize:
		ret = "MemorySize"
	case OperationKindMemoryGrow:
		ret = "MemoryGrow"
	case OperationKindConstI32:
		ret = "ConstI32"
	case OperationKindConstI64:
		ret = "ConstI64"
	case OperationKindConstF32:
		ret = "ConstF32"
	case OperationKindConstF64:
		ret = "ConstF64"
	case OperationKindEq:
		ret = "Eq"
	case OperationKindNe:
		ret = "Ne"
	case OperationKindEqz:
		ret = "Eqz"
	case OperationKindLt:
		ret = "Lt"
	case OperationKindGt:
		ret = "Gt"
	case OperationKindLe:
		ret = "Le"
	case OperationKindGe:
		ret = "Ge"
	case OperationKindAdd:
		ret = "Add"
	case OperationKindSub:
		ret = "Sub"
	case OperationKindMul:
		ret = "Mul"
	case OperationKindClz:
		ret = "Clz"
	case OperationKindCtz:
		ret = "Ctz"
	case OperationKindPopcnt:
		ret = "Popcnt"
	case OperationKindDiv:
		ret = "Div"
	case OperationKindRem:
		ret = "Rem"
	case OperationKindAnd:
		ret = "And"
	case OperationKindOr:
		ret = "Or"
	case OperationKindXor:
		ret = "Xor"
	case OperationKindShl:
		ret = "Shl"
	case OperationKindShr:
		ret = "Shr"
	case OperationKindRotl:
		ret = "Rotl"
	case OperationKindRotr:
		ret = "Rotr"
	case OperationKindAbs:
		ret = "Abs"
	case OperationKindNeg:
		ret = "Neg"
	case OperationKindCeil:
		ret = "Ceil"
	case OperationKindFloor:
		ret = "Floor"
	case OperationKindTrunc:
		ret = "Trunc"
	case OperationKindNearest:
		ret = "Nearest"
	case OperationKindSqrt:
		ret = "Sqrt"
	case OperationKindMin:
		ret = "Min"
	case OperationKindMax:
		ret = "Max"
	case OperationKindCopysign:
		ret = "Copysign"
	case OperationKindI32WrapFromI64:
		ret = "I32WrapFromI64"
	case OperationKindITruncFromF:
		ret = "ITruncFromF"
	case OperationKindFConvertFromI:
		ret = "FConvertFromI"
	case OperationKindF32DemoteFromF64:
		ret = "F32DemoteFromF64"
	case OperationKindF64PromoteFromF32:
		ret = "F64PromoteFromF32"
	case OperationKindI32ReinterpretFromF32:
		ret = "I32ReinterpretFromF32"
	case OperationKindI64ReinterpretFromF64:
		ret = "I64ReinterpretFromF64"
	case OperationKindF32ReinterpretFromI32:
		ret = "F32ReinterpretFromI32"
	case OperationKindF64ReinterpretFromI64:
		ret = "F64ReinterpretFromI64"
	case OperationKindExtend:
		ret = "Extend"
	case OperationKindSignExtend32From8:
		ret = "SignExtend32From8"
	case OperationKindSignExtend32From16:
		ret = "SignExtend32From16"
	case OperationKindSignExtend64From8:
		ret = "SignExtend64From8"
	case OperationKindSignExtend64From16:
		ret = "SignExtend64From16"
	case OperationKindSignExtend64From32:
		ret = "SignExtend64From32"
	default:
		panic(fmt.Errorf("unknown operation %d", o))
	}
	return
}

const (
	OperationKindUnreachable OperationKind = iota
	OperationKindBr
	OperationKindBrIf
	OperationKindBrTable
	OperationKindCall
	OperationKindCallIndirect
	OperationKindDrop
	OperationKindSelect
	OperationKindPick
	OperationKindSet
	OperationKindGlobalGet
	OperationKindGlobalSet
	OperationKindLoad
	OperationKindLoad8
	OperationKindLoad16
	OperationKindLoad32
	OperationKindStore
	OperationKindStore8
	OperationKindStore16
	OperationKindStore32
	OperationKindMemorySize
	OperationKindMemoryGrow
	OperationKindConstI32
	OperationKindConstI64
	OperationKindConstF32
	OperationKindConstF64
	OperationKindEq
	OperationKindNe
	OperationKindEqz
	OperationKindLt
	OperationKindGt
	OperationKindLe
	OperationKindGe
	OperationKindAdd
	OperationKindSub
	OperationKindMul
	OperationKindClz
	OperationKindCtz
	OperationKindPopcnt
	OperationKindDiv
	OperationKindRem
	OperationKindAnd
	OperationKindOr
	OperationKindXor
	OperationKindShl
	OperationKindShr
	OperationKindRotl
	OperationKindRotr
	OperationKindAbs
	OperationKindNeg
	OperationKindCeil
	OperationKindFloor
	OperationKindTrunc
	OperationKindNearest
	OperationKindSqrt
	OperationKindMin
	OperationKindMax
	OperationKindCopysign
	OperationKindI32WrapFromI64
	OperationKindITruncFromF
	OperationKindFConvertFromI
	OperationKindF32DemoteFromF64
	OperationKindF64PromoteFromF32
	OperationKindI32ReinterpretFromF32
	OperationKindI64ReinterpretFromF64
	OperationKindF32ReinterpretFromI32
	OperationKindF64ReinterpretFromI64
	OperationKindExtend
	OperationKindSignExtend32From8
	OperationKindSignExtend32From16
	OperationKindSignExtend64From8
	OperationKindSignExtend64From16
	OperationKindSignExtend64From32
	// operationKindEnd is always placed at the bottom of this iota definition to be used in the test.
	operationKindEnd
)

// ReturnAddress is the branch target meaning "return from the function".
const ReturnAddress = uint64(math.MaxUint64)

// InclusiveRange is the range of values to drop, counted in depth from the top of the value stack.
// Ex. InclusiveRange{Start: 1, End: 2} drops the second and the third topmost values.
type InclusiveRange struct {
	Start, End int32
}

// NopInclusiveRange is InclusiveRange which corresponds to no-operation.
var NopInclusiveRange = InclusiveRange{Start: -1, End: -1}

// AsU64 is used to convert InclusiveRange to uint64 so that it can be stored in Operation.
func (i InclusiveRange) AsU64() uint64 {
	return uint64(uint32(i.Start))<<32 | uint64(uint32(i.End))
}

// InclusiveRangeFromU64 retrieves InclusiveRange from the given uint64 which is stored in Operation.
func InclusiveRangeFromU64(v uint64) InclusiveRange {
	return InclusiveRange{Start: int32(uint32(v >> 32)), End: int32(uint32(v))}
}

func (i InclusiveRange) String() string {
	if i == NopInclusiveRange {
		return "[]"
	}
	return fmt.Sprintf("[%d..%d]", i.Start, i.End)
}

// MemoryArg is the "memarg" of all memory instructions.
type MemoryArg struct {
	// Alignment the expected alignment (expressed as the exponent of a power of 2). Default to the natural alignment.
	Alignment uint32
	// Offset is the address offset added to the instruction's dynamic address operand.
	Offset uint32
}

// Operation is the flat representation of every instruction of the encoding. Only the fields used by the Kind are
// meaningful:
//
//   - Br: U1 is the target address, or ReturnAddress.
//   - BrIf: U1 is the address taken when the condition is non-zero, U2 the address otherwise, and Us[0] the packed
//     InclusiveRange dropped before jumping to U1.
//   - BrTable: Us holds pairs of (address, packed InclusiveRange), with the default target last.
//   - Drop: U1 is the packed InclusiveRange.
//   - Pick, Set: U1 is the depth from the top of the stack.
//   - Call, GlobalGet, GlobalSet: U1 is the index. CallIndirect: U1 is the type index, U2 the table index.
//   - Load*, Store*: U1 is the alignment and U2 the offset. B1 is the type where the kind has one.
//   - Const*: U1 holds the bits of the value.
//   - Numeric kinds: B1 is the operand type, B2 the result type of conversions, B3 the signedness or
//     non-trapping flag.
type Operation struct {
	Kind   OperationKind
	B1, B2 byte
	B3     bool
	U1, U2 uint64
	Us     []uint64
}

// String implements fmt.Stringer, returning a form suitable for disassembly.
func (o Operation) String() string {
	switch o.Kind {
	case OperationKindBr:
		return "Br " + addressString(o.U1)
	case OperationKindBrIf:
		return fmt.Sprintf("BrIf then:%s else:%s drop:%s",
			addressString(o.U1), addressString(o.U2), InclusiveRangeFromU64(o.Us[0]))
	case OperationKindBrTable:
		targets := make([]string, 0, len(o.Us)/2)
		for i := 0; i+1 < len(o.Us); i += 2 {
			targets = append(targets, fmt.Sprintf("%s drop:%s", addressString(o.Us[i]), InclusiveRangeFromU64(o.Us[i+1])))
		}
		last := len(targets) - 1
		return fmt.Sprintf("BrTable [%s] default:%s", strings.Join(targets[:last], ", "), targets[last])
	case OperationKindDrop:
		return "Drop " + InclusiveRangeFromU64(o.U1).String()
	case OperationKindPick, OperationKindSet, OperationKindCall, OperationKindGlobalGet, OperationKindGlobalSet:
		return fmt.Sprintf("%s %d", o.Kind, o.U1)
	case OperationKindCallIndirect:
		return fmt.Sprintf("%s type:%d table:%d", o.Kind, o.U1, o.U2)
	case OperationKindLoad, OperationKindStore:
		return fmt.Sprintf("%s %s align:%d offset:%d", o.Kind, UnsignedType(o.B1), o.U1, o.U2)
	case OperationKindLoad8, OperationKindLoad16:
		return fmt.Sprintf("%s %s align:%d offset:%d", o.Kind, SignedInt(o.B1), o.U1, o.U2)
	case OperationKindLoad32:
		return fmt.Sprintf("%s %s align:%d offset:%d", o.Kind, signedness(o.B3), o.U1, o.U2)
	case OperationKindStore8, OperationKindStore16, OperationKindStore32:
		return fmt.Sprintf("%s align:%d offset:%d", o.Kind, o.U1, o.U2)
	case OperationKindConstI32:
		return fmt.Sprintf("%s %#x", o.Kind, uint32(o.U1))
	case OperationKindConstI64:
		return fmt.Sprintf("%s %#x", o.Kind, o.U1)
	case OperationKindConstF32:
		return fmt.Sprintf("%s %v", o.Kind, math.Float32frombits(uint32(o.U1)))
	case OperationKindConstF64:
		return fmt.Sprintf("%s %v", o.Kind, math.Float64frombits(o.U1))
	case OperationKindEq, OperationKindNe, OperationKindAdd, OperationKindSub, OperationKindMul:
		return fmt.Sprintf("%s %s", o.Kind, UnsignedType(o.B1))
	case OperationKindEqz, OperationKindClz, OperationKindCtz, OperationKindPopcnt, OperationKindAnd, OperationKindOr,
		OperationKindXor, OperationKindShl, OperationKindRotl, OperationKindRotr:
		return fmt.Sprintf("%s %s", o.Kind, UnsignedInt(o.B1))
	case OperationKindLt, OperationKindGt, OperationKindLe, OperationKindGe, OperationKindDiv:
		return fmt.Sprintf("%s %s", o.Kind, SignedType(o.B1))
	case OperationKindRem, OperationKindShr:
		return fmt.Sprintf("%s %s", o.Kind, SignedInt(o.B1))
	case OperationKindAbs, OperationKindNeg, OperationKindCeil, OperationKindFloor, OperationKindTrunc,
		OperationKindNearest, OperationKindSqrt, OperationKindMin, OperationKindMax, OperationKindCopysign:
		return fmt.Sprintf("%s %s", o.Kind, Float(o.B1))
	case OperationKindITruncFromF:
		s := fmt.Sprintf("%s %s->%s", o.Kind, Float(o.B1), SignedInt(o.B2))
		if o.B3 {
			s += " nontrapping"
		}
		return s
	case OperationKindFConvertFromI:
		return fmt.Sprintf("%s %s->%s", o.Kind, SignedInt(o.B1), Float(o.B2))
	case OperationKindExtend:
		return fmt.Sprintf("%s %s", o.Kind, signedness(o.B3))
	}
	return o.Kind.String()
}

func addressString(addr uint64) string {
	if addr == ReturnAddress {
		return "return"
	}
	return fmt.Sprintf("%d", addr)
}

func signedness(signed bool) string {
	if signed {
		return "signed"
	}
	return "unsigned"
}

// newOperationUnreachable is a constructor for Operation with OperationKindUnreachable
//
// This corresponds to wasm.OpcodeUnreachable.
func newOperationUnreachable() Operation {
	return Operation{Kind: OperationKindUnreachable}
}

// newOperationBr is a constructor for Operation with OperationKindBr.
//
// The target is an absolute operation index, or ReturnAddress.
func newOperationBr(target uint64) Operation {
	return Operation{Kind: OperationKindBr, U1: target}
}

// newOperationBrIf is a constructor for Operation with OperationKindBrIf.
//
// The engine is expected to drop thenDrop and jump to thenTarget when the popped condition is non-zero, and jump to
// elseTarget otherwise.
func newOperationBrIf(thenTarget, elseTarget uint64, thenDrop InclusiveRange) Operation {
	return Operation{Kind: OperationKindBrIf, U1: thenTarget, U2: elseTarget, Us: []uint64{thenDrop.AsU64()}}
}

// newOperationBrTable is a constructor for Operation with OperationKindBrTable.
//
// targetsAndDrops holds (address, packed InclusiveRange) pairs, the default target last.
func newOperationBrTable(targetsAndDrops []uint64) Operation {
	return Operation{Kind: OperationKindBrTable, Us: targetsAndDrops}
}

// newOperationCall is a constructor for Operation with OperationKindCall.
//
// This corresponds to wasm.OpcodeCall.
func newOperationCall(functionIndex uint32) Operation {
	return Operation{Kind: OperationKindCall, U1: uint64(functionIndex)}
}

// newOperationCallIndirect is a constructor for Operation with OperationKindCallIndirect.
//
// This corresponds to wasm.OpcodeCallIndirect.
func newOperationCallIndirect(typeIndex, tableIndex uint32) Operation {
	return Operation{Kind: OperationKindCallIndirect, U1: uint64(typeIndex), U2: uint64(tableIndex)}
}

// newOperationDrop is a constructor for Operation with OperationKindDrop.
//
// The engine is expected to discard the values in depth range from the top of the stack.
func newOperationDrop(depth InclusiveRange) Operation {
	return Operation{Kind: OperationKindDrop, U1: depth.AsU64()}
}

// newOperationSelect is a constructor for Operation with OperationKindSelect.
//
// This corresponds to wasm.OpcodeSelect.
func newOperationSelect() Operation {
	return Operation{Kind: OperationKindSelect}
}

// newOperationPick is a constructor for Operation with OperationKindPick.
//
// The engine is expected to copy the value at depth from the top of the stack and push it. This lowers local.get.
func newOperationPick(depth int) Operation {
	return Operation{Kind: OperationKindPick, U1: uint64(depth)}
}

// newOperationSet is a constructor for Operation with OperationKindSet.
//
// The engine is expected to pop the top value and write it at depth, measured before the pop. This lowers local.set.
func newOperationSet(depth int) Operation {
	return Operation{Kind: OperationKindSet, U1: uint64(depth)}
}

func newOperationGlobalGet(index uint32) Operation {
	return Operation{Kind: OperationKindGlobalGet, U1: uint64(index)}
}

func newOperationGlobalSet(index uint32) Operation {
	return Operation{Kind: OperationKindGlobalSet, U1: uint64(index)}
}

// newOperationLoad is a constructor for Operation with OperationKindLoad.
//
// This corresponds to wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load and wasm.OpcodeF64Load.
func newOperationLoad(unsignedType UnsignedType, arg MemoryArg) Operation {
	return Operation{Kind: OperationKindLoad, B1: byte(unsignedType), U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

func newOperationLoad8(signedInt SignedInt, arg MemoryArg) Operation {
	return Operation{Kind: OperationKindLoad8, B1: byte(signedInt), U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

func newOperationLoad16(signedInt SignedInt, arg MemoryArg) Operation {
	return Operation{Kind: OperationKindLoad16, B1: byte(signedInt), U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

func newOperationLoad32(signed bool, arg MemoryArg) Operation {
	return Operation{Kind: OperationKindLoad32, B3: signed, U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

// newOperationStore is a constructor for Operation with OperationKindStore.
//
// This corresponds to wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store and wasm.OpcodeF64Store.
func newOperationStore(unsignedType UnsignedType, arg MemoryArg) Operation {
	return Operation{Kind: OperationKindStore, B1: byte(unsignedType), U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

func newOperationStore8(arg MemoryArg) Operation {
	return Operation{Kind: OperationKindStore8, U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

func newOperationStore16(arg MemoryArg) Operation {
	return Operation{Kind: OperationKindStore16, U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

func newOperationStore32(arg MemoryArg) Operation {
	return Operation{Kind: OperationKindStore32, U1: uint64(arg.Alignment), U2: uint64(arg.Offset)}
}

func newOperationMemorySize() Operation {
	return Operation{Kind: OperationKindMemorySize}
}

func newOperationMemoryGrow() Operation {
	return Operation{Kind: OperationKindMemoryGrow}
}

func newOperationConstI32(value uint32) Operation {
	return Operation{Kind: OperationKindConstI32, U1: uint64(value)}
}

func newOperationConstI64(value uint64) Operation {
	return Operation{Kind: OperationKindConstI64, U1: value}
}

func newOperationConstF32(value float32) Operation {
	return Operation{Kind: OperationKindConstF32, U1: uint64(math.Float32bits(value))}
}

func newOperationConstF64(value float64) Operation {
	return Operation{Kind: OperationKindConstF64, U1: math.Float64bits(value)}
}

// newOperationUnsignedType is a constructor for the numeric kinds whose operand is an UnsignedType: OperationKindEq,
// OperationKindNe, OperationKindAdd, OperationKindSub and OperationKindMul.
func newOperationUnsignedType(kind OperationKind, t UnsignedType) Operation {
	return Operation{Kind: kind, B1: byte(t)}
}

// newOperationUnsignedInt is a constructor for the numeric kinds whose operand is an UnsignedInt, such as
// OperationKindEqz or OperationKindRotl.
func newOperationUnsignedInt(kind OperationKind, t UnsignedInt) Operation {
	return Operation{Kind: kind, B1: byte(t)}
}

// newOperationSignedType is a constructor for OperationKindLt, OperationKindGt, OperationKindLe, OperationKindGe and
// OperationKindDiv.
func newOperationSignedType(kind OperationKind, t SignedType) Operation {
	return Operation{Kind: kind, B1: byte(t)}
}

// newOperationSignedInt is a constructor for OperationKindRem and OperationKindShr.
func newOperationSignedInt(kind OperationKind, t SignedInt) Operation {
	return Operation{Kind: kind, B1: byte(t)}
}

// newOperationFloat is a constructor for the floating point only kinds, OperationKindAbs to OperationKindCopysign.
func newOperationFloat(kind OperationKind, t Float) Operation {
	return Operation{Kind: kind, B1: byte(t)}
}

// newOperationITruncFromF is a constructor for Operation with OperationKindITruncFromF.
//
// This corresponds to the trapping truncations such as wasm.OpcodeI32TruncF32S, and the non-trapping ones such as
// wasm.OpcodeMiscI32TruncSatF32S when nonTrapping is true.
func newOperationITruncFromF(inputType Float, outputType SignedInt, nonTrapping bool) Operation {
	return Operation{Kind: OperationKindITruncFromF, B1: byte(inputType), B2: byte(outputType), B3: nonTrapping}
}

// newOperationFConvertFromI is a constructor for Operation with OperationKindFConvertFromI.
//
// This corresponds to wasm.OpcodeF32ConvertI32S through wasm.OpcodeF64ConvertI64U.
func newOperationFConvertFromI(inputType SignedInt, outputType Float) Operation {
	return Operation{Kind: OperationKindFConvertFromI, B1: byte(inputType), B2: byte(outputType)}
}

// newOperationExtend is a constructor for Operation with OperationKindExtend.
//
// This corresponds to wasm.OpcodeI64ExtendI32S when signed is true, and wasm.OpcodeI64ExtendI32U otherwise.
func newOperationExtend(signed bool) Operation {
	return Operation{Kind: OperationKindExtend, B3: signed}
}

// newOperation is a constructor for the kinds without any parameter, such as OperationKindF32DemoteFromF64 or
// OperationKindSignExtend32From8.
func newOperation(kind OperationKind) Operation {
	return Operation{Kind: kind}
}
