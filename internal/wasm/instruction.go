package wasm

// Opcode is the binary Opcode of an instruction. See also InstructionName
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-instr
type Opcode = byte

// OpcodeMisc is the secondary opcode following OpcodeMiscPrefix.
type OpcodeMisc = byte

const (
	// control instructions
	OpcodeUnreachable  Opcode = 0x00
	OpcodeNop          Opcode = 0x01
	OpcodeBlock        Opcode = 0x02
	OpcodeLoop         Opcode = 0x03
	OpcodeIf           Opcode = 0x04
	OpcodeElse         Opcode = 0x05
	OpcodeEnd          Opcode = 0x0b
	OpcodeBr           Opcode = 0x0c
	OpcodeBrIf         Opcode = 0x0d
	OpcodeBrTable      Opcode = 0x0e
	OpcodeReturn       Opcode = 0x0f
	OpcodeCall         Opcode = 0x10
	OpcodeCallIndirect Opcode = 0x11

	// parametric instructions
	OpcodeDrop   Opcode = 0x1a
	OpcodeSelect Opcode = 0x1b

	// variable instructions
	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	// memory instructions
	OpcodeI32Load    Opcode = 0x28
	OpcodeI64Load    Opcode = 0x29
	OpcodeF32Load    Opcode = 0x2a
	OpcodeF64Load    Opcode = 0x2b
	OpcodeI32Load8S  Opcode = 0x2c
	OpcodeI32Load8U  Opcode = 0x2d
	OpcodeI32Load16S Opcode = 0x2e
	OpcodeI32Load16U Opcode = 0x2f
	OpcodeI64Load8S  Opcode = 0x30
	OpcodeI64Load8U  Opcode = 0x31
	OpcodeI64Load16S Opcode = 0x32
	OpcodeI64Load16U Opcode = 0x33
	OpcodeI64Load32S Opcode = 0x34
	OpcodeI64Load32U Opcode = 0x35
	OpcodeI32Store   Opcode = 0x36
	OpcodeI64Store   Opcode = 0x37
	OpcodeF32Store   Opcode = 0x38
	OpcodeF64Store   Opcode = 0x39
	OpcodeI32Store8  Opcode = 0x3a
	OpcodeI32Store16 Opcode = 0x3b
	OpcodeI64Store8  Opcode = 0x3c
	OpcodeI64Store16 Opcode = 0x3d
	OpcodeI64Store32 Opcode = 0x3e
	OpcodeMemorySize Opcode = 0x3f
	OpcodeMemoryGrow Opcode = 0x40

	// numeric instructions
	OpcodeI32Const    Opcode = 0x41
	OpcodeI64Const    Opcode = 0x42
	OpcodeF32Const    Opcode = 0x43
	OpcodeF64Const    Opcode = 0x44
	OpcodeI32Eqz      Opcode = 0x45
	OpcodeI32Eq       Opcode = 0x46
	OpcodeI32Ne       Opcode = 0x47
	OpcodeI32LtS      Opcode = 0x48
	OpcodeI32LtU      Opcode = 0x49
	OpcodeI32GtS      Opcode = 0x4a
	OpcodeI32GtU      Opcode = 0x4b
	OpcodeI32LeS      Opcode = 0x4c
	OpcodeI32LeU      Opcode = 0x4d
	OpcodeI32GeS      Opcode = 0x4e
	OpcodeI32GeU      Opcode = 0x4f
	OpcodeI64Eqz      Opcode = 0x50
	OpcodeI64Eq       Opcode = 0x51
	OpcodeI64Ne       Opcode = 0x52
	OpcodeI64LtS      Opcode = 0x53
	OpcodeI64LtU      Opcode = 0x54
	OpcodeI64GtS      Opcode = 0x55
	OpcodeI64GtU      Opcode = 0x56
	OpcodeI64LeS      Opcode = 0x57
	OpcodeI64LeU      Opcode = 0x58
	OpcodeI64GeS      Opcode = 0x59
	OpcodeI64GeU      Opcode = 0x5a
	OpcodeF32Eq       Opcode = 0x5b
	OpcodeF32Ne       Opcode = 0x5c
	OpcodeF32Lt       Opcode = 0x5d
	OpcodeF32Gt       Opcode = 0x5e
	OpcodeF32Le       Opcode = 0x5f
	OpcodeF32Ge       Opcode = 0x60
	OpcodeF64Eq       Opcode = 0x61
	OpcodeF64Ne       Opcode = 0x62
	OpcodeF64Lt       Opcode = 0x63
	OpcodeF64Gt       Opcode = 0x64
	OpcodeF64Le       Opcode = 0x65
	OpcodeF64Ge       Opcode = 0x66
	OpcodeI32Clz      Opcode = 0x67
	OpcodeI32Ctz      Opcode = 0x68
	OpcodeI32Popcnt   Opcode = 0x69
	OpcodeI32Add      Opcode = 0x6a
	OpcodeI32Sub      Opcode = 0x6b
	OpcodeI32Mul      Opcode = 0x6c
	OpcodeI32DivS     Opcode = 0x6d
	OpcodeI32DivU     Opcode = 0x6e
	OpcodeI32RemS     Opcode = 0x6f
	OpcodeI32RemU     Opcode = 0x70
	OpcodeI32And      Opcode = 0x71
	OpcodeI32Or       Opcode = 0x72
	OpcodeI32Xor      Opcode = 0x73
	OpcodeI32Shl      Opcode = 0x74
	OpcodeI32ShrS     Opcode = 0x75
	OpcodeI32ShrU     Opcode = 0x76
	OpcodeI32Rotl     Opcode = 0x77
	OpcodeI32Rotr     Opcode = 0x78
	OpcodeI64Clz      Opcode = 0x79
	OpcodeI64Ctz      Opcode = 0x7a
	OpcodeI64Popcnt   Opcode = 0x7b
	OpcodeI64Add      Opcode = 0x7c
	OpcodeI64Sub      Opcode = 0x7d
	OpcodeI64Mul      Opcode = 0x7e
	OpcodeI64DivS     Opcode = 0x7f
	OpcodeI64DivU     Opcode = 0x80
	OpcodeI64RemS     Opcode = 0x81
	OpcodeI64RemU     Opcode = 0x82
	OpcodeI64And      Opcode = 0x83
	OpcodeI64Or       Opcode = 0x84
	OpcodeI64Xor      Opcode = 0x85
	OpcodeI64Shl      Opcode = 0x86
	OpcodeI64ShrS     Opcode = 0x87
	OpcodeI64ShrU     Opcode = 0x88
	OpcodeI64Rotl     Opcode = 0x89
	OpcodeI64Rotr     Opcode = 0x8a
	OpcodeF32Abs      Opcode = 0x8b
	OpcodeF32Neg      Opcode = 0x8c
	OpcodeF32Ceil     Opcode = 0x8d
	OpcodeF32Floor    Opcode = 0x8e
	OpcodeF32Trunc    Opcode = 0x8f
	OpcodeF32Nearest  Opcode = 0x90
	OpcodeF32Sqrt     Opcode = 0x91
	OpcodeF32Add      Opcode = 0x92
	OpcodeF32Sub      Opcode = 0x93
	OpcodeF32Mul      Opcode = 0x94
	OpcodeF32Div      Opcode = 0x95
	OpcodeF32Min      Opcode = 0x96
	OpcodeF32Max      Opcode = 0x97
	OpcodeF32Copysign Opcode = 0x98
	OpcodeF64Abs      Opcode = 0x99
	OpcodeF64Neg      Opcode = 0x9a
	OpcodeF64Ceil     Opcode = 0x9b
	OpcodeF64Floor    Opcode = 0x9c
	OpcodeF64Trunc    Opcode = 0x9d
	OpcodeF64Nearest  Opcode = 0x9e
	OpcodeF64Sqrt     Opcode = 0x9f
	OpcodeF64Add      Opcode = 0xa0
	OpcodeF64Sub      Opcode = 0xa1
	OpcodeF64Mul      Opcode = 0xa2
	OpcodeF64Div      Opcode = 0xa3
	OpcodeF64Min      Opcode = 0xa4
	OpcodeF64Max      Opcode = 0xa5
	OpcodeF64Copysign Opcode = 0xa6

	// conversions
	OpcodeI32WrapI64        Opcode = 0xa7
	OpcodeI32TruncF32S      Opcode = 0xa8
	OpcodeI32TruncF32U      Opcode = 0xa9
	OpcodeI32TruncF64S      Opcode = 0xaa
	OpcodeI32TruncF64U      Opcode = 0xab
	OpcodeI64ExtendI32S     Opcode = 0xac
	OpcodeI64ExtendI32U     Opcode = 0xad
	OpcodeI64TruncF32S      Opcode = 0xae
	OpcodeI64TruncF32U      Opcode = 0xaf
	OpcodeI64TruncF64S      Opcode = 0xb0
	OpcodeI64TruncF64U      Opcode = 0xb1
	OpcodeF32ConvertI32S    Opcode = 0xb2
	OpcodeF32ConvertI32U    Opcode = 0xb3
	OpcodeF32ConvertI64S    Opcode = 0xb4
	OpcodeF32ConvertI64U    Opcode = 0xb5
	OpcodeF32DemoteF64      Opcode = 0xb6
	OpcodeF64ConvertI32S    Opcode = 0xb7
	OpcodeF64ConvertI32U    Opcode = 0xb8
	OpcodeF64ConvertI64S    Opcode = 0xb9
	OpcodeF64ConvertI64U    Opcode = 0xba
	OpcodeF64PromoteF32     Opcode = 0xbb
	OpcodeI32ReinterpretF32 Opcode = 0xbc
	OpcodeI64ReinterpretF64 Opcode = 0xbd
	OpcodeF32ReinterpretI32 Opcode = 0xbe
	OpcodeF64ReinterpretI64 Opcode = 0xbf

	// sign-extension operators, gated by FeatureSignExtensionOps
	OpcodeI32Extend8S  Opcode = 0xc0
	OpcodeI32Extend16S Opcode = 0xc1
	OpcodeI64Extend8S  Opcode = 0xc2
	OpcodeI64Extend16S Opcode = 0xc3
	OpcodeI64Extend32S Opcode = 0xc4

	// OpcodeMiscPrefix is the prefix of various multi-byte opcodes.
	OpcodeMiscPrefix Opcode = 0xfc
)

// The non-trapping float-to-int conversions, gated by FeatureNonTrappingFloatToIntConversion.
const (
	OpcodeMiscI32TruncSatF32S OpcodeMisc = 0x00
	OpcodeMiscI32TruncSatF32U OpcodeMisc = 0x01
	OpcodeMiscI32TruncSatF64S OpcodeMisc = 0x02
	OpcodeMiscI32TruncSatF64U OpcodeMisc = 0x03
	OpcodeMiscI64TruncSatF32S OpcodeMisc = 0x04
	OpcodeMiscI64TruncSatF32U OpcodeMisc = 0x05
	OpcodeMiscI64TruncSatF64S OpcodeMisc = 0x06
	OpcodeMiscI64TruncSatF64U OpcodeMisc = 0x07
)

// BlockTypeEmpty is the block type byte of a block, loop or if without a result.
const BlockTypeEmpty byte = 0x40

// FloatClass tags each opcode with the floating point width it consumes or produces, for the float denial policy.
//
// Conversions between integers and floats carry the class of the float side. The exception kept from the historical
// denial sets is that every truncation into i32 is FloatClassF32 and every truncation into i64 is FloatClassF64,
// regardless of the float operand.
type FloatClass byte

const (
	FloatClassNone FloatClass = iota
	FloatClassF32
	FloatClassF64
)

func (c FloatClass) String() string {
	switch c {
	case FloatClassF32:
		return "f32"
	case FloatClassF64:
		return "f64"
	}
	return "none"
}

// immediate is the shape of the bytes following an opcode.
type immediate byte

const (
	immediateNone immediate = iota
	// immediateBlockType is 0x40 or a value type.
	immediateBlockType
	// immediateLabel is a u32 relative depth.
	immediateLabel
	// immediateBrTable is a vector of u32 depths followed by the default depth.
	immediateBrTable
	// immediateIndex is a u32 in a function, local or global index namespace.
	immediateIndex
	// immediateCallIndirect is a u32 type index followed by the table reserved byte.
	immediateCallIndirect
	// immediateMemArg is the u32 alignment exponent followed by the u32 offset.
	immediateMemArg
	// immediateReserved is the single zero byte of memory.size and memory.grow.
	immediateReserved
	immediateI32
	immediateI64
	immediateF32
	immediateF64
)

type instructionInfo struct {
	name      string
	immediate immediate
	float     FloatClass
}

// instructionTable is indexed by Opcode. An entry with an empty name is an invalid opcode.
var instructionTable = [256]instructionInfo{
	OpcodeUnreachable:       {name: "unreachable"},
	OpcodeNop:               {name: "nop"},
	OpcodeBlock:             {name: "block", immediate: immediateBlockType},
	OpcodeLoop:              {name: "loop", immediate: immediateBlockType},
	OpcodeIf:                {name: "if", immediate: immediateBlockType},
	OpcodeElse:              {name: "else"},
	OpcodeEnd:               {name: "end"},
	OpcodeBr:                {name: "br", immediate: immediateLabel},
	OpcodeBrIf:              {name: "br_if", immediate: immediateLabel},
	OpcodeBrTable:           {name: "br_table", immediate: immediateBrTable},
	OpcodeReturn:            {name: "return"},
	OpcodeCall:              {name: "call", immediate: immediateIndex},
	OpcodeCallIndirect:      {name: "call_indirect", immediate: immediateCallIndirect},
	OpcodeDrop:              {name: "drop"},
	OpcodeSelect:            {name: "select"},
	OpcodeLocalGet:          {name: "local.get", immediate: immediateIndex},
	OpcodeLocalSet:          {name: "local.set", immediate: immediateIndex},
	OpcodeLocalTee:          {name: "local.tee", immediate: immediateIndex},
	OpcodeGlobalGet:         {name: "global.get", immediate: immediateIndex},
	OpcodeGlobalSet:         {name: "global.set", immediate: immediateIndex},
	OpcodeI32Load:           {name: "i32.load", immediate: immediateMemArg},
	OpcodeI64Load:           {name: "i64.load", immediate: immediateMemArg},
	OpcodeF32Load:           {name: "f32.load", immediate: immediateMemArg, float: FloatClassF32},
	OpcodeF64Load:           {name: "f64.load", immediate: immediateMemArg, float: FloatClassF64},
	OpcodeI32Load8S:         {name: "i32.load8_s", immediate: immediateMemArg},
	OpcodeI32Load8U:         {name: "i32.load8_u", immediate: immediateMemArg},
	OpcodeI32Load16S:        {name: "i32.load16_s", immediate: immediateMemArg},
	OpcodeI32Load16U:        {name: "i32.load16_u", immediate: immediateMemArg},
	OpcodeI64Load8S:         {name: "i64.load8_s", immediate: immediateMemArg},
	OpcodeI64Load8U:         {name: "i64.load8_u", immediate: immediateMemArg},
	OpcodeI64Load16S:        {name: "i64.load16_s", immediate: immediateMemArg},
	OpcodeI64Load16U:        {name: "i64.load16_u", immediate: immediateMemArg},
	OpcodeI64Load32S:        {name: "i64.load32_s", immediate: immediateMemArg},
	OpcodeI64Load32U:        {name: "i64.load32_u", immediate: immediateMemArg},
	OpcodeI32Store:          {name: "i32.store", immediate: immediateMemArg},
	OpcodeI64Store:          {name: "i64.store", immediate: immediateMemArg},
	OpcodeF32Store:          {name: "f32.store", immediate: immediateMemArg, float: FloatClassF32},
	OpcodeF64Store:          {name: "f64.store", immediate: immediateMemArg, float: FloatClassF64},
	OpcodeI32Store8:         {name: "i32.store8", immediate: immediateMemArg},
	OpcodeI32Store16:        {name: "i32.store16", immediate: immediateMemArg},
	OpcodeI64Store8:         {name: "i64.store8", immediate: immediateMemArg},
	OpcodeI64Store16:        {name: "i64.store16", immediate: immediateMemArg},
	OpcodeI64Store32:        {name: "i64.store32", immediate: immediateMemArg},
	OpcodeMemorySize:        {name: "memory.size", immediate: immediateReserved},
	OpcodeMemoryGrow:        {name: "memory.grow", immediate: immediateReserved},
	OpcodeI32Const:          {name: "i32.const", immediate: immediateI32},
	OpcodeI64Const:          {name: "i64.const", immediate: immediateI64},
	OpcodeF32Const:          {name: "f32.const", immediate: immediateF32, float: FloatClassF32},
	OpcodeF64Const:          {name: "f64.const", immediate: immediateF64, float: FloatClassF64},
	OpcodeI32Eqz:            {name: "i32.eqz"},
	OpcodeI32Eq:             {name: "i32.eq"},
	OpcodeI32Ne:             {name: "i32.ne"},
	OpcodeI32LtS:            {name: "i32.lt_s"},
	OpcodeI32LtU:            {name: "i32.lt_u"},
	OpcodeI32GtS:            {name: "i32.gt_s"},
	OpcodeI32GtU:            {name: "i32.gt_u"},
	OpcodeI32LeS:            {name: "i32.le_s"},
	OpcodeI32LeU:            {name: "i32.le_u"},
	OpcodeI32GeS:            {name: "i32.ge_s"},
	OpcodeI32GeU:            {name: "i32.ge_u"},
	OpcodeI64Eqz:            {name: "i64.eqz"},
	OpcodeI64Eq:             {name: "i64.eq"},
	OpcodeI64Ne:             {name: "i64.ne"},
	OpcodeI64LtS:            {name: "i64.lt_s"},
	OpcodeI64LtU:            {name: "i64.lt_u"},
	OpcodeI64GtS:            {name: "i64.gt_s"},
	OpcodeI64GtU:            {name: "i64.gt_u"},
	OpcodeI64LeS:            {name: "i64.le_s"},
	OpcodeI64LeU:            {name: "i64.le_u"},
	OpcodeI64GeS:            {name: "i64.ge_s"},
	OpcodeI64GeU:            {name: "i64.ge_u"},
	OpcodeF32Eq:             {name: "f32.eq", float: FloatClassF32},
	OpcodeF32Ne:             {name: "f32.ne", float: FloatClassF32},
	OpcodeF32Lt:             {name: "f32.lt", float: FloatClassF32},
	OpcodeF32Gt:             {name: "f32.gt", float: FloatClassF32},
	OpcodeF32Le:             {name: "f32.le", float: FloatClassF32},
	OpcodeF32Ge:             {name: "f32.ge", float: FloatClassF32},
	OpcodeF64Eq:             {name: "f64.eq", float: FloatClassF64},
	OpcodeF64Ne:             {name: "f64.ne", float: FloatClassF64},
	OpcodeF64Lt:             {name: "f64.lt", float: FloatClassF64},
	OpcodeF64Gt:             {name: "f64.gt", float: FloatClassF64},
	OpcodeF64Le:             {name: "f64.le", float: FloatClassF64},
	OpcodeF64Ge:             {name: "f64.ge", float: FloatClassF64},
	OpcodeI32Clz:            {name: "i32.clz"},
	OpcodeI32Ctz:            {name: "i32.ctz"},
	OpcodeI32Popcnt:         {name: "i32.popcnt"},
	OpcodeI32Add:            {name: "i32.add"},
	OpcodeI32Sub:            {name: "i32.sub"},
	OpcodeI32Mul:            {name: "i32.mul"},
	OpcodeI32DivS:           {name: "i32.div_s"},
	OpcodeI32DivU:           {name: "i32.div_u"},
	OpcodeI32RemS:           {name: "i32.rem_s"},
	OpcodeI32RemU:           {name: "i32.rem_u"},
	OpcodeI32And:            {name: "i32.and"},
	OpcodeI32Or:             {name: "i32.or"},
	OpcodeI32Xor:            {name: "i32.xor"},
	OpcodeI32Shl:            {name: "i32.shl"},
	OpcodeI32ShrS:           {name: "i32.shr_s"},
	OpcodeI32ShrU:           {name: "i32.shr_u"},
	OpcodeI32Rotl:           {name: "i32.rotl"},
	OpcodeI32Rotr:           {name: "i32.rotr"},
	OpcodeI64Clz:            {name: "i64.clz"},
	OpcodeI64Ctz:            {name: "i64.ctz"},
	OpcodeI64Popcnt:         {name: "i64.popcnt"},
	OpcodeI64Add:            {name: "i64.add"},
	OpcodeI64Sub:            {name: "i64.sub"},
	OpcodeI64Mul:            {name: "i64.mul"},
	OpcodeI64DivS:           {name: "i64.div_s"},
	OpcodeI64DivU:           {name: "i64.div_u"},
	OpcodeI64RemS:           {name: "i64.rem_s"},
	OpcodeI64RemU:           {name: "i64.rem_u"},
	OpcodeI64And:            {name: "i64.and"},
	OpcodeI64Or:             {name: "i64.or"},
	OpcodeI64Xor:            {name: "i64.xor"},
	OpcodeI64Shl:            {name: "i64.shl"},
	OpcodeI64ShrS:           {name: "i64.shr_s"},
	OpcodeI64ShrU:           {name: "i64.shr_u"},
	OpcodeI64Rotl:           {name: "i64.rotl"},
	OpcodeI64Rotr:           {name: "i64.rotr"},
	OpcodeF32Abs:            {name: "f32.abs", float: FloatClassF32},
	OpcodeF32Neg:            {name: "f32.neg", float: FloatClassF32},
	OpcodeF32Ceil:           {name: "f32.ceil", float: FloatClassF32},
	OpcodeF32Floor:          {name: "f32.floor", float: FloatClassF32},
	OpcodeF32Trunc:          {name: "f32.trunc", float: FloatClassF32},
	OpcodeF32Nearest:        {name: "f32.nearest", float: FloatClassF32},
	OpcodeF32Sqrt:           {name: "f32.sqrt", float: FloatClassF32},
	OpcodeF32Add:            {name: "f32.add", float: FloatClassF32},
	OpcodeF32Sub:            {name: "f32.sub", float: FloatClassF32},
	OpcodeF32Mul:            {name: "f32.mul", float: FloatClassF32},
	OpcodeF32Div:            {name: "f32.div", float: FloatClassF32},
	OpcodeF32Min:            {name: "f32.min", float: FloatClassF32},
	OpcodeF32Max:            {name: "f32.max", float: FloatClassF32},
	OpcodeF32Copysign:       {name: "f32.copysign", float: FloatClassF32},
	OpcodeF64Abs:            {name: "f64.abs", float: FloatClassF64},
	OpcodeF64Neg:            {name: "f64.neg", float: FloatClassF64},
	OpcodeF64Ceil:           {name: "f64.ceil", float: FloatClassF64},
	OpcodeF64Floor:          {name: "f64.floor", float: FloatClassF64},
	OpcodeF64Trunc:          {name: "f64.trunc", float: FloatClassF64},
	OpcodeF64Nearest:        {name: "f64.nearest", float: FloatClassF64},
	OpcodeF64Sqrt:           {name: "f64.sqrt", float: FloatClassF64},
	OpcodeF64Add:            {name: "f64.add", float: FloatClassF64},
	OpcodeF64Sub:            {name: "f64.sub", float: FloatClassF64},
	OpcodeF64Mul:            {name: "f64.mul", float: FloatClassF64},
	OpcodeF64Div:            {name: "f64.div", float: FloatClassF64},
	OpcodeF64Min:            {name: "f64.min", float: FloatClassF64},
	OpcodeF64Max:            {name: "f64.max", float: FloatClassF64},
	OpcodeF64Copysign:       {name: "f64.copysign", float: FloatClassF64},
	OpcodeI32WrapI64:        {name: "i32.wrap_i64"},
	OpcodeI32TruncF32S:      {name: "i32.trunc_f32_s", float: FloatClassF32},
	OpcodeI32TruncF32U:      {name: "i32.trunc_f32_u", float: FloatClassF32},
	OpcodeI32TruncF64S:      {name: "i32.trunc_f64_s", float: FloatClassF32},
	OpcodeI32TruncF64U:      {name: "i32.trunc_f64_u", float: FloatClassF32},
	OpcodeI64ExtendI32S:     {name: "i64.extend_i32_s"},
	OpcodeI64ExtendI32U:     {name: "i64.extend_i32_u"},
	OpcodeI64TruncF32S:      {name: "i64.trunc_f32_s", float: FloatClassF64},
	OpcodeI64TruncF32U:      {name: "i64.trunc_f32_u", float: FloatClassF64},
	OpcodeI64TruncF64S:      {name: "i64.trunc_f64_s", float: FloatClassF64},
	OpcodeI64TruncF64U:      {name: "i64.trunc_f64_u", float: FloatClassF64},
	OpcodeF32ConvertI32S:    {name: "f32.convert_i32_s", float: FloatClassF32},
	OpcodeF32ConvertI32U:    {name: "f32.convert_i32_u", float: FloatClassF32},
	OpcodeF32ConvertI64S:    {name: "f32.convert_i64_s", float: FloatClassF32},
	OpcodeF32ConvertI64U:    {name: "f32.convert_i64_u", float: FloatClassF32},
	OpcodeF32DemoteF64:      {name: "f32.demote_f64", float: FloatClassF32},
	OpcodeF64ConvertI32S:    {name: "f64.convert_i32_s", float: FloatClassF64},
	OpcodeF64ConvertI32U:    {name: "f64.convert_i32_u", float: FloatClassF64},
	OpcodeF64ConvertI64S:    {name: "f64.convert_i64_s", float: FloatClassF64},
	OpcodeF64ConvertI64U:    {name: "f64.convert_i64_u", float: FloatClassF64},
	OpcodeF64PromoteF32:     {name: "f64.promote_f32", float: FloatClassF64},
	OpcodeI32ReinterpretF32: {name: "i32.reinterpret_f32", float: FloatClassF32},
	OpcodeI64ReinterpretF64: {name: "i64.reinterpret_f64", float: FloatClassF64},
	OpcodeF32ReinterpretI32: {name: "f32.reinterpret_i32", float: FloatClassF32},
	OpcodeF64ReinterpretI64: {name: "f64.reinterpret_i64", float: FloatClassF64},
	OpcodeI32Extend8S:       {name: "i32.extend8_s"},
	OpcodeI32Extend16S:      {name: "i32.extend16_s"},
	OpcodeI64Extend8S:       {name: "i64.extend8_s"},
	OpcodeI64Extend16S:      {name: "i64.extend16_s"},
	OpcodeI64Extend32S:      {name: "i64.extend32_s"},
}

var miscInstructionTable = [...]instructionInfo{
	OpcodeMiscI32TruncSatF32S: {name: "i32.trunc_sat_f32_s", float: FloatClassF32},
	OpcodeMiscI32TruncSatF32U: {name: "i32.trunc_sat_f32_u", float: FloatClassF32},
	OpcodeMiscI32TruncSatF64S: {name: "i32.trunc_sat_f64_s", float: FloatClassF32},
	OpcodeMiscI32TruncSatF64U: {name: "i32.trunc_sat_f64_u", float: FloatClassF32},
	OpcodeMiscI64TruncSatF32S: {name: "i64.trunc_sat_f32_s", float: FloatClassF64},
	OpcodeMiscI64TruncSatF32U: {name: "i64.trunc_sat_f32_u", float: FloatClassF64},
	OpcodeMiscI64TruncSatF64S: {name: "i64.trunc_sat_f64_s", float: FloatClassF64},
	OpcodeMiscI64TruncSatF64U: {name: "i64.trunc_sat_f64_u", float: FloatClassF64},
}

// InstructionName returns the text format name of the opcode, or an empty string if it is not defined.
func InstructionName(oc Opcode) string {
	return instructionTable[oc].name
}

// MiscInstructionName returns the text format name of the OpcodeMiscPrefix instruction, or an empty string.
func MiscInstructionName(oc OpcodeMisc) string {
	if int(oc) < len(miscInstructionTable) {
		return miscInstructionTable[oc].name
	}
	return ""
}

// FloatClassOf returns the float width class of the opcode. Use MiscFloatClassOf for OpcodeMiscPrefix.
func FloatClassOf(oc Opcode) FloatClass {
	return instructionTable[oc].float
}

// MiscFloatClassOf is FloatClassOf for the secondary opcode of an OpcodeMiscPrefix instruction.
func MiscFloatClassOf(oc OpcodeMisc) FloatClass {
	if int(oc) < len(miscInstructionTable) {
		return miscInstructionTable[oc].float
	}
	return FloatClassNone
}
