// Package ir type checks WebAssembly function bodies and lowers them into a flat, branch-resolved instruction
// encoding in a single pass.
package ir

import (
	"fmt"
	"math"
	"strings"

	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// Instructions is the compiled form of one function.
type Instructions struct {
	// Operations holds no labels: every branch target is an index into Operations, or ReturnAddress.
	Operations []Operation
	// MaxStackHeight is the maximum height of the value stack in reachable code, including params and locals.
	MaxStackHeight int
}

// valueTypeUnknown is the type popped from the polymorphic bottom of an unreachable frame. It matches any type.
const valueTypeUnknown = wasm.ValueType(0xff)

type controlFrameKind byte

const (
	controlFrameKindFunction controlFrameKind = iota
	controlFrameKindBlock
	controlFrameKindLoop
	controlFrameKindIfWithoutElse
	controlFrameKindIfWithElse
)

func (k controlFrameKind) String() string {
	switch k {
	case controlFrameKindFunction:
		return "function"
	case controlFrameKindBlock:
		return "block"
	case controlFrameKindLoop:
		return "loop"
	case controlFrameKindIfWithoutElse:
		return "if"
	case controlFrameKindIfWithElse:
		return "if-else"
	}
	return fmt.Sprintf("controlFrameKind(%d)", byte(k))
}

// patchSite is an address field of an emitted operation which is filled once the label it targets is placed.
type patchSite struct {
	op   int
	slot int
}

const (
	slotU1 = -1
	slotU2 = -2
	// Slots greater or equal to zero are indexes of Operation.Us.
)

type controlFrame struct {
	kind controlFrameKind
	// height is the value stack height at the entry of the frame, which is the floor for its operands.
	height  int
	results []wasm.ValueType

	// unreachable is set after an unconditional transfer of control until the end of the frame, or its else.
	unreachable bool
	// dead is set when the frame was entered in unreachable code. Nothing is emitted until its end.
	dead bool

	// headerAddress is where branches to a loop jump.
	headerAddress uint64
	// elseSite is the else address of the BrIf emitted by "if".
	elseSite    patchSite
	hasElseSite bool
	// continuationSites are forward branches to the end of this frame.
	continuationSites []patchSite
}

// labelTypes returns the types a branch to this frame must provide.
func (f *controlFrame) labelTypes() []wasm.ValueType {
	if f.kind == controlFrameKindLoop {
		return nil
	}
	return f.results
}

type compiler struct {
	features   wasm.Features
	module     *wasm.Module
	locals     []wasm.ValueType
	globals    []*wasm.GlobalType
	hasMemory  bool
	tableCount uint32

	stack  []wasm.ValueType
	frames []*controlFrame
	result Instructions

	body *wasm.BodyReader
	in   wasm.Instruction
}

// Compile type checks the function defined at FunctionSection[funcIndex] and lowers it to Instructions.
//
// The returned error is a *wasm.Error describing the first violation, located in the function index namespace: funcIndex
// plus the count of imported functions.
func Compile(features wasm.Features, m *wasm.Module, funcIndex wasm.Index) (*Instructions, error) {
	funcIdx := m.ImportFuncCount() + funcIndex
	if int(funcIndex) >= len(m.FunctionSection) || int(funcIndex) >= len(m.CodeSection) {
		return nil, wasm.Errorf(wasm.ErrorKindMalformed, "function not found").InFunction(funcIdx)
	}
	typeIdx := m.FunctionSection[funcIndex]
	if int(typeIdx) >= len(m.TypeSection) {
		err := wasm.Errorf(wasm.ErrorKindMalformed, "invalid type index %d >= %d", typeIdx, len(m.TypeSection))
		err.TypeIndex, err.HasTypeIndex = typeIdx, true
		return nil, err.InFunction(funcIdx)
	}

	c := newCompiler(features, m)
	if err := c.compile(m.TypeSection[typeIdx], m.CodeSection[funcIndex]); err != nil {
		return nil, err.InFunction(funcIdx)
	}
	return &c.result, nil
}

func newCompiler(features wasm.Features, m *wasm.Module) *compiler {
	return &compiler{
		features:   features,
		module:     m,
		globals:    m.Globals(),
		hasMemory:  m.HasMemory(),
		tableCount: m.TableCount(),
	}
}

func (c *compiler) compile(sig *wasm.FunctionType, code *wasm.Code) *wasm.Error {
	c.locals = make([]wasm.ValueType, 0, len(sig.Params)+len(code.LocalTypes))
	c.locals = append(c.locals, sig.Params...)
	c.locals = append(c.locals, code.LocalTypes...)

	// Params are given by the caller while declared locals start at zero.
	for _, t := range code.LocalTypes {
		switch t {
		case wasm.ValueTypeI32:
			c.result.Operations = append(c.result.Operations, newOperationConstI32(0))
		case wasm.ValueTypeI64:
			c.result.Operations = append(c.result.Operations, newOperationConstI64(0))
		case wasm.ValueTypeF32:
			c.result.Operations = append(c.result.Operations, newOperationConstF32(0))
		case wasm.ValueTypeF64:
			c.result.Operations = append(c.result.Operations, newOperationConstF64(0))
		default:
			return wasm.Errorf(wasm.ErrorKindMalformed, "invalid local type %#x", t)
		}
	}
	c.stack = append(c.stack, c.locals...)
	c.result.MaxStackHeight = len(c.stack)

	c.frames = append(c.frames, &controlFrame{
		kind:    controlFrameKindFunction,
		height:  len(c.stack),
		results: sig.Results,
	})

	c.body = wasm.NewBodyReader(code.Body)
	for len(c.frames) > 0 {
		if err := c.body.Next(&c.in); err != nil {
			return err
		}
		if err := c.handleInstruction(); err != nil {
			return err
		}
	}
	if c.body.HasNext() {
		return &wasm.Error{
			Kind:   wasm.ErrorKindMalformed,
			Offset: c.body.Offset(),
			Msg:    "unexpected instructions after the end of the function",
		}
	}
	return nil
}

func (c *compiler) errorf(kind wasm.ErrorKind, format string, args ...interface{}) *wasm.Error {
	return &wasm.Error{
		Kind:        kind,
		Offset:      c.in.Offset,
		Instruction: c.in.Name(),
		Msg:         fmt.Sprintf(format, args...),
	}
}

func (c *compiler) currentFrame() *controlFrame {
	return c.frames[len(c.frames)-1]
}

// emittable returns false while operations are suppressed, which is in unreachable code or a dead frame.
func (c *compiler) emittable() bool {
	f := c.currentFrame()
	return !f.unreachable && !f.dead
}

func (c *compiler) emit(op Operation) {
	if c.emittable() {
		c.result.Operations = append(c.result.Operations, op)
	}
}

func (c *compiler) push(t wasm.ValueType) {
	c.stack = append(c.stack, t)
	if c.emittable() && len(c.stack) > c.result.MaxStackHeight {
		c.result.MaxStackHeight = len(c.stack)
	}
}

// pop returns the top value, or valueTypeUnknown at the polymorphic bottom of an unreachable frame.
func (c *compiler) pop() (wasm.ValueType, *wasm.Error) {
	f := c.currentFrame()
	if len(c.stack) <= f.height {
		if f.unreachable {
			return valueTypeUnknown, nil
		}
		return 0, c.errorf(wasm.ErrorKindType, "cannot pop the operand for %s: stack underflow", c.in.Name())
	}
	t := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return t, nil
}

func (c *compiler) popExpected(expected wasm.ValueType) *wasm.Error {
	actual, err := c.pop()
	if err != nil {
		return err
	}
	if actual != expected && actual != valueTypeUnknown {
		return c.errorf(wasm.ErrorKindType, "cannot pop the operand for %s: %s != %s",
			c.in.Name(), wasm.ValueTypeName(actual), wasm.ValueTypeName(expected))
	}
	return nil
}

func (c *compiler) applySignature(s *signature) *wasm.Error {
	for i := len(s.in) - 1; i >= 0; i-- {
		if err := c.popExpected(s.in[i]); err != nil {
			return err
		}
	}
	for _, t := range s.out {
		c.push(t)
	}
	return nil
}

// checkLabelTypes verifies the top of the stack provides the given types, without consuming them.
func (c *compiler) checkLabelTypes(types []wasm.ValueType) *wasm.Error {
	for i := len(types) - 1; i >= 0; i-- {
		actual, err := c.pop()
		if err != nil {
			return c.errorf(wasm.ErrorKindType, "type mismatch on the %s operation: expected %s but the stack is empty",
				c.in.Name(), valueTypesString(types))
		}
		if actual != types[i] && actual != valueTypeUnknown {
			return c.errorf(wasm.ErrorKindType, "type mismatch on the %s operation: %s != %s",
				c.in.Name(), wasm.ValueTypeName(actual), wasm.ValueTypeName(types[i]))
		}
	}
	c.stack = append(c.stack, types...)
	return nil
}

// popFrameResults consumes the results of the frame, requiring nothing else is left above its height.
func (c *compiler) popFrameResults(f *controlFrame) *wasm.Error {
	for i := len(f.results) - 1; i >= 0; i-- {
		actual, err := c.pop()
		if err != nil {
			return c.errorf(wasm.ErrorKindType, "type mismatch at the end of %s: expected %s but the stack is empty",
				f.kind, valueTypesString(f.results))
		}
		if actual != f.results[i] && actual != valueTypeUnknown {
			return c.errorf(wasm.ErrorKindType, "type mismatch at the end of %s: %s != %s",
				f.kind, wasm.ValueTypeName(actual), wasm.ValueTypeName(f.results[i]))
		}
	}
	if extra := len(c.stack) - f.height; extra > 0 {
		return c.errorf(wasm.ErrorKindType, "type mismatch at the end of %s: expected %s but %d extra values remain",
			f.kind, valueTypesString(f.results), extra)
	}
	return nil
}

func (c *compiler) markUnreachable() {
	f := c.currentFrame()
	f.unreachable = true
	c.stack = c.stack[:f.height]
}

// frameDropRange returns the values to drop when leaving the given frame with stackLen values on the stack. Branches
// to a loop keep nothing, as a loop label takes no values.
func (c *compiler) frameDropRange(f *controlFrame, isEnd bool, stackLen int) InclusiveRange {
	start := len(f.results)
	if !isEnd && f.kind == controlFrameKindLoop {
		start = 0
	}
	var end int
	if f.kind == controlFrameKindFunction {
		// Params and locals are dropped too.
		end = stackLen - 1
	} else {
		end = stackLen - 1 - f.height
	}
	if start <= end {
		return InclusiveRange{Start: int32(start), End: int32(end)}
	}
	return NopInclusiveRange
}

func (c *compiler) emitDrop(r InclusiveRange) {
	if r != NopInclusiveRange {
		c.emit(newOperationDrop(r))
	}
}

// branchTarget returns the frame at the given label depth.
func (c *compiler) branchTarget(depth uint32) (*controlFrame, *wasm.Error) {
	if int(depth) >= len(c.frames) {
		return nil, c.errorf(wasm.ErrorKindControlStructure, "invalid %s operation: index out of range", c.in.Name())
	}
	return c.frames[len(c.frames)-1-int(depth)], nil
}

// branchAddress returns the address of the target frame's label. A forward label is not known yet, so the site is
// recorded to be patched at the frame's end and zero is returned.
func (c *compiler) branchAddress(target *controlFrame, site patchSite) uint64 {
	switch target.kind {
	case controlFrameKindFunction:
		return ReturnAddress
	case controlFrameKindLoop:
		return target.headerAddress
	}
	target.continuationSites = append(target.continuationSites, site)
	return 0
}

func (c *compiler) patch(site patchSite, address uint64) {
	op := &c.result.Operations[site.op]
	switch site.slot {
	case slotU1:
		op.U1 = address
	case slotU2:
		op.U2 = address
	default:
		op.Us[site.slot] = address
	}
}

func (c *compiler) handleInstruction() *wasm.Error {
	op := c.in.Opcode
	switch op {
	case wasm.OpcodeUnreachable:
		c.emit(newOperationUnreachable())
		c.markUnreachable()
	case wasm.OpcodeNop:
	case wasm.OpcodeBlock, wasm.OpcodeLoop:
		frame := &controlFrame{
			kind:    controlFrameKindBlock,
			height:  len(c.stack),
			results: blockTypeResults(wasm.ValueType(c.in.U1)),
			dead:    !c.emittable(),
		}
		if op == wasm.OpcodeLoop {
			frame.kind = controlFrameKindLoop
			frame.headerAddress = uint64(len(c.result.Operations))
		}
		c.frames = append(c.frames, frame)
	case wasm.OpcodeIf:
		if err := c.popExpected(wasm.ValueTypeI32); err != nil {
			return err
		}
		frame := &controlFrame{
			kind:    controlFrameKindIfWithoutElse,
			height:  len(c.stack),
			results: blockTypeResults(wasm.ValueType(c.in.U1)),
			dead:    !c.emittable(),
		}
		if !frame.dead {
			idx := len(c.result.Operations)
			c.emit(newOperationBrIf(uint64(idx+1), 0, NopInclusiveRange))
			frame.elseSite, frame.hasElseSite = patchSite{op: idx, slot: slotU2}, true
		}
		c.frames = append(c.frames, frame)
	case wasm.OpcodeElse:
		f := c.currentFrame()
		if f.kind != controlFrameKindIfWithoutElse {
			return c.errorf(wasm.ErrorKindControlStructure, "else instruction must be used in if block")
		}
		stackLen := len(c.stack)
		if err := c.popFrameResults(f); err != nil {
			return err
		}
		if c.emittable() {
			c.emitDrop(c.frameDropRange(f, true, stackLen))
			f.continuationSites = append(f.continuationSites, patchSite{op: len(c.result.Operations), slot: slotU1})
			c.emit(newOperationBr(0))
		}
		if f.hasElseSite {
			c.patch(f.elseSite, uint64(len(c.result.Operations)))
			f.hasElseSite = false
		}
		f.kind = controlFrameKindIfWithElse
		f.unreachable = false
		c.stack = c.stack[:f.height]
	case wasm.OpcodeEnd:
		return c.handleEnd()
	case wasm.OpcodeBr:
		target, err := c.branchTarget(uint32(c.in.U1))
		if err != nil {
			return err
		}
		if err = c.checkLabelTypes(target.labelTypes()); err != nil {
			return err
		}
		if c.emittable() {
			c.emitDrop(c.frameDropRange(target, false, len(c.stack)))
			idx := len(c.result.Operations)
			c.emit(newOperationBr(c.branchAddress(target, patchSite{op: idx, slot: slotU1})))
		}
		c.markUnreachable()
	case wasm.OpcodeBrIf:
		if err := c.popExpected(wasm.ValueTypeI32); err != nil {
			return err
		}
		target, err := c.branchTarget(uint32(c.in.U1))
		if err != nil {
			return err
		}
		if err = c.checkLabelTypes(target.labelTypes()); err != nil {
			return err
		}
		if c.emittable() {
			drop := c.frameDropRange(target, false, len(c.stack))
			idx := len(c.result.Operations)
			address := c.branchAddress(target, patchSite{op: idx, slot: slotU1})
			c.emit(newOperationBrIf(address, uint64(idx+1), drop))
		}
	case wasm.OpcodeBrTable:
		return c.handleBrTable()
	case wasm.OpcodeReturn:
		f := c.frames[0]
		if err := c.checkLabelTypes(f.results); err != nil {
			return err
		}
		if c.emittable() {
			c.emitDrop(c.frameDropRange(f, false, len(c.stack)))
			c.emit(newOperationBr(ReturnAddress))
		}
		c.markUnreachable()
	case wasm.OpcodeCall:
		index := wasm.Index(c.in.U1)
		ft := c.module.TypeOfFunction(index)
		if ft == nil {
			return c.errorf(wasm.ErrorKindMalformed, "invalid function index %d", index)
		}
		if err := c.applySignature(funcTypeToSignature(ft)); err != nil {
			return err
		}
		c.emit(newOperationCall(index))
	case wasm.OpcodeCallIndirect:
		typeIndex := wasm.Index(c.in.U1)
		if c.tableCount == 0 {
			return c.errorf(wasm.ErrorKindMalformed, "table not given while having %s", c.in.Name())
		}
		if int(typeIndex) >= len(c.module.TypeSection) {
			return c.errorf(wasm.ErrorKindMalformed, "invalid type index at %s: %d", c.in.Name(), typeIndex)
		}
		if err := c.popExpected(wasm.ValueTypeI32); err != nil {
			return err
		}
		if err := c.applySignature(funcTypeToSignature(c.module.TypeSection[typeIndex])); err != nil {
			return err
		}
		c.emit(newOperationCallIndirect(typeIndex, 0))
	case wasm.OpcodeDrop:
		if _, err := c.pop(); err != nil {
			return err
		}
		c.emit(newOperationDrop(InclusiveRange{Start: 0, End: 0}))
	case wasm.OpcodeSelect:
		return c.handleSelect()
	case wasm.OpcodeLocalGet, wasm.OpcodeLocalSet, wasm.OpcodeLocalTee:
		return c.handleLocal()
	case wasm.OpcodeGlobalGet, wasm.OpcodeGlobalSet:
		return c.handleGlobal()
	case wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow:
		if !c.hasMemory {
			return c.errorf(wasm.ErrorKindMalformed, "memory must exist for %s", c.in.Name())
		}
		if err := c.applySignature(opcodeSignature(op)); err != nil {
			return err
		}
		if op == wasm.OpcodeMemorySize {
			c.emit(newOperationMemorySize())
		} else {
			c.emit(newOperationMemoryGrow())
		}
	case wasm.OpcodeMiscPrefix:
		return c.handleMisc()
	default:
		if op >= wasm.OpcodeI32Load && op <= wasm.OpcodeI64Store32 {
			return c.handleMemoryAccess()
		}
		return c.handleNumeric()
	}
	return nil
}

func (c *compiler) handleEnd() *wasm.Error {
	f := c.currentFrame()
	if f.kind == controlFrameKindIfWithoutElse && len(f.results) > 0 {
		return c.errorf(wasm.ErrorKindType, "type mismatch on if without else: expected %s but the else branch is empty",
			valueTypesString(f.results))
	}
	stackLen := len(c.stack)
	if err := c.popFrameResults(f); err != nil {
		return err
	}
	if c.emittable() {
		c.emitDrop(c.frameDropRange(f, true, stackLen))
		if f.kind == controlFrameKindFunction {
			c.emit(newOperationBr(ReturnAddress))
		}
	}

	c.frames = c.frames[:len(c.frames)-1]
	if f.kind == controlFrameKindFunction {
		return nil
	}

	continuation := uint64(len(c.result.Operations))
	for _, site := range f.continuationSites {
		c.patch(site, continuation)
	}
	if f.hasElseSite {
		c.patch(f.elseSite, continuation)
	}
	c.stack = c.stack[:f.height]
	for _, t := range f.results {
		c.push(t)
	}
	return nil
}

func (c *compiler) handleBrTable() *wasm.Error {
	if err := c.popExpected(wasm.ValueTypeI32); err != nil {
		return err
	}
	targets := make([]*controlFrame, len(c.in.Targets))
	for i, depth := range c.in.Targets {
		target, err := c.branchTarget(depth)
		if err != nil {
			return err
		}
		targets[i] = target
	}

	defaultTarget := targets[len(targets)-1]
	arity := len(defaultTarget.labelTypes())
	for _, target := range targets {
		types := target.labelTypes()
		if len(types) != arity {
			return c.errorf(wasm.ErrorKindType, "type mismatch on the %s operation: inconsistent arity %d != %d",
				c.in.Name(), len(types), arity)
		}
		if err := c.checkLabelTypes(types); err != nil {
			return err
		}
	}

	if c.emittable() {
		idx := len(c.result.Operations)
		targetsAndDrops := make([]uint64, 2*len(targets))
		for i, target := range targets {
			targetsAndDrops[2*i] = c.branchAddress(target, patchSite{op: idx, slot: 2 * i})
			targetsAndDrops[2*i+1] = c.frameDropRange(target, false, len(c.stack)).AsU64()
		}
		c.emit(newOperationBrTable(targetsAndDrops))
	}
	c.markUnreachable()
	return nil
}

func (c *compiler) handleSelect() *wasm.Error {
	if err := c.popExpected(wasm.ValueTypeI32); err != nil {
		return err
	}
	v2, err := c.pop()
	if err != nil {
		return err
	}
	v1, err := c.pop()
	if err != nil {
		return err
	}
	t := v1
	if t == valueTypeUnknown {
		t = v2
	} else if v2 != valueTypeUnknown && v1 != v2 {
		return c.errorf(wasm.ErrorKindType, "type mismatch on the operands of %s: %s != %s",
			c.in.Name(), wasm.ValueTypeName(v1), wasm.ValueTypeName(v2))
	}
	c.push(t)
	c.emit(newOperationSelect())
	return nil
}

func (c *compiler) handleLocal() *wasm.Error {
	index := c.in.U1
	if l := uint64(len(c.locals)); index >= l {
		return c.errorf(wasm.ErrorKindMalformed, "invalid local index for %s %d >= %d", c.in.Name(), index, l)
	}
	t := c.locals[index]
	// Locals are at the bottom of the stack, so their depth from the top is known statically.
	depth := len(c.stack) - 1 - int(index)
	switch c.in.Opcode {
	case wasm.OpcodeLocalGet:
		c.push(t)
		c.emit(newOperationPick(depth))
	case wasm.OpcodeLocalSet:
		if err := c.popExpected(t); err != nil {
			return err
		}
		c.emit(newOperationSet(depth))
	case wasm.OpcodeLocalTee:
		if err := c.popExpected(t); err != nil {
			return err
		}
		c.push(t)
		c.emit(newOperationPick(0))
		c.push(t)
		c.emit(newOperationSet(depth + 1))
		c.stack = c.stack[:len(c.stack)-1]
	}
	return nil
}

func (c *compiler) handleGlobal() *wasm.Error {
	index := wasm.Index(c.in.U1)
	if int(index) >= len(c.globals) {
		return c.errorf(wasm.ErrorKindMalformed, "invalid global index for %s %d >= %d", c.in.Name(), index, len(c.globals))
	}
	g := c.globals[index]
	if c.in.Opcode == wasm.OpcodeGlobalGet {
		c.push(g.ValType)
		c.emit(newOperationGlobalGet(index))
		return nil
	}
	if !g.Mutable {
		return c.errorf(wasm.ErrorKindMalformed, "%s when not mutable", c.in.Name())
	}
	if err := c.popExpected(g.ValType); err != nil {
		return err
	}
	c.emit(newOperationGlobalSet(index))
	return nil
}

func (c *compiler) handleMemoryAccess() *wasm.Error {
	op := c.in.Opcode
	if !c.hasMemory {
		return c.errorf(wasm.ErrorKindMalformed, "memory must exist for %s", c.in.Name())
	}
	arg := MemoryArg{Alignment: uint32(c.in.U1), Offset: uint32(c.in.U2)}
	if maxAlign := naturalAlignment(op); arg.Alignment > maxAlign {
		return c.errorf(wasm.ErrorKindMalformed, "invalid memory alignment %d > %d", arg.Alignment, maxAlign)
	}
	if err := c.applySignature(opcodeSignature(op)); err != nil {
		return err
	}

	var o Operation
	switch op {
	case wasm.OpcodeI32Load:
		o = newOperationLoad(UnsignedTypeI32, arg)
	case wasm.OpcodeI64Load:
		o = newOperationLoad(UnsignedTypeI64, arg)
	case wasm.OpcodeF32Load:
		o = newOperationLoad(UnsignedTypeF32, arg)
	case wasm.OpcodeF64Load:
		o = newOperationLoad(UnsignedTypeF64, arg)
	case wasm.OpcodeI32Load8S:
		o = newOperationLoad8(SignedInt32, arg)
	case wasm.OpcodeI32Load8U:
		o = newOperationLoad8(SignedUint32, arg)
	case wasm.OpcodeI32Load16S:
		o = newOperationLoad16(SignedInt32, arg)
	case wasm.OpcodeI32Load16U:
		o = newOperationLoad16(SignedUint32, arg)
	case wasm.OpcodeI64Load8S:
		o = newOperationLoad8(SignedInt64, arg)
	case wasm.OpcodeI64Load8U:
		o = newOperationLoad8(SignedUint64, arg)
	case wasm.OpcodeI64Load16S:
		o = newOperationLoad16(SignedInt64, arg)
	case wasm.OpcodeI64Load16U:
		o = newOperationLoad16(SignedUint64, arg)
	case wasm.OpcodeI64Load32S:
		o = newOperationLoad32(true, arg)
	case wasm.OpcodeI64Load32U:
		o = newOperationLoad32(false, arg)
	case wasm.OpcodeI32Store:
		o = newOperationStore(UnsignedTypeI32, arg)
	case wasm.OpcodeI64Store:
		o = newOperationStore(UnsignedTypeI64, arg)
	case wasm.OpcodeF32Store:
		o = newOperationStore(UnsignedTypeF32, arg)
	case wasm.OpcodeF64Store:
		o = newOperationStore(UnsignedTypeF64, arg)
	case wasm.OpcodeI32Store8, wasm.OpcodeI64Store8:
		o = newOperationStore8(arg)
	case wasm.OpcodeI32Store16, wasm.OpcodeI64Store16:
		o = newOperationStore16(arg)
	case wasm.OpcodeI64Store32:
		o = newOperationStore32(arg)
	}
	c.emit(o)
	return nil
}

// naturalAlignment returns the largest valid alignment exponent of a load or store.
func naturalAlignment(op wasm.Opcode) uint32 {
	switch op {
	case wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U,
		wasm.OpcodeI32Store8, wasm.OpcodeI64Store8:
		return 0
	case wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI32Store16, wasm.OpcodeI64Store16:
		return 1
	case wasm.OpcodeI64Load, wasm.OpcodeF64Load, wasm.OpcodeI64Store, wasm.OpcodeF64Store:
		return 3
	}
	return 2
}

func (c *compiler) handleMisc() *wasm.Error {
	if !c.features.Get(wasm.FeatureNonTrappingFloatToIntConversion) {
		return c.errorf(wasm.ErrorKindMalformed, "%s invalid as feature %s is disabled",
			c.in.Name(), wasm.FeatureNonTrappingFloatToIntConversion)
	}
	if err := c.applySignature(miscOpcodeSignature(c.in.Misc)); err != nil {
		return err
	}
	var o Operation
	switch c.in.Misc {
	case wasm.OpcodeMiscI32TruncSatF32S:
		o = newOperationITruncFromF(Float32, SignedInt32, true)
	case wasm.OpcodeMiscI32TruncSatF32U:
		o = newOperationITruncFromF(Float32, SignedUint32, true)
	case wasm.OpcodeMiscI32TruncSatF64S:
		o = newOperationITruncFromF(Float64, SignedInt32, true)
	case wasm.OpcodeMiscI32TruncSatF64U:
		o = newOperationITruncFromF(Float64, SignedUint32, true)
	case wasm.OpcodeMiscI64TruncSatF32S:
		o = newOperationITruncFromF(Float32, SignedInt64, true)
	case wasm.OpcodeMiscI64TruncSatF32U:
		o = newOperationITruncFromF(Float32, SignedUint64, true)
	case wasm.OpcodeMiscI64TruncSatF64S:
		o = newOperationITruncFromF(Float64, SignedInt64, true)
	case wasm.OpcodeMiscI64TruncSatF64U:
		o = newOperationITruncFromF(Float64, SignedUint64, true)
	}
	c.emit(o)
	return nil
}

func (c *compiler) handleNumeric() *wasm.Error {
	op := c.in.Opcode
	if op >= wasm.OpcodeI32Extend8S && op <= wasm.OpcodeI64Extend32S && !c.features.Get(wasm.FeatureSignExtensionOps) {
		return c.errorf(wasm.ErrorKindMalformed, "%s invalid as feature %s is disabled",
			c.in.Name(), wasm.FeatureSignExtensionOps)
	}
	s := opcodeSignature(op)
	if s == nil {
		return c.errorf(wasm.ErrorKindMalformed, "unsupported instruction %#x", op)
	}
	if err := c.applySignature(s); err != nil {
		return err
	}
	c.emit(lowerNumeric(op, c.in.U1))
	return nil
}

// lowerNumeric returns the operation of a constant, comparison, arithmetic or conversion opcode. u1 holds the bits of
// a constant.
func lowerNumeric(op wasm.Opcode, u1 uint64) Operation {
	switch op {
	case wasm.OpcodeI32Const:
		return newOperationConstI32(uint32(u1))
	case wasm.OpcodeI64Const:
		return newOperationConstI64(u1)
	case wasm.OpcodeF32Const:
		return newOperationConstF32(math.Float32frombits(uint32(u1)))
	case wasm.OpcodeF64Const:
		return newOperationConstF64(math.Float64frombits(u1))

	case wasm.OpcodeI32Eqz:
		return newOperationUnsignedInt(OperationKindEqz, UnsignedInt32)
	case wasm.OpcodeI64Eqz:
		return newOperationUnsignedInt(OperationKindEqz, UnsignedInt64)
	case wasm.OpcodeI32Eq:
		return newOperationUnsignedType(OperationKindEq, UnsignedTypeI32)
	case wasm.OpcodeI64Eq:
		return newOperationUnsignedType(OperationKindEq, UnsignedTypeI64)
	case wasm.OpcodeF32Eq:
		return newOperationUnsignedType(OperationKindEq, UnsignedTypeF32)
	case wasm.OpcodeF64Eq:
		return newOperationUnsignedType(OperationKindEq, UnsignedTypeF64)
	case wasm.OpcodeI32Ne:
		return newOperationUnsignedType(OperationKindNe, UnsignedTypeI32)
	case wasm.OpcodeI64Ne:
		return newOperationUnsignedType(OperationKindNe, UnsignedTypeI64)
	case wasm.OpcodeF32Ne:
		return newOperationUnsignedType(OperationKindNe, UnsignedTypeF32)
	case wasm.OpcodeF64Ne:
		return newOperationUnsignedType(OperationKindNe, UnsignedTypeF64)

	case wasm.OpcodeI32LtS, wasm.OpcodeI32LtU, wasm.OpcodeI64LtS, wasm.OpcodeI64LtU, wasm.OpcodeF32Lt, wasm.OpcodeF64Lt:
		return newOperationSignedType(OperationKindLt, comparisonType(op, wasm.OpcodeI32LtS, wasm.OpcodeI64LtS, wasm.OpcodeF32Lt, wasm.OpcodeF64Lt))
	case wasm.OpcodeI32GtS, wasm.OpcodeI32GtU, wasm.OpcodeI64GtS, wasm.OpcodeI64GtU, wasm.OpcodeF32Gt, wasm.OpcodeF64Gt:
		return newOperationSignedType(OperationKindGt, comparisonType(op, wasm.OpcodeI32GtS, wasm.OpcodeI64GtS, wasm.OpcodeF32Gt, wasm.OpcodeF64Gt))
	case wasm.OpcodeI32LeS, wasm.OpcodeI32LeU, wasm.OpcodeI64LeS, wasm.OpcodeI64LeU, wasm.OpcodeF32Le, wasm.OpcodeF64Le:
		return newOperationSignedType(OperationKindLe, comparisonType(op, wasm.OpcodeI32LeS, wasm.OpcodeI64LeS, wasm.OpcodeF32Le, wasm.OpcodeF64Le))
	case wasm.OpcodeI32GeS, wasm.OpcodeI32GeU, wasm.OpcodeI64GeS, wasm.OpcodeI64GeU, wasm.OpcodeF32Ge, wasm.OpcodeF64Ge:
		return newOperationSignedType(OperationKindGe, comparisonType(op, wasm.OpcodeI32GeS, wasm.OpcodeI64GeS, wasm.OpcodeF32Ge, wasm.OpcodeF64Ge))

	case wasm.OpcodeI32Clz:
		return newOperationUnsignedInt(OperationKindClz, UnsignedInt32)
	case wasm.OpcodeI64Clz:
		return newOperationUnsignedInt(OperationKindClz, UnsignedInt64)
	case wasm.OpcodeI32Ctz:
		return newOperationUnsignedInt(OperationKindCtz, UnsignedInt32)
	case wasm.OpcodeI64Ctz:
		return newOperationUnsignedInt(OperationKindCtz, UnsignedInt64)
	case wasm.OpcodeI32Popcnt:
		return newOperationUnsignedInt(OperationKindPopcnt, UnsignedInt32)
	case wasm.OpcodeI64Popcnt:
		return newOperationUnsignedInt(OperationKindPopcnt, UnsignedInt64)

	case wasm.OpcodeI32Add:
		return newOperationUnsignedType(OperationKindAdd, UnsignedTypeI32)
	case wasm.OpcodeI64Add:
		return newOperationUnsignedType(OperationKindAdd, UnsignedTypeI64)
	case wasm.OpcodeF32Add:
		return newOperationUnsignedType(OperationKindAdd, UnsignedTypeF32)
	case wasm.OpcodeF64Add:
		return newOperationUnsignedType(OperationKindAdd, UnsignedTypeF64)
	case wasm.OpcodeI32Sub:
		return newOperationUnsignedType(OperationKindSub, UnsignedTypeI32)
	case wasm.OpcodeI64Sub:
		return newOperationUnsignedType(OperationKindSub, UnsignedTypeI64)
	case wasm.OpcodeF32Sub:
		return newOperationUnsignedType(OperationKindSub, UnsignedTypeF32)
	case wasm.OpcodeF64Sub:
		return newOperationUnsignedType(OperationKindSub, UnsignedTypeF64)
	case wasm.OpcodeI32Mul:
		return newOperationUnsignedType(OperationKindMul, UnsignedTypeI32)
	case wasm.OpcodeI64Mul:
		return newOperationUnsignedType(OperationKindMul, UnsignedTypeI64)
	case wasm.OpcodeF32Mul:
		return newOperationUnsignedType(OperationKindMul, UnsignedTypeF32)
	case wasm.OpcodeF64Mul:
		return newOperationUnsignedType(OperationKindMul, UnsignedTypeF64)

	case wasm.OpcodeI32DivS:
		return newOperationSignedType(OperationKindDiv, SignedTypeInt32)
	case wasm.OpcodeI32DivU:
		return newOperationSignedType(OperationKindDiv, SignedTypeUint32)
	case wasm.OpcodeI64DivS:
		return newOperationSignedType(OperationKindDiv, SignedTypeInt64)
	case wasm.OpcodeI64DivU:
		return newOperationSignedType(OperationKindDiv, SignedTypeUint64)
	case wasm.OpcodeF32Div:
		return newOperationSignedType(OperationKindDiv, SignedTypeFloat32)
	case wasm.OpcodeF64Div:
		return newOperationSignedType(OperationKindDiv, SignedTypeFloat64)

	case wasm.OpcodeI32RemS:
		return newOperationSignedInt(OperationKindRem, SignedInt32)
	case wasm.OpcodeI32RemU:
		return newOperationSignedInt(OperationKindRem, SignedUint32)
	case wasm.OpcodeI64RemS:
		return newOperationSignedInt(OperationKindRem, SignedInt64)
	case wasm.OpcodeI64RemU:
		return newOperationSignedInt(OperationKindRem, SignedUint64)
	case wasm.OpcodeI32ShrS:
		return newOperationSignedInt(OperationKindShr, SignedInt32)
	case wasm.OpcodeI32ShrU:
		return newOperationSignedInt(OperationKindShr, SignedUint32)
	case wasm.OpcodeI64ShrS:
		return newOperationSignedInt(OperationKindShr, SignedInt64)
	case wasm.OpcodeI64ShrU:
		return newOperationSignedInt(OperationKindShr, SignedUint64)

	case wasm.OpcodeI32And:
		return newOperationUnsignedInt(OperationKindAnd, UnsignedInt32)
	case wasm.OpcodeI64And:
		return newOperationUnsignedInt(OperationKindAnd, UnsignedInt64)
	case wasm.OpcodeI32Or:
		return newOperationUnsignedInt(OperationKindOr, UnsignedInt32)
	case wasm.OpcodeI64Or:
		return newOperationUnsignedInt(OperationKindOr, UnsignedInt64)
	case wasm.OpcodeI32Xor:
		return newOperationUnsignedInt(OperationKindXor, UnsignedInt32)
	case wasm.OpcodeI64Xor:
		return newOperationUnsignedInt(OperationKindXor, UnsignedInt64)
	case wasm.OpcodeI32Shl:
		return newOperationUnsignedInt(OperationKindShl, UnsignedInt32)
	case wasm.OpcodeI64Shl:
		return newOperationUnsignedInt(OperationKindShl, UnsignedInt64)
	case wasm.OpcodeI32Rotl:
		return newOperationUnsignedInt(OperationKindRotl, UnsignedInt32)
	case wasm.OpcodeI64Rotl:
		return newOperationUnsignedInt(OperationKindRotl, UnsignedInt64)
	case wasm.OpcodeI32Rotr:
		return newOperationUnsignedInt(OperationKindRotr, UnsignedInt32)
	case wasm.OpcodeI64Rotr:
		return newOperationUnsignedInt(OperationKindRotr, UnsignedInt64)

	case wasm.OpcodeF32Abs, wasm.OpcodeF32Neg, wasm.OpcodeF32Ceil, wasm.OpcodeF32Floor, wasm.OpcodeF32Trunc,
		wasm.OpcodeF32Nearest, wasm.OpcodeF32Sqrt:
		return newOperationFloat(floatUnaryKind(op-wasm.OpcodeF32Abs), Float32)
	case wasm.OpcodeF64Abs, wasm.OpcodeF64Neg, wasm.OpcodeF64Ceil, wasm.OpcodeF64Floor, wasm.OpcodeF64Trunc,
		wasm.OpcodeF64Nearest, wasm.OpcodeF64Sqrt:
		return newOperationFloat(floatUnaryKind(op-wasm.OpcodeF64Abs), Float64)
	case wasm.OpcodeF32Min:
		return newOperationFloat(OperationKindMin, Float32)
	case wasm.OpcodeF64Min:
		return newOperationFloat(OperationKindMin, Float64)
	case wasm.OpcodeF32Max:
		return newOperationFloat(OperationKindMax, Float32)
	case wasm.OpcodeF64Max:
		return newOperationFloat(OperationKindMax, Float64)
	case wasm.OpcodeF32Copysign:
		return newOperationFloat(OperationKindCopysign, Float32)
	case wasm.OpcodeF64Copysign:
		return newOperationFloat(OperationKindCopysign, Float64)

	case wasm.OpcodeI32WrapI64:
		return newOperation(OperationKindI32WrapFromI64)
	case wasm.OpcodeI32TruncF32S:
		return newOperationITruncFromF(Float32, SignedInt32, false)
	case wasm.OpcodeI32TruncF32U:
		return newOperationITruncFromF(Float32, SignedUint32, false)
	case wasm.OpcodeI32TruncF64S:
		return newOperationITruncFromF(Float64, SignedInt32, false)
	case wasm.OpcodeI32TruncF64U:
		return newOperationITruncFromF(Float64, SignedUint32, false)
	case wasm.OpcodeI64ExtendI32S:
		return newOperationExtend(true)
	case wasm.OpcodeI64ExtendI32U:
		return newOperationExtend(false)
	case wasm.OpcodeI64TruncF32S:
		return newOperationITruncFromF(Float32, SignedInt64, false)
	case wasm.OpcodeI64TruncF32U:
		return newOperationITruncFromF(Float32, SignedUint64, false)
	case wasm.OpcodeI64TruncF64S:
		return newOperationITruncFromF(Float64, SignedInt64, false)
	case wasm.OpcodeI64TruncF64U:
		return newOperationITruncFromF(Float64, SignedUint64, false)
	case wasm.OpcodeF32ConvertI32S:
		return newOperationFConvertFromI(SignedInt32, Float32)
	case wasm.OpcodeF32ConvertI32U:
		return newOperationFConvertFromI(SignedUint32, Float32)
	case wasm.OpcodeF32ConvertI64S:
		return newOperationFConvertFromI(SignedInt64, Float32)
	case wasm.OpcodeF32ConvertI64U:
		return newOperationFConvertFromI(SignedUint64, Float32)
	case wasm.OpcodeF32DemoteF64:
		return newOperation(OperationKindF32DemoteFromF64)
	case wasm.OpcodeF64ConvertI32S:
		return newOperationFConvertFromI(SignedInt32, Float64)
	case wasm.OpcodeF64ConvertI32U:
		return newOperationFConvertFromI(SignedUint32, Float64)
	case wasm.OpcodeF64ConvertI64S:
		return newOperationFConvertFromI(SignedInt64, Float64)
	case wasm.OpcodeF64ConvertI64U:
		return newOperationFConvertFromI(SignedUint64, Float64)
	case wasm.OpcodeF64PromoteF32:
		return newOperation(OperationKindF64PromoteFromF32)
	case wasm.OpcodeI32ReinterpretF32:
		return newOperation(OperationKindI32ReinterpretFromF32)
	case wasm.OpcodeI64ReinterpretF64:
		return newOperation(OperationKindI64ReinterpretFromF64)
	case wasm.OpcodeF32ReinterpretI32:
		return newOperation(OperationKindF32ReinterpretFromI32)
	case wasm.OpcodeF64ReinterpretI64:
		return newOperation(OperationKindF64ReinterpretFromI64)

	case wasm.OpcodeI32Extend8S:
		return newOperation(OperationKindSignExtend32From8)
	case wasm.OpcodeI32Extend16S:
		return newOperation(OperationKindSignExtend32From16)
	case wasm.OpcodeI64Extend8S:
		return newOperation(OperationKindSignExtend64From8)
	case wasm.OpcodeI64Extend16S:
		return newOperation(OperationKindSignExtend64From16)
	case wasm.OpcodeI64Extend32S:
		return newOperation(OperationKindSignExtend64From32)
	}
	panic(fmt.Sprintf("BUG: no operation for opcode %#x", op))
}

// comparisonType returns the SignedType of an ordered comparison, given the first opcode of its i32, i64, f32 and f64
// variants. Signed integer comparisons are directly followed by their unsigned variant.
func comparisonType(op, i32s, i64s, f32op, f64op wasm.Opcode) SignedType {
	switch op {
	case i32s:
		return SignedTypeInt32
	case i32s + 1:
		return SignedTypeUint32
	case i64s:
		return SignedTypeInt64
	case i64s + 1:
		return SignedTypeUint64
	case f32op:
		return SignedTypeFloat32
	case f64op:
		return SignedTypeFloat64
	}
	panic(fmt.Sprintf("BUG: %#x is not a comparison", op))
}

// floatUnaryKind returns the kind of the unary float opcode at the given distance from abs. The f32 and f64 unary
// opcodes are laid out in the same order.
func floatUnaryKind(delta wasm.Opcode) OperationKind {
	return [...]OperationKind{
		OperationKindAbs,
		OperationKindNeg,
		OperationKindCeil,
		OperationKindFloor,
		OperationKindTrunc,
		OperationKindNearest,
		OperationKindSqrt,
	}[delta]
}

func blockTypeResults(bt wasm.ValueType) []wasm.ValueType {
	if bt == wasm.BlockTypeEmpty {
		return nil
	}
	return []wasm.ValueType{bt}
}

func valueTypesString(types []wasm.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = wasm.ValueTypeName(t)
	}
	return "[" + strings.Join(names, ", ") + "]"
}
