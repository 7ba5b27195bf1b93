// Package wasm holds the abstract structure of a WebAssembly 1.0 module along with the opcode tables and errors shared
// by the decoder, the compiler and the policy gates.
package wasm

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wasmprep/internal/leb128"
)

// Module is the parsed structure of one WebAssembly binary.
//
// A Module is read-only once decoded: nothing in this repository mutates it after binary.DecodeModule returns, which
// is what allows functions of the same Module to be compiled concurrently.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#modules%E2%91%A8
type Module struct {
	// TypeSection contains the function signatures referenced by imports, the FunctionSection and call_indirect.
	//
	// Note: In the Binary Format, this is SectionIDType.
	TypeSection []*FunctionType

	// ImportSection contains imported functions, tables, memories or globals, in declaration order.
	//
	// Note: Imports precede definitions in each index namespace. For example, with two imported functions, the first
	// function defined in FunctionSection has the function Index 2.
	ImportSection []*Import

	// FunctionSection contains the TypeSection index of each function defined in this module. It is index-correlated
	// with the CodeSection.
	FunctionSection []Index

	// TableSection contains each table defined in this module. WebAssembly 1.0 allows at most one table, counting
	// imports.
	TableSection []*TableType

	// MemorySection contains each memory defined in this module. WebAssembly 1.0 allows at most one memory, counting
	// imports, though the memory size gate sums every entry regardless.
	MemorySection []*MemoryType

	// GlobalSection contains each global defined in this module, indexed after imported globals.
	GlobalSection []*Global

	// ExportSection contains the exports in declaration order.
	ExportSection []*Export

	// StartSection is the function Index invoked on instantiation, or nil.
	StartSection *Index

	ElementSection []*ElementSegment

	// CodeSection is index-correlated with FunctionSection and contains each function's locals and raw body.
	CodeSection []*Code

	DataSection []*DataSegment

	// CustomSections holds the payload of every custom section by name. The last one wins on duplicate names.
	CustomSections map[string][]byte
}

// Index is the offset in an index namespace, not necessarily an absolute position in a Module section.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-index
type Index = uint32

// FunctionType is a possibly empty function signature.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-types%E2%91%A0
type FunctionType struct {
	// Params are the possibly empty sequence of value types accepted by a function with this signature.
	Params []ValueType

	// Results are the possibly empty sequence of value types returned by a function with this signature.
	//
	// Note: In WebAssembly 1.0, there can be at most one result.
	Results []ValueType
}

// String returns a key such as "i32i64_f32", using "v" for an empty side. Ex. "v_v" for a nullary function.
func (t *FunctionType) String() string {
	var sb strings.Builder
	writeValueTypes(&sb, t.Params)
	sb.WriteByte('_')
	writeValueTypes(&sb, t.Results)
	return sb.String()
}

func writeValueTypes(sb *strings.Builder, vts []ValueType) {
	if len(vts) == 0 {
		sb.WriteByte('v')
		return
	}
	for _, vt := range vts {
		sb.WriteString(ValueTypeName(vt))
	}
}

// Import is the binary representation of an import indicated by Type.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-import
type Import struct {
	Type ExternType
	// Module is the possibly empty primary namespace of this import
	Module string
	// Name is the possibly empty secondary namespace of this import
	Name string
	// DescFunc is the index in Module.TypeSection when Type equals ExternTypeFunc
	DescFunc Index
	// DescTable is the inlined TableType when Type equals ExternTypeTable
	DescTable *TableType
	// DescMem is the inlined MemoryType when Type equals ExternTypeMemory
	DescMem *MemoryType
	// DescGlobal is the inlined GlobalType when Type equals ExternTypeGlobal
	DescGlobal *GlobalType
}

// MemoryType is the limits of a linear memory in pages of 64KiB.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#memory-types%E2%91%A0
type MemoryType struct {
	// Min is the initial page count.
	Min uint32
	// Max is the optional growth bound in pages.
	Max *uint32
}

// TableType is a table of function references.
type TableType struct {
	// ElemType is always ElemTypeFuncref in WebAssembly 1.0.
	ElemType byte
	Min      uint32
	Max      *uint32
}

// ElemTypeFuncref is the only table element type in WebAssembly 1.0.
const ElemTypeFuncref byte = 0x70

type GlobalType struct {
	ValType ValueType
	Mutable bool
}

type Global struct {
	Type *GlobalType
	Init *ConstantExpression
}

// ConstantExpression is an initializer such as "i32.const 1" or "global.get 0". Data holds the immediate bytes, not
// including the trailing OpcodeEnd.
type ConstantExpression struct {
	Opcode Opcode
	Data   []byte
}

// Export is the binary representation of an export indicated by Type.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-export
type Export struct {
	Type ExternType
	// Name is what the host refers to this definition as.
	Name string
	// Index is in the namespace of Type. Ex. the function index namespace for ExternTypeFunc.
	Index Index
}

type ElementSegment struct {
	TableIndex Index
	OffsetExpr *ConstantExpression
	// Init is a list of function indices.
	Init []Index
}

// Code is an entry in the Module.CodeSection containing the locals and body of the function.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-code
type Code struct {
	// LocalTypes are any function-scoped variables in insertion order, already expanded from their run-length
	// encoding.
	LocalTypes []ValueType
	// Body is the raw instruction sequence ending in OpcodeEnd.
	Body []byte
}

type DataSegment struct {
	MemoryIndex      Index
	OffsetExpression *ConstantExpression
	Init             []byte
}

// ImportFuncCount returns the count of imported functions, which is the function Index of FunctionSection[0].
func (m *Module) ImportFuncCount() (count uint32) {
	for _, im := range m.ImportSection {
		if im.Type == ExternTypeFunc {
			count++
		}
	}
	return
}

// TypeOfFunction returns the signature of the given function namespace index or nil when out of range.
func (m *Module) TypeOfFunction(funcIdx Index) *FunctionType {
	typeCount := uint32(len(m.TypeSection))
	var importedCount Index
	for _, im := range m.ImportSection {
		if im.Type != ExternTypeFunc {
			continue
		}
		if funcIdx == importedCount {
			if im.DescFunc >= typeCount {
				return nil
			}
			return m.TypeSection[im.DescFunc]
		}
		importedCount++
	}
	pos := funcIdx - importedCount
	if pos >= uint32(len(m.FunctionSection)) {
		return nil
	}
	if typeIdx := m.FunctionSection[pos]; typeIdx < typeCount {
		return m.TypeSection[typeIdx]
	}
	return nil
}

// Globals returns the types of the global index namespace: imports followed by the GlobalSection.
func (m *Module) Globals() (globals []*GlobalType) {
	for _, im := range m.ImportSection {
		if im.Type == ExternTypeGlobal {
			globals = append(globals, im.DescGlobal)
		}
	}
	for _, g := range m.GlobalSection {
		globals = append(globals, g.Type)
	}
	return
}

// HasMemory returns true if a memory is defined or imported.
func (m *Module) HasMemory() bool {
	if len(m.MemorySection) > 0 {
		return true
	}
	for _, im := range m.ImportSection {
		if im.Type == ExternTypeMemory {
			return true
		}
	}
	return false
}

// TableCount returns the count of tables in the table index namespace.
func (m *Module) TableCount() (count uint32) {
	for _, im := range m.ImportSection {
		if im.Type == ExternTypeTable {
			count++
		}
	}
	return count + uint32(len(m.TableSection))
}

// SectionID identifies the sections of a Module in the WebAssembly 1.0 Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
type SectionID = byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
)

var sectionIDNames = [...]string{
	SectionIDCustom:   "custom",
	SectionIDType:     "type",
	SectionIDImport:   "import",
	SectionIDFunction: "function",
	SectionIDTable:    "table",
	SectionIDMemory:   "memory",
	SectionIDGlobal:   "global",
	SectionIDExport:   "export",
	SectionIDStart:    "start",
	SectionIDElement:  "element",
	SectionIDCode:     "code",
	SectionIDData:     "data",
}

// SectionIDName returns the canonical name of a module section.
func SectionIDName(sectionID SectionID) string {
	if int(sectionID) < len(sectionIDNames) {
		return sectionIDNames[sectionID]
	}
	return "unknown"
}

// ValueType is the binary encoding of a type such as i32
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the text format name of the given ValueType, or "unknown".
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// IsFloat returns true for ValueTypeF32 and ValueTypeF64.
func IsFloat(t ValueType) bool {
	return t == ValueTypeF32 || t == ValueTypeF64
}

// ExternType classifies imports and exports with their respective types.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#external-types%E2%91%A0
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// ExternTypeName returns the text format field name of the given type, or "unknown".
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	}
	return "unknown"
}

const (
	// MemoryPageSize is the unit of memory length in WebAssembly, 64KiB.
	MemoryPageSize = uint32(65536)
	// MemoryMaxPages is the maximum number of pages a 32-bit memory can declare, 4GiB.
	MemoryMaxPages = uint32(65536)
)

// Validate checks the parts of the module outside function bodies: the start function, imports, globals, tables,
// memories, exports, and element and data segments. Function bodies are checked when compiled.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#modules%E2%91%A2
func (m *Module) Validate(enabledFeatures Features) error {
	if err := m.validateStartSection(); err != nil {
		return err
	}
	if err := m.validateImports(enabledFeatures); err != nil {
		return err
	}
	globals := m.Globals()
	if err := m.validateGlobals(globals); err != nil {
		return err
	}
	if err := m.validateTable(globals); err != nil {
		return err
	}
	if err := m.validateMemory(globals); err != nil {
		return err
	}
	return m.validateExports(enabledFeatures, globals)
}

func (m *Module) functionCount() uint32 {
	return m.ImportFuncCount() + uint32(len(m.FunctionSection))
}

func (m *Module) importCount(et ExternType) (count uint32) {
	for _, im := range m.ImportSection {
		if im.Type == et {
			count++
		}
	}
	return
}

func (m *Module) validateStartSection() error {
	if m.StartSection == nil {
		return nil
	}
	startIndex := *m.StartSection
	ft := m.TypeOfFunction(startIndex)
	if ft == nil {
		return Errorf(ErrorKindMalformed, "invalid start function: func[%d] has an invalid type", startIndex)
	}
	if len(ft.Params) > 0 || len(ft.Results) > 0 {
		return Errorf(ErrorKindType, "invalid start function: func[%d] must have an empty (nullary) signature: %s", startIndex, ft)
	}
	return nil
}

func (m *Module) validateImports(enabledFeatures Features) error {
	for i, im := range m.ImportSection {
		switch im.Type {
		case ExternTypeFunc:
			if int(im.DescFunc) >= len(m.TypeSection) {
				return Errorf(ErrorKindMalformed, "invalid import[%d] %q.%q function: type index %d out of range", i, im.Module, im.Name, im.DescFunc)
			}
		case ExternTypeGlobal:
			if im.DescGlobal == nil {
				return Errorf(ErrorKindMalformed, "invalid import[%d] %q.%q global: missing type", i, im.Module, im.Name)
			}
			if im.DescGlobal.Mutable {
				if err := enabledFeatures.Require(FeatureMutableGlobal); err != nil {
					return Errorf(ErrorKindMalformed, "invalid import[%d] %q.%q global: %v", i, im.Module, im.Name, err)
				}
			}
		case ExternTypeMemory:
			if im.DescMem == nil {
				return Errorf(ErrorKindMalformed, "invalid import[%d] %q.%q memory: missing limits", i, im.Module, im.Name)
			}
		case ExternTypeTable:
			if im.DescTable == nil {
				return Errorf(ErrorKindMalformed, "invalid import[%d] %q.%q table: missing limits", i, im.Module, im.Name)
			}
		}
	}
	return nil
}

// validateGlobals checks each initializer, which can only read imported globals.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#constant-expressions%E2%91%A0
func (m *Module) validateGlobals(globals []*GlobalType) error {
	importedGlobals := globals[:m.importCount(ExternTypeGlobal)]
	for i, g := range m.GlobalSection {
		if g.Type == nil || g.Init == nil {
			return Errorf(ErrorKindMalformed, "global[%d]: missing type or initializer", i)
		}
		if err := validateConstExpression(importedGlobals, g.Init, g.Type.ValType); err != nil {
			return err.withContext(fmt.Sprintf("global[%d]", i))
		}
	}
	return nil
}

func (m *Module) validateTable(globals []*GlobalType) error {
	tableCount := m.TableCount()
	if tableCount > 1 {
		return Errorf(ErrorKindMalformed, "at most one table allowed in module, but found %d", tableCount)
	}
	for i, t := range m.TableSection {
		if t.Max != nil && t.Min > *t.Max {
			return Errorf(ErrorKindMalformed, "table[%d]: min %d > max %d", i, t.Min, *t.Max)
		}
	}

	importedGlobals := globals[:m.importCount(ExternTypeGlobal)]
	functionCount := m.functionCount()
	for i, e := range m.ElementSection {
		if e.TableIndex >= tableCount {
			return Errorf(ErrorKindMalformed, "element[%d]: unknown table %d", i, e.TableIndex)
		}
		if e.OffsetExpr == nil {
			return Errorf(ErrorKindMalformed, "element[%d]: missing offset", i)
		}
		if err := validateConstExpression(importedGlobals, e.OffsetExpr, ValueTypeI32); err != nil {
			return err.withContext(fmt.Sprintf("element[%d] offset", i))
		}
		for _, funcIdx := range e.Init {
			if funcIdx >= functionCount {
				return Errorf(ErrorKindMalformed, "element[%d]: unknown function %d", i, funcIdx)
			}
		}
	}
	return nil
}

func (m *Module) validateMemory(globals []*GlobalType) error {
	memoryCount := m.importCount(ExternTypeMemory) + uint32(len(m.MemorySection))
	if memoryCount > 1 {
		return Errorf(ErrorKindMalformed, "at most one memory allowed in module, but found %d", memoryCount)
	}
	for i, mem := range m.MemorySection {
		if mem.Min > MemoryMaxPages {
			return Errorf(ErrorKindMalformed, "memory[%d]: min %d pages over limit of %d pages", i, mem.Min, MemoryMaxPages)
		}
		if mem.Max != nil && (*mem.Max > MemoryMaxPages || mem.Min > *mem.Max) {
			return Errorf(ErrorKindMalformed, "memory[%d]: invalid max %d pages for min %d pages", i, *mem.Max, mem.Min)
		}
	}

	importedGlobals := globals[:m.importCount(ExternTypeGlobal)]
	for i, d := range m.DataSection {
		if d.MemoryIndex >= memoryCount {
			return Errorf(ErrorKindMalformed, "data[%d]: unknown memory %d", i, d.MemoryIndex)
		}
		if d.OffsetExpression == nil {
			return Errorf(ErrorKindMalformed, "data[%d]: missing offset", i)
		}
		if err := validateConstExpression(importedGlobals, d.OffsetExpression, ValueTypeI32); err != nil {
			return err.withContext(fmt.Sprintf("data[%d] offset", i))
		}
	}
	return nil
}

func (m *Module) validateExports(enabledFeatures Features, globals []*GlobalType) error {
	names := make(map[string]struct{}, len(m.ExportSection))
	functionCount := m.functionCount()
	for _, e := range m.ExportSection {
		if _, ok := names[e.Name]; ok {
			return Errorf(ErrorKindMalformed, "export[%q] duplicates a name", e.Name)
		}
		names[e.Name] = struct{}{}

		switch e.Type {
		case ExternTypeFunc:
			if e.Index >= functionCount {
				return Errorf(ErrorKindMalformed, "unknown function for export[%q]", e.Name)
			}
		case ExternTypeGlobal:
			if e.Index >= uint32(len(globals)) {
				return Errorf(ErrorKindMalformed, "unknown global for export[%q]", e.Name)
			}
			if globals[e.Index].Mutable {
				if err := enabledFeatures.Require(FeatureMutableGlobal); err != nil {
					return Errorf(ErrorKindMalformed, "invalid export[%q] global[%d]: %v", e.Name, e.Index, err)
				}
			}
		case ExternTypeMemory:
			if e.Index > 0 || !m.HasMemory() {
				return Errorf(ErrorKindMalformed, "memory for export[%q] out of range", e.Name)
			}
		case ExternTypeTable:
			if e.Index >= m.TableCount() {
				return Errorf(ErrorKindMalformed, "table for export[%q] out of range", e.Name)
			}
		default:
			return Errorf(ErrorKindMalformed, "export[%q] has an invalid type %#x", e.Name, e.Type)
		}
	}
	return nil
}

// validateConstExpression checks the expression reads and produces expectedType. A global.get may only read an
// immutable global of the given ones, which are the imported globals.
func validateConstExpression(globals []*GlobalType, expr *ConstantExpression, expectedType ValueType) *Error {
	var actualType ValueType
	switch expr.Opcode {
	case OpcodeI32Const:
		if _, _, err := leb128.LoadInt32(expr.Data); err != nil {
			return Errorf(ErrorKindMalformed, "read i32: %v", err)
		}
		actualType = ValueTypeI32
	case OpcodeI64Const:
		if _, _, err := leb128.LoadInt64(expr.Data); err != nil {
			return Errorf(ErrorKindMalformed, "read i64: %v", err)
		}
		actualType = ValueTypeI64
	case OpcodeF32Const:
		if len(expr.Data) != 4 {
			return Errorf(ErrorKindMalformed, "read f32: %d bytes != 4", len(expr.Data))
		}
		actualType = ValueTypeF32
	case OpcodeF64Const:
		if len(expr.Data) != 8 {
			return Errorf(ErrorKindMalformed, "read f64: %d bytes != 8", len(expr.Data))
		}
		actualType = ValueTypeF64
	case OpcodeGlobalGet:
		id, _, err := leb128.LoadUint32(expr.Data)
		if err != nil {
			return Errorf(ErrorKindMalformed, "read index of global: %v", err)
		}
		if uint32(len(globals)) <= id {
			return Errorf(ErrorKindMalformed, "global index out of range")
		}
		if globals[id].Mutable {
			return Errorf(ErrorKindMalformed, "global.get of mutable global[%d] in a constant expression", id)
		}
		actualType = globals[id].ValType
	default:
		return Errorf(ErrorKindMalformed, "invalid opcode for const expression: %#x", expr.Opcode)
	}

	if actualType != expectedType {
		return Errorf(ErrorKindType, "const expression type mismatch expected %s but got %s",
			ValueTypeName(expectedType), ValueTypeName(actualType))
	}
	return nil
}
