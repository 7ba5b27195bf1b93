package binary

import (
	"sort"

	"github.com/tetratelabs/wasmprep/internal/leb128"
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// EncodeModule implements the WebAssembly 1.0 (20191205) Binary Format, the inverse of DecodeModule.
//
// Custom sections are written last, ordered by name, so that the output is deterministic.
// Note: If saving to a file, the conventional extension is wasm
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
func EncodeModule(m *wasm.Module) (bytes []byte) {
	bytes = append(append([]byte{}, Magic...), version...)
	if len(m.TypeSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDType, len(m.TypeSection), func(i int) []byte {
			return encodeFunctionType(m.TypeSection[i])
		})...)
	}
	if len(m.ImportSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDImport, len(m.ImportSection), func(i int) []byte {
			return encodeImport(m.ImportSection[i])
		})...)
	}
	if len(m.FunctionSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDFunction, len(m.FunctionSection), func(i int) []byte {
			return leb128.EncodeUint32(m.FunctionSection[i])
		})...)
	}
	if len(m.TableSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDTable, len(m.TableSection), func(i int) []byte {
			return encodeTableType(m.TableSection[i])
		})...)
	}
	if len(m.MemorySection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDMemory, len(m.MemorySection), func(i int) []byte {
			return encodeLimitsType(m.MemorySection[i].Min, m.MemorySection[i].Max)
		})...)
	}
	if len(m.GlobalSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDGlobal, len(m.GlobalSection), func(i int) []byte {
			g := m.GlobalSection[i]
			return append(encodeGlobalType(g.Type), encodeConstantExpression(g.Init)...)
		})...)
	}
	if len(m.ExportSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDExport, len(m.ExportSection), func(i int) []byte {
			e := m.ExportSection[i]
			return append(append(encodeSizePrefixed([]byte(e.Name)), e.Type), leb128.EncodeUint32(e.Index)...)
		})...)
	}
	if m.StartSection != nil {
		bytes = append(bytes, encodeSection(wasm.SectionIDStart, leb128.EncodeUint32(*m.StartSection))...)
	}
	if len(m.ElementSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDElement, len(m.ElementSection), func(i int) []byte {
			e := m.ElementSection[i]
			ret := append(leb128.EncodeUint32(e.TableIndex), encodeConstantExpression(e.OffsetExpr)...)
			ret = append(ret, leb128.EncodeUint32(uint32(len(e.Init)))...)
			for _, idx := range e.Init {
				ret = append(ret, leb128.EncodeUint32(idx)...)
			}
			return ret
		})...)
	}
	if len(m.CodeSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDCode, len(m.CodeSection), func(i int) []byte {
			return encodeCode(m.CodeSection[i])
		})...)
	}
	if len(m.DataSection) > 0 {
		bytes = append(bytes, encodeVectorSection(wasm.SectionIDData, len(m.DataSection), func(i int) []byte {
			d := m.DataSection[i]
			ret := append(leb128.EncodeUint32(d.MemoryIndex), encodeConstantExpression(d.OffsetExpression)...)
			return append(ret, encodeSizePrefixed(d.Init)...)
		})...)
	}

	names := make([]string, 0, len(m.CustomSections))
	for name := range m.CustomSections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		contents := append(encodeSizePrefixed([]byte(name)), m.CustomSections[name]...)
		bytes = append(bytes, encodeSection(wasm.SectionIDCustom, contents)...)
	}
	return
}

// encodeSection encodes the sectionID, the size of its contents in bytes, followed by the contents.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
func encodeSection(sectionID wasm.SectionID, contents []byte) []byte {
	return append([]byte{sectionID}, encodeSizePrefixed(contents)...)
}

// encodeVectorSection encodes a section whose contents are a vector of count elements.
func encodeVectorSection(sectionID wasm.SectionID, count int, encodeElement func(i int) []byte) []byte {
	contents := leb128.EncodeUint32(uint32(count))
	for i := 0; i < count; i++ {
		contents = append(contents, encodeElement(i)...)
	}
	return encodeSection(sectionID, contents)
}

func encodeSizePrefixed(data []byte) []byte {
	return append(leb128.EncodeUint32(uint32(len(data))), data...)
}

// encodeFunctionType returns the wasm.FunctionType encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-functype
func encodeFunctionType(t *wasm.FunctionType) []byte {
	ret := append([]byte{0x60}, encodeSizePrefixed(t.Params)...)
	return append(ret, encodeSizePrefixed(t.Results)...)
}

func encodeImport(i *wasm.Import) []byte {
	ret := append(encodeSizePrefixed([]byte(i.Module)), encodeSizePrefixed([]byte(i.Name))...)
	ret = append(ret, i.Type)
	switch i.Type {
	case wasm.ExternTypeFunc:
		ret = append(ret, leb128.EncodeUint32(i.DescFunc)...)
	case wasm.ExternTypeTable:
		ret = append(ret, encodeTableType(i.DescTable)...)
	case wasm.ExternTypeMemory:
		ret = append(ret, encodeLimitsType(i.DescMem.Min, i.DescMem.Max)...)
	case wasm.ExternTypeGlobal:
		ret = append(ret, encodeGlobalType(i.DescGlobal)...)
	}
	return ret
}

func encodeTableType(t *wasm.TableType) []byte {
	return append([]byte{t.ElemType}, encodeLimitsType(t.Min, t.Max)...)
}

// encodeLimitsType returns the limits encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
func encodeLimitsType(min uint32, max *uint32) []byte {
	if max == nil {
		return append([]byte{0x00}, leb128.EncodeUint32(min)...)
	}
	return append(append([]byte{0x01}, leb128.EncodeUint32(min)...), leb128.EncodeUint32(*max)...)
}

func encodeGlobalType(t *wasm.GlobalType) []byte {
	if t.Mutable {
		return []byte{t.ValType, 0x01}
	}
	return []byte{t.ValType, 0x00}
}

func encodeConstantExpression(expr *wasm.ConstantExpression) []byte {
	return append(append([]byte{expr.Opcode}, expr.Data...), wasm.OpcodeEnd)
}
