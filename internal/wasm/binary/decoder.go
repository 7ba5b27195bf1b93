package binary

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wasmprep/internal/leb128"
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// DecodeModule implements the WebAssembly 1.0 (20191205) Binary Format, rejecting container-level malformation such as
// bad section framing, out-of-order sections or a FunctionSection and CodeSection of different lengths.
//
// Function bodies are kept raw: their instructions are validated by the compiler, not here.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
func DecodeModule(binary []byte, enabledFeatures wasm.Features, memoryMaxPages uint32) (*wasm.Module, error) {
	r := bytes.NewReader(binary)

	// Magic number.
	buf := make([]byte, 4)
	if n, _ := r.Read(buf); n != 4 || !bytes.Equal(buf, Magic) {
		return nil, ErrInvalidMagicNumber
	}

	// Version.
	if n, _ := r.Read(buf); n != 4 || !bytes.Equal(buf, version) {
		return nil, ErrInvalidVersion
	}

	m := &wasm.Module{}
	var lastSectionID wasm.SectionID
	for {
		sectionID, err := r.ReadByte()
		if err != nil { // io.EOF is the only possible error
			break
		}

		sectionSize, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("get size of section %s: %v", wasm.SectionIDName(sectionID), err)
		}
		if uint64(sectionSize) > uint64(r.Len()) {
			return nil, fmt.Errorf("section %s: size %d exceeds the remaining %d bytes",
				wasm.SectionIDName(sectionID), sectionSize, r.Len())
		}

		if sectionID != wasm.SectionIDCustom {
			if sectionID > wasm.SectionIDData {
				return nil, fmt.Errorf("%w: %#x", ErrInvalidSectionID, sectionID)
			} else if sectionID <= lastSectionID {
				return nil, fmt.Errorf("section %s: out of order or duplicated", wasm.SectionIDName(sectionID))
			}
			lastSectionID = sectionID
		}

		sectionContentStart := r.Len()
		switch sectionID {
		case wasm.SectionIDCustom:
			var name string
			var data []byte
			if name, data, err = decodeCustomSection(r, sectionSize); err == nil {
				if m.CustomSections == nil {
					m.CustomSections = map[string][]byte{}
				}
				m.CustomSections[name] = data
			}
		case wasm.SectionIDType:
			m.TypeSection, err = decodeTypeSection(r)
		case wasm.SectionIDImport:
			m.ImportSection, err = decodeImportSection(r, enabledFeatures, memoryMaxPages)
		case wasm.SectionIDFunction:
			m.FunctionSection, err = decodeFunctionSection(r)
		case wasm.SectionIDTable:
			m.TableSection, err = decodeTableSection(r)
		case wasm.SectionIDMemory:
			m.MemorySection, err = decodeMemorySection(r, memoryMaxPages)
		case wasm.SectionIDGlobal:
			m.GlobalSection, err = decodeGlobalSection(r)
		case wasm.SectionIDExport:
			m.ExportSection, err = decodeExportSection(r)
		case wasm.SectionIDStart:
			m.StartSection, err = decodeStartSection(r)
		case wasm.SectionIDElement:
			m.ElementSection, err = decodeElementSection(r)
		case wasm.SectionIDCode:
			m.CodeSection, err = decodeCodeSection(r)
		case wasm.SectionIDData:
			m.DataSection, err = decodeDataSection(r)
		}

		if read := sectionContentStart - r.Len(); err == nil && read != int(sectionSize) {
			err = fmt.Errorf("invalid section length: expected to be %d but got %d", sectionSize, read)
		}

		if err != nil {
			return nil, fmt.Errorf("section %s: %w", wasm.SectionIDName(sectionID), err)
		}
	}

	if functionCount, codeCount := len(m.FunctionSection), len(m.CodeSection); functionCount != codeCount {
		return nil, fmt.Errorf("function and code section have inconsistent lengths: %d != %d", functionCount, codeCount)
	}

	if err := validateExportedGlobals(m, enabledFeatures); err != nil {
		return nil, err
	}
	return m, nil
}

// validateExportedGlobals requires wasm.FeatureMutableGlobal to export a mutable global.
func validateExportedGlobals(m *wasm.Module, enabledFeatures wasm.Features) error {
	if enabledFeatures.Get(wasm.FeatureMutableGlobal) {
		return nil
	}
	globals := m.Globals()
	for _, e := range m.ExportSection {
		if e.Type != wasm.ExternTypeGlobal || e.Index >= uint32(len(globals)) {
			continue
		}
		if globals[e.Index].Mutable {
			return fmt.Errorf("export %q: mutable global invalid as %v", e.Name, enabledFeatures.Require(wasm.FeatureMutableGlobal))
		}
	}
	return nil
}
