package binary

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wasmprep/internal/leb128"
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// decodeVectorSize reads the element count of a vector, failing when it cannot possibly fit the remaining bytes. This
// keeps a small but hostile binary from forcing a large allocation.
func decodeVectorSize(r *bytes.Reader) (uint32, error) {
	vs, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return 0, fmt.Errorf("get size of vector: %w", err)
	} else if uint64(vs) > uint64(r.Len()) {
		return 0, fmt.Errorf("vector size %d exceeds the remaining %d bytes", vs, r.Len())
	}
	return vs, nil
}

func decodeCustomSection(r *bytes.Reader, sectionSize uint32) (name string, data []byte, err error) {
	start := r.Len()
	if name, err = decodeUTF8(r, "custom section name"); err != nil {
		return
	}
	nameSize := uint32(start - r.Len())
	if nameSize > sectionSize {
		return "", nil, fmt.Errorf("malformed custom section %s", name)
	}
	data = make([]byte, sectionSize-nameSize)
	if _, err = r.Read(data); err != nil && len(data) > 0 {
		return "", nil, fmt.Errorf("read custom section %s: %v", name, err)
	}
	return name, data, nil
}

func decodeTypeSection(r *bytes.Reader) ([]*wasm.FunctionType, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.FunctionType, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeFunctionType(r); err != nil {
			return nil, fmt.Errorf("read %d-th type: %v", i, err)
		}
	}
	return result, nil
}

func decodeFunctionType(r *bytes.Reader) (*wasm.FunctionType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read leading byte: %w", err)
	}

	if b != 0x60 {
		return nil, fmt.Errorf("%w: %#x != 0x60", ErrInvalidByte, b)
	}

	paramCount, err := decodeVectorSize(r)
	if err != nil {
		return nil, fmt.Errorf("could not read parameter count: %w", err)
	}

	paramTypes, err := decodeValueTypes(r, paramCount)
	if err != nil {
		return nil, fmt.Errorf("could not read parameter types: %w", err)
	}

	resultCount, err := decodeVectorSize(r)
	if err != nil {
		return nil, fmt.Errorf("could not read result count: %w", err)
	} else if resultCount > 1 {
		return nil, fmt.Errorf("multiple result types invalid in WebAssembly 1.0")
	}

	resultTypes, err := decodeValueTypes(r, resultCount)
	if err != nil {
		return nil, fmt.Errorf("could not read result types: %w", err)
	}

	return &wasm.FunctionType{Params: paramTypes, Results: resultTypes}, nil
}

func decodeImportSection(r *bytes.Reader, enabledFeatures wasm.Features, memoryMaxPages uint32) ([]*wasm.Import, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.Import, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeImport(r, enabledFeatures, memoryMaxPages); err != nil {
			return nil, fmt.Errorf("read import[%d]: %w", i, err)
		}
	}
	return result, nil
}

func decodeImport(r *bytes.Reader, enabledFeatures wasm.Features, memoryMaxPages uint32) (i *wasm.Import, err error) {
	i = &wasm.Import{}
	if i.Module, err = decodeUTF8(r, "import module"); err != nil {
		return nil, err
	}

	if i.Name, err = decodeUTF8(r, "import name"); err != nil {
		return nil, err
	}

	b, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("error decoding import kind: %w", err)
	}

	i.Type = b
	switch i.Type {
	case wasm.ExternTypeFunc:
		if i.DescFunc, _, err = leb128.DecodeUint32(r); err != nil {
			return nil, fmt.Errorf("error decoding import func typeindex: %w", err)
		}
	case wasm.ExternTypeTable:
		if i.DescTable, err = decodeTableType(r); err != nil {
			return nil, fmt.Errorf("error decoding import table desc: %w", err)
		}
	case wasm.ExternTypeMemory:
		if i.DescMem, err = decodeMemoryType(r, memoryMaxPages); err != nil {
			return nil, fmt.Errorf("error decoding import mem desc: %w", err)
		}
	case wasm.ExternTypeGlobal:
		if i.DescGlobal, err = decodeGlobalType(r); err != nil {
			return nil, fmt.Errorf("error decoding import global desc: %w", err)
		}
		if i.DescGlobal.Mutable {
			if err = enabledFeatures.Require(wasm.FeatureMutableGlobal); err != nil {
				return nil, fmt.Errorf("cannot import mutable global: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: invalid byte for importdesc: %#x", ErrInvalidByte, b)
	}
	return
}

func decodeFunctionSection(r *bytes.Reader) ([]wasm.Index, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]wasm.Index, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], _, err = leb128.DecodeUint32(r); err != nil {
			return nil, fmt.Errorf("get type index: %w", err)
		}
	}
	return result, nil
}

func decodeTableSection(r *bytes.Reader) ([]*wasm.TableType, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.TableType, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeTableType(r); err != nil {
			return nil, fmt.Errorf("read table type: %w", err)
		}
	}
	return result, nil
}

func decodeMemorySection(r *bytes.Reader, memoryMaxPages uint32) ([]*wasm.MemoryType, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.MemoryType, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeMemoryType(r, memoryMaxPages); err != nil {
			return nil, fmt.Errorf("read memory type: %w", err)
		}
	}
	return result, nil
}

func decodeGlobalSection(r *bytes.Reader) ([]*wasm.Global, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.Global, vs)
	for i := uint32(0); i < vs; i++ {
		gt, err := decodeGlobalType(r)
		if err != nil {
			return nil, fmt.Errorf("read global type: %v", err)
		}
		init, err := decodeConstantExpression(r)
		if err != nil {
			return nil, fmt.Errorf("get init expression: %v", err)
		}
		result[i] = &wasm.Global{Type: gt, Init: init}
	}
	return result, nil
}

func decodeExportSection(r *bytes.Reader) ([]*wasm.Export, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, vs)
	result := make([]*wasm.Export, vs)
	for i := uint32(0); i < vs; i++ {
		e := &wasm.Export{}
		if e.Name, err = decodeUTF8(r, "export name"); err != nil {
			return nil, err
		}
		if _, ok := names[e.Name]; ok {
			return nil, fmt.Errorf("export[%d] duplicates name %q", i, e.Name)
		}
		names[e.Name] = struct{}{}

		if e.Type, err = r.ReadByte(); err != nil {
			return nil, fmt.Errorf("error decoding export kind: %w", err)
		}
		switch e.Type {
		case wasm.ExternTypeFunc, wasm.ExternTypeTable, wasm.ExternTypeMemory, wasm.ExternTypeGlobal:
			if e.Index, _, err = leb128.DecodeUint32(r); err != nil {
				return nil, fmt.Errorf("error decoding export index: %w", err)
			}
		default:
			return nil, fmt.Errorf("%w: invalid byte for exportdesc: %#x", ErrInvalidByte, e.Type)
		}
		result[i] = e
	}
	return result, nil
}

func decodeStartSection(r *bytes.Reader) (*wasm.Index, error) {
	vs, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("get function index: %w", err)
	}
	return &vs, nil
}

func decodeElementSection(r *bytes.Reader) ([]*wasm.ElementSegment, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.ElementSegment, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeElementSegment(r); err != nil {
			return nil, fmt.Errorf("read element: %w", err)
		}
	}
	return result, nil
}

func decodeElementSegment(r *bytes.Reader) (*wasm.ElementSegment, error) {
	ti, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("get table index: %w", err)
	}

	expr, err := decodeConstantExpression(r)
	if err != nil {
		return nil, fmt.Errorf("read expr for offset: %w", err)
	}

	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	init := make([]wasm.Index, vs)
	for i := range init {
		if init[i], _, err = leb128.DecodeUint32(r); err != nil {
			return nil, fmt.Errorf("read function index: %w", err)
		}
	}

	return &wasm.ElementSegment{TableIndex: ti, OffsetExpr: expr, Init: init}, nil
}

func decodeCodeSection(r *bytes.Reader) ([]*wasm.Code, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.Code, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeCode(r); err != nil {
			return nil, fmt.Errorf("read %d-th code segment: %v", i, err)
		}
	}
	return result, nil
}

func decodeDataSection(r *bytes.Reader) ([]*wasm.DataSegment, error) {
	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	result := make([]*wasm.DataSegment, vs)
	for i := uint32(0); i < vs; i++ {
		if result[i], err = decodeDataSegment(r); err != nil {
			return nil, fmt.Errorf("read data segment: %w", err)
		}
	}
	return result, nil
}

func decodeDataSegment(r *bytes.Reader) (*wasm.DataSegment, error) {
	mi, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("get memory index: %w", err)
	} else if mi != 0 {
		return nil, fmt.Errorf("memory index must be zero but was %d", mi)
	}

	expr, err := decodeConstantExpression(r)
	if err != nil {
		return nil, fmt.Errorf("read offset expression: %w", err)
	}

	vs, err := decodeVectorSize(r)
	if err != nil {
		return nil, err
	}

	init := make([]byte, vs)
	if _, err = r.Read(init); err != nil && vs > 0 {
		return nil, fmt.Errorf("read bytes for init: %w", err)
	}

	return &wasm.DataSegment{MemoryIndex: mi, OffsetExpression: expr, Init: init}, nil
}
