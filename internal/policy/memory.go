package policy

import (
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// ValidateMemorySize rejects modules whose defined memories start with more than maxPages pages in total. A total
// equal to maxPages is accepted.
//
// Only the initial size of memories in the MemorySection counts: imported memories are allocated by their exporter,
// and a memory's maximum is not committed until it grows.
func ValidateMemorySize(m *wasm.Module, maxPages uint32) error {
	var pages uint64
	for _, mem := range m.MemorySection {
		pages += uint64(mem.Min)
	}
	if pages > uint64(maxPages) {
		return wasm.Errorf(wasm.ErrorKindMemoryPolicy,
			"The WASM module is not allowed to have more than %d pages of memory", maxPages)
	}
	return nil
}
