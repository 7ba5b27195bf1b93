//go:build amd64 && cgo && !windows

// Wasmtime can only be used in amd64 with CGO
// Wasmer doesn't link on Windows
package vs

import (
	"testing"

	"github.com/bytecodealliance/wasmtime-go"
	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/tetratelabs/wasmprep"
)

// facText is the "fac iterative" corpus case in the text format.
const facText = `(module
  (func (export "f") (param i64) (result i64) (local i64)
    (local.set 1 (i64.const 1))
    (block
      (loop
        (br_if 1 (i64.eqz (local.get 0)))
        (local.set 1 (i64.mul (local.get 1) (local.get 0)))
        (local.set 0 (i64.sub (local.get 0) (i64.const 1)))
        (br 0)))
    (local.get 1)))`

func TestCorpus_Engines(t *testing.T) {
	engine := wasmtime.NewEngine()
	store := wasmer.NewStore(wasmer.NewEngine())
	defer store.Close()

	p := wasmprep.NewPreparer()
	for _, tt := range corpus {
		tc := tt
		if tc.mvpOnly {
			continue
		}

		t.Run(tc.name, func(t *testing.T) {
			source := tc.binary()

			_, err := p.Prepare(source)
			require.Equal(t, tc.valid, err == nil, "wasmprep: %v", err)

			err = wasmtime.ModuleValidate(engine, source)
			require.Equal(t, tc.valid, err == nil, "wasmtime: %v", err)

			err = wasmer.ValidateModule(store, source)
			require.Equal(t, tc.valid, err == nil, "wasmer: %v", err)
		})
	}
}

// TestWat2Wasm ensures binaries produced by other toolchains are accepted, and compile like the encoded corpus.
func TestWat2Wasm(t *testing.T) {
	expected, err := wasmprep.NewPreparer().Prepare(fac().binary())
	require.NoError(t, err)

	wat2wasm := map[string]func(string) ([]byte, error){
		"wasmtime": wasmtime.Wat2Wasm,
		"wasmer":   wasmer.Wat2Wasm,
	}
	for name, fn := range wat2wasm {
		fn := fn

		t.Run(name, func(t *testing.T) {
			source, err := fn(facText)
			require.NoError(t, err)

			compiled, err := wasmprep.NewPreparer().Prepare(source)
			require.NoError(t, err)
			require.Equal(t, expected.CodeMap, compiled.CodeMap)
		})
	}
}

func BenchmarkPrepare_Engines(b *testing.B) {
	source := fac().binary()

	b.Run("wasmprep", func(b *testing.B) {
		p := wasmprep.NewPreparer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := p.Prepare(source); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("wasmtime-go validate", func(b *testing.B) {
		engine := wasmtime.NewEngine()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if err := wasmtime.ModuleValidate(engine, source); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("wasmtime-go compile", func(b *testing.B) {
		engine := wasmtime.NewEngine()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := wasmtime.NewModule(engine, source); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("wasmer-go validate", func(b *testing.B) {
		store := wasmer.NewStore(wasmer.NewEngine())
		defer store.Close()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if err := wasmer.ValidateModule(store, source); err != nil {
				b.Fatal(err)
			}
		}
	})
}
