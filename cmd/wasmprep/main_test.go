package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasmprep"
	"github.com/tetratelabs/wasmprep/internal/version"
	"github.com/tetratelabs/wasmprep/internal/wasm"
	"github.com/tetratelabs/wasmprep/internal/wasm/binary"
)

var i32_i32 = &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}

// writeModule encodes the module into a temporary file, returning its path.
func writeModule(t *testing.T, m *wasm.Module) string {
	path := filepath.Join(t.TempDir(), "test.wasm")
	require.NoError(t, os.WriteFile(path, binary.EncodeModule(m), 0o600))
	return path
}

// addOneModule exports add_one, converting through f32 when useF32 is true, with a memory of three pages.
func addOneModule(useF32 bool) *wasm.Module {
	body := []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Const, 1, wasm.OpcodeI32Add, wasm.OpcodeEnd}
	if useF32 {
		body = []byte{
			wasm.OpcodeLocalGet, 0, wasm.OpcodeF32ConvertI32S, wasm.OpcodeI32TruncF32S,
			wasm.OpcodeI32Const, 1, wasm.OpcodeI32Add, wasm.OpcodeEnd,
		}
	}
	return &wasm.Module{
		TypeSection:     []*wasm.FunctionType{i32_i32},
		FunctionSection: []wasm.Index{0},
		MemorySection:   []*wasm.MemoryType{{Min: 3}},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "add_one", Index: 0}},
		CodeSection:     []*wasm.Code{{Body: body}},
	}
}

func TestCheck(t *testing.T) {
	intPath := writeModule(t, addOneModule(false))
	f32Path := writeModule(t, addOneModule(true))

	tests := []struct {
		name         string
		args         []string
		expectedCode int
		stdOut       string
		stdErr       string
	}{
		{
			name:   "valid",
			args:   []string{"check", intPath},
			stdOut: "ok: 1 functions, 5 operations, max stack height 3\n",
		},
		{
			name:   "float policy on an integer module",
			args:   []string{"check", "-deny-float", "-allow-f32", intPath},
			stdOut: "ok: 1 functions, 5 operations, max stack height 3\n",
		},
		{
			name:   "f32 not allowed",
			args:   []string{"check", "-deny-float", f32Path},
			stdOut: "ok: 1 functions, 7 operations, max stack height 3\n",
		},
		{
			name:         "f32 allowed",
			args:         []string{"check", "-deny-float", "-allow-f32", f32Path},
			expectedCode: 1,
			stdErr:       "rejected: float policy: function[0] f32.convert_i32_s at 0x2: f32 Floating point operation denied: f32.convert_i32_s\n",
		},
		{
			name:   "memory equal to the cap",
			args:   []string{"check", "-max-pages", "3", intPath},
			stdOut: "ok: 1 functions, 5 operations, max stack height 3\n",
		},
		{
			name:         "memory above the cap",
			args:         []string{"check", "-max-pages", "2", intPath},
			expectedCode: 1,
			stdErr:       "rejected: memory policy: The WASM module is not allowed to have more than 2 pages of memory\n",
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			exitCode, stdOut, stdErr := runMain(t, tc.args)
			require.Equal(t, tc.expectedCode, exitCode)
			require.Equal(t, tc.stdOut, stdOut)
			require.Equal(t, tc.stdErr, stdErr)
		})
	}
}

func TestCheck_Invalid(t *testing.T) {
	m := addOneModule(false)
	m.CodeSection[0].Body = []byte{wasm.OpcodeI64Const, 1, wasm.OpcodeEnd}

	exitCode, stdOut, stdErr := runMain(t, []string{"check", writeModule(t, m)})
	require.Equal(t, 1, exitCode)
	require.Empty(t, stdOut)
	require.Equal(t, "invalid: type error: function[0] end at 0x2: type mismatch at the end of function: i64 != i32\n", stdErr)
}

func TestCheck_Verbose(t *testing.T) {
	exitCode, _, stdErr := runMain(t, []string{"check", "-v", writeModule(t, addOneModule(false))})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdErr, "decoded module")
	require.Contains(t, stdErr, "compiled module")
}

func TestDisasm(t *testing.T) {
	exitCode, stdOut, stdErr := runMain(t, []string{"disasm", writeModule(t, addOneModule(false))})
	require.Equal(t, 0, exitCode)
	require.Empty(t, stdErr)
	require.Equal(t, `function[0] add_one i32_i32 max_stack_height=3
0000 Pick 0
0001 ConstI32 0x1
0002 Add i32
0003 Drop [1..1]
0004 Br return

`, stdOut)
}

func TestHelp(t *testing.T) {
	exitCode, _, stdErr := runMain(t, []string{"-h"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdErr, "wasmprep CLI\n\nUsage:")

	exitCode, _, stdErr = runMain(t, []string{"check", "-h"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdErr, "wasmprep check <options> <path to wasm file>")
}

func TestVersion(t *testing.T) {
	exitCode, stdOut, _ := runMain(t, []string{"version"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, version.Get()+"\n", stdOut)
}

func TestErrors(t *testing.T) {
	notWasmPath := filepath.Join(t.TempDir(), "bears.wasm")
	require.NoError(t, os.WriteFile(notWasmPath, []byte("pooh"), 0o600))

	tests := []struct {
		message string
		args    []string
	}{
		{
			message: "invalid command",
			args:    []string{"invalid command"},
		},
		{
			message: "missing path to wasm file",
			args:    []string{"check"},
		},
		{
			message: "-max-pages out of range: 4294967296 > 4294967295",
			args:    []string{"check", "-max-pages", "4294967296", notWasmPath},
		},
		{
			message: "error reading wasm binary",
			args:    []string{"disasm", "non-existent.wasm"},
		},
		{
			message: "invalid: malformed: invalid magic number",
			args:    []string{"check", notWasmPath},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.message, func(t *testing.T) {
			exitCode, _, stdErr := runMain(t, tc.args)
			require.Equal(t, 1, exitCode)
			require.Contains(t, stdErr, tc.message)
		})
	}
}

func TestBrowserModel(t *testing.T) {
	m := addOneModule(false)
	m.FunctionSection = append(m.FunctionSection, 0)
	m.CodeSection = append(m.CodeSection, &wasm.Code{Body: []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeEnd}})
	compiled, err := wasmprep.CompileModule(m)
	require.NoError(t, err)

	b := newBrowserModel("test.wasm", newListings(compiled))
	require.Equal(t, "Loading...", b.View())

	b.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	require.Contains(t, b.View(), "function[0] add_one")
	require.Contains(t, b.View(), "0002 Add i32")

	b.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 1, b.selected)
	require.Contains(t, b.View(), "function[1] i32_i32")

	// Wraps around.
	b.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 0, b.selected)
	b.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, 1, b.selected)

	_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
}

func runMain(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	oldArgs := os.Args
	t.Cleanup(func() {
		os.Args = oldArgs
	})
	os.Args = append([]string{"wasmprep"}, args...)

	var exitCode int
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	var exited bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				exited = true
			}
		}()
		flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		doMain(stdOut, stdErr, func(code int) {
			exitCode = code
			panic(code)
		})
	}()

	require.True(t, exited)

	return exitCode, stdOut.String(), stdErr.String()
}
