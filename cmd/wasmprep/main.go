package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/tetratelabs/wasmprep"
	"github.com/tetratelabs/wasmprep/internal/ir"
	"github.com/tetratelabs/wasmprep/internal/version"
	"github.com/tetratelabs/wasmprep/internal/wasm"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "check":
		doCheck(flag.Args()[1:], stdOut, stdErr, exit)
	case "disasm":
		doDisasm(flag.Args()[1:], stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.Get())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

// prepareFlags are the options shared by every command preparing a module.
type prepareFlags struct {
	help          bool
	verbose       bool
	denyFloat     bool
	allowF32      bool
	maxPages      int
	jobs          int
	signExt       bool
	satTrunc      bool
	mutableGlobal bool
}

func registerPrepareFlags(flags *flag.FlagSet) *prepareFlags {
	f := &prepareFlags{}
	flags.BoolVar(&f.help, "h", false, "print usage")
	flags.BoolVar(&f.verbose, "v", false, "log each phase to stderr")
	flags.BoolVar(&f.denyFloat, "deny-float", false, "reject modules using floating point")
	flags.BoolVar(&f.allowF32, "allow-f32", false, "with -deny-float, allow f32 in signatures but deny f32 instructions")
	flags.IntVar(&f.maxPages, "max-pages", -1, "reject modules declaring more initial memory pages than this, if not negative")
	flags.IntVar(&f.jobs, "j", runtime.GOMAXPROCS(0), "functions compiled at the same time")
	flags.BoolVar(&f.signExt, "sign-ext", false, "enable sign-extension operators")
	flags.BoolVar(&f.satTrunc, "sat-trunc", false, "enable non-trapping float-to-int conversions")
	flags.BoolVar(&f.mutableGlobal, "mutable-global", true, "allow importing and exporting mutable globals")
	return f
}

func (f *prepareFlags) config(stdErr io.Writer) *wasmprep.PrepareConfig {
	c := wasmprep.NewPrepareConfig().
		WithFeatureMutableGlobal(f.mutableGlobal).
		WithFeatureSignExtensionOps(f.signExt).
		WithFeatureNonTrappingFloatToIntConversion(f.satTrunc).
		WithCompilationConcurrency(f.jobs).
		WithFloatPolicy(f.denyFloat, f.allowF32)
	if f.maxPages >= 0 {
		c = c.WithMemoryCap(uint32(f.maxPages))
	}
	if f.verbose {
		c = c.WithLogger(newLogger(stdErr))
	}
	return c
}

func newLogger(w io.Writer) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

// prepare reads and prepares the module named by the only positional argument, exiting on any failure.
func prepare(name string, flags *flag.FlagSet, f *prepareFlags, stdErr io.Writer, exit func(code int)) *wasmprep.CompiledModule {
	if f.help {
		printCommandUsage(stdErr, name, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		printCommandUsage(stdErr, name, flags)
		exit(1)
	}
	if int64(f.maxPages) > math.MaxUint32 {
		fmt.Fprintf(stdErr, "-max-pages out of range: %d > %d\n", f.maxPages, uint32(math.MaxUint32))
		printCommandUsage(stdErr, name, flags)
		exit(1)
	}
	wasmPath := flags.Arg(0)

	source, err := os.ReadFile(wasmPath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm binary: %v\n", err)
		exit(1)
	}

	compiled, err := wasmprep.NewPreparerWithConfig(f.config(stdErr)).Prepare(source)
	if err != nil {
		s := newStyles(stdErr)
		fmt.Fprintln(stdErr, s.err.Render(fmt.Sprintf("%s: %v", rejection(err), err)))
		exit(1)
	}
	return compiled
}

// rejection names why a module was turned down, for the first word of the error line.
func rejection(err error) string {
	switch {
	case errors.Is(err, wasmprep.ErrFloatPolicy), errors.Is(err, wasmprep.ErrMemoryPolicy):
		return "rejected"
	default:
		return "invalid"
	}
}

func doCheck(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	flags.SetOutput(stdErr)
	f := registerPrepareFlags(flags)
	_ = flags.Parse(args)

	compiled := prepare("check", flags, f, stdErr, exit)

	operations, maxStackHeight := 0, 0
	for _, code := range compiled.CodeMap {
		operations += len(code.Operations)
		if code.MaxStackHeight > maxStackHeight {
			maxStackHeight = code.MaxStackHeight
		}
	}
	s := newStyles(stdOut)
	fmt.Fprintf(stdOut, "%s %d functions, %d operations, max stack height %d\n",
		s.ok.Render("ok:"), len(compiled.CodeMap), operations, maxStackHeight)
	exit(0)
}

func doDisasm(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("disasm", flag.ExitOnError)
	flags.SetOutput(stdErr)
	f := registerPrepareFlags(flags)
	var interactive bool
	flags.BoolVar(&interactive, "i", false, "browse the compiled functions in a terminal UI")
	_ = flags.Parse(args)

	compiled := prepare("disasm", flags, f, stdErr, exit)
	listings := newListings(compiled)

	if interactive {
		if err := runInteractive(flags.Arg(0), listings); err != nil {
			fmt.Fprintf(stdErr, "error running interactive mode: %v\n", err)
			exit(1)
		}
		exit(0)
	}

	s := newStyles(stdOut)
	for _, l := range listings {
		fmt.Fprintln(stdOut, s.title.Render(l.title()))
		fmt.Fprintln(stdOut, l.body)
	}
	exit(0)
}

// listing is the disassembly of one compiled function.
type listing struct {
	funcIndex      wasm.Index
	name           string
	typ            *wasm.FunctionType
	maxStackHeight int
	body           string
}

func (l *listing) title() string {
	name := ""
	if l.name != "" {
		name = " " + l.name
	}
	return fmt.Sprintf("function[%d]%s %s max_stack_height=%d", l.funcIndex, name, l.typ, l.maxStackHeight)
}

func newListings(compiled *wasmprep.CompiledModule) []*listing {
	m := compiled.Module
	exported := map[wasm.Index]string{}
	for _, e := range m.ExportSection {
		if e.Type == wasm.ExternTypeFunc {
			if _, ok := exported[e.Index]; !ok {
				exported[e.Index] = e.Name
			}
		}
	}

	importedCount := m.ImportFuncCount()
	ret := make([]*listing, len(compiled.CodeMap))
	for i, code := range compiled.CodeMap {
		funcIndex := importedCount + wasm.Index(i)
		ret[i] = &listing{
			funcIndex:      funcIndex,
			name:           exported[funcIndex],
			typ:            m.TypeOfFunction(funcIndex),
			maxStackHeight: code.MaxStackHeight,
			body:           ir.Format(code),
		}
	}
	return ret
}

type styles struct {
	title, ok, err lipgloss.Style
}

// newStyles colors output only when it goes to a terminal, so that piped output stays plain text.
func newStyles(w io.Writer) *styles {
	s := &styles{title: lipgloss.NewStyle(), ok: lipgloss.NewStyle(), err: lipgloss.NewStyle()}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		s.title = titleStyle
		s.ok = okStyle
		s.err = errorStyle
	}
	return s
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "wasmprep CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasmprep <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  check\t\tValidates a WebAssembly binary against the enabled policies")
	fmt.Fprintln(stdErr, "  disasm\tPrints the compiled code of each function")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of wasmprep CLI")
}

func printCommandUsage(stdErr io.Writer, name string, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "wasmprep CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintf(stdErr, "Usage:\n  wasmprep %s <options> <path to wasm file>\n", name)
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
