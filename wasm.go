// Package wasmprep validates WebAssembly 1.0 (20191205) modules and compiles each of their functions into a flat,
// branch-resolved instruction encoding, ready for an execution engine.
//
// Ex.
//
//	p := wasmprep.NewPreparerWithConfig(wasmprep.NewPrepareConfig().WithFloatPolicy(true, false))
//	compiled, err := p.Prepare(source)
//
// Modules are never instantiated or executed here.
package wasmprep

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tetratelabs/wasmprep/internal/ir"
	"github.com/tetratelabs/wasmprep/internal/policy"
	"github.com/tetratelabs/wasmprep/internal/wasm"
	"github.com/tetratelabs/wasmprep/internal/wasm/binary"
)

type (
	// Module is a decoded WebAssembly module. It is read-only once decoded.
	Module = wasm.Module
	// Instructions is the compiled code of one function.
	Instructions = ir.Instructions
	// Error is the type of every validation and policy error.
	Error = wasm.Error
	// ErrorKind classifies an Error.
	ErrorKind = wasm.ErrorKind
)

const (
	ErrorKindMalformed        = wasm.ErrorKindMalformed
	ErrorKindType             = wasm.ErrorKindType
	ErrorKindControlStructure = wasm.ErrorKindControlStructure
	ErrorKindFloatPolicy      = wasm.ErrorKindFloatPolicy
	ErrorKindMemoryPolicy     = wasm.ErrorKindMemoryPolicy
)

// Sentinels matched with errors.Is. Ex. errors.Is(err, ErrTypeMismatch)
var (
	ErrMalformed          = wasm.ErrMalformed
	ErrTypeMismatch       = wasm.ErrTypeMismatch
	ErrControlStructure   = wasm.ErrControlStructure
	ErrFloatPolicy        = wasm.ErrFloatPolicy
	ErrMemoryPolicy       = wasm.ErrMemoryPolicy
	ErrInvalidMagicNumber = binary.ErrInvalidMagicNumber
	ErrInvalidVersion     = binary.ErrInvalidVersion
)

// CompiledModule is a module whose every function was validated and compiled.
type CompiledModule struct {
	Module *Module
	// CodeMap is the compiled code of each function in Module.CodeSection, in the same order.
	CodeMap []*Instructions
}

// Preparer decodes, gates and compiles WebAssembly 1.0 (20191205) modules.
type Preparer interface {
	// DecodeModule decodes the WebAssembly 1.0 (20191205) binary source or errs if invalid.
	DecodeModule(source []byte) (*Module, error)

	// CompileModule validates and compiles every function of the module. Policy gates are not applied.
	//
	// Note: On error, nothing but the error of the function with the lowest index is returned.
	CompileModule(m *Module) (*CompiledModule, error)

	// Prepare chains DecodeModule, the gates enabled in PrepareConfig, and CompileModule. The gates run first as they
	// are cheaper than compilation.
	Prepare(source []byte) (*CompiledModule, error)
}

// NewPreparer returns a Preparer configured with NewPrepareConfig.
func NewPreparer() Preparer {
	return NewPreparerWithConfig(NewPrepareConfig())
}

// NewPreparerWithConfig returns a Preparer with the given configuration.
func NewPreparerWithConfig(config *PrepareConfig) Preparer {
	return &preparer{config: config.clone()}
}

// preparer allows decoupling of public interfaces from internal representation.
type preparer struct {
	config *PrepareConfig
}

// DecodeModule implements Preparer.DecodeModule
func (p *preparer) DecodeModule(source []byte) (*Module, error) {
	if source == nil {
		return nil, wasm.WrapError(wasm.ErrorKindMalformed, errors.New("source == nil"))
	}

	m, err := binary.DecodeModule(source, p.config.enabledFeatures, p.config.memoryMaxPages)
	if err != nil {
		return nil, wasm.WrapError(wasm.ErrorKindMalformed, err)
	}
	p.config.logger.Debug("decoded module",
		zap.Int("size", len(source)),
		zap.Int("types", len(m.TypeSection)),
		zap.Int("imports", len(m.ImportSection)),
		zap.Int("functions", len(m.FunctionSection)),
		zap.Int("memories", len(m.MemorySection)),
		zap.Int("exports", len(m.ExportSection)))
	return m, nil
}

// CompileModule implements Preparer.CompileModule
func (p *preparer) CompileModule(m *Module) (*CompiledModule, error) {
	start := time.Now()
	codeMap, err := ir.CompileModule(m,
		ir.WithFeatures(p.config.enabledFeatures),
		ir.WithConcurrency(p.config.concurrency),
		ir.WithLogger(p.config.logger))
	if err != nil {
		return nil, err
	}

	operations := 0
	for _, code := range codeMap {
		operations += len(code.Operations)
	}
	p.config.logger.Debug("compiled module",
		zap.Int("functions", len(codeMap)),
		zap.Int("operations", operations),
		zap.Duration("elapsed", time.Since(start)))
	return &CompiledModule{Module: m, CodeMap: codeMap}, nil
}

// Prepare implements Preparer.Prepare
func (p *preparer) Prepare(source []byte) (*CompiledModule, error) {
	m, err := p.DecodeModule(source)
	if err != nil {
		return nil, err
	}
	if p.config.denyFloat {
		if err = policy.DenyFloatingPoint(m, p.config.allowF32); err != nil {
			p.config.logger.Info("module rejected", zap.String("gate", "float"), zap.Error(err))
			return nil, err
		}
	}
	if p.config.memoryCap {
		if err = policy.ValidateMemorySize(m, p.config.memoryCapPages); err != nil {
			p.config.logger.Info("module rejected", zap.String("gate", "memory"), zap.Error(err))
			return nil, err
		}
	}
	return p.CompileModule(m)
}

// CompileModule validates and compiles every function of the module with the defaults of NewPrepareConfig.
func CompileModule(m *Module) (*CompiledModule, error) {
	return NewPreparer().CompileModule(m)
}

// DenyFloatingPoint rejects a module using floating point.
//
// Instructions operating on f64 are always denied, while those operating on f32 are denied only when allowF32 is
// true. Signatures of defined functions may use f32 only when allowF32 is true, and never f64.
func DenyFloatingPoint(m *Module, allowF32 bool) error {
	return policy.DenyFloatingPoint(m, allowF32)
}

// ValidateMemorySize rejects a module whose defined memories start with more than maxPages pages in total.
func ValidateMemorySize(m *Module, maxPages uint32) error {
	return policy.ValidateMemorySize(m, maxPages)
}
