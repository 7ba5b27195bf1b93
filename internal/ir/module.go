package ir

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// ModuleOption configures CompileModule.
type ModuleOption func(*moduleConfig)

type moduleConfig struct {
	features    wasm.Features
	concurrency int
	logger      *zap.Logger
}

// WithFeatures sets the features enabled while compiling. Defaults to wasm.Features20191205.
func WithFeatures(features wasm.Features) ModuleOption {
	return func(c *moduleConfig) {
		c.features = features
	}
}

// WithConcurrency compiles up to n functions at the same time. Values below two compile sequentially, which is the
// default.
func WithConcurrency(n int) ModuleOption {
	return func(c *moduleConfig) {
		c.concurrency = n
	}
}

// WithLogger logs each compiled function at debug level, and failures at warn level.
func WithLogger(logger *zap.Logger) ModuleOption {
	return func(c *moduleConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CompileModule validates the module outside function bodies, then compiles every function of the CodeSection,
// returning the code map indexed like it.
//
// Nothing is returned but the error when any function fails. With concurrency, the error is still the one of the
// failing function with the lowest index, so the result doesn't depend on scheduling.
func CompileModule(m *wasm.Module, opts ...ModuleOption) ([]*Instructions, error) {
	cfg := &moduleConfig{features: wasm.Features20191205, concurrency: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	if functionCount, codeCount := len(m.FunctionSection), len(m.CodeSection); functionCount != codeCount {
		return nil, wasm.Errorf(wasm.ErrorKindMalformed,
			"function and code section have inconsistent lengths: %d != %d", functionCount, codeCount)
	}
	importedCount := m.ImportFuncCount()
	for i, typeIdx := range m.FunctionSection {
		if int(typeIdx) >= len(m.TypeSection) {
			err := wasm.Errorf(wasm.ErrorKindMalformed, "invalid type index %d >= %d", typeIdx, len(m.TypeSection))
			err.TypeIndex, err.HasTypeIndex = typeIdx, true
			return nil, err.InFunction(importedCount + wasm.Index(i))
		}
	}
	if err := m.Validate(cfg.features); err != nil {
		cfg.logger.Warn("module failed to validate", zap.Error(err))
		return nil, err
	}

	codeMap := make([]*Instructions, len(m.CodeSection))
	if cfg.concurrency < 2 || len(codeMap) < 2 {
		for i := range codeMap {
			code, err := cfg.compile(m, wasm.Index(i))
			if err != nil {
				return nil, err
			}
			codeMap[i] = code
		}
		return codeMap, nil
	}

	errs := make([]error, len(codeMap))
	var lowestFailure atomic.Int64
	lowestFailure.Store(math.MaxInt64)

	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	for i := range codeMap {
		i := i
		// Functions before a failure still run, as one of them may fail too and must be reported instead.
		if int64(i) > lowestFailure.Load() {
			break
		}
		g.Go(func() error {
			if int64(i) > lowestFailure.Load() {
				return nil
			}
			code, err := cfg.compile(m, wasm.Index(i))
			if err != nil {
				errs[i] = err
				for {
					current := lowestFailure.Load()
					if int64(i) >= current || lowestFailure.CompareAndSwap(current, int64(i)) {
						break
					}
				}
				return nil
			}
			codeMap[i] = code
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return codeMap, nil
}

func (cfg *moduleConfig) compile(m *wasm.Module, funcIndex wasm.Index) (*Instructions, error) {
	code, err := Compile(cfg.features, m, funcIndex)
	if err != nil {
		cfg.logger.Warn("function failed to compile",
			zap.Uint32("function_index", funcIndex),
			zap.Error(err))
		return nil, err
	}
	cfg.logger.Debug("compiled function",
		zap.Uint32("function_index", funcIndex),
		zap.Int("operations", len(code.Operations)),
		zap.Int("max_stack_height", code.MaxStackHeight))
	return code, nil
}
