package wasmprep

import (
	"go.uber.org/zap"

	"github.com/tetratelabs/wasmprep/internal/wasm"
)

// PrepareConfig controls how a Preparer decodes, gates and compiles modules, with the default implementation as
// NewPrepareConfig.
//
// PrepareConfig is immutable: each With function returns a new instance including the corresponding change.
type PrepareConfig struct {
	logger          *zap.Logger
	enabledFeatures wasm.Features
	memoryMaxPages  uint32
	concurrency     int

	denyFloat bool
	allowF32  bool

	memoryCap      bool
	memoryCapPages uint32
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &PrepareConfig{
	logger:          zap.NewNop(),
	enabledFeatures: wasm.Features20191205,
	memoryMaxPages:  wasm.MemoryMaxPages,
	concurrency:     1,
}

// clone ensures all fields are copied even if nil.
func (c *PrepareConfig) clone() *PrepareConfig {
	ret := *c
	return &ret
}

// NewPrepareConfig returns a config enabling the features finished in WebAssembly 1.0 (20191205), compiling
// sequentially, without any policy gate.
func NewPrepareConfig() *PrepareConfig {
	return defaultConfig.clone()
}

// WithLogger sets the logger of decoding, compilation and gate rejections. Defaults to zap.NewNop if nil.
func (c *PrepareConfig) WithLogger(logger *zap.Logger) *PrepareConfig {
	if logger == nil {
		logger = zap.NewNop()
	}
	ret := c.clone()
	ret.logger = logger
	return ret
}

// WithMemoryMaxPages reduces the maximum number of pages a module can define from 65536 pages (4GiB) to a lower value.
//
// A module whose memory min or max is above this fails to decode. Unlike WithMemoryCap, this bounds each memory
// individually.
func (c *PrepareConfig) WithMemoryMaxPages(memoryMaxPages uint32) *PrepareConfig {
	ret := c.clone()
	ret.memoryMaxPages = memoryMaxPages
	return ret
}

// WithFeatureMutableGlobal allows globals to be imported or exported. This defaults to true as the feature was finished
// in WebAssembly 1.0 (20191205).
func (c *PrepareConfig) WithFeatureMutableGlobal(enabled bool) *PrepareConfig {
	ret := c.clone()
	ret.enabledFeatures = ret.enabledFeatures.Set(wasm.FeatureMutableGlobal, enabled)
	return ret
}

// WithFeatureSignExtensionOps enables sign-extend operations. This defaults to false as the feature was not finished in
// WebAssembly 1.0 (20191205).
//
// See https://github.com/WebAssembly/spec/blob/main/proposals/sign-extension-ops/Overview.md
func (c *PrepareConfig) WithFeatureSignExtensionOps(enabled bool) *PrepareConfig {
	ret := c.clone()
	ret.enabledFeatures = ret.enabledFeatures.Set(wasm.FeatureSignExtensionOps, enabled)
	return ret
}

// WithFeatureNonTrappingFloatToIntConversion enables the saturating float-to-int conversions. This defaults to false
// as the feature was not finished in WebAssembly 1.0 (20191205).
//
// See https://github.com/WebAssembly/spec/blob/main/proposals/nontrapping-float-to-int-conversion/Overview.md
func (c *PrepareConfig) WithFeatureNonTrappingFloatToIntConversion(enabled bool) *PrepareConfig {
	ret := c.clone()
	ret.enabledFeatures = ret.enabledFeatures.Set(wasm.FeatureNonTrappingFloatToIntConversion, enabled)
	return ret
}

// WithCompilationConcurrency compiles up to n functions of a module at the same time. Values below two compile
// sequentially, which is the default.
func (c *PrepareConfig) WithCompilationConcurrency(n int) *PrepareConfig {
	ret := c.clone()
	ret.concurrency = n
	return ret
}

// WithFloatPolicy enables DenyFloatingPoint in Preparer.Prepare when deny is true.
func (c *PrepareConfig) WithFloatPolicy(deny, allowF32 bool) *PrepareConfig {
	ret := c.clone()
	ret.denyFloat = deny
	ret.allowF32 = allowF32
	return ret
}

// WithMemoryCap enables ValidateMemorySize in Preparer.Prepare, rejecting modules whose memories start with more than
// maxPages pages in total.
func (c *PrepareConfig) WithMemoryCap(maxPages uint32) *PrepareConfig {
	ret := c.clone()
	ret.memoryCap = true
	ret.memoryCapPages = maxPages
	return ret
}
