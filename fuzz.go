//go:build gofuzz
// +build gofuzz

package wasmprep

// Fuzz prepares arbitrary input with every feature and gate enabled. Rejections are expected, panics are not.
func Fuzz(data []byte) int {
	config := NewPrepareConfig().
		WithFeatureSignExtensionOps(true).
		WithFeatureNonTrappingFloatToIntConversion(true).
		WithCompilationConcurrency(2)

	p := NewPreparerWithConfig(config)
	m, err := p.DecodeModule(data)
	if err != nil {
		return 0
	}
	if err = DenyFloatingPoint(m, true); err != nil {
		return 0
	}
	if err = ValidateMemorySize(m, 1); err != nil {
		return 0
	}
	if _, err = p.CompileModule(m); err != nil {
		return 0
	}
	return 1
}
