package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatures_SetGet(t *testing.T) {
	f := Features20191205
	require.True(t, f.Get(FeatureMutableGlobal))
	require.False(t, f.Get(FeatureSignExtensionOps))

	f = f.Set(FeatureSignExtensionOps, true)
	require.True(t, f.Get(FeatureSignExtensionOps))
	require.NoError(t, f.Require(FeatureSignExtensionOps))

	f = f.Set(FeatureMutableGlobal, false)
	require.False(t, f.Get(FeatureMutableGlobal))
	require.EqualError(t, f.Require(FeatureMutableGlobal), `feature "mutable-global" is disabled`)
}

func TestFeatures_String(t *testing.T) {
	tests := []struct {
		name     string
		feature  Features
		expected string
	}{
		{name: "none", feature: 0, expected: ""},
		{name: "mutable-global", feature: FeatureMutableGlobal, expected: "mutable-global"},
		{name: "sign-extension-ops", feature: FeatureSignExtensionOps, expected: "sign-extension-ops"},
		{
			name:     "all",
			feature:  FeatureMutableGlobal | FeatureSignExtensionOps | FeatureNonTrappingFloatToIntConversion,
			expected: "mutable-global|sign-extension-ops|nontrapping-float-to-int-conversion",
		},
		{name: "undefined", feature: 1 << 63, expected: ""},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.feature.String())
		})
	}
}
