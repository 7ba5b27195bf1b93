// Package version reports the version of wasmprep linked into the running binary.
package version

import "runtime/debug"

// Default is returned when the version isn't recorded in the build info, such as in tests or a local build.
const Default = "dev"

const modulePath = "github.com/tetratelabs/wasmprep"

var version = Default

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		version = lookup(info)
	}
}

// Get returns the version of wasmprep, either the main module or a dependency of the running binary.
func Get() string {
	return version
}

func lookup(info *debug.BuildInfo) string {
	if info.Main.Path == modulePath {
		return orDefault(info.Main.Version)
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			return orDefault(dep.Version)
		}
	}
	return Default
}

func orDefault(v string) string {
	if v == "" || v == "(devel)" {
		return Default
	}
	return v
}
