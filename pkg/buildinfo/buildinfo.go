// Package buildinfo exposes the version stamped into the staticpush binary.
package buildinfo

import "runtime/debug"

// BinaryVersion is set at build time via -ldflags "-X .../buildinfo.BinaryVersion=v1.2.3".
var BinaryVersion = "dev"

// ModuleVersion returns the module version embedded by the Go toolchain, or "" when
// build info is unavailable.
func ModuleVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return ""
}
