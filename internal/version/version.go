// Package version exposes build-time version information.
package version

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// FullVersion returns the version string shown by the CLI.
func FullVersion() string {
	return Version + " (" + Commit + ")"
}
