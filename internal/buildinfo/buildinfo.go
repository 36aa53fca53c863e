// Package buildinfo exposes compile-time metadata printed by the msaauth CLI.
package buildinfo

// Overridden via -ldflags "-X main.Version=..." in release builds and copied here by main.
var (
	// Version is the semantic version or git describe output of the binary.
	Version = "dev"

	// Commit is the git commit SHA baked into the binary.
	Commit = "none"

	// BuildDate records when the binary was built in UTC.
	BuildDate = "unknown"
)
