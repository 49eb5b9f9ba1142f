// Package buildinfo exposes version information stamped at link time.
package buildinfo

// Set via -ldflags "-X goldrun/internal/support/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
)
