// Package version exposes build metadata for jar-matrix.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags
// (-X github.com/gvsds/jar-matrix/internal/version.Version=...) and default
// to placeholder values for local builds.
package version
