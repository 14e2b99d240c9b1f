// Package version holds build information for the budgetai binary,
// populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/budgetai-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/budgetai-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/budgetai-go/internal/version.BuildDate=2025-04-01"
package version

import "fmt"

// Version is the semantic version of the binary. "dev" for local builds.
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date in RFC3339 format.
var BuildDate = "unknown"

// String formats the build information for the version command and the
// server's health payload.
func String() string {
	return fmt.Sprintf("budgetai %s (commit: %s, built: %s)", Version, Commit, BuildDate)
}
