// Package meta holds build metadata.
package meta

// Version is the hanagate release version. Overridden at build time via
// -ldflags "-X github.com/p2pquery/hanagate/internal/meta.Version=...".
var Version = "dev"
