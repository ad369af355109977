// Command portscout scans a host's TCP ports and identifies the services
// behind the open ones.
package main

import "github.com/anstrom/portscout/cmd/cli"

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
