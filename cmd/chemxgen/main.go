// Command chemxgen is the ChemXGen command-line client.
package main

import (
	"os"

	"github.com/turtacn/ChemXGen/internal/interfaces/cli"
)

// Set via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	// Execute has already printed the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
