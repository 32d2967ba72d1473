package main

import (
	"os"

	"github.com/wesleyorama2/quickpulse/internal/cli"
)

// Main runs the quickpulse command line and returns the process exit code.
func Main() int {
	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(Main())
}
