// Command polarsim runs the political polarization simulation.
package main

import (
	"os"

	"github.com/talgya/polarsim/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
