// Command fluxstate is a command-line client for the task service.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/fluxstate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
