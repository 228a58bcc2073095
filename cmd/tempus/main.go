// Command tempus is a local-first time tracker. Edits are immutable
// patches in an append-only log; concurrent replicas merge without
// coordination and conflicts surface as explicit errors.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tempus/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors already printed their diagnostics through the
		// command's formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "tempus: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
