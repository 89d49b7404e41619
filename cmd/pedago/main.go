// Command pedago tracks a student's progress through a class catalog.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pedago/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
