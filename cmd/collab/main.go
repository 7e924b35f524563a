// Command collab verifies, replays and journals hash-chained event logs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/collab/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
