// Command pollstore manages polls, candidates and votes in a local or
// PostgreSQL ledger.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pollstore/internal/cli"
	"github.com/roach88/pollstore/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.Execute())
}
