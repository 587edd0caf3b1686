// blocklotto is a blockchain-backed numbers lottery: bets are paid in native
// currency to a receiving wallet, reconciled against the chain, and prizes
// are distributed when draw results come in.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blocklotto/internal/interfaces/cli/migrate"
	"blocklotto/internal/interfaces/cli/server"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "blocklotto",
		Short:   "Blockchain numbers lottery service",
		Version: version,
	}

	root.AddCommand(server.NewCommand())
	root.AddCommand(migrate.NewCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
