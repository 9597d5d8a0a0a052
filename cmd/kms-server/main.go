// Command kms-server runs the custody service's HTTP API, or applies its
// database migrations, depending on the subcommand invoked.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "kms-server",
		Short: "Threshold custody key management service",
		Long:  `kms-server runs the custody HTTP API backed by Postgres and Vault, and manages its schema.`,
	}

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
