package main

import (
	"os"

	"github.com/spf13/cobra"

	"barjas/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "barjas",
		Short: "Procurement tracking sheets dashboard",
		Long: `barjas serves an editable dashboard over the procurement tracking
worksheets of a spreadsheet and analysis views of the procurement sheet.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newHeadersCmd(),
		newExportCmd(),
		newEventsCmd(),
	)
	return root
}
