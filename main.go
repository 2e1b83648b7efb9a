package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "drugregistry",
		Short:        "Drug registry ingestion, cache and API server",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newParseCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
