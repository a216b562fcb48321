// Package main is the entry point for the reloop CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reloop",
		Short:        "reloop: reload WebAssembly modules and re-run until you are happy",
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(
		runCmd(),
		initCmd(),
		versionCmd(),
	)

	return root
}
