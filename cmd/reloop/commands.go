package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/config"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [module...]",
		Short: "Reload the modules, call the driver export and ask whether to re-run",
		Long: `Reload every module, call the driver export on each of them in order and
report the results. Enter "r" to reload and run again or "c" to finish.
Modules default to [modules] paths in reloop.toml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			call, _ := cmd.Flags().GetString("call")
			useTUI, _ := cmd.Flags().GetBool("tui")
			return executeRun(cmd.Context(), runOptions{
				configPath: configPath,
				call:       call,
				tui:        useTUI,
				modules:    args,
				in:         os.Stdin,
				out:        os.Stdout,
			})
		},
	}
	cmd.Flags().String("config", "", "path to reloop.toml (default: search upward from the working directory)")
	cmd.Flags().String("call", "", "export to call on every module (default: [driver] call)")
	cmd.Flags().Bool("tui", false, "prompt with the interactive TUI instead of the line prompt")
	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a reloop project (config, modules dir, .gitignore)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			created, err := config.ScaffoldProject(dir)
			if err != nil {
				return err
			}
			fmt.Print(formatScaffoldResult(created))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the reloop version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reloop %s\n", version)
		},
	}
}

// formatScaffoldResult describes what `reloop init` created.
func formatScaffoldResult(created []string) string {
	if len(created) == 0 {
		return "All files already exist, nothing to create.\n"
	}
	var b strings.Builder
	for _, path := range created {
		fmt.Fprintf(&b, "Created %s\n", path)
	}
	return b.String()
}
