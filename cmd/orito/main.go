// Command orito is the CLI entrypoint for the agent orchestration core:
// a "serve" loop that drives one or more conversational turns through the
// Orchestrator (spec §4.8) and streams its events to stdout, plus
// "classify" and "agents" inspection subcommands. Grounded on the
// teacher's cmd/nexus/main.go buildRootCmd structure.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Kept separate from main() to make it directly testable.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orito",
		Short: "Orito - Linux assistant multi-agent orchestration core",
		Long: `Orito drives a query through classification, pipeline selection,
and a bounded-depth agent graph (curious/research/planner/validator/
synthesizer), streaming a tagged-union event per spec §4.9.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "orito.yaml", "Path to YAML configuration file")
	rootCmd.AddCommand(
		buildServeCmd(),
		buildClassifyCmd(),
		buildAgentsCmd(),
	)
	return rootCmd
}
