// Package main provides the CLI entry point for the agentcore conversational
// agent orchestrator.
//
// agentcore runs the Extractor/Planner/Policy Engine/Tool Broker/State
// Reducer/NLG pipeline behind an HTTP server or a one-shot decide command.
//
// # Basic Usage
//
// Start the server:
//
//	agentcore serve --config agentcore.yaml
//
// Run a single turn from command-line flags:
//
//	agentcore decide --config agentcore.yaml --workspace ws1 --conversation conv1 --input "hola"
//
// # Environment Variables
//
//   - AGENTCORE_CONFIG: path to the configuration file (default: agentcore.yaml)
//   - the variable named by oracle.api_key_env in the config file (for
//     example ANTHROPIC_API_KEY or OPENAI_API_KEY): oracle backend credential
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agentcore",
		Short:   "Multi-tenant conversational agent orchestrator",
		Version: version,
	}
	cmd.AddCommand(buildServeCmd(), buildDecideCmd())
	return cmd
}

func defaultConfigPath() string {
	if p := os.Getenv("AGENTCORE_CONFIG"); p != "" {
		return p
	}
	return "agentcore.yaml"
}
