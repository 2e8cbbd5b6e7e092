package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pulpoai/agentcore/internal/config"
)

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentcore HTTP server",
		Long: `Start the agentcore HTTP server.

The server exposes:
  POST /v1/decide  - run one conversational turn
  GET  /healthz     - liveness check
  GET  /metrics      - Prometheus metrics

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.Logger.Info(ctx, "agentcore: starting HTTP server", "addr", addr, "version", version)
	return runHTTPServer(ctx, addr, a)
}
