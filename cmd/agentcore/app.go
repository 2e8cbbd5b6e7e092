package main

import (
	"fmt"
	"os"

	"github.com/pulpoai/agentcore/internal/broker"
	"github.com/pulpoai/agentcore/internal/config"
	"github.com/pulpoai/agentcore/internal/extractor"
	"github.com/pulpoai/agentcore/internal/manifest"
	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/internal/oracle"
	"github.com/pulpoai/agentcore/internal/orchestrator"
	"github.com/pulpoai/agentcore/internal/planner"
	"github.com/pulpoai/agentcore/internal/policyengine"
	"github.com/pulpoai/agentcore/internal/reducer"
)

// app bundles everything buildOrchestrator wires up, so callers can shut it
// down cleanly (the manifest registry owns a filesystem watcher goroutine).
type app struct {
	Orchestrator *orchestrator.Orchestrator
	Manifests    *manifest.Registry
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

func (a *app) Close() error {
	return a.Manifests.Close()
}

func buildApp(cfg *config.Config) (*app, error) {
	logger := observability.MustNewLogger(observability.LogConfig{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		Output:         os.Stderr,
		AddSource:      cfg.Logging.AddSource,
		RedactPatterns: observability.DefaultRedactPatterns,
	})
	metrics := observability.NewMetrics()

	o, err := oracle.New(oracle.Config{
		Backend: cfg.Oracle.Backend,
		Model:   cfg.Oracle.Model,
		APIKey:  os.Getenv(cfg.Oracle.APIKeyEnv),
		BaseURL: cfg.Oracle.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("agentcore: %w", err)
	}

	manifests, err := manifest.NewRegistry(cfg.Manifest.Dir, cfg.Manifest.WatchDebounce, cfg.Manifest.RescanInterval, logger)
	if err != nil {
		return nil, fmt.Errorf("agentcore: failed to load tool manifests: %w", err)
	}

	b := broker.New(broker.Config{
		DefaultConcurrency:      cfg.Broker.DefaultConcurrency,
		DefaultMaxRetries:       cfg.Broker.DefaultMaxRetries,
		BackoffInitial:          cfg.Broker.BackoffInitial,
		BackoffCap:              cfg.Broker.BackoffCap,
		MaxBodyMB:               cfg.Broker.MaxBodyMB,
		IdempotencyTTL:          cfg.Broker.IdempotencyTTL,
		IdempotencyMaxItems:     cfg.Broker.IdempotencyMaxItems,
		CircuitFailureThreshold: cfg.Broker.CircuitFailureThreshold,
		CircuitWindow:           cfg.Broker.CircuitWindow,
		CircuitCooldown:         cfg.Broker.CircuitCooldown,
		CircuitHalfOpenMaxCalls: cfg.Broker.CircuitHalfOpenMaxCalls,
	}, nil, nil, metrics, logger)

	orch := orchestrator.New(
		extractor.New(o, cfg.Extractor.ConfidenceThreshold, logger, metrics),
		planner.New(o, logger, metrics),
		policyengine.New(),
		b,
		reducer.New(0),
		manifests,
		logger,
		metrics,
	)

	return &app{Orchestrator: orch, Manifests: manifests, Logger: logger, Metrics: metrics}, nil
}
