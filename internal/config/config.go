package config

import "time"

// Config is the top-level process configuration: oracle backend selection,
// manifest locations, and ambient concerns (logging, metrics). Workspace
// policy and per-vertical tool catalogs are not here — those come from the
// manifest loader (internal/manifest) since they are hot-reloadable and
// potentially workspace-scoped, unlike process config.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Manifest  ManifestConfig  `yaml:"manifest"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Broker    BrokerConfig    `yaml:"broker"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Planner   PlannerConfig   `yaml:"planner"`
}

type ServerConfig struct {
	// ListenAddr is only consulted by cmd/agentcore's "serve" subcommand; the
	// core orchestrator itself is transport-agnostic.
	ListenAddr string `yaml:"listen_addr"`
}

// OracleConfig selects and configures the generate_json backend.
type OracleConfig struct {
	// Backend is one of "anthropic", "openai", or "scripted" (tests/dev).
	Backend          string        `yaml:"backend"`
	Model            string        `yaml:"model"`
	APIKeyEnv        string        `yaml:"api_key_env"`
	BaseURL          string        `yaml:"base_url"`
	ExtractorTimeout time.Duration `yaml:"extractor_timeout"`
	PlannerTimeout   time.Duration `yaml:"planner_timeout"`
}

type ManifestConfig struct {
	// Dir holds one YAML file per vertical (services.yaml, gastronomy.yaml, real-estate.yaml).
	Dir string `yaml:"dir"`
	// WatchDebounce coalesces bursts of filesystem events before a reload.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	// RescanInterval is a belt-and-suspenders periodic re-read independent of
	// fsnotify, for filesystems (network mounts) where inotify is unreliable.
	RescanInterval time.Duration `yaml:"rescan_interval"`
	SchemaDir      string        `yaml:"schema_dir"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type BrokerConfig struct {
	DefaultConcurrency      int           `yaml:"default_concurrency"`
	DefaultMaxRetries       int           `yaml:"default_max_retries"`
	BackoffInitial          time.Duration `yaml:"backoff_initial"`
	BackoffCap              time.Duration `yaml:"backoff_cap"`
	MaxBodyMB               int           `yaml:"max_body_mb"`
	IdempotencyTTL          time.Duration `yaml:"idempotency_ttl"`
	IdempotencyMaxItems     int           `yaml:"idempotency_max_items"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitWindow           time.Duration `yaml:"circuit_window"`
	CircuitCooldown         time.Duration `yaml:"circuit_cooldown"`
	CircuitHalfOpenMaxCalls int           `yaml:"circuit_half_open_max_calls"`
}

type ExtractorConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

type PlannerConfig struct {
	MaxActions int `yaml:"max_actions"`
}

func (c *Config) applyDefaults() {
	if c.Oracle.Backend == "" {
		c.Oracle.Backend = "scripted"
	}
	if c.Oracle.ExtractorTimeout == 0 {
		c.Oracle.ExtractorTimeout = 5 * time.Second
	}
	if c.Oracle.PlannerTimeout == 0 {
		c.Oracle.PlannerTimeout = 8 * time.Second
	}
	if c.Manifest.WatchDebounce == 0 {
		c.Manifest.WatchDebounce = 250 * time.Millisecond
	}
	if c.Manifest.RescanInterval == 0 {
		c.Manifest.RescanInterval = 5 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Broker.DefaultConcurrency == 0 {
		c.Broker.DefaultConcurrency = 10
	}
	if c.Broker.DefaultMaxRetries == 0 {
		c.Broker.DefaultMaxRetries = 3
	}
	if c.Broker.BackoffInitial == 0 {
		c.Broker.BackoffInitial = 200 * time.Millisecond
	}
	if c.Broker.BackoffCap == 0 {
		c.Broker.BackoffCap = 3 * time.Second
	}
	if c.Broker.MaxBodyMB == 0 {
		c.Broker.MaxBodyMB = 10
	}
	if c.Broker.IdempotencyTTL == 0 {
		c.Broker.IdempotencyTTL = 60 * time.Second
	}
	if c.Broker.IdempotencyMaxItems == 0 {
		c.Broker.IdempotencyMaxItems = 10000
	}
	if c.Broker.CircuitFailureThreshold == 0 {
		c.Broker.CircuitFailureThreshold = 5
	}
	if c.Broker.CircuitWindow == 0 {
		c.Broker.CircuitWindow = 60 * time.Second
	}
	if c.Broker.CircuitCooldown == 0 {
		c.Broker.CircuitCooldown = 30 * time.Second
	}
	if c.Broker.CircuitHalfOpenMaxCalls == 0 {
		c.Broker.CircuitHalfOpenMaxCalls = 1
	}
	if c.Extractor.ConfidenceThreshold == 0 {
		c.Extractor.ConfidenceThreshold = 0.7
	}
	if c.Planner.MaxActions == 0 {
		c.Planner.MaxActions = 3
	}
}
