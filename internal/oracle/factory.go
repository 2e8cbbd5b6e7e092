package oracle

import "fmt"

// Config selects and parameterizes a generate_json backend by name, mirroring
// the shape callers load from process configuration.
type Config struct {
	Backend   string
	Model     string
	APIKey    string
	BaseURL   string
}

// New builds an Oracle from a backend name: "anthropic", "openai", or
// "scripted". "scripted" returns an empty Scripted oracle with no queued
// responses, meant to be reconfigured by its caller (tests) or left
// deliberately unreachable (dev/offline mode).
func New(cfg Config) (Oracle, error) {
	switch cfg.Backend {
	case "anthropic":
		return NewAnthropicOracle(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "openai":
		return NewOpenAIOracle(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "scripted", "":
		return NewScripted(), nil
	default:
		return nil, fmt.Errorf("oracle: unknown backend %q", cfg.Backend)
	}
}
