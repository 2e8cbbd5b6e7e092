// Package manifest loads per-vertical tool manifests from YAML, resolving
// $include directives the same way internal/config does, and compiles each
// tool's args_schema up front so a malformed manifest fails at load time
// rather than on the first call.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pulpoai/agentcore/internal/config"
	"github.com/pulpoai/agentcore/pkg/types"
)

// rawManifest mirrors types.ToolManifest but keeps each tool's args_schema
// as a generic map so it can be re-marshaled to JSON for jsonschema/v5
// independently of the rest of the struct decode.
type rawManifest struct {
	Vertical types.Vertical `yaml:"vertical"`
	Version  string         `yaml:"version"`
	Tools    []rawTool      `yaml:"tools"`
}

type rawTool struct {
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	ArgsSchema    map[string]any `yaml:"args_schema"`
	RequiresSlots []string       `yaml:"requires_slots"`
	Scope         types.Scope    `yaml:"scope"`
	TierRequired  types.Tier     `yaml:"tier_required"`
	RateLimitPerMin int          `yaml:"rate_limit_per_min"`
	CostTokens    int            `yaml:"cost_tokens"`
	TimeoutMS     int            `yaml:"timeout_ms"`
	Transport     rawTransport   `yaml:"transport"`
}

type rawTransport struct {
	Kind            types.TransportKind `yaml:"kind"`
	URL             string              `yaml:"url"`
	Method          string              `yaml:"method"`
	TimeoutMS       int                 `yaml:"timeout_ms"`
	CacheTTLSeconds int                 `yaml:"cache_ttl_seconds"`
	RetrySafe       bool                `yaml:"retry_safe"`
	Auth            rawAuth             `yaml:"auth"`
	InternalName    string              `yaml:"internal_name"`
}

type rawAuth struct {
	Kind           types.AuthKind `yaml:"kind"`
	BearerTokenEnv string         `yaml:"bearer_token_env"`
	APIKeyHeader   string         `yaml:"api_key_header"`
	APIKeyValueEnv string         `yaml:"api_key_value_env"`
}

// Load reads a single vertical's tool manifest file, resolving $include
// directives and compiling each tool's args_schema.
func Load(path string) (*types.ToolManifest, error) {
	raw, err := config.LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to re-marshal %s: %w", path, err)
	}

	var decoded rawManifest
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	decoder.KnownFields(true)
	if err := decoder.Decode(&decoded); err != nil && err != io.EOF {
		return nil, fmt.Errorf("manifest: failed to parse %s: %w", path, err)
	}

	if strings.TrimSpace(string(decoded.Vertical)) == "" {
		return nil, fmt.Errorf("manifest: %s missing required vertical field", path)
	}

	tools := make([]types.ToolSpec, 0, len(decoded.Tools))
	for _, t := range decoded.Tools {
		spec, err := toToolSpec(t)
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: tool %q: %w", path, t.Name, err)
		}
		tools = append(tools, spec)
	}

	return &types.ToolManifest{Vertical: decoded.Vertical, Version: decoded.Version, Tools: tools}, nil
}

func toToolSpec(t rawTool) (types.ToolSpec, error) {
	if strings.TrimSpace(t.Name) == "" {
		return types.ToolSpec{}, fmt.Errorf("missing name")
	}

	var schemaBytes []byte
	if t.ArgsSchema != nil {
		var err error
		schemaBytes, err = json.Marshal(t.ArgsSchema)
		if err != nil {
			return types.ToolSpec{}, fmt.Errorf("invalid args_schema: %w", err)
		}
	} else {
		schemaBytes = []byte(`{"type":"object"}`)
	}

	if _, err := CompileArgsSchema(t.Name, schemaBytes); err != nil {
		return types.ToolSpec{}, err
	}

	return types.ToolSpec{
		Name:            t.Name,
		Description:     t.Description,
		ArgsSchema:      json.RawMessage(schemaBytes),
		RequiresSlots:   t.RequiresSlots,
		Scope:           t.Scope,
		TierRequired:    t.TierRequired,
		RateLimitPerMin: t.RateLimitPerMin,
		CostTokens:      t.CostTokens,
		TimeoutMS:       t.TimeoutMS,
		Transport: types.Transport{
			Kind:            t.Transport.Kind,
			URL:             t.Transport.URL,
			Method:          t.Transport.Method,
			TimeoutMS:       t.Transport.TimeoutMS,
			CacheTTLSeconds: t.Transport.CacheTTLSeconds,
			RetrySafe:       t.Transport.RetrySafe,
			InternalName:    t.Transport.InternalName,
			Auth: types.Auth{
				Kind:           t.Transport.Auth.Kind,
				BearerTokenEnv: t.Transport.Auth.BearerTokenEnv,
				APIKeyHeader:   t.Transport.Auth.APIKeyHeader,
				APIKeyValueEnv: t.Transport.Auth.APIKeyValueEnv,
			},
		},
	}, nil
}

// LoadDir loads every *.yaml/*.yml file directly under dir as a vertical
// manifest, keyed by its declared vertical.
func LoadDir(dir string) (map[types.Vertical]*types.ToolManifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	result := map[types.Vertical]*types.ToolManifest{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		m, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		result[m.Vertical] = m
	}
	return result, nil
}
