// Package oracle defines the pluggable generate_json capability the
// Extractor and Planner depend on ("Oracle as
// pluggable capability"). No oracle-specific type leaks into pkg/types or
// any other package: callers pass and receive only strings and
// json.RawMessage.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrOracle wraps any failure from a generate_json call: network errors,
// non-2xx responses, or the backend's own refusal to produce JSON. Callers
// (Extractor, Planner) never branch on it beyond "oracle failed, degrade to
// fallback" — the taxonomy lives in the component that calls the oracle, not
// here.
var ErrOracle = errors.New("oracle: generate_json failed")

// Oracle is the one capability Extractor and Planner consume from an LLM
// backend. It is assumed stateless: called once per Extractor invocation and
// once per Planner invocation.
type Oracle interface {
	// GenerateJSON calls the backend with systemPrompt/userPrompt and asks it
	// to emit JSON conforming to schema (a JSON Schema document). temperature
	// and maxTokens are passed through to the backend. The returned bytes are
	// a JSON value; callers still validate it against schema themselves —
	// GenerateJSON is not required to validate, only to attempt compliance.
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, schema json.RawMessage, temperature float64, maxTokens int) (json.RawMessage, error)
}
