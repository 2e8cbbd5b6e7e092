// Package extractor maps a raw user utterance to a validated
// ExtractorOutput: intent classification plus canonical slot extraction.
package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pulpoai/agentcore/internal/manifest"
	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/internal/oracle"
	"github.com/pulpoai/agentcore/internal/slots"
	"github.com/pulpoai/agentcore/pkg/types"
)

const (
	temperature = 0.1
	maxTokens   = 300
)

// Extractor turns an utterance into an ExtractorOutput, calling an Oracle
// and falling back to a keyword heuristic whenever the oracle errors or its
// output fails schema validation.
type Extractor struct {
	Oracle              oracle.Oracle
	ConfidenceThreshold float64
	Logger              *observability.Logger
	Metrics             *observability.Metrics
}

func New(o oracle.Oracle, confidenceThreshold float64, logger *observability.Logger, metrics *observability.Metrics) *Extractor {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.7
	}
	return &Extractor{Oracle: o, ConfidenceThreshold: confidenceThreshold, Logger: logger, Metrics: metrics}
}

// Hints carries tenant-specific context available to the prompt builder,
// e.g. a cached list of service names for the current workspace.
type Hints struct {
	AvailableServices []string
}

// Extract classifies intent and extracts canonical slots from utterance.
// now and tz drive relative-date normalization. workspaceID only labels the
// fallback metric; it never affects extraction behavior.
func (e *Extractor) Extract(ctx context.Context, utterance string, hints Hints, now time.Time, tz string, workspaceID string) (types.ExtractorOutput, error) {
	if strings.TrimSpace(utterance) == "" {
		return types.ExtractorOutput{Intent: types.IntentOther, Slots: map[types.CanonicalSlotName]string{}, Confidence: 1.0, Reasoning: "empty input"}, nil
	}

	prompt := buildPrompt(utterance, hints, now)

	raw, err := e.Oracle.GenerateJSON(ctx, prompt, "", manifest.ExtractorSchemaJSON, temperature, maxTokens)
	if err != nil {
		e.Logger.Warn(ctx, "extractor: oracle call failed, using fallback", "error", err)
		e.recordFallback(workspaceID)
		return e.fallback(utterance), nil
	}

	if err := manifest.ExtractorSchema.Validate(toAny(raw)); err != nil {
		e.Logger.Warn(ctx, "extractor: schema validation failed, using fallback", "error", err)
		e.recordFallback(workspaceID)
		return e.fallback(utterance), nil
	}

	var decoded wireOutput
	if err := json.Unmarshal(raw, &decoded); err != nil {
		e.Logger.Warn(ctx, "extractor: failed to decode oracle output, using fallback", "error", err)
		e.recordFallback(workspaceID)
		return e.fallback(utterance), nil
	}

	normalized := normalizeSlots(decoded.Slots, now, tz)

	output := types.ExtractorOutput{
		Intent:     types.Intent(decoded.Intent),
		Slots:      normalized,
		Confidence: decoded.Confidence,
		Reasoning:  decoded.Reasoning,
	}

	if output.Confidence < e.ConfidenceThreshold {
		e.Logger.Warn(ctx, "extractor: low confidence output", "confidence", output.Confidence, "intent", output.Intent)
	}

	return output, nil
}

func (e *Extractor) recordFallback(workspaceID string) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.ExtractorFallbackTotal.WithLabelValues(workspaceID).Inc()
}

type wireOutput struct {
	Intent     string             `json:"intent"`
	Slots      map[string]*string `json:"slots"`
	Confidence float64            `json:"confidence"`
	Reasoning  string             `json:"reasoning"`
}

func normalizeSlots(raw map[string]*string, now time.Time, tz string) map[types.CanonicalSlotName]string {
	out := map[types.CanonicalSlotName]string{}
	for key, val := range raw {
		if val == nil {
			continue
		}
		name := types.CanonicalSlotName(key)
		if _, ok := slots.Lookup(name); !ok {
			continue
		}
		normalized, err := slots.Normalize(name, *val, now, tz)
		if err != nil {
			continue
		}
		out[name] = normalized
	}
	return out
}

func toAny(raw json.RawMessage) any {
	var v any
	_ = json.Unmarshal(raw, &v)
	return v
}
