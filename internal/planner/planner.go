// Package planner decides which tools to invoke, in what order, with what
// arguments, from an ExtractorOutput. It never produces user-facing text.
package planner

import (
	"context"
	"encoding/json"

	"github.com/pulpoai/agentcore/internal/manifest"
	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/internal/oracle"
	"github.com/pulpoai/agentcore/pkg/types"
)

const (
	temperature = 0.2
	maxTokens   = 400
	maxActions  = 3
)

// AllowedTools is the closed set of tool names the Planner may emit,
// independent of (and intersected with) whatever a vertical's manifest
// happens to load.
var AllowedTools = map[string]bool{
	"get_available_services":    true,
	"get_business_hours":        true,
	"check_service_availability": true,
	"book_appointment":          true,
	"cancel_appointment":        true,
	"find_appointment_by_phone": true,
	"get_service_packages":      true,
	"get_active_promotions":     true,
}

// Planner produces a PlanOutput from an ExtractorOutput, calling an Oracle
// and falling back to a deterministic rule table whenever the oracle errors
// or its output fails schema validation.
type Planner struct {
	Oracle  oracle.Oracle
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

func New(o oracle.Oracle, logger *observability.Logger, metrics *observability.Metrics) *Planner {
	return &Planner{Oracle: o, Logger: logger, Metrics: metrics}
}

// Plan builds an ordered list of (tool, args) actions. manifestTools is the
// vertical's declared tool set; only the intersection with AllowedTools is
// ever offered to the oracle or accepted from it.
func (p *Planner) Plan(ctx context.Context, extracted types.ExtractorOutput, manifestTools []string, workspaceID string) types.PlanOutput {
	allowed := intersectAllowed(manifestTools)

	userPrompt := buildUserPrompt(extracted, allowed, workspaceID)

	raw, err := p.Oracle.GenerateJSON(ctx, systemPrompt, userPrompt, manifest.PlannerSchemaJSON, temperature, maxTokens)
	if err != nil {
		p.Logger.Warn(ctx, "planner: oracle call failed, using fallback", "error", err)
		p.recordFallback(workspaceID)
		return fallbackPlan(extracted, workspaceID)
	}

	sanitized, err := sanitize(raw, workspaceID, allowed)
	if err != nil {
		p.Logger.Warn(ctx, "planner: failed to sanitize oracle output, using fallback", "error", err)
		p.recordFallback(workspaceID)
		return fallbackPlan(extracted, workspaceID)
	}

	if err := manifest.PlannerSchema.Validate(toAny(sanitized)); err != nil {
		p.Logger.Warn(ctx, "planner: schema validation failed, using fallback", "error", err)
		p.recordFallback(workspaceID)
		return fallbackPlan(extracted, workspaceID)
	}

	var decoded wirePlan
	if err := json.Unmarshal(sanitized, &decoded); err != nil {
		p.Logger.Warn(ctx, "planner: failed to decode sanitized plan, using fallback", "error", err)
		p.recordFallback(workspaceID)
		return fallbackPlan(extracted, workspaceID)
	}

	return decoded.toPlanOutput()
}

func (p *Planner) recordFallback(workspaceID string) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.PlannerFallbackTotal.WithLabelValues(workspaceID).Inc()
}

type wireAction struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

type wirePlan struct {
	PlanVersion       string       `json:"plan_version,omitempty"`
	Actions           []wireAction `json:"actions"`
	NeedsConfirmation bool         `json:"needs_confirmation,omitempty"`
	MissingSlots      []string     `json:"missing_slots,omitempty"`
	Confidence        *float64     `json:"confidence,omitempty"`
}

func (w wirePlan) toPlanOutput() types.PlanOutput {
	actions := make([]types.PlanAction, len(w.Actions))
	for i, a := range w.Actions {
		actions[i] = types.PlanAction{Tool: a.Tool, Args: a.Args}
	}
	confidence := 0.0
	if w.Confidence != nil {
		confidence = *w.Confidence
	}
	return types.PlanOutput{
		PlanVersion:       w.PlanVersion,
		Actions:           actions,
		NeedsConfirmation: w.NeedsConfirmation,
		MissingSlots:      w.MissingSlots,
		Confidence:        confidence,
	}
}

func intersectAllowed(manifestTools []string) []string {
	out := make([]string, 0, len(manifestTools))
	for _, t := range manifestTools {
		if AllowedTools[t] {
			out = append(out, t)
		}
	}
	return out
}

func toAny(raw json.RawMessage) any {
	var v any
	_ = json.Unmarshal(raw, &v)
	return v
}

// sanitize enforces the invariants the planner owns regardless of what the
// oracle returned: only allowed tools, at most maxActions entries, every
// action's args carrying workspace_id, and no duplicate (tool, args) pairs.
func sanitize(raw json.RawMessage, workspaceID string, allowed []string) (json.RawMessage, error) {
	var plan wirePlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, err
	}
	if plan.PlanVersion == "" {
		plan.PlanVersion = "v1"
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = true
	}

	seen := map[string]bool{}
	seenTools := map[string]bool{}
	cleaned := make([]wireAction, 0, len(plan.Actions))
	for i, a := range plan.Actions {
		if i >= maxActions {
			break
		}
		if !allowedSet[a.Tool] {
			continue
		}
		if precursor, ok := requiredPrecursor[a.Tool]; ok && !seenTools[precursor] {
			continue
		}
		args := a.Args
		if args == nil {
			args = map[string]any{}
		}
		if _, ok := args["workspace_id"]; !ok {
			args["workspace_id"] = workspaceID
		}
		key := dedupeKey(a.Tool, args)
		if seen[key] {
			continue
		}
		seen[key] = true
		seenTools[a.Tool] = true
		cleaned = append(cleaned, wireAction{Tool: a.Tool, Args: args})
	}
	plan.Actions = cleaned

	return json.Marshal(plan)
}

// requiredPrecursor maps a write tool to the read tool that must already
// appear earlier in the same plan before it is accepted.
var requiredPrecursor = map[string]string{
	"book_appointment": "check_service_availability",
}

func dedupeKey(tool string, args map[string]any) string {
	b, _ := json.Marshal(args)
	return tool + ":" + string(b)
}
