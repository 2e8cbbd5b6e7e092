// Package policyengine is the per-action gate between the Planner and the
// Tool Broker: a declarative, short-circuiting check sequence against tenant
// tier, scopes, slot requirements, argument schemas, rate limits, and
// ordering constraints.
package policyengine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/pulpoai/agentcore/internal/manifest"
	"github.com/pulpoai/agentcore/internal/slots"
	"github.com/pulpoai/agentcore/pkg/types"
)

// DefaultRateLimitForTier is the manifest author's fallback when a ToolSpec
// omits rate_limit_per_min: free/pro/enterprise per-workspace req/min
// budgets mapped onto basic/pro/max.
func DefaultRateLimitForTier(tier types.Tier) int {
	switch tier {
	case types.TierPro:
		return 100
	case types.TierMax:
		return 500
	default:
		return 20
	}
}

// Engine evaluates PlanActions against a workspace's manifest and policy. It
// owns the process-wide sliding-window rate-limit counters; everything else
// is pure with respect to its inputs.
type Engine struct {
	rateLimiter *rateLimiter
}

func New() *Engine {
	return &Engine{rateLimiter: newRateLimiter()}
}

// EvaluatePlan runs the plan-level max_tool_calls check, then evaluates each
// action independently (short-circuiting within an action, not across
// actions: a DENY on one action does not affect the others).
func (e *Engine) EvaluatePlan(
	actions []types.PlanAction,
	extractorConfidence float64,
	state types.ConversationSnapshot,
	workspace types.Workspace,
	tm *types.ToolManifest,
	now time.Time,
) []types.PolicyResult {
	results := make([]types.PolicyResult, len(actions))

	maxCalls := workspace.Policy.MaxToolCalls
	if maxCalls <= 0 {
		maxCalls = 3
	}
	if len(actions) > maxCalls {
		reason := fmt.Sprintf("plan exceeds max_tool_calls (%d > %d)", len(actions), maxCalls)
		for i := range actions {
			results[i] = types.PolicyResult{Decision: types.PolicyDeny, Reason: reason, Why: reason}
		}
		return results
	}

	for i, action := range actions {
		results[i] = e.evaluateAction(action, extractorConfidence, state, workspace, tm, now)
	}
	return results
}

func (e *Engine) evaluateAction(
	action types.PlanAction,
	extractorConfidence float64,
	state types.ConversationSnapshot,
	workspace types.Workspace,
	tm *types.ToolManifest,
	now time.Time,
) types.PolicyResult {
	manifestVersion := ""
	if tm != nil {
		manifestVersion = tm.Version
	}

	// 1. Tool exists in loaded manifest.
	tool, ok := tm.Lookup(action.Tool)
	if !ok {
		return deny("unknown tool: "+action.Tool, manifestVersion)
	}

	// 2. Normalize args via the canonical-slot normalizers.
	normalizedArgs, validationErrs := normalizeArgs(action.Args, now, workspace.Timezone)
	if len(validationErrs) > 0 {
		r := deny("argument normalization failed", manifestVersion)
		r.ValidationErrors = validationErrs
		return r
	}

	// 3. Tier gate.
	if !workspace.Tier.Satisfies(tool.TierRequired) {
		return deny(fmt.Sprintf("needs upgrade_tier_%s", tool.TierRequired), manifestVersion)
	}

	// 4. Forbid patterns.
	for _, pattern := range workspace.Policy.ForbidPatterns {
		re, err := regexp.Compile(pattern)
		if err == nil && re.MatchString(action.Tool) {
			return deny("tool forbidden by workspace policy: "+action.Tool, manifestVersion)
		}
	}

	// 5. Scope gate.
	if (tool.Scope == types.ScopeWrite || tool.Scope == types.ScopeAdmin) && workspace.Status != types.WorkspaceActive {
		return deny("workspace is not active, write/admin tools disabled", manifestVersion)
	}

	// 6. Required slots.
	var missingSlots []string
	for _, name := range tool.RequiresSlots {
		val, ok := state.Slots[types.CanonicalSlotName(name)]
		if !ok || val == "" {
			missingSlots = append(missingSlots, name)
		}
	}
	if len(missingSlots) > 0 {
		r := types.PolicyResult{
			Decision:        types.PolicyAskClarification,
			Reason:          "missing required slots",
			Why:             "missing required slots",
			MissingSlots:    missingSlots,
			Needs:           missingSlots,
			NormalizedArgs:  normalizedArgs,
			ManifestVersion: manifestVersion,
		}
		return r
	}

	// 7. Argument schema.
	if err := validateArgsSchema(tool, normalizedArgs); err != nil {
		r := deny("argument schema validation failed: "+err.Error(), manifestVersion)
		r.ValidationErrors = []string{err.Error()}
		return r
	}

	// 8. Rate limit: sliding 60-second window per (workspace_id, tool_name).
	limit := tool.RateLimitPerMin
	if limit <= 0 {
		limit = DefaultRateLimitForTier(workspace.Tier)
	}
	if !e.rateLimiter.allow(workspace.ID, action.Tool, limit, now) {
		return deny("rate limit exceeded", manifestVersion)
	}

	// 9. tools_first ordering.
	if !toolsFirstSatisfied(action.Tool, workspace.Policy.ToolsFirst, state.CalledTools) {
		return deny("tools_first ordering not satisfied", manifestVersion)
	}

	// min_confidence: downgrade write actions when extractor confidence is low.
	if tool.Scope == types.ScopeWrite && extractorConfidence < workspace.Policy.MinConfidence {
		return types.PolicyResult{
			Decision:        types.PolicyAskClarification,
			Reason:          "extractor confidence below workspace minimum for a write action",
			Why:             "extractor confidence below workspace minimum for a write action",
			NormalizedArgs:  normalizedArgs,
			ManifestVersion: manifestVersion,
		}
	}

	return types.PolicyResult{
		Decision:        types.PolicyAllow,
		NormalizedArgs:  normalizedArgs,
		ManifestVersion: manifestVersion,
	}
}

func deny(reason, manifestVersion string) types.PolicyResult {
	return types.PolicyResult{Decision: types.PolicyDeny, Reason: reason, Why: reason, ManifestVersion: manifestVersion}
}

func normalizeArgs(args map[string]any, now time.Time, tz string) (map[string]any, []string) {
	out := make(map[string]any, len(args))
	var errs []string
	for k, v := range args {
		str, isString := v.(string)
		name := types.CanonicalSlotName(k)
		if !isString {
			out[k] = v
			continue
		}
		if _, known := slots.Lookup(name); !known {
			out[k] = v
			continue
		}
		normalized, err := slots.Normalize(name, str, now, tz)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", k, err))
			continue
		}
		out[k] = normalized
	}
	return out, errs
}

func validateArgsSchema(tool types.ToolSpec, args map[string]any) error {
	schema, err := manifest.CompileArgsSchema(tool.Name, tool.ArgsSchema)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

func toolsFirstSatisfied(tool string, toolsFirst []string, calledTools []string) bool {
	if len(toolsFirst) == 0 {
		return true
	}
	for _, t := range toolsFirst {
		if t == tool {
			return true
		}
	}
	called := make(map[string]bool, len(calledTools))
	for _, t := range calledTools {
		called[t] = true
	}
	for _, required := range toolsFirst {
		if !called[required] {
			return false
		}
	}
	return true
}
