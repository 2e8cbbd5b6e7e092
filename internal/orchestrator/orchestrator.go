// Package orchestrator composes the Extractor, Planner, Policy Engine, Tool
// Broker, State Reducer, and NLG stages into one per-turn Decide call. It is
// the only package that knows about all six stages; each stage package
// knows only its own inputs and outputs.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulpoai/agentcore/internal/broker"
	"github.com/pulpoai/agentcore/internal/extractor"
	"github.com/pulpoai/agentcore/internal/manifest"
	"github.com/pulpoai/agentcore/internal/nlg"
	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/internal/planner"
	"github.com/pulpoai/agentcore/internal/policyengine"
	"github.com/pulpoai/agentcore/internal/reducer"
	"github.com/pulpoai/agentcore/pkg/types"
)

// Orchestrator wires the six pipeline stages together behind a single
// Decide call. Workspace and tool-manifest lookup are injected so the
// caller controls tenant resolution and hot-reload.
type Orchestrator struct {
	Extractor  *extractor.Extractor
	Planner    *planner.Planner
	Policy     *policyengine.Engine
	Broker     *broker.Broker
	Reducer    *reducer.Reducer
	Manifests  *manifest.Registry
	Logger     *observability.Logger
	Metrics    *observability.Metrics
}

// New constructs an Orchestrator from its already-constructed stages.
func New(e *extractor.Extractor, p *planner.Planner, policy *policyengine.Engine, b *broker.Broker, r *reducer.Reducer, manifests *manifest.Registry, logger *observability.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{Extractor: e, Planner: p, Policy: policy, Broker: b, Reducer: r, Manifests: manifests, Logger: logger, Metrics: metrics}
}

// Decide runs one conversational turn end to end: extract intent and
// slots, plan tool calls, gate them through policy, execute the allowed
// ones, fold the results into state, and render a reply. It never panics
// back to its caller; any stage failure degrades to a safe fallback
// response instead.
func (o *Orchestrator) Decide(ctx context.Context, snapshot types.ConversationSnapshot, workspace types.Workspace) (resp types.DecideResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.Logger.Error(ctx, "orchestrator: recovered from panic", "panic", r, "conversation_id", snapshot.ConversationID)
			resp = types.DecideResponse{
				Assistant:  "Tuvimos un problema procesando tu mensaje. ¿Podés repetirlo?",
				NextAction: types.NextAskHuman,
				Slots:      snapshot.Slots,
			}
			err = nil
		}
	}()

	requestID := uuid.NewString()
	ctx = observability.AddRequestID(ctx, requestID)
	ctx = observability.AddConversationID(ctx, snapshot.ConversationID)
	ctx = observability.AddWorkspaceID(ctx, workspace.ID)

	now := time.Now()

	tm, ok := o.Manifests.Get(workspace.Vertical)
	if !ok {
		o.Logger.Error(ctx, "orchestrator: no manifest for vertical", "vertical", workspace.Vertical)
		return types.DecideResponse{
			Assistant:  "No pude cargar la configuración de este negocio en este momento.",
			NextAction: types.NextAskHuman,
			Slots:      snapshot.Slots,
		}, nil
	}

	extracted, err := o.Extractor.Extract(ctx, snapshot.UserInput, extractor.Hints{}, now, workspace.Timezone, workspace.ID)
	if err != nil {
		o.Logger.Warn(ctx, "orchestrator: extractor error", "error", err)
	}
	o.Logger.Info(ctx, "intent_detected", "intent", string(extracted.Intent), "confidence", extracted.Confidence)

	manifestTools := make([]string, 0, len(tm.Tools))
	for _, t := range tm.Tools {
		manifestTools = append(manifestTools, t.Name)
	}

	plan := o.Planner.Plan(ctx, extracted, manifestTools, workspace.ID)
	o.Logger.Info(ctx, "plan_generated", "actions", len(plan.Actions), "needs_confirmation", plan.NeedsConfirmation)

	policyResults := o.Policy.EvaluatePlan(plan.Actions, extracted.Confidence, snapshot, workspace, tm, now)

	state := make(map[string]any, len(snapshot.Slots))
	for k, v := range snapshot.Slots {
		state[string(k)] = v
	}

	var executed []types.ExecutedToolCall
	var observations []types.ToolObservation

	toolByName := make(map[string]types.ToolSpec, len(tm.Tools))
	for _, t := range tm.Tools {
		toolByName[t.Name] = t
	}

	for i, action := range plan.Actions {
		result := policyResults[i]
		o.Logger.Info(ctx, "policy_decision", "tool", action.Tool, "decision", string(result.Decision), "reason", result.Reason)

		if !result.IsAllowed() {
			continue
		}

		tool, ok := toolByName[action.Tool]
		if !ok {
			continue
		}

		args := action.Args
		if result.NormalizedArgs != nil {
			args = result.NormalizedArgs
		}

		o.Logger.Info(ctx, "tool_call_started", "tool", action.Tool)
		observation := o.Broker.Execute(ctx, tool, types.PlanAction{Tool: action.Tool, Args: args}, workspace.ID, snapshot.ConversationID, requestID, now)
		o.Logger.Info(ctx, "tool_call_finished", "tool", action.Tool, "status", string(observation.Status))

		observations = append(observations, observation)
		executed = append(executed, types.ExecutedToolCall{Name: action.Tool, Args: observation.Args})
	}

	patch := o.Reducer.ApplyAll(observations, state, workspace, snapshot.ConversationID)
	for k, v := range patch.SlotsPatch {
		state[k] = v
	}
	for _, k := range patch.SlotsToRemove {
		delete(state, k)
	}
	o.Logger.Info(ctx, "state_patch_applied", "changed_keys", len(patch.SlotsPatch), "confidence", patch.ConfidenceScore)

	reply := nlg.Generate(extracted, plan, state)

	outSlots := make(map[types.CanonicalSlotName]string, len(extracted.Slots))
	for k, v := range snapshot.Slots {
		outSlots[k] = v
	}
	for k, v := range extracted.Slots {
		outSlots[k] = v
	}

	resp = types.DecideResponse{
		Assistant:  reply,
		NextAction: nextAction(extracted, plan, policyResults),
		ToolCalls:  executed,
		Slots:      outSlots,
		End:        isTurnComplete(reply),
	}
	o.recordTurn(workspace.ID, string(extracted.Intent))
	o.Logger.Info(ctx, "response_emitted", "next_action", string(resp.NextAction))
	return resp, nil
}

func (o *Orchestrator) recordTurn(workspaceID, intent string) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.TurnsTotal.WithLabelValues(workspaceID, intent).Inc()
}

// isTurnComplete reports whether reply signals that the conversational goal
// for this turn was reached (a booking or cancellation confirmation), rather
// than leaving the turn open for more slot-filling or follow-up.
func isTurnComplete(reply string) bool {
	return strings.HasPrefix(reply, "¡Listo!") || strings.HasPrefix(reply, "Turno cancelado")
}

func nextAction(extracted types.ExtractorOutput, plan types.PlanOutput, results []types.PolicyResult) types.NextAction {
	if extracted.Intent == types.IntentGreeting {
		return types.NextGreet
	}
	for _, r := range results {
		if r.Decision == types.PolicyAskClarification {
			return types.NextSlotFill
		}
	}
	if plan.NeedsConfirmation {
		return types.NextSlotFill
	}
	if len(plan.Actions) > 0 {
		return types.NextExecuteAction
	}
	return types.NextAnswer
}
