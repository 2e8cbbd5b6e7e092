// Package reducer folds ToolObservations from the Broker into
// ConversationStatePatches: the only place tool results become
// conversational state.
package reducer

import (
	"fmt"
	"sync"

	"github.com/pulpoai/agentcore/pkg/types"
)

const defaultMaxObservations = 5

// Reducer applies ToolObservations to per-turn state. It holds no
// conversational state itself beyond the bounded tool-call history it
// maintains per conversation id; slot values always flow back out as a
// patch for the caller to apply.
type Reducer struct {
	maxObservations int

	mu      sync.Mutex
	history map[string][]types.ToolObservation
}

// New constructs a Reducer. maxObservations bounds the per-conversation
// tool-call history it retains; 0 uses the default of 5.
func New(maxObservations int) *Reducer {
	if maxObservations <= 0 {
		maxObservations = defaultMaxObservations
	}
	return &Reducer{maxObservations: maxObservations, history: make(map[string][]types.ToolObservation)}
}

// Apply folds one observation into a patch against currentState, which is
// never mutated. conversationID scopes the reducer's own bounded history.
func (r *Reducer) Apply(observation types.ToolObservation, currentState map[string]any, workspace types.Workspace, conversationID string) types.ConversationStatePatch {
	patch := types.ConversationStatePatch{
		SlotsPatch:      map[string]any{},
		ConfidenceScore: 1.0,
	}

	switch observation.Status {
	case types.StatusDuplicate:
		patch.ChangeReasons = append(patch.ChangeReasons, fmt.Sprintf("Duplicate call to %s served from cache", observation.Tool))
		return patch

	case types.StatusCircuitOpen:
		patch.SlotsPatch[flagKey(observation.Tool, "circuit_open")] = true
		patch.SlotsPatch["_validation_errors"] = []string{fmt.Sprintf("Servicio %s temporalmente no disponible", observation.Tool)}
		patch.ChangeReasons = append(patch.ChangeReasons, fmt.Sprintf("%s circuit breaker open", observation.Tool))
		patch.ConfidenceScore = observationConfidence(observation)
		r.appendHistory(conversationID, observation)
		patch.LastObservations = r.snapshot(conversationID)
		return patch

	case types.StatusRateLimited:
		patch.SlotsPatch[flagKey(observation.Tool, "rate_limited")] = true
		patch.ChangeReasons = append(patch.ChangeReasons, fmt.Sprintf("%s rate limited", observation.Tool))
		patch.ConfidenceScore = observationConfidence(observation)
		r.appendHistory(conversationID, observation)
		patch.LastObservations = r.snapshot(conversationID)
		return patch

	case types.StatusTimeout, types.StatusFailure:
		patch.SlotsPatch[flagKey(observation.Tool, "success")] = false
		patch.SlotsPatch[flagKey(observation.Tool, "last_run")] = observation.Timestamp
		if observation.Error != "" {
			patch.SlotsPatch[flagKey(observation.Tool, "error")] = observation.Error
			patch.SlotsPatch["_validation_errors"] = []string{fmt.Sprintf("Error ejecutando %s: %s", observation.Tool, observation.Error)}
		}
		patch.ChangeReasons = append(patch.ChangeReasons, fmt.Sprintf("%s failed: %s", observation.Tool, observation.Error))
		patch.ConfidenceScore = observationConfidence(observation)
		r.appendHistory(conversationID, observation)
		patch.LastObservations = r.snapshot(conversationID)
		return patch
	}

	// SUCCESS
	patch.SlotsPatch[flagKey(observation.Tool, "success")] = true
	patch.SlotsPatch[flagKey(observation.Tool, "last_run")] = observation.Timestamp
	patch.ChangeReasons = append(patch.ChangeReasons, fmt.Sprintf("%s executed successfully", observation.Tool))

	extractResult(observation, &patch)

	patch.ConfidenceScore = observationConfidence(observation)

	r.appendHistory(conversationID, observation)
	patch.LastObservations = r.snapshot(conversationID)
	return patch
}

// ApplyAll folds a batch of observations, merging their slot patches in
// order (later observations' keys win on collision). The batch's confidence
// score is a single running product seeded at 1.0: multiplied by 0.7 for
// each failing observation in the batch, and by 0.9 (once, regardless of
// how many observations qualify) if any observation's execution_time_ms
// exceeds 10s.
func (r *Reducer) ApplyAll(observations []types.ToolObservation, currentState map[string]any, workspace types.Workspace, conversationID string) types.ConversationStatePatch {
	merged := types.ConversationStatePatch{SlotsPatch: map[string]any{}, ConfidenceScore: 1.0}
	anySlow := false
	for _, obs := range observations {
		p := r.Apply(obs, currentState, workspace, conversationID)
		for k, v := range p.SlotsPatch {
			merged.SlotsPatch[k] = v
		}
		merged.SlotsToRemove = append(merged.SlotsToRemove, p.SlotsToRemove...)
		merged.CacheInvalidationKeys = append(merged.CacheInvalidationKeys, p.CacheInvalidationKeys...)
		merged.ChangeReasons = append(merged.ChangeReasons, p.ChangeReasons...)
		if isFailingStatus(obs.Status) {
			merged.ConfidenceScore *= 0.7
		}
		if obs.ExecutionTimeMS > 10000 {
			anySlow = true
		}
	}
	if anySlow {
		merged.ConfidenceScore *= 0.9
	}
	merged.LastObservations = r.snapshot(conversationID)
	return merged
}

// isFailingStatus reports whether status counts as a failing observation for
// confidence-scoring purposes. DUPLICATE is a cache hit on a prior success,
// not a failure.
func isFailingStatus(status types.ToolStatus) bool {
	switch status {
	case types.StatusCircuitOpen, types.StatusRateLimited, types.StatusFailure, types.StatusTimeout:
		return true
	default:
		return false
	}
}

// observationConfidence scores a single observation as a batch of one,
// applying the same running-product formula ApplyAll uses across a batch.
func observationConfidence(observation types.ToolObservation) float64 {
	confidence := 1.0
	if isFailingStatus(observation.Status) {
		confidence *= 0.7
	}
	if observation.ExecutionTimeMS > 10000 {
		confidence *= 0.9
	}
	return confidence
}

func flagKey(tool, suffix string) string {
	return fmt.Sprintf("_tool_%s_%s", tool, suffix)
}

func (r *Reducer) appendHistory(conversationID string, observation types.ToolObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := append(r.history[conversationID], observation)
	if len(h) > r.maxObservations {
		h = h[len(h)-r.maxObservations:]
	}
	r.history[conversationID] = h
}

func (r *Reducer) snapshot(conversationID string) []types.ToolObservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.history[conversationID]
	out := make([]types.ToolObservation, len(h))
	copy(out, h)
	return out
}

// History returns the reducer's bounded tool-call history for a
// conversation, most recent last.
func (r *Reducer) History(conversationID string) []types.ToolObservation {
	return r.snapshot(conversationID)
}
