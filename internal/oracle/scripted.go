package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Scripted is a deterministic, in-memory Oracle for tests: it replays
// pre-programmed responses keyed by call order, or by a matcher over the
// user prompt. Production wires a real backend (AnthropicOracle,
// OpenAIOracle); tests substitute this one.
type Scripted struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	calls     int
}

// ScriptedResponse is one queued reply. If Match is set, it is tried against
// every call whose position hasn't already consumed a positional response;
// otherwise responses are consumed strictly in FIFO order.
type ScriptedResponse struct {
	Match  func(systemPrompt, userPrompt string) bool
	JSON   json.RawMessage
	Err    error
}

func NewScripted(responses ...ScriptedResponse) *Scripted {
	return &Scripted{responses: responses}
}

func (s *Scripted) GenerateJSON(_ context.Context, systemPrompt, userPrompt string, _ json.RawMessage, _ float64, _ int) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.responses {
		if r.Match != nil && !r.Match(systemPrompt, userPrompt) {
			continue
		}
		s.responses = append(s.responses[:i], s.responses[i+1:]...)
		s.calls++
		if r.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOracle, r.Err)
		}
		return r.JSON, nil
	}
	return nil, fmt.Errorf("%w: scripted oracle exhausted (call %d)", ErrOracle, s.calls+1)
}

// Calls reports how many GenerateJSON invocations have been served.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
