package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulpoai/agentcore/internal/broker"
	"github.com/pulpoai/agentcore/internal/extractor"
	"github.com/pulpoai/agentcore/internal/manifest"
	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/internal/oracle"
	"github.com/pulpoai/agentcore/internal/planner"
	"github.com/pulpoai/agentcore/internal/policyengine"
	"github.com/pulpoai/agentcore/internal/reducer"
	"github.com/pulpoai/agentcore/pkg/types"
)

const servicesManifestYAML = `
vertical: services
version: "1"
tools:
  - name: get_available_services
    description: list services
    scope: read
    tier_required: basic
    rate_limit_per_min: 20
    transport:
      kind: internal
      internal_name: get_available_services
      retry_safe: true
  - name: check_service_availability
    description: check availability
    scope: read
    tier_required: basic
    transport:
      kind: internal
      internal_name: check_service_availability
  - name: book_appointment
    description: book an appointment
    scope: write
    tier_required: basic
    transport:
      kind: internal
      internal_name: book_appointment
`

func newTestOrchestrator(t *testing.T, extractorOracle, plannerOracle oracle.Oracle) (*Orchestrator, *manifest.Registry) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "services.yaml"), []byte(servicesManifestYAML), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	registry, err := manifest.NewRegistry(dir, 0, 0, observability.MustNewLogger(observability.LogConfig{Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { registry.Close() })

	logger := observability.MustNewLogger(observability.LogConfig{Output: io.Discard})

	internalHandlers := map[string]broker.InternalHandler{
		"get_available_services": func(ctx context.Context, args map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"services":[{"name":"Corte de Cabello","price":25}]}`), nil
		},
		"check_service_availability": func(ctx context.Context, args map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"available_slots":["15:00"]}`), nil
		},
		"book_appointment": func(ctx context.Context, args map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"booking_id":"B1","confirmation_code":"C1","appointment_date":"2026-08-01","appointment_time":"15:00"}`), nil
		},
	}

	b := broker.New(broker.Config{
		DefaultConcurrency:      4,
		DefaultMaxRetries:       1,
		MaxBodyMB:               1,
		IdempotencyTTL:          0,
		IdempotencyMaxItems:     100,
		CircuitFailureThreshold: 5,
		CircuitHalfOpenMaxCalls: 1,
	}, nil, internalHandlers, observability.NewMetrics(), logger)

	metrics := observability.NewMetrics()
	o := New(
		extractor.New(extractorOracle, 0.7, logger, metrics),
		planner.New(plannerOracle, logger, metrics),
		policyengine.New(),
		b,
		reducer.New(0),
		registry,
		logger,
		metrics,
	)
	return o, registry
}

func TestDecide_InfoServicesEndToEnd(t *testing.T) {
	extractorResp := oracle.NewScripted(oracle.ScriptedResponse{
		JSON: json.RawMessage(`{"intent":"info_services","slots":{},"confidence":0.95,"reasoning":"test"}`),
	})
	plannerResp := oracle.NewScripted(oracle.ScriptedResponse{
		JSON: json.RawMessage(`{"actions":[{"tool":"get_available_services","args":{}}]}`),
	})

	o, _ := newTestOrchestrator(t, extractorResp, plannerResp)

	snapshot := types.ConversationSnapshot{
		ConversationID: "conv1",
		WorkspaceID:    "ws1",
		Vertical:       types.VerticalServices,
		UserInput:      "que servicios tienen?",
		Slots:          map[types.CanonicalSlotName]string{},
	}
	workspace := types.Workspace{ID: "ws1", Vertical: types.VerticalServices, Tier: types.TierBasic, Status: types.WorkspaceActive, Policy: types.DefaultWorkspacePolicy()}

	resp, err := o.Decide(context.Background(), snapshot, workspace)
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if resp.Assistant == "" {
		t.Error("expected non-empty assistant reply")
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "get_available_services" {
		t.Errorf("ToolCalls = %+v", resp.ToolCalls)
	}
}

func TestDecide_UnknownVerticalFailsSafe(t *testing.T) {
	extractorResp := oracle.NewScripted()
	plannerResp := oracle.NewScripted()
	o, _ := newTestOrchestrator(t, extractorResp, plannerResp)

	snapshot := types.ConversationSnapshot{ConversationID: "conv1", WorkspaceID: "ws1", Vertical: types.VerticalGastronomy, UserInput: "hola"}
	workspace := types.Workspace{ID: "ws1", Vertical: types.VerticalGastronomy, Tier: types.TierBasic, Status: types.WorkspaceActive, Policy: types.DefaultWorkspacePolicy()}

	resp, err := o.Decide(context.Background(), snapshot, workspace)
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if resp.NextAction != types.NextAskHuman {
		t.Errorf("NextAction = %v, want NextAskHuman", resp.NextAction)
	}
}

func TestDecide_GreetingIsNextGreet(t *testing.T) {
	extractorResp := oracle.NewScripted(oracle.ScriptedResponse{
		JSON: json.RawMessage(`{"intent":"greeting","slots":{},"confidence":0.99,"reasoning":"test"}`),
	})
	plannerResp := oracle.NewScripted(oracle.ScriptedResponse{
		JSON: json.RawMessage(`{"actions":[]}`),
	})
	o, _ := newTestOrchestrator(t, extractorResp, plannerResp)

	snapshot := types.ConversationSnapshot{ConversationID: "conv1", WorkspaceID: "ws1", Vertical: types.VerticalServices, UserInput: "hola"}
	workspace := types.Workspace{ID: "ws1", Vertical: types.VerticalServices, Tier: types.TierBasic, Status: types.WorkspaceActive, Policy: types.DefaultWorkspacePolicy()}

	resp, err := o.Decide(context.Background(), snapshot, workspace)
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if resp.NextAction != types.NextGreet {
		t.Errorf("NextAction = %v, want NextGreet", resp.NextAction)
	}
}

func TestDecide_BookingCompleteEndsConversation(t *testing.T) {
	extractorResp := oracle.NewScripted(oracle.ScriptedResponse{
		JSON: json.RawMessage(`{"intent":"book","slots":{"service_type":"corte"},"confidence":0.95,"reasoning":"test"}`),
	})
	plannerResp := oracle.NewScripted(oracle.ScriptedResponse{
		JSON: json.RawMessage(`{"actions":[{"tool":"check_service_availability","args":{"service_type":"corte"}},{"tool":"book_appointment","args":{"service_type":"corte"}}]}`),
	})

	o, _ := newTestOrchestrator(t, extractorResp, plannerResp)

	snapshot := types.ConversationSnapshot{
		ConversationID: "conv1",
		WorkspaceID:    "ws1",
		Vertical:       types.VerticalServices,
		UserInput:      "confirmo el turno",
		Slots:          map[types.CanonicalSlotName]string{},
	}
	workspace := types.Workspace{ID: "ws1", Vertical: types.VerticalServices, Tier: types.TierBasic, Status: types.WorkspaceActive, Policy: types.DefaultWorkspacePolicy()}

	resp, err := o.Decide(context.Background(), snapshot, workspace)
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if !strings.HasPrefix(resp.Assistant, "¡Listo!") {
		t.Fatalf("Assistant = %q, want prefix ¡Listo!", resp.Assistant)
	}
	if !resp.End {
		t.Error("End = false, want true on completed booking")
	}
}
