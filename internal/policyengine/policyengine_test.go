package policyengine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pulpoai/agentcore/pkg/types"
)

func testManifest() *types.ToolManifest {
	return &types.ToolManifest{
		Vertical: types.VerticalServices,
		Version:  "v1",
		Tools: []types.ToolSpec{
			{
				Name:          "get_available_services",
				Scope:         types.ScopeRead,
				TierRequired:  types.TierBasic,
				ArgsSchema:    json.RawMessage(`{"type":"object"}`),
				Transport:     types.Transport{Kind: types.TransportInternal, InternalName: "get_available_services"},
			},
			{
				Name:          "book_appointment",
				Scope:         types.ScopeWrite,
				TierRequired:  types.TierPro,
				RequiresSlots: []string{"service_type", "preferred_date", "preferred_time"},
				ArgsSchema:    json.RawMessage(`{"type":"object","required":["service_type"]}`),
				RateLimitPerMin: 2,
				Transport:     types.Transport{Kind: types.TransportInternal, InternalName: "book_appointment"},
			},
		},
	}
}

func baseWorkspace() types.Workspace {
	return types.Workspace{
		ID:       "ws1",
		Vertical: types.VerticalServices,
		Tier:     types.TierMax,
		Status:   types.WorkspaceActive,
		Policy:   types.DefaultWorkspacePolicy(),
	}
}

func TestEvaluateAction_UnknownToolDenied(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	action := types.PlanAction{Tool: "delete_everything", Args: map[string]any{}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, types.ConversationSnapshot{}, ws, tm, time.Now())
	if results[0].Decision != types.PolicyDeny {
		t.Fatalf("want deny, got %v (%s)", results[0].Decision, results[0].Reason)
	}
}

func TestEvaluateAction_TierGate(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	ws.Tier = types.TierBasic
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{"service_type": "Corte"}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, types.ConversationSnapshot{}, ws, tm, time.Now())
	if results[0].Decision != types.PolicyDeny {
		t.Fatalf("want deny for tier gate, got %v (%s)", results[0].Decision, results[0].Reason)
	}
}

func TestEvaluateAction_MissingSlotsAsksClarification(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{"service_type": "Corte"}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, types.ConversationSnapshot{Slots: map[types.CanonicalSlotName]string{}}, ws, tm, time.Now())
	r := results[0]
	if r.Decision != types.PolicyAskClarification {
		t.Fatalf("want ask_clarification, got %v", r.Decision)
	}
	if len(r.MissingSlots) != 3 {
		t.Fatalf("want 3 missing slots (service_type, date, time), got %v", r.MissingSlots)
	}
}

func TestEvaluateAction_AllowWhenSlotsPresent(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	snapshot := types.ConversationSnapshot{
		Slots: map[types.CanonicalSlotName]string{
			types.SlotServiceType:   "Corte",
			types.SlotPreferredDate: "2026-08-01",
			types.SlotPreferredTime: "15:00",
		},
	}
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{"service_type": "Corte"}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, snapshot, ws, tm, time.Now())
	if results[0].Decision != types.PolicyAllow {
		t.Fatalf("want allow, got %v (%s)", results[0].Decision, results[0].Reason)
	}
}

func TestEvaluateAction_LowConfidenceDowngradesWriteAction(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	snapshot := types.ConversationSnapshot{
		Slots: map[types.CanonicalSlotName]string{
			types.SlotServiceType:   "Corte",
			types.SlotPreferredDate: "2026-08-01",
			types.SlotPreferredTime: "15:00",
		},
	}
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{"service_type": "Corte"}}

	// Below DefaultWorkspacePolicy's MinConfidence (0.55).
	results := e.EvaluatePlan([]types.PlanAction{action}, 0.2, snapshot, ws, tm, time.Now())
	if results[0].Decision != types.PolicyAskClarification {
		t.Fatalf("want ask_clarification on low confidence, got %v", results[0].Decision)
	}
}

func TestEvaluateAction_ArgsSchemaViolationDenied(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	snapshot := types.ConversationSnapshot{
		Slots: map[types.CanonicalSlotName]string{
			types.SlotServiceType:   "Corte",
			types.SlotPreferredDate: "2026-08-01",
			types.SlotPreferredTime: "15:00",
		},
	}
	// book_appointment's args_schema requires service_type; omit it.
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, snapshot, ws, tm, time.Now())
	if results[0].Decision != types.PolicyDeny {
		t.Fatalf("want deny for schema violation, got %v (%s)", results[0].Decision, results[0].Reason)
	}
}

func TestEvaluateAction_ForbidPatterns(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	ws.Policy.ForbidPatterns = []string{"^get_available_.*"}
	action := types.PlanAction{Tool: "get_available_services", Args: map[string]any{}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, types.ConversationSnapshot{}, ws, tm, time.Now())
	if results[0].Decision != types.PolicyDeny {
		t.Fatalf("want deny for forbidden pattern, got %v", results[0].Decision)
	}
}

func TestEvaluateAction_SuspendedWorkspaceBlocksWriteScope(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	ws.Status = types.WorkspaceSuspended
	snapshot := types.ConversationSnapshot{
		Slots: map[types.CanonicalSlotName]string{
			types.SlotServiceType:   "Corte",
			types.SlotPreferredDate: "2026-08-01",
			types.SlotPreferredTime: "15:00",
		},
	}
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{"service_type": "Corte"}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, snapshot, ws, tm, time.Now())
	if results[0].Decision != types.PolicyDeny {
		t.Fatalf("want deny for suspended workspace write action, got %v", results[0].Decision)
	}

	// Read-scoped tools stay allowed while suspended.
	readAction := types.PlanAction{Tool: "get_available_services", Args: map[string]any{}}
	readResults := e.EvaluatePlan([]types.PlanAction{readAction}, 0.9, types.ConversationSnapshot{}, ws, tm, time.Now())
	if readResults[0].Decision != types.PolicyAllow {
		t.Fatalf("want read tool allowed while suspended, got %v (%s)", readResults[0].Decision, readResults[0].Reason)
	}
}

func TestEvaluatePlan_ExceedsMaxToolCallsDeniesAll(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	ws.Policy.MaxToolCalls = 1
	actions := []types.PlanAction{
		{Tool: "get_available_services", Args: map[string]any{}},
		{Tool: "get_available_services", Args: map[string]any{}},
	}

	results := e.EvaluatePlan(actions, 0.9, types.ConversationSnapshot{}, ws, tm, time.Now())
	for i, r := range results {
		if r.Decision != types.PolicyDeny {
			t.Fatalf("action %d: want deny, got %v", i, r.Decision)
		}
	}
}

func TestEvaluateAction_RateLimitEnforced(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{"service_type": "Corte"}}
	snapshot := types.ConversationSnapshot{
		Slots: map[types.CanonicalSlotName]string{
			types.SlotServiceType:   "Corte",
			types.SlotPreferredDate: "2026-08-01",
			types.SlotPreferredTime: "15:00",
		},
	}
	now := time.Now()

	// RateLimitPerMin is 2 in the test manifest; the third call in the same
	// window should be denied.
	for i := 0; i < 2; i++ {
		results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, snapshot, ws, tm, now)
		if results[0].Decision != types.PolicyAllow {
			t.Fatalf("call %d: want allow, got %v (%s)", i, results[0].Decision, results[0].Reason)
		}
	}
	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, snapshot, ws, tm, now)
	if results[0].Decision != types.PolicyDeny {
		t.Fatalf("want deny on 3rd call within window, got %v", results[0].Decision)
	}
}

func TestEvaluateAction_ToolsFirstOrdering(t *testing.T) {
	e := New()
	tm := testManifest()
	ws := baseWorkspace()
	ws.Policy.ToolsFirst = []string{"get_available_services"}
	snapshot := types.ConversationSnapshot{
		Slots: map[types.CanonicalSlotName]string{
			types.SlotServiceType:   "Corte",
			types.SlotPreferredDate: "2026-08-01",
			types.SlotPreferredTime: "15:00",
		},
	}
	action := types.PlanAction{Tool: "book_appointment", Args: map[string]any{"service_type": "Corte"}}

	results := e.EvaluatePlan([]types.PlanAction{action}, 0.9, snapshot, ws, tm, time.Now())
	if results[0].Decision != types.PolicyDeny {
		t.Fatalf("want deny before get_available_services has run, got %v (%s)", results[0].Decision, results[0].Reason)
	}

	snapshot.CalledTools = []string{"get_available_services"}
	results = e.EvaluatePlan([]types.PlanAction{action}, 0.9, snapshot, ws, tm, time.Now())
	if results[0].Decision != types.PolicyAllow {
		t.Fatalf("want allow once get_available_services has run, got %v (%s)", results[0].Decision, results[0].Reason)
	}
}

func TestDefaultRateLimitForTier(t *testing.T) {
	if DefaultRateLimitForTier(types.TierBasic) != 20 {
		t.Error("basic should be 20")
	}
	if DefaultRateLimitForTier(types.TierPro) != 100 {
		t.Error("pro should be 100")
	}
	if DefaultRateLimitForTier(types.TierMax) != 500 {
		t.Error("max should be 500")
	}
}
