package planner

import (
	"encoding/json"

	"github.com/pulpoai/agentcore/pkg/types"
)

// systemPrompt instructs the oracle that its output is the plan itself, not
// prose describing one.
const systemPrompt = `Eres un planificador de acciones para un agente de reservas de servicios.

TU SALIDA DEBE SER SOLO JSON VÁLIDO que cumpla el schema del plan.

REGLAS CRÍTICAS:
1. NO generes texto para el usuario
2. NO expliques nada en prosa
3. SOLO decide qué tools ejecutar
4. Máximo 3 tools por plan
5. Usa nombres EXACTOS de tools
6. Si faltan datos obligatorios → needs_confirmation=true

Responde SOLO con el JSON del plan.`

func buildUserPrompt(extracted types.ExtractorOutput, allowedTools []string, workspaceID string) string {
	payload := map[string]any{
		"context": map[string]any{
			"workspace_id":  workspaceID,
			"allowed_tools": allowedTools,
			"rules": []string{
				"Máximo 3 acciones por plan",
				"Usa get_available_services para consultas de servicios/precios",
				"Usa get_business_hours para consultas de horarios",
				"ANTES de book_appointment SIEMPRE usa check_service_availability",
				"Si faltan slots obligatorios para book_appointment, marca needs_confirmation=true",
				"Solo usa tools que están en allowed_tools",
			},
		},
		"fewshot_examples": fewShotExamples(workspaceID),
		"current_input":    extracted,
	}
	b, _ := json.MarshalIndent(payload, "", "  ")
	return string(b)
}

func fewShotExamples(workspaceID string) []map[string]any {
	return []map[string]any{
		{
			"input": map[string]any{"intent": "info_services", "slots": map[string]any{}, "confidence": 0.9},
			"plan": map[string]any{
				"plan_version": "v1",
				"actions": []map[string]any{
					{"tool": "get_available_services", "args": map[string]any{"workspace_id": workspaceID}},
				},
				"needs_confirmation": false,
			},
		},
		{
			"input": map[string]any{"intent": "info_prices", "slots": map[string]any{"service_type": "Corte de Cabello"}, "confidence": 0.92},
			"plan": map[string]any{
				"plan_version": "v1",
				"actions": []map[string]any{
					{"tool": "get_available_services", "args": map[string]any{"workspace_id": workspaceID, "q": "Corte de Cabello"}},
				},
				"needs_confirmation": false,
			},
		},
		{
			"input": map[string]any{"intent": "info_hours", "slots": map[string]any{}, "confidence": 0.93},
			"plan": map[string]any{
				"plan_version": "v1",
				"actions": []map[string]any{
					{"tool": "get_business_hours", "args": map[string]any{"workspace_id": workspaceID}},
				},
				"needs_confirmation": false,
			},
		},
		{
			"input": map[string]any{
				"intent":     "book",
				"slots":      map[string]any{"service_type": "Corte de Cabello", "preferred_date": "2025-10-16", "preferred_time": nil},
				"confidence": 0.88,
			},
			"plan": map[string]any{
				"plan_version": "v1",
				"actions": []map[string]any{
					{"tool": "check_service_availability", "args": map[string]any{
						"workspace_id": workspaceID, "service_type": "Corte de Cabello", "date_str": "2025-10-16",
					}},
				},
				"needs_confirmation": true,
				"missing_slots":      []string{"preferred_time"},
			},
		},
		{
			"input": map[string]any{
				"intent": "book",
				"slots": map[string]any{
					"service_type": "Corte de Cabello", "preferred_date": "2025-10-16", "preferred_time": "15:00",
					"client_name": "Juan Pérez", "client_email": "juan@example.com",
				},
				"confidence": 0.95,
			},
			"plan": map[string]any{
				"plan_version": "v1",
				"actions": []map[string]any{
					{"tool": "check_service_availability", "args": map[string]any{
						"workspace_id": workspaceID, "service_type": "Corte de Cabello", "date_str": "2025-10-16",
					}},
					{"tool": "book_appointment", "args": map[string]any{
						"workspace_id": workspaceID, "service_type": "Corte de Cabello",
						"preferred_date": "2025-10-16", "preferred_time": "15:00",
						"client_name": "Juan Pérez", "client_email": "juan@example.com",
					}},
				},
				"needs_confirmation": false,
			},
		},
		{
			"input": map[string]any{"intent": "cancel", "slots": map[string]any{"booking_id": "BOOK-123"}, "confidence": 0.90},
			"plan": map[string]any{
				"plan_version": "v1",
				"actions": []map[string]any{
					{"tool": "cancel_appointment", "args": map[string]any{"workspace_id": workspaceID, "booking_id": "BOOK-123"}},
				},
				"needs_confirmation": false,
			},
		},
	}
}
