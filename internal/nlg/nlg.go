// Package nlg turns a turn's Extractor/Planner/Reducer outputs into the
// short, deterministic assistant reply shown to the user. There is no LLM
// call on this path: every string here is a template filled from slot
// state, favoring cheap, inspectable output over generation on the hot
// path.
package nlg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pulpoai/agentcore/pkg/types"
)

// Generate builds the assistant-facing reply for one turn. state is the
// conversational state after the Reducer's patch has been applied (slot
// values plus the reducer's internal bookkeeping keys).
func Generate(extracted types.ExtractorOutput, plan types.PlanOutput, state map[string]any) string {
	switch extracted.Intent {
	case types.IntentInfoHours:
		return infoHours(state)
	case types.IntentInfoPrices, types.IntentInfoServices:
		return infoServices(extracted.Intent, state, extracted.Slots[types.SlotServiceType])
	case types.IntentBook:
		return book(extracted, plan, state)
	case types.IntentCancel:
		return cancel(state)
	case types.IntentGreeting:
		return "¡Hola! Te ayudo con turnos, precios y horarios. ¿Qué necesitás?"
	case types.IntentChitchat:
		return "Te ayudo con reservas de turnos. ¿Querés agendar?"
	default:
		return "Te ayudo con turnos, precios y horarios. ¿Qué necesitás?"
	}
}

func infoHours(state map[string]any) string {
	hours, ok := state["_business_hours"]
	if !ok {
		return "Consulté los horarios pero no pude leerlos. ¿Probamos de nuevo?"
	}
	return fmtHours(hours)
}

const (
	maxHoursLines   = 4
	maxServiceLines = 3
)

func fmtHours(hours any) string {
	switch h := hours.(type) {
	case map[string]any:
		days := make([]string, 0, len(h))
		for day := range h {
			days = append(days, day)
		}
		sort.Strings(days)
		truncated := len(days) > maxHoursLines
		if truncated {
			days = days[:maxHoursLines]
		}
		lines := make([]string, 0, len(days)+1)
		lines = append(lines, "Horarios:")
		for _, day := range days {
			lines = append(lines, fmt.Sprintf("• %s: %v", day, h[day]))
		}
		out := strings.Join(lines, "\n")
		if truncated {
			out += "…"
		}
		return out
	case string:
		return "Horarios:\n• " + h
	default:
		return fmt.Sprintf("Horarios:\n• %v", h)
	}
}

func infoServices(intent types.Intent, state map[string]any, filterQ string) string {
	raw, ok := state["_available_services"]
	if !ok {
		return "Consulté los servicios pero no encontré resultados. ¿Te ayudo con algo más?"
	}
	names := toStringSlice(raw)
	if filterQ != "" {
		filtered := names[:0]
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), strings.ToLower(filterQ)) {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}
	if len(names) == 0 {
		return "Consulté los servicios pero no encontré resultados. ¿Te ayudo con algo más?"
	}
	return fmtPrices(intent, names, filterQ, state["_service_prices"])
}

func fmtPrices(intent types.Intent, names []string, filterQ string, pricesRaw any) string {
	prices, _ := pricesRaw.(map[string]any)

	header := "Servicios disponibles:"
	if intent == types.IntentInfoPrices && filterQ != "" {
		header = fmt.Sprintf("Precios de %s:", filterQ)
	}

	truncated := len(names) > maxServiceLines
	if truncated {
		names = names[:maxServiceLines]
	}

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, header)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("• %s: %s", name, priceRange(prices[name])))
	}
	out := strings.Join(lines, "\n")
	if truncated {
		out += "…"
	}
	return out
}

// priceRange renders a service's price as "$min-$max". The catalog today
// only carries a single price per service, so min and max collapse to the
// same value; a tool returning {"min":...,"max":...} is rendered as-is.
func priceRange(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		return fmt.Sprintf("$%v-$%v", m["min"], m["max"])
	}
	if raw == nil {
		return "$?-$?"
	}
	return fmt.Sprintf("$%v-$%v", raw, raw)
}

func book(extracted types.ExtractorOutput, plan types.PlanOutput, state map[string]any) string {
	if plan.NeedsConfirmation {
		for _, missing := range plan.MissingSlots {
			switch missing {
			case "preferred_time":
				return "Tengo la fecha. ¿A qué hora te viene bien? (ej: 15:00)"
			case "preferred_date":
				return "¿Para qué día querés el turno? (ej: mañana, 16/10)"
			case "client_name", "client_email":
				return "Para confirmar necesito tu nombre y email."
			}
		}
		return "¿Me confirmás los datos para la reserva?"
	}

	if confirmed, _ := state["_booking_confirmed"].(bool); confirmed {
		date, _ := state["confirmed_date"].(string)
		t, _ := state["confirmed_time"].(string)
		svc := string(extracted.Slots[types.SlotServiceType])
		if svc == "" {
			svc = "turno"
		}
		return fmt.Sprintf("¡Listo! %s reservado para %s a las %s.", svc, date, t)
	}

	if extracted.Slots[types.SlotPreferredDate] != "" && extracted.Slots[types.SlotPreferredTime] != "" {
		return "Hay disponibilidad. ¿Confirmás nombre y email para reservar?"
	}

	return "Verifiqué disponibilidad. ¿Querés que te reserve?"
}

func cancel(state map[string]any) string {
	if cancelled, _ := state["_cancelled"].(bool); cancelled {
		return "Turno cancelado. ¿Querés reagendar?"
	}
	return "Para cancelar necesito el ID de tu turno o tu teléfono."
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
