package reducer

import (
	"encoding/json"

	"github.com/pulpoai/agentcore/pkg/types"
)

// extractResult lifts tool-specific fields out of a successful observation's
// result payload into the patch, including the cache keys that a fresh
// result invalidates. Tools with no bespoke extraction just keep their
// generic success flag.
func extractResult(observation types.ToolObservation, patch *types.ConversationStatePatch) {
	if len(observation.Result) == 0 {
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(observation.Result, &raw); err != nil {
		return
	}

	switch observation.Tool {
	case "get_available_services":
		extractServices(raw, patch)
	case "get_business_hours":
		extractBusinessHours(raw, patch)
	case "check_service_availability":
		extractAvailability(raw, patch)
	case "book_appointment":
		extractBooking(raw, patch)
	case "cancel_appointment":
		extractCancellation(raw, patch)
	case "find_appointment_by_phone":
		extractFoundAppointment(raw, patch)
	case "get_service_packages", "get_active_promotions":
		// No bespoke slot extraction: these tools only get the generic
		// success flag.
	}
}

func extractServices(raw map[string]any, patch *types.ConversationStatePatch) {
	services, ok := raw["services"].([]any)
	if !ok {
		return
	}
	names := make([]string, 0, len(services))
	prices := make(map[string]any, len(services))
	for _, s := range services {
		entry, ok := s.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		names = append(names, name)
		if price, ok := entry["price"]; ok {
			prices[name] = price
		}
	}
	patch.SlotsPatch["_available_services"] = names
	patch.SlotsPatch["_service_prices"] = prices
	patch.CacheInvalidationKeys = append(patch.CacheInvalidationKeys, "services_cache")
}

func extractBusinessHours(raw map[string]any, patch *types.ConversationStatePatch) {
	if hours, ok := raw["hours"]; ok {
		patch.SlotsPatch["_business_hours"] = hours
	}
}

func extractAvailability(raw map[string]any, patch *types.ConversationStatePatch) {
	if slots, ok := raw["available_slots"]; ok {
		patch.SlotsPatch["_available_times"] = slots
	}
	if next, ok := raw["next_available"]; ok {
		patch.SlotsPatch["_next_available"] = next
	}
	patch.CacheInvalidationKeys = append(patch.CacheInvalidationKeys, "availability_cache")
}

func extractBooking(raw map[string]any, patch *types.ConversationStatePatch) {
	if v, ok := raw["booking_id"]; ok {
		patch.SlotsPatch["booking_id"] = v
	}
	if v, ok := raw["confirmation_code"]; ok {
		patch.SlotsPatch["confirmation_code"] = v
	}
	if v, ok := raw["appointment_date"]; ok {
		patch.SlotsPatch["confirmed_date"] = v
	}
	if v, ok := raw["appointment_time"]; ok {
		patch.SlotsPatch["confirmed_time"] = v
	}
	patch.SlotsPatch["_booking_confirmed"] = true
}

func extractCancellation(raw map[string]any, patch *types.ConversationStatePatch) {
	patch.SlotsPatch["_cancelled"] = true
	if v, ok := raw["booking_id"]; ok {
		patch.SlotsPatch["_cancelled_booking_id"] = v
	}
}

func extractFoundAppointment(raw map[string]any, patch *types.ConversationStatePatch) {
	if v, ok := raw["booking_id"]; ok {
		patch.SlotsPatch["booking_id"] = v
	}
	if v, ok := raw["appointment_date"]; ok {
		patch.SlotsPatch["confirmed_date"] = v
	}
	if v, ok := raw["appointment_time"]; ok {
		patch.SlotsPatch["confirmed_time"] = v
	}
}
