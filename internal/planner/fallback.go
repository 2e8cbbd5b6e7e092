package planner

import "github.com/pulpoai/agentcore/pkg/types"

// fallbackPlan derives a plan deterministically from intent + slots when the
// oracle errors or its output fails validation. Confidence is pinned low
// (0.5) so downstream stages can tell this turn wasn't oracle-backed.
func fallbackPlan(extracted types.ExtractorOutput, workspaceID string) types.PlanOutput {
	slots := extracted.Slots
	serviceType := slots[types.SlotServiceType]
	preferredDate := slots[types.SlotPreferredDate]
	preferredTime := slots[types.SlotPreferredTime]
	clientName := slots[types.SlotClientName]
	clientEmail := slots[types.SlotClientEmail]
	bookingID := slots[types.SlotBookingID]

	var actions []types.PlanAction
	needsConfirmation := false
	var missingSlots []string

	switch extracted.Intent {
	case types.IntentInfoServices:
		actions = []types.PlanAction{{Tool: "get_available_services", Args: map[string]any{"workspace_id": workspaceID}}}

	case types.IntentInfoPrices:
		args := map[string]any{"workspace_id": workspaceID}
		if serviceType != "" {
			args["q"] = serviceType
		}
		actions = []types.PlanAction{{Tool: "get_available_services", Args: args}}

	case types.IntentInfoHours:
		actions = []types.PlanAction{{Tool: "get_business_hours", Args: map[string]any{"workspace_id": workspaceID}}}

	case types.IntentBook:
		if serviceType != "" && preferredDate != "" {
			actions = append(actions, types.PlanAction{
				Tool: "check_service_availability",
				Args: map[string]any{"workspace_id": workspaceID, "service_type": serviceType, "date_str": preferredDate},
			})
			if preferredTime != "" && clientName != "" && clientEmail != "" {
				actions = append(actions, types.PlanAction{
					Tool: "book_appointment",
					Args: map[string]any{
						"workspace_id": workspaceID, "service_type": serviceType,
						"preferred_date": preferredDate, "preferred_time": preferredTime,
						"client_name": clientName, "client_email": clientEmail,
					},
				})
			} else {
				needsConfirmation = true
				if preferredTime == "" {
					missingSlots = append(missingSlots, "preferred_time")
				}
				if clientName == "" {
					missingSlots = append(missingSlots, "client_name")
				}
				if clientEmail == "" {
					missingSlots = append(missingSlots, "client_email")
				}
			}
		} else {
			needsConfirmation = true
			if serviceType == "" {
				missingSlots = append(missingSlots, "service_type")
			}
			if preferredDate == "" {
				missingSlots = append(missingSlots, "preferred_date")
			}
		}

	case types.IntentCancel:
		if bookingID != "" {
			actions = []types.PlanAction{{Tool: "cancel_appointment", Args: map[string]any{"workspace_id": workspaceID, "booking_id": bookingID}}}
		} else {
			needsConfirmation = true
			missingSlots = append(missingSlots, "booking_id")
		}

	case types.IntentReschedule:
		if bookingID != "" && preferredDate != "" {
			actions = append(actions, types.PlanAction{
				Tool: "check_service_availability",
				Args: map[string]any{"workspace_id": workspaceID, "booking_id": bookingID, "date_str": preferredDate},
			})
			if preferredTime != "" {
				actions = append(actions, types.PlanAction{
					Tool: "cancel_appointment",
					Args: map[string]any{"workspace_id": workspaceID, "booking_id": bookingID},
				})
			} else {
				needsConfirmation = true
				missingSlots = append(missingSlots, "preferred_time")
			}
		} else {
			needsConfirmation = true
			if bookingID == "" {
				missingSlots = append(missingSlots, "booking_id")
			}
			if preferredDate == "" {
				missingSlots = append(missingSlots, "preferred_date")
			}
		}

	default:
		needsConfirmation = true
	}

	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}

	return types.PlanOutput{
		PlanVersion:       "v1",
		Actions:           actions,
		NeedsConfirmation: needsConfirmation,
		MissingSlots:      missingSlots,
		Confidence:        0.5,
	}
}
