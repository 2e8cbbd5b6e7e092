// Package slots defines the canonical slot catalog shared across verticals
// and the normalizers that coerce free-form extractor output into each
// slot's semantic type.
package slots

import "github.com/pulpoai/agentcore/pkg/types"

// Registry is the closed catalog of canonical slots. Defined once, used by
// the Extractor (normalization), the Policy Engine (requires_slots /
// arg-schema checks), and the logging/metrics layer (PII redaction).
var Registry = map[types.CanonicalSlotName]types.SlotDefinition{
	types.SlotServiceType: {
		Name: types.SlotServiceType, Type: types.SlotTypeString,
		Description: "Type of service requested (e.g. Corte de Cabello, Coloración).",
	},
	types.SlotPreferredDate: {
		Name: types.SlotPreferredDate, Type: types.SlotTypeDate,
		Description: "Requested appointment date, normalized to YYYY-MM-DD.",
	},
	types.SlotPreferredTime: {
		Name: types.SlotPreferredTime, Type: types.SlotTypeTime,
		Description: "Requested appointment time, normalized to 24h HH:MM.",
	},
	types.SlotStaffName: {
		Name: types.SlotStaffName, Type: types.SlotTypeString,
		Description: "Requested staff member, title-cased.",
	},
	types.SlotClientName: {
		Name: types.SlotClientName, Type: types.SlotTypeString, IsPII: true,
		Description: "Client's full name, title-cased.",
	},
	types.SlotClientEmail: {
		Name: types.SlotClientEmail, Type: types.SlotTypeEmail, IsPII: true,
		Description: "Client's email, lowercased.",
	},
	types.SlotClientPhone: {
		Name: types.SlotClientPhone, Type: types.SlotTypePhone, IsPII: true,
		Description: "Client's phone number.",
	},
	types.SlotBookingID: {
		Name: types.SlotBookingID, Type: types.SlotTypeString,
		Description: "Existing booking identifier, for cancel/reschedule.",
	},
}

// Lookup returns a canonical slot's definition and whether it is known.
func Lookup(name types.CanonicalSlotName) (types.SlotDefinition, bool) {
	def, ok := Registry[name]
	return def, ok
}

// IsPII reports whether name is a PII-flagged canonical slot. Unknown slot
// names are treated as non-PII (they are rejected elsewhere as unknown, not
// silently redacted).
func IsPII(name types.CanonicalSlotName) bool {
	def, ok := Registry[name]
	return ok && def.IsPII
}

// RedactMask is the literal value RedactArgs puts in place of PII slot
// values in tool-call arguments.
const RedactMask = "***"

// RedactArgs returns a shallow copy of args with any key matching a
// PII-flagged canonical slot replaced by RedactMask. Used by the Broker
// for the Args of every ToolObservation, which the orchestrator returns to
// its caller as ExecutedToolCall.
func RedactArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if IsPII(types.CanonicalSlotName(k)) {
			out[k] = RedactMask
			continue
		}
		out[k] = v
	}
	return out
}
