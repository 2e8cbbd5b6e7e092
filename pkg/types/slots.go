package types

// CanonicalSlotName is a name drawn from the closed, cross-vertical slot
// vocabulary.
type CanonicalSlotName string

const (
	SlotServiceType    CanonicalSlotName = "service_type"
	SlotPreferredDate  CanonicalSlotName = "preferred_date"
	SlotPreferredTime  CanonicalSlotName = "preferred_time"
	SlotStaffName      CanonicalSlotName = "staff_name"
	SlotClientName     CanonicalSlotName = "client_name"
	SlotClientEmail    CanonicalSlotName = "client_email"
	SlotClientPhone    CanonicalSlotName = "client_phone"
	SlotBookingID      CanonicalSlotName = "booking_id"
)

// SlotType is the semantic type a CanonicalSlot's normalizer coerces toward.
type SlotType string

const (
	SlotTypeString SlotType = "string"
	SlotTypeDate   SlotType = "date"   // YYYY-MM-DD
	SlotTypeTime   SlotType = "time"   // HH:MM 24h
	SlotTypeEmail  SlotType = "email"
	SlotTypePhone  SlotType = "phone"
	SlotTypeNumber SlotType = "number"
)

// SlotDefinition is a canonical slot's static metadata: its semantic type,
// and whether it is PII (redacted in logs/metrics per the PII-redaction
// invariant).
type SlotDefinition struct {
	Name        CanonicalSlotName
	Description string
	Type        SlotType
	IsPII       bool
}

// Intent is the closed set of user intents the Extractor may emit.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentInfoServices Intent = "info_services"
	IntentInfoPrices   Intent = "info_prices"
	IntentInfoHours    Intent = "info_hours"
	IntentBook         Intent = "book"
	IntentCancel       Intent = "cancel"
	IntentReschedule   Intent = "reschedule"
	IntentChitchat     Intent = "chitchat"
	IntentOther        Intent = "other"
)
