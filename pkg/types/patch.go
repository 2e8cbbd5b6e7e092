package types

// ConversationStatePatch is the State Reducer's output: an immutable-style
// description of changes to apply to conversational state at the turn
// boundary. It never mutates the state it was derived from.
//
// SlotsPatch is keyed by string rather than CanonicalSlotName because the
// reducer writes two kinds of keys into conversational state: canonical
// slot values lifted from tool results (e.g. "booking_id") and internal
// bookkeeping the NLG and Planner read back on later turns (e.g.
// "_available_services", "_tool_book_appointment_success"). Only the
// former are drawn from the closed CanonicalSlotName vocabulary.
type ConversationStatePatch struct {
	SlotsPatch            map[string]any
	SlotsToRemove         []string
	CacheInvalidationKeys []string
	ChangeReasons         []string
	ConfidenceScore       float64

	// LastObservations is the reducer-maintained bounded history (K=5
	// default), tool-facing rather than user/assistant message history.
	LastObservations []ToolObservation
}
