package types

// PolicyDecision is the Policy Engine's per-action verdict.
type PolicyDecision string

const (
	PolicyAllow             PolicyDecision = "ALLOW"
	PolicyDeny               PolicyDecision = "DENY"
	PolicyAskClarification   PolicyDecision = "ASK_CLARIFICATION"
)

// PolicyResult is the outcome of validating one PlanAction.
type PolicyResult struct {
	Decision         PolicyDecision
	Reason           string
	Why              string
	Needs            []string
	MissingSlots     []string
	ValidationErrors []string

	// NormalizedArgs is the post-coercion argument map; only meaningful when
	// Decision != DENY for a reason that predates normalization.
	NormalizedArgs map[string]any

	ManifestVersion string
}

// IsAllowed reports whether the action may proceed to the Tool Broker.
func (r PolicyResult) IsAllowed() bool {
	return r.Decision == PolicyAllow
}
