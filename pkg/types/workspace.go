// Package types holds the closed, tagged domain vocabulary shared by every
// pipeline stage: Workspace, ToolSpec/ToolManifest, CanonicalSlot, the
// per-turn ConversationSnapshot, and the typed outputs of each stage
// (ExtractorOutput, PlanOutput, PolicyResult, ToolObservation,
// ConversationStatePatch). Keeping these in one package with no stage-specific
// logic is what lets Extractor, Planner, Policy Engine, Broker, Reducer and
// NLG depend on each other's outputs without depending on each other's
// internals.
package types

// Vertical is the business-domain template a Workspace belongs to. It
// selects which ToolManifest is loaded.
type Vertical string

const (
	VerticalServices    Vertical = "services"
	VerticalGastronomy  Vertical = "gastronomy"
	VerticalRealEstate  Vertical = "real-estate"
)

// Tier is the subscription level gating which tools a workspace may call.
// Ordering is basic < pro < max.
type Tier string

const (
	TierBasic Tier = "basic"
	TierPro   Tier = "pro"
	TierMax   Tier = "max"
)

var tierRank = map[Tier]int{TierBasic: 0, TierPro: 1, TierMax: 2}

// Satisfies reports whether this tier meets or exceeds required. An unknown
// tier never satisfies anything (fail closed).
func (t Tier) Satisfies(required Tier) bool {
	tr, ok1 := tierRank[t]
	rr, ok2 := tierRank[required]
	if !ok1 || !ok2 {
		return false
	}
	return tr >= rr
}

// WorkspaceStatus gates write/admin-scoped tool calls.
type WorkspaceStatus string

const (
	WorkspaceActive    WorkspaceStatus = "active"
	WorkspaceSuspended WorkspaceStatus = "suspended"
)

// Workspace is the immutable-per-turn tenant context threaded through every
// stage of the pipeline.
type Workspace struct {
	ID     string
	Vertical Vertical
	Tier   Tier
	Status WorkspaceStatus
	Policy WorkspacePolicy

	// Timezone is an IANA zone name (e.g. "America/Argentina/Buenos_Aires").
	// The Extractor's date normalizer threads this through rather than
	// hardcoding a zone. Empty means "UTC".
	Timezone string
}

// WorkspacePolicy is the tenant-configurable runtime constraint set consumed
// by the Policy Engine.
type WorkspacePolicy struct {
	MaxToolCalls            int
	OneSlotPerTurn           bool
	ToolsFirst               []string
	ForbidPatterns           []string
	MinConfidence            float64
	AllowOffersWithoutStock  bool
	RequireConfirmation      bool
}

// DefaultWorkspacePolicy returns the conservative out-of-the-box policy: a
// handful of tool calls per turn, one slot filled at a time, confirmation
// required before write actions.
func DefaultWorkspacePolicy() WorkspacePolicy {
	return WorkspacePolicy{
		MaxToolCalls:        3,
		OneSlotPerTurn:      true,
		ToolsFirst:          nil,
		ForbidPatterns:      nil,
		MinConfidence:       0.55,
		AllowOffersWithoutStock: false,
		RequireConfirmation: true,
	}
}
