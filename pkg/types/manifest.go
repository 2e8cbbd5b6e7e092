package types

import "encoding/json"

// Scope is the access level a tool declares. Write/admin scoped tools
// require an active workspace.
type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
	ScopeAdmin Scope = "admin"
)

// TransportKind selects how the Broker dispatches a tool call.
type TransportKind string

const (
	TransportHTTP     TransportKind = "http"
	TransportInternal TransportKind = "internal"
)

// AuthKind is the authentication scheme the Broker attaches to an HTTP
// transport call. The core never issues or refreshes credentials (that is
// an external collaborator's job); it only attaches pre-declared ones.
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthBearer AuthKind = "bearer"
	AuthAPIKey AuthKind = "api_key"
)

// Auth declares how to authenticate an HTTP transport call. It holds only
// the names of environment variables; the Broker reads the token or key
// value from the environment when it dispatches the call, so the manifest
// file never stores the credential itself.
type Auth struct {
	Kind AuthKind

	// BearerTokenEnv names the environment variable holding the bearer token.
	BearerTokenEnv string

	// APIKeyHeader is the header name for AuthAPIKey (e.g. "X-API-Key").
	APIKeyHeader string
	// APIKeyValueEnv names the environment variable holding the API key value.
	APIKeyValueEnv string
}

// Transport is a ToolSpec's binding to either an HTTP endpoint or an
// in-process handler name.
type Transport struct {
	Kind TransportKind

	// HTTP fields (Kind == TransportHTTP)
	URL            string
	Method         string
	TimeoutMS      int
	CacheTTLSeconds int
	RetrySafe      bool
	Auth           Auth

	// InternalName is the registered handler name (Kind == TransportInternal).
	InternalName string
}

// ToolSpec is the declarative description of one callable tool, loaded from
// a per-vertical manifest.
type ToolSpec struct {
	Name            string
	Description     string
	ArgsSchema      json.RawMessage
	RequiresSlots   []string
	Scope           Scope
	TierRequired    Tier
	RateLimitPerMin int // 0 means "use the tier default", see DefaultRateLimitForTier
	CostTokens      int
	TimeoutMS       int
	Transport       Transport
}

// ToolManifest is the ordered set of ToolSpecs for one (vertical, optional
// workspace override) tuple, plus a version string surfaced in PolicyResult
// for observability.
type ToolManifest struct {
	Vertical Vertical
	Version  string
	Tools    []ToolSpec
}

// Lookup returns the named tool and whether it exists in this manifest.
func (m *ToolManifest) Lookup(name string) (ToolSpec, bool) {
	for _, t := range m.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSpec{}, false
}

// Names returns the tool names in this manifest, in manifest order.
func (m *ToolManifest) Names() []string {
	names := make([]string, len(m.Tools))
	for i, t := range m.Tools {
		names[i] = t.Name
	}
	return names
}
