package types

import (
	"encoding/json"
	"time"
)

// ToolStatus is the canonical tool-execution outcome.
type ToolStatus string

const (
	StatusSuccess     ToolStatus = "SUCCESS"
	StatusFailure     ToolStatus = "FAILURE"
	StatusTimeout     ToolStatus = "TIMEOUT"
	StatusRateLimited ToolStatus = "RATE_LIMITED"
	StatusCircuitOpen ToolStatus = "CIRCUIT_OPEN"
	StatusDuplicate   ToolStatus = "DUPLICATE"
)

// ToolObservation is the Broker's append-only record of one tool execution
// attempt. Observations are never mutated after creation.
type ToolObservation struct {
	Tool   string
	Args   map[string]any // sanitized: PII-flagged slot values already replaced with "***"
	Status ToolStatus

	Result         json.RawMessage
	Error          string
	StatusCode     int
	ExecutionTimeMS int64
	Attempt        int
	FromCache      bool
	CircuitBreakerTripped bool
	Timestamp      time.Time
}
