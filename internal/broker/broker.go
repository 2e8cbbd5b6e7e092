// Package broker executes tools over HTTP or an internal call protocol,
// enforcing idempotency, retries, circuit breaking, concurrency caps, size
// guards, authentication, and PII redaction before anything reaches logs or
// metrics.
package broker

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pulpoai/agentcore/internal/backoff"
	"github.com/pulpoai/agentcore/internal/observability"
	"github.com/pulpoai/agentcore/internal/slots"
	"github.com/pulpoai/agentcore/pkg/types"
)

// Config configures a Broker's resource limits and resiliency policy.
type Config struct {
	DefaultConcurrency      int
	DefaultMaxRetries       int
	BackoffInitial          time.Duration
	BackoffCap              time.Duration
	MaxBodyMB               int
	IdempotencyTTL          time.Duration
	IdempotencyMaxItems     int
	CircuitFailureThreshold int
	CircuitWindow           time.Duration
	CircuitCooldown         time.Duration
	CircuitHalfOpenMaxCalls int
}

// Broker dispatches PlanActions that the Policy Engine has ALLOWed, and
// produces a ToolObservation for each.
type Broker struct {
	cfg        Config
	dispatcher *dispatcher
	idempotent *idempotencyCache
	circuits   *circuitRegistry
	semaphores *semaphoreRegistry
	metrics    *observability.Metrics
	logger     *observability.Logger
}

// New constructs a Broker. internalHandlers registers in-process tool
// implementations by Transport.InternalName.
func New(cfg Config, httpClient *http.Client, internalHandlers map[string]InternalHandler, metrics *observability.Metrics, logger *observability.Logger) *Broker {
	return &Broker{
		cfg:        cfg,
		dispatcher: newDispatcher(httpClient, internalHandlers, cfg.MaxBodyMB),
		idempotent: newIdempotencyCache(cfg.IdempotencyTTL, cfg.IdempotencyMaxItems),
		circuits:   newCircuitRegistry(cfg.CircuitFailureThreshold, cfg.CircuitWindow, cfg.CircuitCooldown, cfg.CircuitHalfOpenMaxCalls),
		semaphores: newSemaphoreRegistry(cfg.DefaultConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
}

// ForceHalfOpen is the admin override for a stuck-open circuit.
func (b *Broker) ForceHalfOpen(workspaceID, tool string) {
	b.circuits.ForceHalfOpen(workspaceID, tool)
}

// Execute runs one allowed action against its ToolSpec, returning a
// ToolObservation. conversationID/requestID key the idempotency cache;
// requestID also becomes the X-Request-Id header. now is the wall-clock
// reference for the idempotency TTL and circuit windows, for deterministic
// tests.
func (b *Broker) Execute(ctx context.Context, tool types.ToolSpec, action types.PlanAction, workspaceID, conversationID, requestID string, now time.Time) types.ToolObservation {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	sanitizedArgs := slots.RedactArgs(action.Args)

	key := idempotencyKey{workspaceID: workspaceID, conversationID: conversationID, requestID: requestID, tool: tool.Name}
	if entry, ok := b.idempotent.Get(key, now); ok {
		b.record(tool.Name, workspaceID, "duplicate", entry.statusCode, 0)
		return types.ToolObservation{
			Tool: tool.Name, Args: sanitizedArgs, Status: types.StatusDuplicate,
			Result: entry.result, StatusCode: entry.statusCode, FromCache: true, Timestamp: now,
		}
	}

	cb := b.circuits.get(workspaceID, tool.Name)
	if !cb.Allow(now) {
		b.record(tool.Name, workspaceID, "circuit_open", 0, 0)
		return types.ToolObservation{
			Tool: tool.Name, Args: sanitizedArgs, Status: types.StatusCircuitOpen,
			CircuitBreakerTripped: true, Timestamp: now,
		}
	}

	release, acquired := b.semaphores.Acquire(tool.Name, ctx.Done())
	if !acquired {
		return types.ToolObservation{Tool: tool.Name, Args: sanitizedArgs, Status: types.StatusTimeout, Timestamp: now}
	}
	defer release()

	maxAttempts := 1
	if tool.Transport.RetrySafe {
		retries := b.cfg.DefaultMaxRetries
		if retries <= 0 {
			retries = 3
		}
		maxAttempts = 1 + retries
	}

	policy := backoff.BackoffPolicy{
		InitialMs: float64(b.cfg.BackoffInitial.Milliseconds()),
		MaxMs:     float64(b.cfg.BackoffCap.Milliseconds()),
		Factor:    2,
		Jitter:    0.2,
	}

	headers := standardHeaders(workspaceID, conversationID, requestID, tool.Name, tool.Transport.RetrySafe)
	timeout := toolTimeout(tool)

	var lastResult transportResult
	var lastErr error
	attempt := 0
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		start := time.Now()
		result, err := b.dispatcher.dispatch(attemptCtx, tool, action.Args, headers)
		elapsed := time.Since(start)
		if cancel != nil {
			cancel()
		}
		lastResult, lastErr = result, err

		if err == nil && result.StatusCode < 500 && result.StatusCode != http.StatusTooManyRequests {
			cb.RecordSuccess(now)
			obs := types.ToolObservation{
				Tool: tool.Name, Args: sanitizedArgs, Status: types.StatusSuccess,
				Result: result.Body, StatusCode: result.StatusCode, Attempt: attempt,
				ExecutionTimeMS: elapsed.Milliseconds(), Timestamp: now,
			}
			b.idempotent.Put(key, result.Body, result.StatusCode, "", now)
			b.record(tool.Name, workspaceID, "success", result.StatusCode, elapsed.Seconds())
			return obs
		}

		cb.RecordFailure(now)

		if attempt >= maxAttempts {
			break
		}

		sleep := computeSleep(policy, attempt, result.RetryAfter)
		select {
		case <-ctx.Done():
			return types.ToolObservation{Tool: tool.Name, Args: sanitizedArgs, Status: types.StatusTimeout, Attempt: attempt, Timestamp: now}
		case <-time.After(sleep):
		}
	}

	status := types.StatusFailure
	result := "error"
	if lastResult.StatusCode == http.StatusTooManyRequests {
		status = types.StatusRateLimited
		result = "rate_limited"
	}
	errMsg := ""
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	b.record(tool.Name, workspaceID, result, lastResult.StatusCode, 0)
	return types.ToolObservation{
		Tool: tool.Name, Args: sanitizedArgs, Status: status,
		Result: lastResult.Body, Error: errMsg, StatusCode: lastResult.StatusCode, Attempt: attempt, Timestamp: now,
	}
}

func (b *Broker) record(tool, workspace, result string, statusCode int, durationSeconds float64) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordToolCall(tool, workspace, result, strconv.Itoa(statusCode), durationSeconds)
}

// toolTimeout resolves the per-call deadline the manifest declares for tool,
// preferring the transport-level override over the tool-level default.
// Zero means no additional deadline is imposed beyond the caller's context.
func toolTimeout(tool types.ToolSpec) time.Duration {
	if tool.Transport.TimeoutMS > 0 {
		return time.Duration(tool.Transport.TimeoutMS) * time.Millisecond
	}
	if tool.TimeoutMS > 0 {
		return time.Duration(tool.TimeoutMS) * time.Millisecond
	}
	return 0
}

// computeSleep picks the larger of the computed exponential-backoff delay
// and a server-supplied Retry-After.
func computeSleep(policy backoff.BackoffPolicy, attempt int, retryAfter time.Duration) time.Duration {
	computed := backoff.ComputeBackoff(policy, attempt)
	if retryAfter > computed {
		return retryAfter
	}
	return computed
}
