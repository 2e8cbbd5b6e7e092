package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pulpoai/agentcore/pkg/types"
)

// InternalHandler is a registered in-process tool implementation, used by
// Transport.Kind == TransportInternal tools instead of an HTTP round trip.
type InternalHandler func(ctx context.Context, args map[string]any) (json.RawMessage, error)

// transportResult is the raw outcome of one dispatch attempt, before the
// Broker classifies it into a ToolObservation.
type transportResult struct {
	Body       json.RawMessage
	StatusCode int
	RetryAfter time.Duration
}

// dispatcher issues a single tool call over HTTP or an internal handler. It
// never retries or redacts; that is the Broker's job one layer up.
type dispatcher struct {
	httpClient *http.Client
	internal   map[string]InternalHandler
	maxBodyMB  int
}

func newDispatcher(httpClient *http.Client, internal map[string]InternalHandler, maxBodyMB int) *dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &dispatcher{httpClient: httpClient, internal: internal, maxBodyMB: maxBodyMB}
}

func (d *dispatcher) dispatch(ctx context.Context, tool types.ToolSpec, args map[string]any, headers map[string]string) (transportResult, error) {
	switch tool.Transport.Kind {
	case types.TransportInternal:
		return d.dispatchInternal(ctx, tool, args)
	default:
		return d.dispatchHTTP(ctx, tool, args, headers)
	}
}

func (d *dispatcher) dispatchInternal(ctx context.Context, tool types.ToolSpec, args map[string]any) (transportResult, error) {
	handler, ok := d.internal[tool.Transport.InternalName]
	if !ok {
		return transportResult{}, fmt.Errorf("broker: no internal handler registered for %q", tool.Transport.InternalName)
	}
	body, err := handler(ctx, args)
	if err != nil {
		return transportResult{StatusCode: 500}, err
	}
	return transportResult{Body: body, StatusCode: 200}, nil
}

func (d *dispatcher) dispatchHTTP(ctx context.Context, tool types.ToolSpec, args map[string]any, headers map[string]string) (transportResult, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return transportResult{}, err
	}

	maxBody := int64(d.maxBodyMB) * 1024 * 1024
	if maxBody > 0 && int64(len(payload)) > maxBody {
		return transportResult{}, fmt.Errorf("broker: request body exceeds max_body_mb (%d)", d.maxBodyMB)
	}

	method := tool.Transport.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, tool.Transport.URL, bytes.NewReader(payload))
	if err != nil {
		return transportResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if err := attachAuth(req, tool.Transport.Auth); err != nil {
		return transportResult{}, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return transportResult{}, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if maxBody > 0 {
		reader = io.LimitReader(resp.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return transportResult{StatusCode: resp.StatusCode}, err
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return transportResult{StatusCode: resp.StatusCode}, fmt.Errorf("broker: response body exceeds max_body_mb (%d)", d.maxBodyMB)
	}

	result := transportResult{Body: body, StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		result.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return result, nil
}

func attachAuth(req *http.Request, auth types.Auth) error {
	switch auth.Kind {
	case types.AuthBearer:
		token := os.Getenv(auth.BearerTokenEnv)
		if token == "" {
			return fmt.Errorf("broker: bearer auth configured but %s is unset", auth.BearerTokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case types.AuthAPIKey:
		value := os.Getenv(auth.APIKeyValueEnv)
		if value == "" {
			return fmt.Errorf("broker: api_key auth configured but %s is unset", auth.APIKeyValueEnv)
		}
		header := auth.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, value)
	case types.AuthNone, "":
	}
	return nil
}

// parseRetryAfter handles both the integer-seconds and HTTP-date forms of
// Retry-After per RFC 7231; a malformed header yields zero (caller falls
// back to computed backoff).
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

func standardHeaders(workspaceID, conversationID, requestID, tool string, retrySafe bool) map[string]string {
	retry := "false"
	if retrySafe {
		retry = "true"
	}
	return map[string]string{
		"X-Workspace-Id":    workspaceID,
		"X-Conversation-Id": conversationID,
		"X-Request-Id":      requestID,
		"X-Tool-Name":       tool,
		"X-Tool-Retry-Safe": retry,
		"User-Agent":        "agentcore-broker/1.0",
	}
}
