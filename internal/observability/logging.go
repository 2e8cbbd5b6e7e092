package observability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger provides structured logging with built-in turn correlation and
// sensitive-data redaction. Every event the pipeline emits (intent_detected,
// plan_generated, policy_decision, tool_call_started, tool_call_finished,
// state_patch_applied, response_emitted) goes through one of these methods so
// redaction and context correlation are never bypassed by accident.
type Logger struct {
	logger  *slog.Logger
	config  LogConfig
	redacts []*regexp.Regexp
}

// LogConfig configures the logging behavior.
type LogConfig struct {
	Level          string
	Format         string // "json" or "text"
	Output         io.Writer
	AddSource      bool
	RedactPatterns []string
}

// ContextKey is the type for context keys used in logging.
type ContextKey string

const (
	RequestIDKey      ContextKey = "request_id"
	ConversationIDKey ContextKey = "conversation_id"
	WorkspaceIDKey    ContextKey = "workspace_id"
)

// DefaultRedactPatterns contains regex patterns for common sensitive data
// (credentials), independent of the slot-level PII redaction that
// slots.RedactArgs applies to tool-call arguments.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["\']?([a-zA-Z0-9_\-]{16,})["\']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-\.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["\']?([^\s"']{8,})["\']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{48,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
	`(?i)(secret|key|token)[\s:=]+["\']?([a-fA-F0-9]{32,})["\']?`,
}

// PIIMask is the mask string for a redacted PII value. It equals
// slots.RedactMask, which slots.RedactArgs substitutes for PII tool-call
// arguments; the Logger itself does not apply it.
const PIIMask = "***"

func NewLogger(config LogConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Level == "" {
		config.Level = "info"
	}
	if config.Format == "" {
		config.Format = "json"
	}

	level := LogLevelFromString(config.Level)
	opts := &slog.HandlerOptions{Level: level, AddSource: config.AddSource}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	redacts := make([]*regexp.Regexp, 0, len(DefaultRedactPatterns)+len(config.RedactPatterns))
	for _, pattern := range append(append([]string{}, DefaultRedactPatterns...), config.RedactPatterns...) {
		if re, err := regexp.Compile(pattern); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{logger: slog.New(handler), config: config, redacts: redacts}
}

// WithContext returns a logger that stamps request_id/conversation_id/workspace_id
// from ctx onto every subsequent record.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := make([]any, 0, 6)
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, "request_id", v)
	}
	if v := GetConversationID(ctx); v != "" {
		attrs = append(attrs, "conversation_id", v)
	}
	if v := GetWorkspaceID(ctx); v != "" {
		attrs = append(attrs, "workspace_id", v)
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(attrs...), config: l.config, redacts: l.redacts}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelDebug, msg, args...) }
func (l *Logger) Info(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelWarn, msg, args...) }
func (l *Logger) Error(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelError, msg, args...) }

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	msg = l.redactString(msg)

	redactedArgs := make([]any, len(args))
	for i, arg := range args {
		redactedArgs[i] = l.redactValue(arg)
	}

	attrs := make([]any, 0, len(redactedArgs)+6)
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, "request_id", v)
	}
	if v := GetConversationID(ctx); v != "" {
		attrs = append(attrs, "conversation_id", v)
	}
	if v := GetWorkspaceID(ctx); v != "" {
		attrs = append(attrs, "workspace_id", v)
	}
	attrs = append(attrs, redactedArgs...)

	l.logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redactString(val)
	case error:
		return l.redactString(val.Error())
	case []byte:
		return l.redactString(string(val))
	case map[string]any:
		return l.redactMap(val)
	default:
		if b, err := json.Marshal(v); err == nil {
			return l.redactString(string(b))
		}
		return v
	}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

var sensitiveKeys = map[string]bool{
	"password": true, "passwd": true, "secret": true, "token": true,
	"api_key": true, "apikey": true, "private_key": true, "privatekey": true,
	"auth": true, "authorization": true,
}

func (l *Logger) redactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		lowerKey := strings.ToLower(strings.ReplaceAll(k, "-", "_"))
		if sensitiveKeys[lowerKey] {
			result[k] = "[REDACTED]"
		} else {
			result[k] = l.redactValue(v)
		}
	}
	return result
}

// WithFields returns a new logger with the given static fields added to all log records.
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), config: l.config, redacts: l.redacts}
}

func MustNewLogger(config LogConfig) *Logger {
	return NewLogger(config)
}

func AddRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func AddConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, id)
}
func AddWorkspaceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, WorkspaceIDKey, id)
}

func GetRequestID(ctx context.Context) string      { return stringFromCtx(ctx, RequestIDKey) }
func GetConversationID(ctx context.Context) string  { return stringFromCtx(ctx, ConversationIDKey) }
func GetWorkspaceID(ctx context.Context) string      { return stringFromCtx(ctx, WorkspaceIDKey) }

func stringFromCtx(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func LogLevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Sync() error { return nil }
