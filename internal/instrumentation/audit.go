package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one MCP tool call for the audit log.
//
// Arguments hold user calendar content (titles, datetime text, attendee
// addresses) and are only written when the AuditLogger is configured to
// include them.
type ToolInvocation struct {
	// ID correlates the audit record with log lines of the same call.
	ID   string
	Tool string

	ServiceName string // Google service (calendar)
	Operation   string // list_today, insert

	// Arguments is a flattened view of the tool arguments.
	Arguments map[string]string

	// EventID is set when the call created an event.
	EventID string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Outcome   string // success, error, clarification
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call one of the Complete methods when the tool finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		ID:        uuid.NewString(),
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithService sets the Google service and operation.
func (ti *ToolInvocation) WithService(serviceName, operation string) *ToolInvocation {
	ti.ServiceName = serviceName
	ti.Operation = operation
	return ti
}

// WithArgument records a single argument value. Empty values are skipped.
func (ti *ToolInvocation) WithArgument(name, value string) *ToolInvocation {
	if value == "" {
		return ti
	}
	if ti.Arguments == nil {
		ti.Arguments = make(map[string]string)
	}
	ti.Arguments[name] = value
	return ti
}

// WithEventID records the ID of a created event.
func (ti *ToolInvocation) WithEventID(id string) *ToolInvocation {
	ti.EventID = id
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished with the given outcome.
func (ti *ToolInvocation) Complete(outcome string, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Outcome = outcome
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(StatusSuccess, nil)
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(StatusError, err)
}

// CompleteWithClarification marks the invocation as answered with a
// follow-up question instead of an action.
func (ti *ToolInvocation) CompleteWithClarification() *ToolInvocation {
	return ti.Complete(StatusClarification, nil)
}

// Status returns the outcome, or "error" if the invocation was never completed.
func (ti *ToolInvocation) Status() string {
	if ti.Outcome == "" {
		return StatusError
	}
	return ti.Outcome
}

// LogAttrs returns slog attributes for structured logging. Arguments are
// included only when withArguments is true.
func (ti *ToolInvocation) LogAttrs(withArguments bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ti.ID),
		slog.String("tool", ti.Tool),
		slog.String("outcome", ti.Status()),
		slog.Duration("duration", ti.Duration),
	}

	if ti.ServiceName != "" {
		attrs = append(attrs, slog.String("service", ti.ServiceName))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation))
	}
	if ti.EventID != "" {
		attrs = append(attrs, slog.String("event_id", ti.EventID))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	if withArguments && len(ti.Arguments) > 0 {
		keys := make([]string, 0, len(ti.Arguments))
		for k := range ti.Arguments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := make([]any, 0, len(keys))
		for _, k := range keys {
			args = append(args, slog.String(k, ti.Arguments[k]))
		}
		attrs = append(attrs, slog.Group("args", args...))
	}

	return attrs
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger           *slog.Logger
	includeArguments bool
	enabled          bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// Arguments are not logged by default.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger,
		includeArguments: config.IncludeArguments,
		enabled:          config.Enabled,
	}
}

// LogToolInvocation writes one audit record. Failures are logged at warn.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeArguments)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Status() == StatusError {
		al.logger.Warn("tool_failed", args...)
		return
	}
	al.logger.Info("tool_executed", args...)
}
