package common

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lizz/gcal-mcp/internal/instrumentation"
	"github.com/lizz/gcal-mcp/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type callStateKey struct{}

// callState collects what a handler reports about its own call.
type callState struct {
	mu            sync.Mutex
	clarification string
	eventID       string
	args          map[string]string
}

func stateFrom(ctx context.Context) *callState {
	s, _ := ctx.Value(callStateKey{}).(*callState)
	return s
}

// MarkClarification records that the handler answered with a follow-up
// question of the given kind rather than acting. Outside an instrumented
// handler it does nothing.
func MarkClarification(ctx context.Context, kind string) {
	if s := stateFrom(ctx); s != nil {
		s.mu.Lock()
		s.clarification = kind
		s.mu.Unlock()
	}
}

// RecordEventID attaches the ID of a created event to the audit record.
func RecordEventID(ctx context.Context, id string) {
	if s := stateFrom(ctx); s != nil {
		s.mu.Lock()
		s.eventID = id
		s.mu.Unlock()
	}
}

// RecordArgument attaches a normalized argument to the audit record. It is
// only written when argument logging is enabled.
func RecordArgument(ctx context.Context, name, value string) {
	if s := stateFrom(ctx); s != nil {
		s.mu.Lock()
		if s.args == nil {
			s.args = make(map[string]string)
		}
		s.args[name] = value
		s.mu.Unlock()
	}
}

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrument(toolName, "", "", sc, handler)
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// records the Google service and operation the tool drives.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithService("my_tool", "calendar", "insert", sc, handler))
func InstrumentedToolHandlerWithService(toolName, serviceName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrument(toolName, serviceName, operation, sc, handler)
}

func instrument(toolName, serviceName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		attrs := instrumentation.NewSpanAttributeBuilder()
		if serviceName != "" {
			attrs.WithService(serviceName).WithOperation(operation)
		}
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs.Build()...)
		defer span.End()

		state := &callState{}
		ctx = context.WithValue(ctx, callStateKey{}, state)

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).WithSpanContext(ctx)
		if serviceName != "" {
			invocation.WithService(serviceName, operation)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		state.mu.Lock()
		clarification := state.clarification
		for k, v := range state.args {
			invocation.WithArgument(k, v)
		}
		if state.eventID != "" {
			invocation.WithEventID(state.eventID)
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithEventID(state.eventID).Build()...)
		}
		state.mu.Unlock()

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			resultErr := errors.New(resultText(result))
			invocation.CompleteWithError(resultErr)
			instrumentation.SetSpanError(span, resultErr)
		case clarification != "":
			invocation.CompleteWithClarification()
			metrics.RecordClarification(ctx, clarification)
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithClarification(clarification).Build()...)
			instrumentation.SetSpanSuccess(span)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}

// resultText returns the first text content of result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			return tc.Text
		}
	}
	return "tool returned an error result"
}
