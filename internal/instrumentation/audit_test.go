package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToolCreate = "create_event"
	testToolList   = "get_todays_events"
	testEventID    = "evt_42"
)

func attrMap(attrs []slog.Attr) map[string]slog.Value {
	m := make(map[string]slog.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func TestToolInvocation_Lifecycle(t *testing.T) {
	tests := []struct {
		name        string
		complete    func(*ToolInvocation) *ToolInvocation
		wantStatus  string
		wantErrText string
	}{
		{"success", (*ToolInvocation).CompleteSuccess, StatusSuccess, ""},
		{"clarification", (*ToolInvocation).CompleteWithClarification, StatusClarification, ""},
		{"error", func(ti *ToolInvocation) *ToolInvocation {
			return ti.CompleteWithError(errors.New("permission denied"))
		}, StatusError, "permission denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := NewToolInvocation(testToolCreate)
			assert.False(t, ti.StartTime.IsZero())

			tt.complete(ti)
			assert.Equal(t, tt.wantStatus, ti.Status())
			assert.Equal(t, tt.wantErrText, ti.Error)
			assert.GreaterOrEqual(t, ti.Duration.Nanoseconds(), int64(0))
		})
	}
}

func TestNewToolInvocation_UniqueIDs(t *testing.T) {
	a := NewToolInvocation(testToolList)
	b := NewToolInvocation(testToolList)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestToolInvocation_StatusBeforeComplete(t *testing.T) {
	assert.Equal(t, StatusError, NewToolInvocation(testToolList).Status())
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolCreate).
		WithService(ServiceCalendar, OperationInsert).
		WithArgument("title", "Dentist").
		WithArgument("datetime", "2025-08-05 14:30").
		WithArgument("location", "").
		WithEventID(testEventID).
		CompleteSuccess()
	ti.TraceID = "abc123"

	t.Run("without arguments", func(t *testing.T) {
		m := attrMap(ti.LogAttrs(false))
		assert.Equal(t, testToolCreate, m["tool"].String())
		assert.Equal(t, ti.ID, m["invocation_id"].String())
		assert.Equal(t, StatusSuccess, m["outcome"].String())
		assert.Equal(t, ServiceCalendar, m["service"].String())
		assert.Equal(t, OperationInsert, m["operation"].String())
		assert.Equal(t, testEventID, m["event_id"].String())
		assert.Equal(t, "abc123", m["trace_id"].String())
		_, hasArgs := m["args"]
		assert.False(t, hasArgs)
		_, hasErr := m["error"]
		assert.False(t, hasErr)
	})

	t.Run("with arguments", func(t *testing.T) {
		m := attrMap(ti.LogAttrs(true))
		args, ok := m["args"]
		require.True(t, ok)
		group := attrMap(args.Group())
		assert.Equal(t, "Dentist", group["title"].String())
		assert.Equal(t, "2025-08-05 14:30", group["datetime"].String())
		_, hasLocation := group["location"]
		assert.False(t, hasLocation, "empty arguments are skipped")
	})
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	al := NewAuditLogger(logger)
	al.LogToolInvocation(NewToolInvocation(testToolList).CompleteSuccess())
	al.LogToolInvocation(NewToolInvocation(testToolCreate).
		WithArgument("title", "Secret meeting").
		CompleteWithError(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=tool_executed")
	assert.Contains(t, out, "level=WARN msg=tool_failed")
	assert.Contains(t, out, "error=boom")
	assert.NotContains(t, out, "Secret meeting")
}

func TestAuditLogger_IncludeArguments(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludeArguments: true})
	al.LogToolInvocation(NewToolInvocation(testToolCreate).
		WithArgument("title", "Standup").
		CompleteWithClarification())

	out := buf.String()
	assert.Contains(t, out, "args.title=Standup")
	assert.Contains(t, out, "outcome=clarification")
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation(testToolList).CompleteSuccess())
	assert.Empty(t, strings.TrimSpace(buf.String()))

	// A nil logger is also a no-op
	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation(testToolList).CompleteSuccess())
}

func TestAuditLogger_NilSlogLogger(t *testing.T) {
	al := NewAuditLogger(nil)
	require.NotNil(t, al.logger)
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation("test").WithSpanContext(context.Background())
	assert.Empty(t, ti.TraceID)
	assert.Empty(t, ti.SpanID)
}
