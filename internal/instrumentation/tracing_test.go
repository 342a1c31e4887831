package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// useRecorder installs a recording tracer provider for the duration of a test.
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("create_event").
		WithService(ServiceCalendar).
		WithOperation(OperationInsert).
		WithEventID("evt123").
		WithEvent(true, 3).
		WithCredentialSource(CredentialSourceStore).
		WithClarification("need_date").
		Build()

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	assert.Len(t, attrs, 8)
	assert.Equal(t, "create_event", attrMap[SpanAttrTool])
	assert.Equal(t, ServiceCalendar, attrMap[SpanAttrService])
	assert.Equal(t, OperationInsert, attrMap[SpanAttrOperation])
	assert.Equal(t, "evt123", attrMap[SpanAttrEventID])
	assert.Equal(t, true, attrMap[SpanAttrAllDay])
	assert.Equal(t, "2-5", attrMap[SpanAttrAttendees])
	assert.Equal(t, CredentialSourceStore, attrMap[SpanAttrCredentialSource])
	assert.Equal(t, "need_date", attrMap[SpanAttrClarification])
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("ping").
		WithEventID("").
		WithCredentialSource("").
		WithClarification("").
		Build()

	// Only tool should be present
	assert.Len(t, attrs, 1)
}

func TestStartToolSpan(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := StartToolSpan(context.Background(), "get_todays_events")
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
	SetSpanSuccess(span)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "tool.get_todays_events", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := useRecorder(t)

	ctx, parent := StartToolSpan(context.Background(), "create_event")
	_, span := StartGoogleAPISpan(ctx, ServiceCalendar, OperationInsert)
	SetSpanError(span, errors.New("quota exceeded"))
	span.End()
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	child := spans[0]
	assert.Equal(t, "google.calendar.insert", child.Name())
	assert.Equal(t, trace.SpanKindClient, child.SpanKind())
	assert.Equal(t, codes.Error, child.Status().Code)
	assert.Equal(t, "quota exceeded", child.Status().Description)
	assert.Equal(t, spans[1].SpanContext().SpanID(), child.Parent().SpanID())
}

func TestStartCredentialSpan(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartCredentialSpan(context.Background(), "acquire")
	AddSpanEvent(span, "cache_miss")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "credential.acquire", spans[0].Name())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "cache_miss", spans[0].Events()[0].Name)
}

func TestSetSpanError_NilIsNoop(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartSpan(context.Background(), "noop")
	SetSpanError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTraceIDs_NoSpan(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}
