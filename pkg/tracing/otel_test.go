// Copyright 2026 fanjia1024

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans_RecordedWithAttributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartQuerySpan(context.Background(), "hello")
	_, child := StartHandlerSpan(ctx, "GENERAL")
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)

	ended := rec.Ended()
	if assert.Len(t, ended, 2) {
		assert.Equal(t, "router.handle", ended[0].Name())
		assert.Equal(t, "router.process", ended[1].Name())
		assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	}
}
