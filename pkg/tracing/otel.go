// Copyright 2026 fanjia1024
// OpenTelemetry integration for distributed tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "adaptive-rag"

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer
func InitTracer(config OTelConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartQuerySpan 开始一次路由查询 span
func StartQuerySpan(ctx context.Context, question string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "router.process",
		trace.WithAttributes(
			attribute.Int("query.length", len(question)),
		),
	)
}

// StartClassifySpan 开始分类 span
func StartClassifySpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "router.classify")
}

// StartHandlerSpan 开始意图处理器 span
func StartHandlerSpan(ctx context.Context, category string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "router.handle",
		trace.WithAttributes(
			attribute.String("query.category", category),
		),
	)
}

// StartIngestSpan 开始文档入库 span
func StartIngestSpan(ctx context.Context, files int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ingest.add_documents",
		trace.WithAttributes(
			attribute.Int("ingest.files", files),
		),
	)
}

// EndSpan 结束 span，err 非空时记录错误状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
