// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package catbusotel provides OpenTelemetry instrumentation for catbus
// servers. It implements [catbus.DispatchHook] to trace and measure every
// request.
//
// Usage:
//
//	server := catbus.NewHttpServer(registry)
//	catbusotel.InstrumentServer(server, catbusotel.DefaultConfig())
package catbusotel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Query-farm/catbus/catbus"
	"github.com/Query-farm/catbus/rson"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "catbus"

// OtelConfig configures OpenTelemetry instrumentation for a catbus server.
type OtelConfig struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// Propagator extracts trace context from the traceparent and tracestate
	// headers. Defaults to otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator
	// EnableTracing starts a server span per request.
	EnableTracing bool
	// EnableMetrics records the request counter and duration histogram.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span of failed requests.
	RecordExceptions bool
	// ServiceName is the rpc.service attribute value. Defaults to
	// HttpServer.ServiceName() or "catbus".
	ServiceName string
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig enables tracing, metrics and exception recording with the
// global providers.
func DefaultConfig() OtelConfig {
	return OtelConfig{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// InstrumentServer installs the hook on server with
// [catbus.HttpServer.SetDispatchHook].
func InstrumentServer(server *catbus.HttpServer, cfg OtelConfig) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.ServiceName == "" {
		if sn := server.ServiceName(); sn != "" {
			cfg.ServiceName = sn
		} else {
			cfg.ServiceName = "catbus"
		}
	}
	server.SetDispatchHook(newHook(cfg))
}

func newHook(cfg OtelConfig) *otelHook {
	h := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		h.requestCounter, _ = meter.Int64Counter("rpc.server.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of catbus requests"),
		)
		h.durationHistogram, _ = meter.Float64Histogram("rpc.server.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of catbus requests"),
		)
	}
	return h
}

type otelHook struct {
	cfg               OtelConfig
	tracer            trace.Tracer
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// handlerName is what spans and metrics are keyed by; the index has no
// handler of its own.
func handlerName(info catbus.DispatchInfo) string {
	if info.Handler == "" {
		return "index"
	}
	return info.Handler
}

func (h *otelHook) OnDispatchStart(ctx context.Context, info catbus.DispatchInfo) (context.Context, catbus.HookToken) {
	if h.cfg.Propagator != nil && info.TransportMetadata != nil {
		ctx = h.cfg.Propagator.Extract(ctx, propagation.MapCarrier(info.TransportMetadata))
	}
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "catbus"),
		attribute.String("rpc.service", h.cfg.ServiceName),
		attribute.String("rpc.method", handlerName(info)),
		attribute.String("http.request.method", info.Method),
		attribute.String("url.path", info.Path),
		attribute.String("rpc.catbus.request_id", info.RequestID),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)
	if v := info.TransportMetadata["remote_addr"]; v != "" {
		attrs = append(attrs, attribute.String("net.peer.ip", v))
	}
	if v := info.TransportMetadata["user_agent"]; v != "" {
		attrs = append(attrs, attribute.String("user_agent.original", v))
	}

	ctx, span := h.tracer.Start(ctx, fmt.Sprintf("catbus/%s %s", info.Method, handlerName(info)),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return ctx, &spanToken{span: span, startTime: time.Now()}
}

func (h *otelHook) OnDispatchEnd(ctx context.Context, token catbus.HookToken, info catbus.DispatchInfo, stats *catbus.CallStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}
	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("rpc.system", "catbus"),
			attribute.String("rpc.service", h.cfg.ServiceName),
			attribute.String("rpc.method", handlerName(info)),
			attribute.String("http.request.method", info.Method),
			attribute.String("status", status),
		)
		if h.requestCounter != nil {
			h.requestCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
	}

	if st.span == nil || !st.span.IsRecording() {
		return
	}
	if stats != nil {
		st.span.SetAttributes(
			attribute.Int64("http.request.body.size", stats.RequestBytes),
			attribute.Int64("http.response.body.size", stats.ResponseBytes),
			attribute.Int("http.response.status_code", stats.Status),
		)
	}
	if err != nil {
		st.span.SetStatus(codes.Error, err.Error())
		if h.cfg.RecordExceptions {
			st.span.RecordError(err)
		}
		errType := fmt.Sprintf("%T", err)
		var e *rson.Error
		if errors.As(err, &e) {
			errType = e.Type
		}
		st.span.SetAttributes(attribute.String("rpc.catbus.error_type", errType))
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
	st.span.End()
}
