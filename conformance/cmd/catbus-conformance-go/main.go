// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Command catbus-conformance-go serves the conformance fixture over HTTP.
// It prints "PORT:<n>" once listening and runs until SIGTERM or SIGINT.
//
//	catbus-conformance-go [-config file.cue]... [-addr host:port] [-debug-errors] [-trace]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Query-farm/catbus/catbus"
	catbusotel "github.com/Query-farm/catbus/catbus/otel"
	"github.com/Query-farm/catbus/conformance"
	"github.com/Query-farm/catbus/internal/config"
	"github.com/Query-farm/catbus/internal/logs"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type paths []string

func (p *paths) String() string     { return strings.Join(*p, ",") }
func (p *paths) Set(v string) error { *p = append(*p, v); return nil }

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catbus-conformance-go: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configs paths
	flag.Var(&configs, "config", "CUE config file (repeatable)")
	addr := flag.String("addr", "", "listen address, overrides the config")
	debugErrors := flag.Bool("debug-errors", false, "include stack traces in 500 responses")
	trace := flag.Bool("trace", false, "export spans and metrics to stdout")
	flag.Parse()

	cfg, err := config.Load(configs...)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	cfg.DebugErrors = cfg.DebugErrors || *debugErrors
	cfg.Trace = cfg.Trace || *trace

	logger, err := logs.New(logs.Options{Level: cfg.LogLevel, File: cfg.LogFile, Journal: cfg.Journal})
	if err != nil {
		return err
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	registry := catbus.NewRegistry(cfg.Name)
	registry.SetWaitInterval(cfg.WaitInterval())
	conformance.RegisterEndpoints(registry)

	httpServer := catbus.NewHttpServer(registry)
	httpServer.SetServiceName("catbus-conformance")
	httpServer.SetDebugErrors(cfg.DebugErrors)
	if err := httpServer.SetCompressionLevel(cfg.CompressionLevel); err != nil {
		return err
	}

	if cfg.Trace {
		shutdown, err := setupTelemetry()
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
		catbusotel.InstrumentServer(httpServer, catbusotel.DefaultConfig())
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Printf("PORT:%d\n", port)
	os.Stdout.Sync()
	slog.Info("serving", "addr", listener.Addr().String(), "prefix", registry.Prefix())

	srv := &http.Server{Handler: httpServer}

	// Catch SIGTERM/SIGINT so the process exits cleanly and flushes
	// telemetry and coverage data.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve error: %w", err)
	}
	return nil
}

// setupTelemetry installs global tracer and meter providers writing to
// stdout.
func setupTelemetry() (func(context.Context) error, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
