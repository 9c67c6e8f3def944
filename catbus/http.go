// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Query-farm/catbus/rson"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const maxRequestBody = 32 << 20

// HttpServer serves a Registry over HTTP.
type HttpServer struct {
	registry     *Registry
	dispatchHook DispatchHook
	serviceName  string
	debugErrors  bool
	zstdEncoder  *zstd.Encoder
}

// NewHttpServer creates a new HTTP server wrapping a registry.
func NewHttpServer(registry *Registry) *HttpServer {
	return &HttpServer{registry: registry}
}

// Registry returns the wrapped registry.
func (h *HttpServer) Registry() *Registry { return h.registry }

// SetDispatchHook registers a hook that is called around each request.
func (h *HttpServer) SetDispatchHook(hook DispatchHook) {
	h.dispatchHook = hook
}

// SetServiceName sets a logical service name used by observability hooks.
func (h *HttpServer) SetServiceName(name string) {
	h.serviceName = name
}

// ServiceName returns the logical service name, or empty string if not set.
func (h *HttpServer) ServiceName() string {
	return h.serviceName
}

// SetDebugErrors controls whether 500 responses for unexpected failures
// include the stack trace. Traces are always logged.
func (h *HttpServer) SetDebugErrors(enabled bool) {
	h.debugErrors = enabled
}

// SetCompressionLevel enables zstd compression of response bodies for
// clients sending "Accept-Encoding: zstd". level follows the zstd command
// line scale (1-22); 0 disables compression.
func (h *HttpServer) SetCompressionLevel(level int) error {
	if level <= 0 {
		h.zstdEncoder = nil
		return nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return fmt.Errorf("catbus: zstd encoder: %w", err)
	}
	h.zstdEncoder = enc
	return nil
}

// ServeHTTP implements http.Handler.
func (h *HttpServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, requestID)

	stats := &CallStatistics{}
	info := DispatchInfo{
		Method:      r.Method,
		Path:        r.URL.Path,
		Handler:     h.registry.HandlerName(r.URL.Path),
		ServiceName: h.serviceName,
		RequestID:   requestID,
		TransportMetadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		},
	}
	for _, k := range []string{"traceparent", "tracestate"} {
		if v := r.Header.Get(k); v != "" {
			info.TransportMetadata[k] = v
		}
	}

	ctx := r.Context()
	var hookToken HookToken
	hookActive := false
	if h.dispatchHook != nil {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					slog.Error("dispatch hook start panic", "err", rv)
				}
			}()
			var hookCtx context.Context
			hookCtx, hookToken = h.dispatchHook.OnDispatchStart(ctx, info)
			if hookCtx != nil {
				ctx = hookCtx
			}
			hookActive = true
		}()
	}

	body, err := h.serve(ctx, r, requestID, stats)
	if err != nil {
		h.writeError(w, r, requestID, err, stats)
	} else if body == "" {
		stats.Status = http.StatusNoContent
		w.WriteHeader(http.StatusNoContent)
	} else {
		stats.Status = http.StatusOK
		h.write(w, r, http.StatusOK, ContentType, []byte(body), stats)
	}

	if hookActive {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					slog.Error("dispatch hook end panic", "err", rv)
				}
			}()
			h.dispatchHook.OnDispatchEnd(ctx, hookToken, info, stats, err)
		}()
	}
}

// serve dispatches one request and renders its result. An empty body means
// the call produced no value.
func (h *HttpServer) serve(ctx context.Context, r *http.Request, requestID string, stats *CallStatistics) (body string, err error) {
	defer func() {
		if rv := recover(); rv != nil {
			err = &panicError{value: rv, trace: captureTrace()}
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return "", invalidArgument("reading request body: %v", err)
	}
	stats.RequestBytes = int64(len(raw))
	var data any
	if len(strings.TrimSpace(string(raw))) > 0 {
		if data, err = rson.Parse(string(raw)); err != nil {
			return "", invalidArgument("decoding request body: %v", err)
		}
	}

	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	cc := &CallContext{Ctx: ctx, RequestID: requestID, Method: r.Method, Path: r.URL.Path}
	slog.Debug("dispatch", "method", r.Method, "path", r.URL.Path, "request_id", requestID)
	out, err := h.registry.Handle(cc, &rson.Request{
		Method:  r.Method,
		URL:     r.URL.Path,
		Params:  params,
		Headers: map[string]string{},
		Body:    data,
	})
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return h.registry.Render(r.URL.Path, out)
}

func (h *HttpServer) writeError(w http.ResponseWriter, r *http.Request, requestID string, err error, stats *CallStatistics) {
	status := StatusFor(err)
	stats.Status = status

	var e *rson.Error
	if errors.As(err, &e) {
		if status == http.StatusInternalServerError {
			slog.Error("dispatch failed", "err", err, "method", r.Method, "path", r.URL.Path, "request_id", requestID)
		}
		body, encErr := rson.Dump(e)
		if encErr == nil {
			h.write(w, r, status, ContentType, []byte(body), stats)
			return
		}
		err = encErr
	}

	trace := captureTrace()
	var p *panicError
	if errors.As(err, &p) {
		trace = p.trace
	}
	slog.Error("unexpected dispatch error", "err", err, "method", r.Method, "path", r.URL.Path,
		"request_id", requestID, "trace", trace)

	msg := fmt.Sprintf("%s %s: %v\n", r.Method, r.URL.Path, err)
	if h.debugErrors {
		msg += "\n" + trace
	}
	stats.Status = http.StatusInternalServerError
	h.write(w, r, http.StatusInternalServerError, "text/plain; charset=utf-8", []byte(msg), stats)
}

func (h *HttpServer) write(w http.ResponseWriter, r *http.Request, status int, contentType string, data []byte, stats *CallStatistics) {
	w.Header().Set(HeaderContentType, contentType)
	if h.zstdEncoder != nil && acceptsZstd(r) {
		data = h.zstdEncoder.EncodeAll(data, nil)
		w.Header().Set(HeaderContentEncoding, "zstd")
	}
	stats.ResponseBytes = int64(len(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write response", "err", err, "path", r.URL.Path)
	}
}

func acceptsZstd(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get(HeaderAcceptEncoding), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(name, "zstd") {
			return true
		}
	}
	return false
}
