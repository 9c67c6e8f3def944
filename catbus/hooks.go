// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import "context"

// DispatchHook provides observability callpoints around request dispatch.
// Implementations must be safe for concurrent use.
type DispatchHook interface {
	OnDispatchStart(ctx context.Context, info DispatchInfo) (context.Context, HookToken)
	OnDispatchEnd(ctx context.Context, token HookToken, info DispatchInfo, stats *CallStatistics, err error)
}

// HookToken is an opaque value returned by OnDispatchStart and passed back to
// OnDispatchEnd. Only meaningful to the DispatchHook that created it.
type HookToken interface{}

// DispatchInfo describes one request.
type DispatchInfo struct {
	Method            string            // HTTP verb
	Path              string            // request path
	Handler           string            // top-level handler name, "" for the index
	ServiceName       string            // from HttpServer.SetServiceName
	RequestID         string            // echoed or generated request identifier
	TransportMetadata map[string]string // selected HTTP headers
}

// CallStatistics holds per-request I/O counters.
type CallStatistics struct {
	RequestBytes  int64
	ResponseBytes int64
	Status        int
}
