// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import "context"

// CallContext carries request-scoped information down the dispatch tree.
type CallContext struct {
	// Ctx is the request-scoped context, carrying cancellation and deadlines.
	Ctx context.Context
	// RequestID identifies this request; it is echoed in the response headers.
	RequestID string
	// Method is the HTTP verb of the request.
	Method string
	// Path is the request path as received.
	Path string

	instances map[string]Object
}

// NewCallContext returns a CallContext for one dispatch.
func NewCallContext(ctx context.Context, requestID string) *CallContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &CallContext{Ctx: ctx, RequestID: requestID}
}

// Instance returns the object a handler above the current one resolved
// under name during this call.
func (cc *CallContext) Instance(name string) (Object, bool) {
	obj, ok := cc.instances[name]
	return obj, ok
}

func (cc *CallContext) setInstance(name string, obj Object) {
	if cc.instances == nil {
		cc.instances = make(map[string]Object)
	}
	cc.instances[name] = obj
}

func (cc *CallContext) context() context.Context {
	if cc == nil || cc.Ctx == nil {
		return context.Background()
	}
	return cc.Ctx
}
