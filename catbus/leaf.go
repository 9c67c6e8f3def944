// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"

	"github.com/Query-farm/catbus/rson"
)

// functionHandler serves a function or an unbound method.
type functionHandler struct {
	name string
	m    *Method
}

// FunctionHandler exposes a *Method called without an instance. GET calls
// it when it is safe, POST with the body as arguments, and GET on /wait
// polls its completion function.
func FunctionHandler(name string, exposed any) (Handler, error) {
	m, ok := exposed.(*Method)
	if !ok {
		return nil, fmt.Errorf("catbus: %q: expected *Method, got %T", name, exposed)
	}
	if m.Call == nil {
		return nil, fmt.Errorf("catbus: %q has no Call function", name)
	}
	return &functionHandler{name: name, m: m}, nil
}

func (h *functionHandler) Name() string { return h.name }

func (h *functionHandler) OnRequest(cc *CallContext, req *rson.Request) (any, error) {
	return serveLeaf(cc, req, h.name, h.m, nil)
}

func serveLeaf(cc *CallContext, req *rson.Request, name string, m *Method, self Object) (any, error) {
	path, ok := splitName(req.URL, name)
	if !ok {
		return nil, notFound("%s", req.URL)
	}
	switch path {
	case "":
		return invoke(cc, req, m, self)
	case SegmentWait:
		return invokeReady(cc, req, m, self)
	}
	return nil, notFound("%s/%s", name, path)
}

func (h *functionHandler) url(prefix string) string { return prefix + h.name }

func (h *functionHandler) Link(prefix string) rson.Hyperlink { return methodLink(h.url(prefix), h.m) }

func (h *functionHandler) Embed(prefix string, v any) (any, error) {
	if v == nil || v == any(h.m) {
		return h.Link(prefix), nil
	}
	return nil, fmt.Errorf("catbus: %s can't embed %T", h.name, v)
}

func (h *functionHandler) Inline(string) (any, error) { return nil, nil }

func (h *functionHandler) Subtypes() []any { return nil }

// methodHandler serves a method bound to the instance an enclosing handler
// stored in the call context under owner.
type methodHandler struct {
	functionHandler
	owner string
}

// MethodHandler returns a factory for methods bound to the instance the
// handler named owner resolves for each call.
func MethodHandler(owner string) HandlerFactory {
	return func(name string, exposed any) (Handler, error) {
		h, err := FunctionHandler(name, exposed)
		if err != nil {
			return nil, err
		}
		return &methodHandler{functionHandler: *h.(*functionHandler), owner: owner}, nil
	}
}

func (h *methodHandler) OnRequest(cc *CallContext, req *rson.Request) (any, error) {
	self, ok := cc.Instance(h.owner)
	if !ok {
		return nil, fmt.Errorf("catbus: no %s instance in call context for %s", h.owner, h.name)
	}
	return serveLeaf(cc, req, h.name, h.m, self)
}
