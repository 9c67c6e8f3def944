// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"
	"net/http"

	"github.com/Query-farm/catbus/rson"
)

// namespaceHandler holds one instance for the lifetime of the handler. Its
// methods are called without the instance.
type namespaceHandler struct {
	*nested
	obj Object
}

// NamespaceHandler exposes a *Type as a namespace: one instance built when
// the handler is, methods called as plain functions.
func NamespaceHandler(name string, exposed any) (Handler, error) {
	t, err := exposedType(name, exposed)
	if err != nil {
		return nil, err
	}
	obj, err := t.construct(NewCallContext(nil, ""), nil)
	if err != nil {
		return nil, fmt.Errorf("catbus: building %s: %w", name, err)
	}
	h := &namespaceHandler{nested: newNested(name, t), obj: obj}
	if err := h.addChildren(FunctionHandler); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *namespaceHandler) OnRequest(cc *CallContext, req *rson.Request) (any, error) {
	return h.route(cc, req, func(cc *CallContext) { cc.setInstance(h.name, h.obj) }, h.handleRequest)
}

func (h *namespaceHandler) handleRequest(_ *CallContext, req *rson.Request) (any, error) {
	if req.Method != http.MethodGet {
		return nil, methodNotAllowed("%s %s", req.Method, h.name)
	}
	return h.obj, nil
}

func (h *namespaceHandler) Embed(prefix string, v any) (any, error) {
	return h.embed(prefix, v, h.handleEmbed)
}

func (h *namespaceHandler) handleEmbed(prefix string, v any) (any, error) {
	return embedInstance(h.nested, prefix, v, true)
}

func (h *namespaceHandler) Inline(prefix string) (any, error) {
	return h.handleEmbed(prefix, h.obj)
}

// embedInstance renders v for a handler whose instances are namespaces.
func embedInstance(n *nested, prefix string, v any, withAttributes bool) (any, error) {
	switch x := v.(type) {
	case nil:
		return n.Link(prefix), nil
	case *Type:
		if x == n.t {
			return n.Link(prefix), nil
		}
	case *Bound:
		return methodLink(joinPath(n.url(prefix), x.Method.Name), x.Method), nil
	case Object:
		if x.TypeName() == n.t.Name {
			var attrs map[string]any
			if withAttributes {
				attrs = n.t.attributes(x)
			}
			return n.namespace(prefix, x, attrs)
		}
	}
	return nil, fmt.Errorf("catbus: %s can't embed %T", n.name, v)
}

// serviceHandler builds a fresh instance per request. All methods are
// called without an instance.
type serviceHandler struct {
	*nested
}

// ServiceHandler exposes a *Type as a service: a new instance per request,
// methods as class-level entry points.
func ServiceHandler(name string, exposed any) (Handler, error) {
	t, err := exposedType(name, exposed)
	if err != nil {
		return nil, err
	}
	h := &serviceHandler{nested: newNested(name, t)}
	if err := h.addChildren(FunctionHandler); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *serviceHandler) OnRequest(cc *CallContext, req *rson.Request) (any, error) {
	return h.route(cc, req, nil, h.handleRequest)
}

func (h *serviceHandler) handleRequest(cc *CallContext, req *rson.Request) (any, error) {
	if req.Method != http.MethodGet {
		return nil, methodNotAllowed("%s %s", req.Method, h.name)
	}
	return h.t.construct(cc, nil)
}

func (h *serviceHandler) Embed(prefix string, v any) (any, error) {
	return h.embed(prefix, v, h.handleEmbed)
}

func (h *serviceHandler) handleEmbed(prefix string, v any) (any, error) {
	return embedInstance(h.nested, prefix, v, false)
}

func (h *serviceHandler) Inline(prefix string) (any, error) {
	return h.handleEmbed(prefix, placeholder(h.t.Name))
}

// singletonHandler holds one instance for the lifetime of the handler and
// binds its methods to it.
type singletonHandler struct {
	*nested
	obj Object
}

// SingletonHandler exposes a *Type as a singleton: one instance for the
// lifetime of the handler, methods bound to it.
func SingletonHandler(name string, exposed any) (Handler, error) {
	t, err := exposedType(name, exposed)
	if err != nil {
		return nil, err
	}
	obj, err := t.construct(NewCallContext(nil, ""), nil)
	if err != nil {
		return nil, fmt.Errorf("catbus: building %s: %w", name, err)
	}
	h := &singletonHandler{nested: newNested(name, t), obj: obj}
	if err := h.addChildren(MethodHandler(name)); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *singletonHandler) OnRequest(cc *CallContext, req *rson.Request) (any, error) {
	return h.route(cc, req, func(cc *CallContext) { cc.setInstance(h.name, h.obj) }, h.handleRequest)
}

func (h *singletonHandler) handleRequest(_ *CallContext, req *rson.Request) (any, error) {
	if req.Method != http.MethodGet {
		return nil, methodNotAllowed("%s %s", req.Method, h.name)
	}
	return h.obj, nil
}

func (h *singletonHandler) Embed(prefix string, v any) (any, error) {
	return h.embed(prefix, v, h.handleEmbed)
}

func (h *singletonHandler) handleEmbed(prefix string, v any) (any, error) {
	return embedInstance(h.nested, prefix, v, true)
}

func (h *singletonHandler) Inline(prefix string) (any, error) {
	return h.handleEmbed(prefix, h.obj)
}
