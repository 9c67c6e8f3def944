// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Query-farm/catbus/rson"
)

// tokenHandler rebuilds an instance from the query string on every request.
// The instance's attributes are its identity.
type tokenHandler struct {
	name string
	t    *Type
}

// TokenHandler exposes a *Type whose instances are reconstructed from query
// parameters through the type's constructor.
func TokenHandler(name string, exposed any) (Handler, error) {
	t, err := exposedType(name, exposed)
	if err != nil {
		return nil, err
	}
	if t.New == nil {
		return nil, fmt.Errorf("catbus: token type %s has no constructor", name)
	}
	return &tokenHandler{name: name, t: t}, nil
}

func (h *tokenHandler) Name() string { return h.name }

func (h *tokenHandler) OnRequest(cc *CallContext, req *rson.Request) (any, error) {
	path, ok := splitName(req.URL, h.name)
	if !ok {
		return nil, notFound("%s", req.URL)
	}
	if strings.HasPrefix(path, "_") {
		return nil, forbidden("%s", path)
	}
	if strings.Contains(path, "/") {
		return nil, notFound("%s/%s", h.name, path)
	}

	if len(req.Params) == 0 {
		if path != "" {
			return nil, rson.Errorf(rson.TypeNotImplemented, "%s/%s needs an instance", h.name, path)
		}
		switch req.Method {
		case http.MethodGet:
			return h.t, nil
		case http.MethodPost:
			body, err := bodyArgs(req.Body)
			if err != nil {
				return nil, err
			}
			return h.t.construct(cc, body)
		}
		return nil, methodNotAllowed("%s %s", req.Method, h.name)
	}

	obj, err := h.lookup(cc, req.Params)
	if err != nil {
		return nil, err
	}
	if path == "" {
		if req.Method != http.MethodGet {
			return nil, methodNotAllowed("%s %s", req.Method, h.name)
		}
		return obj, nil
	}
	m, ok := h.t.Method(path)
	if !ok {
		return nil, notFound("%s has no method %q", h.name, path)
	}
	return invoke(cc, req, m, obj)
}

func (h *tokenHandler) lookup(cc *CallContext, params map[string]string) (Object, error) {
	args := make(Args, len(params))
	for k, raw := range params {
		if strings.HasPrefix(k, "_") {
			continue
		}
		v, err := rson.Parse(raw)
		if err != nil {
			return nil, invalidArgument("parameter %q: %v", k, err)
		}
		args[k] = v
	}
	return h.t.construct(cc, args)
}

func (h *tokenHandler) url(prefix string) string { return prefix + h.name }

func (h *tokenHandler) Link(prefix string) rson.Hyperlink {
	return &rson.Form{URL: h.url(prefix), Arguments: argNames(h.t.Args), Defaults: h.t.Defaults}
}

// instanceURL carries the instance's attributes in the query string.
func (h *tokenHandler) instanceURL(prefix string, obj Object) (string, map[string]any, error) {
	attrs := h.t.attributes(obj)
	q := url.Values{}
	for k, v := range attrs {
		text, err := rson.Dump(v)
		if err != nil {
			return "", nil, err
		}
		q.Set(k, text)
	}
	return h.url(prefix) + "?" + q.Encode(), attrs, nil
}

func (h *tokenHandler) Embed(prefix string, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return h.Link(prefix), nil
	case *Type:
		if x == h.t {
			return h.Link(prefix), nil
		}
	case *Bound:
		u, _, err := h.instanceURL(prefix, x.Self)
		if err != nil {
			return nil, err
		}
		return methodLink(joinPath(u, x.Method.Name), x.Method), nil
	case Object:
		u, attrs, err := h.instanceURL(prefix, x)
		if err != nil {
			return nil, err
		}
		links, actions := h.t.actions()
		return &rson.Resource{
			Kind:       h.t.Name,
			URL:        u,
			Links:      links,
			Actions:    actions,
			Embeds:     map[string]any{},
			Attributes: attrs,
		}, nil
	}
	return nil, fmt.Errorf("catbus: %s can't embed %T", h.name, v)
}

func (h *tokenHandler) Inline(string) (any, error) { return nil, nil }

func (h *tokenHandler) Subtypes() []any { return nil }
