// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Query-farm/catbus/rson"
)

// collectionHandler serves keyed instances held by a Store.
//
//	<name>                     GET: the collection itself (a Dataset)
//	<name>/new                 POST: create from the body
//	<name>/list                GET: a page; DELETE: delete the selection
//	<name>/delete/<key>        POST: delete one item
//	<name>/id/<key>            GET: lookup; DELETE: delete
//	<name>/id/<key>/<method>   GET (safe methods) or POST: call
//	<name>/id/<key>/<m>/wait   GET: poll the completion function
type collectionHandler struct {
	name       string
	t          *Type
	store      Store
	key        string
	listFields []string
}

// CollectionHandler returns a factory exposing a *Type as a keyed collection
// backed by store. key names the identifying attribute; listFields are the
// attributes clients may use in selectors (the key is always allowed).
func CollectionHandler(store Store, key string, listFields ...string) HandlerFactory {
	return func(name string, exposed any) (Handler, error) {
		t, err := exposedType(name, exposed)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, fmt.Errorf("catbus: collection %s has no store", name)
		}
		fields := []string{key}
		for _, f := range listFields {
			if f != key {
				fields = append(fields, f)
			}
		}
		return &collectionHandler{name: name, t: t, store: store, key: key, listFields: fields}, nil
	}
}

func (h *collectionHandler) Name() string { return h.name }

func (h *collectionHandler) OnRequest(cc *CallContext, req *rson.Request) (any, error) {
	path, ok := splitName(req.URL, h.name)
	if !ok {
		return nil, notFound("%s", req.URL)
	}
	route, rest, _ := strings.Cut(path, "/")
	ctx := cc.context()

	switch route {
	case SegmentID:
		return h.item(cc, req, rest)

	case SegmentList:
		switch req.Method {
		case http.MethodGet:
			sel, err := rson.ParseSelector(req.Params[ParamWhere])
			if err != nil {
				return nil, err
			}
			limit := 0
			if raw := req.Params[ParamLimit]; raw != "" {
				if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
					return nil, invalidArgument("bad limit %q", raw)
				}
			}
			page, err := h.store.List(ctx, sel, limit, req.Params[ParamContinue])
			if err != nil {
				return nil, err
			}
			page.kind = h.t.Name
			return page, nil
		case http.MethodDelete:
			where, ok := req.Params[ParamWhere]
			if !ok {
				return nil, methodNotAllowed("DELETE %s/list needs a selector", h.name)
			}
			sel, err := rson.ParseSelector(where)
			if err != nil {
				return nil, err
			}
			return nil, h.store.DeleteList(ctx, sel)
		}
		return nil, methodNotAllowed("%s %s/list", req.Method, h.name)

	case SegmentNew:
		if req.Method != http.MethodPost {
			return nil, methodNotAllowed("%s %s/new", req.Method, h.name)
		}
		body, err := bodyArgs(req.Body)
		if err != nil {
			return nil, err
		}
		return h.store.Create(ctx, body)

	case SegmentDelete:
		if req.Method != http.MethodPost {
			return nil, methodNotAllowed("%s %s/delete", req.Method, h.name)
		}
		if rest == "" {
			return nil, notFound("%s/delete needs a key", h.name)
		}
		return nil, h.store.Delete(ctx, rest)

	case "":
		if req.Method != http.MethodGet {
			return nil, methodNotAllowed("%s %s", req.Method, h.name)
		}
		return h.t, nil
	}
	return nil, rson.Errorf(rson.TypeNotImplemented, "%s %s/%s", req.Method, h.name, route)
}

// item serves id/<key>[/<method>[/wait]].
func (h *collectionHandler) item(cc *CallContext, req *rson.Request, path string) (any, error) {
	key, method, hasMethod := strings.Cut(path, "/")
	if key == "" {
		return nil, notFound("%s/id needs a key", h.name)
	}
	if strings.HasPrefix(method, "_") {
		return nil, forbidden("%s", method)
	}
	ctx := cc.context()
	if !hasMethod || method == "" {
		switch req.Method {
		case http.MethodGet:
			return h.store.Lookup(ctx, key)
		case http.MethodDelete:
			return nil, h.store.Delete(ctx, key)
		}
		return nil, methodNotAllowed("%s %s/id/%s", req.Method, h.name, key)
	}

	method, sub, hasSub := strings.Cut(method, "/")
	m, ok := h.t.Method(method)
	if !ok {
		return nil, notFound("%s has no method %q", h.t.Name, method)
	}
	obj, err := h.store.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !hasSub {
		return invoke(cc, req, m, obj)
	}
	if sub == SegmentWait {
		return invokeReady(cc, req, m, obj)
	}
	return nil, notFound("%s/id/%s/%s/%s", h.name, key, method, sub)
}

func (h *collectionHandler) url(prefix string) string { return prefix + h.name }

func (h *collectionHandler) itemURL(prefix string, obj Object) string {
	return h.url(prefix) + "/" + SegmentID + "/" + url.PathEscape(h.store.KeyFor(obj))
}

func (h *collectionHandler) Link(prefix string) rson.Hyperlink {
	return &rson.Dataset{
		Kind:     h.t.Name,
		URL:      h.url(prefix),
		New:      argNames(h.t.Args),
		Defaults: h.t.Defaults,
		List:     h.listFields,
		Key:      h.key,
	}
}

func (h *collectionHandler) Embed(prefix string, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return h.Link(prefix), nil
	case *Type:
		if x == h.t {
			return h.Link(prefix), nil
		}
	case *Bound:
		return methodLink(h.itemURL(prefix, x.Self)+"/"+x.Method.Name, x.Method), nil
	case Object:
		links, actions := h.t.actions()
		return &rson.Resource{
			Kind:       h.t.Name,
			URL:        h.itemURL(prefix, x),
			ID:         h.store.KeyFor(x),
			Collection: h.url(prefix),
			Links:      links,
			Actions:    actions,
			Embeds:     map[string]any{},
			Attributes: h.t.attributes(x),
		}, nil
	}
	return nil, fmt.Errorf("catbus: %s can't embed %T", h.name, v)
}

func (h *collectionHandler) Inline(string) (any, error) { return nil, nil }

func (h *collectionHandler) Subtypes() []any { return nil }
