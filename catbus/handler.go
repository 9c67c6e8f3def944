// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Query-farm/catbus/rson"
)

// Handler owns one URL subtree. Requests reach OnRequest with req.URL
// holding the path relative to the parent, starting with the handler's own
// name.
type Handler interface {
	Name() string
	OnRequest(cc *CallContext, req *rson.Request) (any, error)
	// Embed renders v, a value this handler owns, as a descriptor.
	Embed(prefix string, v any) (any, error)
	// Link is the lazy reference to the handler.
	Link(prefix string) rson.Hyperlink
	// Inline is the eager rendering used in indexes, or nil when the
	// handler is only linked.
	Inline(prefix string) (any, error)
	// Subtypes are the extra type keys the handler answers for.
	Subtypes() []any
}

// HandlerFactory builds the handler serving exposed under name.
type HandlerFactory func(name string, exposed any) (Handler, error)

// typeKey is the key exposed values are looked up by during rendering: the
// *Method itself for functions, the type name for types and instances.
func typeKey(v any) (any, bool) {
	switch x := v.(type) {
	case *Method:
		return x, true
	case *Type:
		return x.Name, true
	case *Bound:
		return x.Self.TypeName(), true
	case Object:
		return x.TypeName(), true
	}
	return nil, false
}

// splitName removes name from the front of path, returning what follows
// the separator.
func splitName(path, name string) (string, bool) {
	if path == name {
		return "", true
	}
	if !strings.HasPrefix(path, name+"/") {
		return "", false
	}
	return path[len(name)+1:], true
}

func firstSegment(path string) string {
	seg, _, _ := strings.Cut(path, "/")
	return seg
}

// nested is the shared part of handlers with named children.
type nested struct {
	name    string
	t       *Type
	forPath map[string]Handler
	order   []string
	forType map[any]Handler
}

func newNested(name string, t *Type) *nested {
	return &nested{
		name:    name,
		t:       t,
		forPath: make(map[string]Handler),
		forType: make(map[any]Handler),
	}
}

func (n *nested) Name() string { return n.name }

func (n *nested) url(prefix string) string { return prefix + n.name }

func (n *nested) Link(prefix string) rson.Hyperlink { return &rson.Link{URL: n.url(prefix)} }

func (n *nested) add(name string, key any, h Handler) error {
	if _, ok := n.forPath[name]; ok {
		return duplicate("%s: %q is already registered", n.name, name)
	}
	if _, ok := n.forType[key]; ok {
		return duplicate("%s: type of %q is already registered", n.name, name)
	}
	sub := h.Subtypes()
	for _, k := range sub {
		if _, ok := n.forType[k]; ok || k == key {
			return duplicate("%s: type %v of %q is already registered", n.name, k, name)
		}
	}
	n.forPath[name] = h
	n.order = append(n.order, name)
	n.forType[key] = h
	for _, k := range sub {
		n.forType[k] = h
	}
	return nil
}

// addChildren registers the methods and nested entries of the bound type.
// leaf builds the handler for each method.
func (n *nested) addChildren(leaf HandlerFactory) error {
	for _, m := range n.t.Methods {
		h, err := leaf(m.Name, m)
		if err != nil {
			return err
		}
		if err := n.add(m.Name, m, h); err != nil {
			return err
		}
	}
	for _, e := range n.t.Nested {
		h, key, err := buildEntry(e.Name, e.Exposed, e.Factory)
		if err != nil {
			return err
		}
		if err := n.add(e.Name, key, h); err != nil {
			return err
		}
	}
	return nil
}

func (n *nested) Subtypes() []any {
	out := make([]any, 0, len(n.forType))
	for k := range n.forType {
		out = append(out, k)
	}
	return out
}

// route strips the handler's name, then hands the request to the child
// named by the next segment, or to self when nothing is left.
func (n *nested) route(cc *CallContext, req *rson.Request, enter func(cc *CallContext), self func(cc *CallContext, req *rson.Request) (any, error)) (any, error) {
	path, ok := splitName(req.URL, n.name)
	if !ok {
		return nil, notFound("%s", req.URL)
	}
	sub := firstSegment(path)
	if strings.HasPrefix(sub, "_") {
		return nil, forbidden("%s", sub)
	}
	if child, ok := n.forPath[sub]; ok {
		if enter != nil {
			enter(cc)
		}
		return child.OnRequest(cc, &rson.Request{
			Method:  req.Method,
			URL:     path,
			Params:  req.Params,
			Headers: req.Headers,
			Body:    req.Body,
		})
	}
	if sub != "" {
		return nil, notFound("%s/%s", n.name, sub)
	}
	return self(cc, req)
}

// embed delegates to the child owning v, or renders v with own.
func (n *nested) embed(prefix string, v any, own func(prefix string, v any) (any, error)) (any, error) {
	if key, ok := typeKey(v); ok {
		if child, ok := n.forType[key]; ok {
			return child.Embed(n.url(prefix)+"/", v)
		}
	}
	return own(prefix, v)
}

// namespace renders obj with its methods and inlined children.
func (n *nested) namespace(prefix string, obj Object, attributes map[string]any) (any, error) {
	sub := n.url(prefix) + "/"
	links, actions := n.t.actions()
	embeds := map[string]any{}
	for _, name := range n.order {
		if contains(links, name) {
			continue
		}
		if _, ok := actions[name]; ok {
			continue
		}
		inline, err := n.forPath[name].Inline(sub)
		if err != nil {
			return nil, err
		}
		if inline != nil {
			embeds[name] = inline
		}
		links = append(links, name)
	}
	if attributes == nil {
		attributes = map[string]any{}
	}
	return &rson.Namespace{
		Kind:       n.t.Name,
		URL:        n.url(prefix),
		Links:      links,
		Actions:    actions,
		Embeds:     embeds,
		Attributes: attributes,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// buildEntry builds the handler for a registration and returns it with its
// type key.
func buildEntry(name string, exposed any, factory HandlerFactory) (Handler, any, error) {
	key, ok := typeKey(exposed)
	if !ok {
		return nil, nil, fmt.Errorf("catbus: can't expose %q: unsupported value %T", name, exposed)
	}
	if factory == nil {
		switch x := exposed.(type) {
		case *Method:
			factory = FunctionHandler
		case *Type:
			factory = x.Handler
		}
	}
	if factory == nil {
		return nil, nil, fmt.Errorf("catbus: no handler for %q", name)
	}
	if name == "" {
		return nil, nil, invalidArgument("empty handler name")
	}
	h, err := factory(name, exposed)
	if err != nil {
		return nil, nil, err
	}
	return h, key, nil
}

func exposedType(name string, exposed any) (*Type, error) {
	t, ok := exposed.(*Type)
	if !ok {
		return nil, fmt.Errorf("catbus: %q: expected *Type, got %T", name, exposed)
	}
	return t, nil
}

// invoke runs m for the verb of req. GET calls without arguments and only
// when the method is safe; POST passes the body as keyword arguments.
func invoke(cc *CallContext, req *rson.Request, m *Method, self Object) (any, error) {
	switch req.Method {
	case http.MethodGet:
		if !m.Safe {
			return nil, methodNotAllowed("%s is not safe", m.Name)
		}
		args, err := m.bind(nil)
		if err != nil {
			return nil, err
		}
		return m.Call(cc, self, args)
	case http.MethodPost:
		body, err := bodyArgs(req.Body)
		if err != nil {
			return nil, err
		}
		args, err := m.bind(body)
		if err != nil {
			return nil, err
		}
		return m.Call(cc, self, args)
	}
	return nil, methodNotAllowed("%s %s", req.Method, m.Name)
}

// invokeReady polls the completion function of m with the query parameters
// of the request, each decoded from the wire format.
func invokeReady(cc *CallContext, req *rson.Request, m *Method, self Object) (any, error) {
	if req.Method != http.MethodGet {
		return nil, methodNotAllowed("%s %s/wait", req.Method, m.Name)
	}
	if m.Ready == nil {
		return nil, notFound("%s has no completion function", m.Name)
	}
	args := make(Args, len(req.Params))
	for k, raw := range req.Params {
		v, err := rson.Parse(raw)
		if err != nil {
			return nil, invalidArgument("wait parameter %q: %v", k, err)
		}
		args[k] = v
	}
	out, err := m.Ready(cc, self, args)
	if err != nil {
		return nil, err
	}
	if w, ok := out.(*Waiter); ok {
		w.fromResolve = true
	}
	return out, nil
}

func bodyArgs(body any) (Args, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return Args(b), nil
	case Args:
		return b, nil
	}
	return nil, invalidArgument("request body must be an object, got %T", body)
}

// methodLink is the link or form calling m at url.
func methodLink(url string, m *Method) rson.Hyperlink {
	if m.Safe {
		return &rson.Link{URL: url}
	}
	return &rson.Form{URL: url, Arguments: argNames(m.Args), Defaults: m.Defaults}
}

// joinPath appends a segment to url, keeping any query string at the end.
// A trailing slash on url is not doubled.
func joinPath(url, segment string) string {
	base, query, hasQuery := strings.Cut(url, "?")
	base = strings.TrimSuffix(base, "/") + "/" + segment
	if hasQuery {
		return base + "?" + query
	}
	return base
}
