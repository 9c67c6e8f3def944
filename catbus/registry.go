// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Query-farm/catbus/rson"
)

// Registry is the root of a dispatch tree. Registration must be complete
// before the registry starts serving; dispatch itself is safe for
// concurrent use.
type Registry struct {
	prefix       string
	codec        *rson.Registry
	waitInterval time.Duration

	forPath map[string]Handler
	order   []string
	forType map[any]Handler

	mu    sync.Mutex
	index *rson.Namespace
}

// NewRegistry returns an empty registry mounted at /<name>/, or at / when
// name is empty.
func NewRegistry(name string) *Registry {
	prefix := "/"
	if name != "" {
		prefix = "/" + strings.Trim(name, "/") + "/"
	}
	return &Registry{
		prefix:       prefix,
		codec:        rson.DefaultRegistry,
		waitInterval: DefaultWaitInterval,
		forPath:      make(map[string]Handler),
		forType:      make(map[any]Handler),
	}
}

// Prefix returns the mount path, always ending in "/".
func (r *Registry) Prefix() string { return r.prefix }

// SetWaitInterval sets the poll interval suggested by waiters that don't
// set their own.
func (r *Registry) SetWaitInterval(d time.Duration) { r.waitInterval = d }

// SetCodec replaces the tag registry used to render responses.
func (r *Registry) SetCodec(codec *rson.Registry) { r.codec = codec }

// Register exposes exposed (a *Method or *Type) under name using factory.
// It fails with ErrDuplicateRegistration when the name or any type the
// handler answers for is already taken.
func (r *Registry) Register(name string, exposed any, factory HandlerFactory) error {
	if strings.HasPrefix(name, "_") {
		return invalidArgument("%q: names starting with _ are reserved", name)
	}
	h, key, err := buildEntry(name, exposed, factory)
	if err != nil {
		return err
	}
	if _, ok := r.forPath[name]; ok {
		return duplicate("%q is already registered", name)
	}
	if _, ok := r.forType[key]; ok {
		return duplicate("type of %q is already registered", name)
	}
	sub := h.Subtypes()
	for _, k := range sub {
		if _, ok := r.forType[k]; ok || k == key {
			return duplicate("type %v of %q is already registered", k, name)
		}
	}
	r.forPath[name] = h
	r.order = append(r.order, name)
	r.forType[key] = h
	for _, k := range sub {
		r.forType[k] = h
	}

	r.mu.Lock()
	r.index = nil
	r.mu.Unlock()
	return nil
}

// Function exposes m under its own name.
func (r *Registry) Function(m *Method) error {
	return r.Register(m.Name, m, FunctionHandler)
}

// Add exposes t under its own name with its declared handler.
func (r *Registry) Add(t *Type) error {
	if t.Handler == nil {
		return fmt.Errorf("catbus: type %s declares no handler", t.Name)
	}
	return r.Register(t.Name, t, t.Handler)
}

// MustAdd is like Add but panics on error. It is meant for static setup.
func (r *Registry) MustAdd(t *Type) {
	if err := r.Add(t); err != nil {
		panic(fmt.Sprintf("catbus: registering %q: %v", t.Name, err))
	}
}

// MustFunction is like Function but panics on error.
func (r *Registry) MustFunction(m *Method) {
	if err := r.Function(m); err != nil {
		panic(fmt.Sprintf("catbus: registering %q: %v", m.Name, err))
	}
}

// Names returns the top-level handler names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Index returns the namespace describing every top-level handler. Handlers
// that inline appear as links with their embed; the rest as actions.
func (r *Registry) Index() (*rson.Namespace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index != nil {
		return r.index, nil
	}
	links := []string{}
	actions := map[string]any{}
	embeds := map[string]any{}
	for _, name := range r.order {
		h := r.forPath[name]
		inline, err := h.Inline(r.prefix)
		if err != nil {
			return nil, err
		}
		if inline != nil {
			links = append(links, name)
			embeds[name] = inline
		} else {
			actions[name] = h.Link(r.prefix)
		}
	}
	r.index = &rson.Namespace{
		Kind:       "Index",
		URL:        r.prefix,
		Links:      links,
		Actions:    actions,
		Embeds:     embeds,
		Attributes: map[string]any{},
	}
	return r.index, nil
}

// Handle dispatches req. req.URL is the absolute request path.
func (r *Registry) Handle(cc *CallContext, req *rson.Request) (any, error) {
	path := req.URL
	if path == r.prefix || path == strings.TrimSuffix(r.prefix, "/") {
		return r.Index()
	}
	if !strings.HasPrefix(path, r.prefix) {
		return nil, notFound("%s", path)
	}
	path = path[len(r.prefix):]
	name := firstSegment(path)
	if strings.HasPrefix(name, "_") {
		return nil, forbidden("%s", name)
	}
	h, ok := r.forPath[name]
	if !ok {
		return nil, notFound("%s", name)
	}
	return h.OnRequest(cc, &rson.Request{
		Method:  req.Method,
		URL:     path,
		Params:  req.Params,
		Headers: req.Headers,
		Body:    req.Body,
	})
}

// HandlerName returns the top-level handler a request path is routed to,
// or "" for the index and unknown paths.
func (r *Registry) HandlerName(path string) string {
	rest, ok := strings.CutPrefix(path, r.prefix)
	if !ok {
		return ""
	}
	name := firstSegment(rest)
	if _, ok := r.forPath[name]; !ok {
		return ""
	}
	return name
}

// embedder is implemented by server values that render relative to the
// request that produced them.
type embedder interface {
	embed(r *Registry, path string) (any, error)
}

// Render encodes v, the result of dispatching the request at path, with
// every exposed value replaced by its descriptor.
func (r *Registry) Render(path string, v any) (string, error) {
	rel := strings.TrimPrefix(path, r.prefix)
	return r.codec.Encode(v, func(v any) (any, error) {
		return r.transform(rel, v)
	})
}

func (r *Registry) transform(path string, v any) (any, error) {
	if e, ok := v.(embedder); ok {
		return e.embed(r, path)
	}
	key, ok := typeKey(v)
	if !ok {
		return v, nil
	}
	h, ok := r.forType[key]
	if !ok {
		if _, isObject := v.(Object); isObject {
			return nil, rson.Errorf(rson.TypeUnknownType, "no handler for %v", key)
		}
		return nil, rson.Errorf(rson.TypeUnknownType, "no handler for %T", v)
	}
	return h.Embed(r.prefix, v)
}
