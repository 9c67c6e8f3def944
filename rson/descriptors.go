// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rson

// Hyperlink is implemented by every descriptor that names a location the
// client can navigate to. Request and Error are not hyperlinks.
type Hyperlink interface {
	Tagged
	Href() string
}

// Link is a reference fetched with GET. Value, when set, is the already
// rendered result of following the link.
type Link struct {
	URL   string
	Value any
}

func (l *Link) RsonTag() string { return "Link" }
func (l *Link) Href() string    { return l.URL }

func (l *Link) RsonPayload() (any, error) {
	p := map[string]any{"url": l.URL}
	if l.Value != nil {
		p["value"] = l.Value
	}
	return p, nil
}

func decodeLink(payload any) (any, error) {
	f, err := fields("Link", payload)
	if err != nil {
		return nil, err
	}
	l := &Link{Value: f.m["value"]}
	if l.URL, err = f.str("url"); err != nil {
		return nil, err
	}
	return l, nil
}

// Form is an action invoked with POST. Arguments lists the declared
// argument names in order; Defaults holds values for optional ones.
type Form struct {
	URL       string
	Arguments []string
	Defaults  map[string]any
}

func (f *Form) RsonTag() string { return "Form" }
func (f *Form) Href() string    { return f.URL }

func (f *Form) RsonPayload() (any, error) {
	p := map[string]any{
		"url":       f.URL,
		"arguments": nonNil(f.Arguments),
	}
	if len(f.Defaults) > 0 {
		p["defaults"] = f.Defaults
	}
	return p, nil
}

func decodeForm(payload any) (any, error) {
	f, err := fields("Form", payload)
	if err != nil {
		return nil, err
	}
	form := &Form{}
	if form.URL, err = f.str("url"); err != nil {
		return nil, err
	}
	if form.Arguments, err = f.strs("arguments"); err != nil {
		return nil, err
	}
	if form.Defaults, err = f.obj("defaults"); err != nil {
		return nil, err
	}
	return form, nil
}

// Dataset describes a keyed collection. New lists the fields accepted on
// creation and List the fields that may appear in a selector. Defaults
// holds the values used for creation fields left out.
type Dataset struct {
	Kind     string
	URL      string
	New      []string
	Defaults map[string]any
	List     []string
	Key      string
}

func (d *Dataset) RsonTag() string { return "Dataset" }
func (d *Dataset) Href() string    { return d.URL }

func (d *Dataset) RsonPayload() (any, error) {
	p := map[string]any{
		"kind": d.Kind,
		"url":  d.URL,
		"new":  nonNil(d.New),
		"list": nonNil(d.List),
		"key":  d.Key,
	}
	if len(d.Defaults) > 0 {
		p["defaults"] = d.Defaults
	}
	return p, nil
}

func decodeDataset(payload any) (any, error) {
	f, err := fields("Dataset", payload)
	if err != nil {
		return nil, err
	}
	d := &Dataset{}
	if d.Kind, err = f.str("kind"); err != nil {
		return nil, err
	}
	if d.URL, err = f.str("url"); err != nil {
		return nil, err
	}
	if d.New, err = f.strs("new"); err != nil {
		return nil, err
	}
	if d.Defaults, err = f.obj("defaults"); err != nil {
		return nil, err
	}
	if d.List, err = f.strs("list"); err != nil {
		return nil, err
	}
	if d.Key, err = f.optStr("key"); err != nil {
		return nil, err
	}
	return d, nil
}

// Resource is one item of a collection, or an object reached through a
// Token endpoint.
//
// Actions maps a method name to either its argument names ([]string) or a
// nested descriptor. Embeds maps a name to an inlined descriptor.
type Resource struct {
	Kind       string
	URL        string
	ID         any
	Collection string
	Links      []string
	Actions    map[string]any
	Embeds     map[string]any
	Attributes map[string]any
}

func (r *Resource) RsonTag() string { return "Resource" }
func (r *Resource) Href() string    { return r.URL }

func (r *Resource) RsonPayload() (any, error) {
	p := objectPayload(r.Kind, r.URL, r.Links, r.Actions, r.Embeds, r.Attributes)
	if r.ID != nil {
		p["id"] = r.ID
	}
	if r.Collection != "" {
		p["collection"] = r.Collection
	}
	return p, nil
}

func decodeResource(payload any) (any, error) {
	f, err := fields("Resource", payload)
	if err != nil {
		return nil, err
	}
	r := &Resource{ID: f.m["id"]}
	if r.Collection, err = f.optStr("collection"); err != nil {
		return nil, err
	}
	err = f.objectShape(&r.Kind, &r.URL, &r.Links, &r.Actions, &r.Embeds, &r.Attributes)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Namespace has the shape of a Resource without identity. Registry indexes,
// services and singletons render as namespaces.
type Namespace struct {
	Kind       string
	URL        string
	Links      []string
	Actions    map[string]any
	Embeds     map[string]any
	Attributes map[string]any
}

func (n *Namespace) RsonTag() string { return "Namespace" }
func (n *Namespace) Href() string    { return n.URL }

func (n *Namespace) RsonPayload() (any, error) {
	return objectPayload(n.Kind, n.URL, n.Links, n.Actions, n.Embeds, n.Attributes), nil
}

func decodeNamespace(payload any) (any, error) {
	f, err := fields("Namespace", payload)
	if err != nil {
		return nil, err
	}
	n := &Namespace{}
	if err := f.objectShape(&n.Kind, &n.URL, &n.Links, &n.Actions, &n.Embeds, &n.Attributes); err != nil {
		return nil, err
	}
	return n, nil
}

func objectPayload(kind, url string, links []string, actions, embeds, attributes map[string]any) map[string]any {
	return map[string]any{
		"kind":       kind,
		"url":        url,
		"links":      nonNil(links),
		"actions":    nonNilMap(actions),
		"embeds":     nonNilMap(embeds),
		"attributes": nonNilMap(attributes),
	}
}

func (f payloadFields) objectShape(kind, url *string, links *[]string, actions, embeds, attributes *map[string]any) error {
	var err error
	if *kind, err = f.str("kind"); err != nil {
		return err
	}
	if *url, err = f.str("url"); err != nil {
		return err
	}
	if *links, err = f.strs("links"); err != nil {
		return err
	}
	if *actions, err = f.obj("actions"); err != nil {
		return err
	}
	for name, a := range *actions {
		if names, ok := stringList(a); ok {
			(*actions)[name] = names
		}
	}
	if *embeds, err = f.obj("embeds"); err != nil {
		return err
	}
	if *attributes, err = f.obj("attributes"); err != nil {
		return err
	}
	return nil
}

// Cursor is one page of a listing. Collection is the list URL, Selector
// the encoded selector that produced the page and Continue the token for
// the next page, empty when the listing is exhausted.
type Cursor struct {
	Kind       string
	Items      []any
	Collection string
	Selector   string
	Continue   string
}

func (c *Cursor) RsonTag() string { return "Cursor" }
func (c *Cursor) Href() string    { return c.Collection }

func (c *Cursor) RsonPayload() (any, error) {
	p := map[string]any{
		"kind":       c.Kind,
		"items":      nonNilItems(c.Items),
		"collection": c.Collection,
		"selector":   c.Selector,
	}
	if c.Continue != "" {
		p["continue"] = c.Continue
	}
	return p, nil
}

func decodeCursor(payload any) (any, error) {
	f, err := fields("Cursor", payload)
	if err != nil {
		return nil, err
	}
	c := &Cursor{}
	if c.Kind, err = f.str("kind"); err != nil {
		return nil, err
	}
	if c.Items, err = f.list("items"); err != nil {
		return nil, err
	}
	if c.Collection, err = f.str("collection"); err != nil {
		return nil, err
	}
	if c.Selector, err = f.optStr("selector"); err != nil {
		return nil, err
	}
	if c.Continue, err = f.optStr("continue"); err != nil {
		return nil, err
	}
	return c, nil
}

// Waiter marks a result that is not ready yet. Polling URL with GET returns
// either the final value or another Waiter.
type Waiter struct {
	URL         string
	WaitSeconds float64
}

func (w *Waiter) RsonTag() string { return "Waiter" }
func (w *Waiter) Href() string    { return w.URL }

func (w *Waiter) RsonPayload() (any, error) {
	return map[string]any{
		"url":          w.URL,
		"wait_seconds": w.WaitSeconds,
	}, nil
}

func decodeWaiter(payload any) (any, error) {
	f, err := fields("Waiter", payload)
	if err != nil {
		return nil, err
	}
	w := &Waiter{}
	if w.URL, err = f.str("url"); err != nil {
		return nil, err
	}
	if w.WaitSeconds, err = f.number("wait_seconds"); err != nil {
		return nil, err
	}
	return w, nil
}

// Request is a fully built HTTP call. Body, when non-nil, is sent encoded.
type Request struct {
	Method  string
	URL     string
	Params  map[string]string
	Headers map[string]string
	Body    any
}

// NewRequest returns a request without parameters or headers.
func NewRequest(method, url string, body any) *Request {
	return &Request{Method: method, URL: url, Body: body}
}

func (r *Request) RsonTag() string { return "Request" }

func (r *Request) RsonPayload() (any, error) {
	params := make(map[string]any, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	headers := make(map[string]any, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	return map[string]any{
		"method":  r.Method,
		"url":     r.URL,
		"params":  params,
		"headers": headers,
		"body":    r.Body,
	}, nil
}

func decodeRequest(payload any) (any, error) {
	f, err := fields("Request", payload)
	if err != nil {
		return nil, err
	}
	r := &Request{Body: f.m["body"]}
	if r.Method, err = f.str("method"); err != nil {
		return nil, err
	}
	if r.URL, err = f.str("url"); err != nil {
		return nil, err
	}
	if r.Params, err = f.strMap("params"); err != nil {
		return nil, err
	}
	if r.Headers, err = f.strMap("headers"); err != nil {
		return nil, err
	}
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilItems(s []any) []any {
	if s == nil {
		return []any{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
