// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Query-farm/catbus/rson"
)

// Navigable is any client-side proxy with a URL.
type Navigable interface {
	URL() string
	Display() string
}

// CachedResult carries a value the server already embedded, so fetching it
// again is unnecessary.
type CachedResult struct {
	Result any
}

func (c *CachedResult) URL() string     { return "" }
func (c *CachedResult) Display() string { return fmt.Sprintf("<cached %v>", c.Result) }

// RemoteFunction is a callable endpoint. GET functions take no arguments;
// POST functions bind arguments by name.
type RemoteFunction struct {
	Method    string
	url       string
	Arguments []string
	Defaults  map[string]any
	// Cached is the value embedded alongside the link, if any.
	Cached any
}

func (f *RemoteFunction) URL() string { return f.url }

func (f *RemoteFunction) Display() string {
	if f.Method == http.MethodGet {
		return "<Link to " + f.url + ">"
	}
	return "<Form to " + f.url + " (" + strings.Join(f.Arguments, ", ") + ")>"
}

// Call binds positional args. See Bind.
func (f *RemoteFunction) Call(args ...any) (any, error) {
	return f.Bind(args, nil)
}

// Bind turns the arguments into the request that calls f. The result is a
// *rson.Request, or a *CachedResult when f is a GET with an embedded value.
//
// Positional args are matched to Arguments in order. Naming an argument both
// ways is an error, as is leaving one unbound without a default.
func (f *RemoteFunction) Bind(args []any, kwargs map[string]any) (any, error) {
	if f.Method == http.MethodGet {
		if len(args) > 0 || len(kwargs) > 0 {
			return nil, invalidArgument("%s takes no arguments", f.url)
		}
		if f.Cached != nil {
			return &CachedResult{Result: f.Cached}, nil
		}
		return rson.NewRequest(http.MethodGet, f.url, nil), nil
	}
	if len(args) > len(f.Arguments) {
		return nil, invalidArgument("%s takes %d arguments, got %d", f.url, len(f.Arguments), len(args))
	}
	data := make(map[string]any, len(f.Arguments))
	for i, a := range args {
		name := f.Arguments[i]
		if _, dup := kwargs[name]; dup {
			return nil, invalidArgument("%s: argument %q given twice", f.url, name)
		}
		data[name] = a
	}
	for k, v := range kwargs {
		data[k] = v
	}
	for _, name := range f.Arguments {
		if _, ok := data[name]; ok {
			continue
		}
		d, ok := f.Defaults[name]
		if !ok {
			return nil, invalidArgument("%s: missing argument %q", f.url, name)
		}
		data[name] = d
	}
	return rson.NewRequest(f.Method, f.url, data), nil
}

// RemoteObject is a namespace or resource. Its links, actions and
// attributes are reached through Attr.
type RemoteObject struct {
	Kind       string
	url        string
	ID         any
	Collection string
	Links      []string
	Actions    map[string]any
	Embeds     map[string]any
	Attributes map[string]any
}

func (o *RemoteObject) URL() string { return o.url }

func (o *RemoteObject) Display() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", o.Kind, o.url)
	for _, k := range sortedKeys(o.Attributes) {
		fmt.Fprintf(&sb, "  .%s = %v\n", k, o.Attributes[k])
	}
	for _, l := range o.Links {
		fmt.Fprintf(&sb, "  .%s()\n", l)
	}
	for _, k := range sortedKeys(o.Actions) {
		if args, ok := o.Actions[k].([]string); ok {
			fmt.Fprintf(&sb, "  .%s(%s)\n", k, strings.Join(args, ", "))
		} else {
			fmt.Fprintf(&sb, "  .%s\n", k)
		}
	}
	return sb.String()
}

// Attr looks up name. Attributes come back as plain values, links as GET
// functions (carrying any embedded value), action forms as POST functions
// and embedded proxies as themselves.
func (o *RemoteObject) Attr(name string) (any, error) {
	if v, ok := o.Attributes[name]; ok {
		return v, nil
	}
	target := joinPath(o.url, name)
	if contains(o.Links, name) {
		return &RemoteFunction{Method: http.MethodGet, url: target, Cached: o.Embeds[name]}, nil
	}
	switch a := o.Actions[name].(type) {
	case Navigable:
		return a, nil
	case []string:
		return &RemoteFunction{Method: http.MethodPost, url: target, Arguments: a}, nil
	}
	return nil, fmt.Errorf("%w: %s has no %q", ErrUnknownAttribute, o.url, name)
}

// Invoke binds arguments to the function found at name.
func (o *RemoteObject) Invoke(name string, args []any, kwargs map[string]any) (any, error) {
	v, err := o.Attr(name)
	if err != nil {
		return nil, err
	}
	f, ok := v.(*RemoteFunction)
	if !ok {
		return nil, invalidArgument("%s.%s is not callable", o.url, name)
	}
	return f.Bind(args, kwargs)
}

// RemoteDataset is a keyed collection of resources, possibly narrowed by a
// chained selector.
type RemoteDataset struct {
	Kind     string
	url      string
	New      []string
	Defaults map[string]any
	List     []string
	Key      string

	selector rson.Selector
}

func (d *RemoteDataset) URL() string { return d.url }

func (d *RemoteDataset) Display() string {
	return "<Dataset " + d.Kind + " at " + d.url + ">"
}

// Selector returns the chained selector.
func (d *RemoteDataset) Selector() rson.Selector { return d.selector.And() }

// Lookup is the request for the item with key.
func (d *RemoteDataset) Lookup(key string) *rson.Request {
	return rson.NewRequest(http.MethodGet, d.url+"/"+SegmentID+"/"+url.PathEscape(key), nil)
}

// Create is the request making a new item, binding args to the dataset's
// constructor arguments.
func (d *RemoteDataset) Create(args []any, kwargs map[string]any) (*rson.Request, error) {
	f := &RemoteFunction{Method: http.MethodPost, url: d.url + "/" + SegmentNew, Arguments: d.New, Defaults: d.Defaults}
	req, err := f.Bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	return req.(*rson.Request), nil
}

// Delete is the request removing the item with key.
func (d *RemoteDataset) Delete(key string) *rson.Request {
	return rson.NewRequest(http.MethodDelete, d.url+"/"+SegmentID+"/"+url.PathEscape(key), nil)
}

func (d *RemoteDataset) params(where rson.Selector, batch int) (map[string]string, error) {
	params := map[string]string{}
	if where != nil && d.selector != nil {
		return nil, invalidArgument("can't combine a selector with a filtered dataset")
	}
	if where == nil {
		where = d.selector
	}
	if where != nil {
		text, err := rson.DumpSelector(where)
		if err != nil {
			return nil, err
		}
		params[ParamWhere] = text
	}
	if batch > 0 {
		params[ParamLimit] = strconv.Itoa(batch)
	}
	return params, nil
}

// ListRequest is the request for the first page of items matching where,
// or the chained selector. batch <= 0 leaves the page size to the server.
func (d *RemoteDataset) ListRequest(where rson.Selector, batch int) (*rson.Request, error) {
	params, err := d.params(where, batch)
	if err != nil {
		return nil, err
	}
	req := rson.NewRequest(http.MethodGet, d.url+"/"+SegmentList, nil)
	req.Params = params
	return req, nil
}

// DeleteList is the request removing every item matching where, or the
// chained selector. One of them is required; an empty non-nil selector
// matches everything.
func (d *RemoteDataset) DeleteList(where rson.Selector) (*rson.Request, error) {
	params, err := d.params(where, 0)
	if err != nil {
		return nil, err
	}
	if _, ok := params[ParamWhere]; !ok {
		return nil, invalidArgument("deleting from %s requires a selector", d.url)
	}
	req := rson.NewRequest(http.MethodDelete, d.url+"/"+SegmentList, nil)
	req.Params = params
	return req, nil
}

// Where narrows the dataset to items whose fields equal the given values.
func (d *RemoteDataset) Where(fields map[string]any) (*RemoteDataset, error) {
	return d.narrow(fields, rson.Eq)
}

// NotWhere narrows the dataset to items whose fields differ from the given
// values.
func (d *RemoteDataset) NotWhere(fields map[string]any) (*RemoteDataset, error) {
	return d.narrow(fields, rson.Ne)
}

func (d *RemoteDataset) narrow(fields map[string]any, op func(string, any) rson.Predicate) (*RemoteDataset, error) {
	preds := make([]rson.Predicate, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		if !contains(d.List, k) {
			return nil, invalidArgument("%s can't be filtered on %q", d.Kind, k)
		}
		preds = append(preds, op(k, fields[k]))
	}
	nd := *d
	nd.selector = d.selector.And(preds...)
	return &nd, nil
}

// RemoteCursor is one page of a listing.
type RemoteCursor struct {
	Kind       string
	Items      []any
	collection string
	Selector   string
	Continue   string
}

func (c *RemoteCursor) URL() string { return c.collection }

func (c *RemoteCursor) Display() string {
	return fmt.Sprintf("<Cursor %s, %d items>", c.collection, len(c.Items))
}

// Values returns the items on this page.
func (c *RemoteCursor) Values() []any { return c.Items }

// Next is the request for the following page, or nil at the end.
func (c *RemoteCursor) Next(batch int) *rson.Request {
	if c.Continue == "" {
		return nil
	}
	req := rson.NewRequest(http.MethodGet, c.collection, nil)
	req.Params = map[string]string{ParamContinue: c.Continue}
	if c.Selector != "" {
		req.Params[ParamWhere] = c.Selector
	}
	if batch > 0 {
		req.Params[ParamLimit] = strconv.Itoa(batch)
	}
	return req
}

// RemoteWaiter stands for a result that is not ready yet.
type RemoteWaiter struct {
	url         string
	WaitSeconds float64
}

func (w *RemoteWaiter) URL() string { return w.url }

func (w *RemoteWaiter) Display() string { return "<Waiting for " + w.url + ">" }

// Request is the poll request.
func (w *RemoteWaiter) Request() *rson.Request {
	return rson.NewRequest(http.MethodGet, w.url, nil)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
