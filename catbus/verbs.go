// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"time"

	"github.com/Query-farm/catbus/rson"
)

// unwrap builds a request for method against ref, which is a request
// already, a proxy, or a URL string.
func unwrap(method string, ref any, data any) (*rson.Request, error) {
	switch r := ref.(type) {
	case *rson.Request:
		if data != nil {
			return nil, invalidArgument("can't add a body to a prepared %s request", r.Method)
		}
		return r, nil
	case *CachedResult:
		return nil, invalidArgument("can't %s a cached result", method)
	case Navigable:
		return rson.NewRequest(method, r.URL(), data), nil
	case string:
		return rson.NewRequest(method, r, data), nil
	}
	return nil, invalidArgument("can't make a %s request from %T", method, ref)
}

func requireMethod(req *rson.Request, verb string, allowed ...string) error {
	for _, m := range allowed {
		if req.Method == m {
			return nil
		}
	}
	return invalidArgument("%s: can't send a %s request", verb, req.Method)
}

// cachedValue reports the value the server already embedded for ref.
func cachedValue(ref any) (any, bool) {
	switch r := ref.(type) {
	case *CachedResult:
		return r.Result, true
	case *RemoteFunction:
		if r.Method == http.MethodGet && r.Cached != nil {
			return r.Cached, true
		}
	}
	return nil, false
}

// Get fetches ref, or the item with key when ref is a dataset. A link
// carrying an embedded value returns it without a request.
func (c *Client) Get(ctx context.Context, ref any, key string) (any, error) {
	if v, ok := cachedValue(ref); ok && key == "" {
		return v, nil
	}
	var req *rson.Request
	if key != "" {
		ds, ok := ref.(*RemoteDataset)
		if !ok {
			return nil, invalidArgument("get by key needs a dataset, got %T", ref)
		}
		req = ds.Lookup(key)
	} else {
		var err error
		if req, err = unwrap(http.MethodGet, ref, nil); err != nil {
			return nil, err
		}
	}
	if err := requireMethod(req, "Get", http.MethodGet); err != nil {
		return nil, err
	}
	return c.Fetch(ctx, req)
}

// Create adds value to a dataset. With a key, or for any other ref, it
// sends a PUT instead.
func (c *Client) Create(ctx context.Context, ref any, key string, value map[string]any) (any, error) {
	var req *rson.Request
	var err error
	ds, isDataset := ref.(*RemoteDataset)
	switch {
	case isDataset && key == "":
		req, err = ds.Create(nil, value)
	case isDataset:
		req = rson.NewRequest(http.MethodPut, ds.url+"/"+SegmentID+"/"+url.PathEscape(key), value)
	default:
		req, err = unwrap(http.MethodPut, ref, bodyOrNil(value))
	}
	if err != nil {
		return nil, err
	}
	if err := requireMethod(req, "Create", http.MethodPut, http.MethodPost); err != nil {
		return nil, err
	}
	return c.Fetch(ctx, req)
}

// Delete removes the item with key, or every item matching where, from a
// dataset. Other refs receive a plain DELETE.
func (c *Client) Delete(ctx context.Context, ref any, key string, where rson.Selector) (any, error) {
	if key != "" && where != nil {
		return nil, invalidArgument("Delete takes a key or a selector, not both")
	}
	var req *rson.Request
	var err error
	ds, isDataset := ref.(*RemoteDataset)
	switch {
	case isDataset && key != "":
		req = ds.Delete(key)
	case isDataset:
		req, err = ds.DeleteList(where)
	case key != "" || where != nil:
		err = invalidArgument("Delete by key or selector needs a dataset, got %T", ref)
	default:
		req, err = unwrap(http.MethodDelete, ref, nil)
	}
	if err != nil {
		return nil, err
	}
	if err := requireMethod(req, "Delete", http.MethodDelete, http.MethodPost); err != nil {
		return nil, err
	}
	return c.Fetch(ctx, req)
}

// List yields every item of a dataset matching where, fetching pages of
// batch items as iteration proceeds. ref may also be a prepared list
// request. Each range over the result starts a fresh listing.
func (c *Client) List(ctx context.Context, ref any, where rson.Selector, batch int) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		var req *rson.Request
		var err error
		switch r := ref.(type) {
		case *RemoteDataset:
			req, err = r.ListRequest(where, batch)
		case *rson.Request:
			req = r
		default:
			err = invalidArgument("can't list %T", ref)
		}
		if err != nil {
			yield(nil, err)
			return
		}
		for req != nil {
			obj, err := c.Fetch(ctx, req)
			if err != nil {
				yield(nil, err)
				return
			}
			var items []any
			req = nil
			switch page := obj.(type) {
			case *RemoteCursor:
				items = page.Values()
				req = page.Next(batch)
			case []any:
				items = page
			case nil:
			default:
				items = []any{page}
			}
			for _, it := range items {
				if !yield(it, nil) {
					return
				}
			}
		}
	}
}

// Call invokes ref with data. For a remote object, method names the
// function to call on it.
func (c *Client) Call(ctx context.Context, ref any, method string, data map[string]any) (any, error) {
	var bound any
	var err error
	switch r := ref.(type) {
	case *CachedResult:
		return r.Result, nil
	case *RemoteFunction:
		if method != "" {
			return nil, invalidArgument("a function has no method %q", method)
		}
		bound, err = r.Bind(nil, data)
	case *RemoteObject:
		if method == "" {
			return nil, invalidArgument("calling %s needs a method name", r.url)
		}
		bound, err = r.Invoke(method, nil, data)
	default:
		bound, err = unwrap(http.MethodPost, ref, bodyOrNil(data))
	}
	if err != nil {
		return nil, err
	}
	switch b := bound.(type) {
	case *CachedResult:
		return b.Result, nil
	case *rson.Request:
		return c.Fetch(ctx, b)
	}
	return nil, invalidArgument("can't call %T", ref)
}

// Wait fetches ref and keeps polling while the server answers with a
// waiter, sleeping the longer of poll and the server's suggestion between
// polls. A poll <= 0 sets no floor, leaving the server's suggestion
// (DefaultWaitInterval unless the registry or waiter overrides it).
func (c *Client) Wait(ctx context.Context, ref any, poll time.Duration) (any, error) {
	if v, ok := cachedValue(ref); ok {
		if _, pending := v.(*RemoteWaiter); !pending {
			return v, nil
		}
		ref = v
	}
	var req *rson.Request
	if w, ok := ref.(*RemoteWaiter); ok {
		req = w.Request()
	} else {
		var err error
		if req, err = unwrap(http.MethodGet, ref, nil); err != nil {
			return nil, err
		}
		if err := requireMethod(req, "Wait", http.MethodGet); err != nil {
			return nil, err
		}
	}
	for {
		obj, err := c.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		w, ok := obj.(*RemoteWaiter)
		if !ok {
			return obj, nil
		}
		delay := max(poll, time.Duration(w.WaitSeconds*float64(time.Second)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		req = w.Request()
	}
}

// Post sends data to ref.
func (c *Client) Post(ctx context.Context, ref any, data any) (any, error) {
	req, err := unwrap(http.MethodPost, ref, data)
	if err != nil {
		return nil, err
	}
	if err := requireMethod(req, "Post", http.MethodPost); err != nil {
		return nil, err
	}
	return c.Fetch(ctx, req)
}

// bodyOrNil keeps a nil map from being sent as an empty object.
func bodyOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
