// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Query-farm/catbus/catbus"
	"github.com/Query-farm/catbus/conformance"
	"github.com/Query-farm/catbus/rson"
)

// recordingTransport remembers the URL of every request it sends.
type recordingTransport struct {
	catbus.Transport
	mu   sync.Mutex
	urls []string
}

func (rt *recordingTransport) Send(ctx context.Context, method, url string, params, headers map[string]string, body []byte) (*catbus.Response, error) {
	rt.mu.Lock()
	rt.urls = append(rt.urls, method+" "+url)
	rt.mu.Unlock()
	return rt.Transport.Send(ctx, method, url, params, headers, body)
}

func (rt *recordingTransport) count(substr string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n := 0
	for _, u := range rt.urls {
		if strings.Contains(u, substr) {
			n++
		}
	}
	return n
}

type fixture struct {
	base      string
	client    *catbus.Client
	transport *recordingTransport
	index     *catbus.RemoteObject
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := conformance.NewRegistry()
	r.SetWaitInterval(0)
	srv := httptest.NewServer(catbus.NewHttpServer(r))
	t.Cleanup(srv.Close)

	rt := &recordingTransport{Transport: &catbus.HTTPTransport{}}
	c, err := catbus.NewClient(catbus.WithTransport(rt))
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{base: srv.URL, client: c, transport: rt}
	v, err := c.Get(context.Background(), srv.URL+"/test/", "")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	idx, ok := v.(*catbus.RemoteObject)
	if !ok {
		t.Fatalf("index: got %T", v)
	}
	f.index = idx
	return f
}

func attr[T any](t *testing.T, o *catbus.RemoteObject, name string) T {
	t.Helper()
	v, err := o.Attr(name)
	if err != nil {
		t.Fatalf("attr %s: %v", name, err)
	}
	out, ok := v.(T)
	if !ok {
		t.Fatalf("attr %s: got %T", name, v)
	}
	return out
}

// call binds args to fn and fetches the result.
func (f *fixture) call(t *testing.T, fn *catbus.RemoteFunction, args ...any) any {
	t.Helper()
	req, err := fn.Call(args...)
	if err != nil {
		t.Fatalf("bind %s: %v", fn.URL(), err)
	}
	out, err := f.client.Call(context.Background(), req, "", nil)
	if err != nil {
		t.Fatalf("call %s: %v", fn.URL(), err)
	}
	return out
}

func (f *fixture) invoke(t *testing.T, o *catbus.RemoteObject, name string, args []any, kwargs map[string]any) any {
	t.Helper()
	req, err := o.Invoke(name, args, kwargs)
	if err != nil {
		t.Fatalf("invoke %s: %v", name, err)
	}
	out, err := f.client.Call(context.Background(), req, "", nil)
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return out
}

func TestIndex(t *testing.T) {
	f := newFixture(t)
	if f.index.Kind != "Index" {
		t.Errorf("kind = %q", f.index.Kind)
	}
	names := map[string]bool{}
	for _, l := range f.index.Links {
		names[l] = true
	}
	for k := range f.index.Actions {
		names[k] = true
	}
	want := []string{"echo", "test", "MyEndpoint", "Total", "Job"}
	if len(names) != len(want) {
		t.Errorf("index names = %v, want %v", names, want)
	}
	for _, n := range want {
		if !names[n] {
			t.Errorf("index missing %q", n)
		}
	}
	// Inlined handlers are links, the rest actions.
	for _, n := range []string{"MyEndpoint", "Total"} {
		if _, ok := f.index.Embeds[n]; !ok {
			t.Errorf("%s not embedded", n)
		}
	}
	if _, ok := f.index.Actions["Job"].(*catbus.RemoteDataset); !ok {
		t.Errorf("Job action = %T", f.index.Actions["Job"])
	}
}

func TestEcho(t *testing.T) {
	f := newFixture(t)
	echo := attr[*catbus.RemoteFunction](t, f.index, "echo")
	if got := f.call(t, echo, 1); got != int64(1) {
		t.Errorf("echo(1) = %#v", got)
	}
	out, err := f.client.Call(context.Background(), echo, "", map[string]any{"x": "hi"})
	if err != nil || out != "hi" {
		t.Errorf("echo(x=hi) = %#v, %v", out, err)
	}
}

func TestFunctionReturningFunction(t *testing.T) {
	f := newFixture(t)
	test := attr[*catbus.RemoteFunction](t, f.index, "test")
	if test.Method != "GET" {
		t.Fatalf("test method = %s", test.Method)
	}
	got := f.call(t, test)
	echo, ok := got.(*catbus.RemoteFunction)
	if !ok {
		t.Fatalf("test() = %T", got)
	}
	if !strings.HasSuffix(echo.URL(), "/test/echo") || echo.Method != "POST" {
		t.Errorf("test() = %s %s", echo.Method, echo.URL())
	}
	if x := f.call(t, echo, 7); x != int64(7) {
		t.Errorf("echo(7) = %#v", x)
	}
}

func TestService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v, err := f.client.Get(ctx, attr[*catbus.RemoteFunction](t, f.index, "MyEndpoint"), "")
	if err != nil {
		t.Fatal(err)
	}
	e, ok := v.(*catbus.RemoteObject)
	if !ok || e.Kind != "MyEndpoint" {
		t.Fatalf("MyEndpoint = %#v", v)
	}

	demo, ok := f.invoke(t, e, "which_demo", []any{"one"}, nil).(*catbus.RemoteFunction)
	if !ok {
		t.Fatal("which_demo did not return a function")
	}
	if got := f.call(t, demo); got != "A nice demo" {
		t.Errorf("demo() = %#v", got)
	}
	if got := f.invoke(t, e, "which_demo", []any{"two"}, nil); got != nil {
		t.Errorf("which_demo(two) = %#v", got)
	}
	if got := f.invoke(t, e, "rpc_one", []any{1, 2}, nil); got != int64(3) {
		t.Errorf("rpc_one(1, 2) = %#v", got)
	}
	if got := f.invoke(t, e, "rpc_two", []any{3}, map[string]any{"b": 4}); got != int64(12) {
		t.Errorf("rpc_two(3, b=4) = %#v", got)
	}
	if got := f.invoke(t, e, "rpc_three", nil, nil); got != nil {
		t.Errorf("rpc_three() = %#v", got)
	}
	now, ok := f.invoke(t, e, "now", nil, nil).(time.Time)
	if !ok || time.Since(now) > time.Minute {
		t.Errorf("now() = %v", now)
	}
}

func TestIndexLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"MyEndpoint", "Total"} {
		t.Run(name, func(t *testing.T) {
			link := attr[*catbus.RemoteFunction](t, f.index, name)
			if want := f.base + "/test/" + name; link.URL() != want {
				t.Fatalf("link url = %s, want %s", link.URL(), want)
			}

			sent := f.transport.count("/test/" + name)
			v, err := f.client.Get(ctx, link, "")
			if err != nil {
				t.Fatal(err)
			}
			if o, ok := v.(*catbus.RemoteObject); !ok || o.Kind != name {
				t.Fatalf("cached %s = %#v", name, v)
			}
			if w, err := f.client.Wait(ctx, link, 0); err != nil || w.(*catbus.RemoteObject).Kind != name {
				t.Errorf("wait on cached link = %v, %v", w, err)
			}
			if n := f.transport.count("/test/" + name); n != sent {
				t.Errorf("cached link sent %d requests", n-sent)
			}

			v, err = f.client.Get(ctx, rson.NewRequest("GET", link.URL(), nil), "")
			if err != nil {
				t.Fatalf("fetch %s: %v", link.URL(), err)
			}
			if o, ok := v.(*catbus.RemoteObject); !ok || o.Kind != name {
				t.Fatalf("fetched %s = %#v", name, v)
			}
		})
	}
}

func TestSingleton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cached, err := attr[*catbus.RemoteFunction](t, f.index, "Total").Call()
	if err != nil {
		t.Fatal(err)
	}
	v, err := f.client.Call(ctx, cached, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	total, ok := v.(*catbus.RemoteObject)
	if !ok {
		t.Fatalf("Total = %T", v)
	}
	if got := f.call(t, attr[*catbus.RemoteFunction](t, total, "total")); got != int64(0) {
		t.Errorf("initial total = %#v", got)
	}
	for i := 1; i <= 3; i++ {
		if got := f.invoke(t, total, "add", []any{5}, nil); got != int64(5*i) {
			t.Errorf("add #%d = %#v", i, got)
		}
	}
	if got := f.call(t, attr[*catbus.RemoteFunction](t, total, "total")); got != int64(15) {
		t.Errorf("total = %#v, want 15", got)
	}
	fresh, err := f.client.Get(ctx, f.base+"/test/Total", "")
	if err != nil {
		t.Fatal(err)
	}
	if sum := fresh.(*catbus.RemoteObject).Attributes["sum"]; sum != int64(15) {
		t.Errorf("sum attribute = %#v", sum)
	}
}

func TestCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobs := attr[*catbus.RemoteDataset](t, f.index, "Job")
	if jobs.Key != "name" {
		t.Errorf("key = %q", jobs.Key)
	}

	v, err := f.client.Create(ctx, jobs, "", map[string]any{"name": "butt"})
	if err != nil {
		t.Fatal(err)
	}
	job, ok := v.(*catbus.RemoteObject)
	if !ok {
		t.Fatalf("create = %T", v)
	}
	if job.ID != "butt" || job.Attributes["state"] != "run" {
		t.Errorf("job = id %v, attrs %v", job.ID, job.Attributes)
	}
	if !strings.HasSuffix(job.URL(), "/test/Job/id/butt") {
		t.Errorf("job url = %s", job.URL())
	}

	if _, err := f.client.Create(ctx, jobs, "", map[string]any{"name": "butt"}); !errors.Is(err, catbus.ErrInvalidArgument) {
		t.Errorf("duplicate create: %v", err)
	}

	if got := f.invoke(t, job, "stop", nil, nil); got != nil {
		t.Errorf("stop() = %#v", got)
	}
	v, err = f.client.Get(ctx, jobs, "butt")
	if err != nil {
		t.Fatal(err)
	}
	if state := v.(*catbus.RemoteObject).Attributes["state"]; state != "stop" {
		t.Errorf("state after stop = %v", state)
	}

	var listed []any
	for item, err := range f.client.List(ctx, jobs, nil, 0) {
		if err != nil {
			t.Fatal(err)
		}
		listed = append(listed, item)
	}
	if len(listed) != 1 || listed[0].(*catbus.RemoteObject).ID != "butt" {
		t.Errorf("list = %v", listed)
	}

	if _, err := f.client.Delete(ctx, job, "", nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.client.Get(ctx, jobs, "butt")
	if !errors.Is(err, catbus.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	var e *rson.Error
	if !errors.As(err, &e) || e.Status != 404 {
		t.Errorf("status = %v", err)
	}
}

func TestCollectionDeleteByKey(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		delete func(f *fixture, jobs *catbus.RemoteDataset) error
	}{
		{"verb with key", func(f *fixture, jobs *catbus.RemoteDataset) error {
			_, err := f.client.Delete(ctx, jobs, "a", nil)
			return err
		}},
		{"post to delete route", func(f *fixture, jobs *catbus.RemoteDataset) error {
			_, err := f.client.Post(ctx, jobs.URL()+"/delete/a", nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			jobs := attr[*catbus.RemoteDataset](t, f.index, "Job")
			for _, name := range []string{"a", "b"} {
				if _, err := f.client.Create(ctx, jobs, "", map[string]any{"name": name}); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := f.client.Get(ctx, jobs, "a"); err != nil {
				t.Fatalf("get before delete: %v", err)
			}
			if err := tt.delete(f, jobs); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := f.client.Get(ctx, jobs, "a"); !errors.Is(err, catbus.ErrNotFound) {
				t.Errorf("get after delete: %v", err)
			}
			if _, err := f.client.Get(ctx, jobs, "b"); err != nil {
				t.Errorf("other item: %v", err)
			}
			if _, err := f.client.Delete(ctx, jobs, "a", nil); !errors.Is(err, catbus.ErrNotFound) {
				t.Errorf("second delete: %v", err)
			}
		})
	}
}

type widget struct {
	Name  string `catbus:"name"`
	Color string `catbus:"color"`
}

func (widget) TypeName() string { return "Widget" }

func TestCollectionCreateDefaults(t *testing.T) {
	wt := &catbus.Type{
		Name:     "Widget",
		Args:     []string{"name", "color"},
		Defaults: map[string]any{"color": "red"},
		New: func(_ *catbus.CallContext, args catbus.Args) (catbus.Object, error) {
			name, err := args.String("name")
			if err != nil {
				return nil, err
			}
			color, err := args.String("color")
			if err != nil {
				return nil, err
			}
			return widget{Name: name, Color: color}, nil
		},
	}
	wt.Handler = catbus.CollectionHandler(catbus.NewMemoryStore(wt, "name"), "name", "color")
	r := catbus.NewRegistry("w")
	r.MustAdd(wt)
	srv := httptest.NewServer(catbus.NewHttpServer(r))
	defer srv.Close()

	ctx := context.Background()
	c, err := catbus.NewClient()
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Get(ctx, srv.URL+"/w/Widget", "")
	if err != nil {
		t.Fatal(err)
	}
	ds, ok := v.(*catbus.RemoteDataset)
	if !ok {
		t.Fatalf("Widget = %T", v)
	}
	if ds.Defaults["color"] != "red" {
		t.Fatalf("defaults = %v", ds.Defaults)
	}

	tests := []struct {
		name  string
		value map[string]any
		color string
	}{
		{"default", map[string]any{"name": "a"}, "red"},
		{"explicit", map[string]any{"name": "b", "color": "blue"}, "blue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Create(ctx, ds, "", tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if got := v.(*catbus.RemoteObject).Attributes["color"]; got != tt.color {
				t.Errorf("color = %v, want %s", got, tt.color)
			}
		})
	}
	if _, err := c.Create(ctx, ds, "", map[string]any{"color": "green"}); !errors.Is(err, catbus.ErrInvalidArgument) {
		t.Errorf("missing name: %v", err)
	}
}

func TestCollectionSelectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobs := attr[*catbus.RemoteDataset](t, f.index, "Job")
	for _, name := range []string{"a", "b", "c"} {
		if _, err := f.client.Create(ctx, jobs, "", map[string]any{"name": name}); err != nil {
			t.Fatal(err)
		}
	}
	b, err := f.client.Get(ctx, jobs, "b")
	if err != nil {
		t.Fatal(err)
	}
	f.invoke(t, b.(*catbus.RemoteObject), "stop", nil, nil)

	names := func(ds *catbus.RemoteDataset) []string {
		t.Helper()
		var out []string
		for item, err := range f.client.List(ctx, ds, nil, 1) {
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, item.(*catbus.RemoteObject).ID.(string))
		}
		return out
	}

	stopped, err := jobs.Where(map[string]any{"state": "stop"})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(names(stopped), ","); got != "b" {
		t.Errorf("stopped = %s", got)
	}
	running, err := jobs.NotWhere(map[string]any{"state": "stop"})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(names(running), ","); got != "a,c" {
		t.Errorf("running = %s", got)
	}
	if _, err := jobs.Where(map[string]any{"colour": "red"}); !errors.Is(err, catbus.ErrInvalidArgument) {
		t.Errorf("where on unlisted field: %v", err)
	}

	if _, err := f.client.Delete(ctx, running, "", nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(names(jobs), ","); got != "b" {
		t.Errorf("after delete list = %s", got)
	}
}

func TestServiceWaiter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	two, err := f.client.Get(ctx, f.base+"/test/MyEndpoint/Two", "")
	if err != nil {
		t.Fatal(err)
	}
	w, ok := f.invoke(t, two.(*catbus.RemoteObject), "expensive", []any{123}, nil).(*catbus.RemoteWaiter)
	if !ok {
		t.Fatal("expensive did not return a waiter")
	}
	if !strings.Contains(w.URL(), "/test/MyEndpoint/Two/expensive/wait?") {
		t.Errorf("waiter url = %s", w.URL())
	}
	got, err := f.client.Wait(ctx, w, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(123) {
		t.Errorf("wait = %#v", got)
	}
	if n := f.transport.count("/expensive/wait"); n != conformance.ExpensiveSteps+1 {
		t.Errorf("polls = %d, want %d", n, conformance.ExpensiveSteps+1)
	}
	if n := f.transport.count("/wait/wait"); n != 0 {
		t.Errorf("completion waiter repeated the wait segment %d times", n)
	}
}

func TestItemWaiter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobs := attr[*catbus.RemoteDataset](t, f.index, "Job")
	v, err := f.client.Create(ctx, jobs, "", map[string]any{"name": "j"})
	if err != nil {
		t.Fatal(err)
	}
	w := f.invoke(t, v.(*catbus.RemoteObject), "wait", nil, nil)
	got, err := f.client.Wait(ctx, w, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got != "j" {
		t.Errorf("wait = %#v", got)
	}
}

func TestWaitCancelled(t *testing.T) {
	r := catbus.NewRegistry("slow")
	r.MustFunction(&catbus.Method{
		Name: "never",
		Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
			return catbus.NewWaiter(nil), nil
		},
		Ready: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
			return catbus.NewWaiter(nil), nil
		},
	})
	srv := httptest.NewServer(catbus.NewHttpServer(r))
	defer srv.Close()
	c, err := catbus.NewClient()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w, err := c.Post(ctx, srv.URL+"/slow/never", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(ctx, w, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait: %v", err)
	}
}

func TestCompression(t *testing.T) {
	hs := catbus.NewHttpServer(conformance.NewRegistry())
	if err := hs.SetCompressionLevel(3); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(hs)
	defer srv.Close()

	rt := &catbus.HTTPTransport{Compression: true}
	resp, err := rt.Send(context.Background(), "GET", srv.URL+"/test/", nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get(catbus.HeaderContentEncoding) != "zstd" {
		t.Errorf("content-encoding = %q", resp.Header.Get(catbus.HeaderContentEncoding))
	}
	if !strings.HasPrefix(string(resp.Body), "@Namespace") {
		t.Errorf("body = %.40q", resp.Body)
	}

	c, err := catbus.NewClient(catbus.WithCompression())
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Get(context.Background(), srv.URL+"/test/", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(*catbus.RemoteObject); !ok {
		t.Errorf("index = %T", v)
	}
}

func TestErrorStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name   string
		method string
		path   string
		want   error
		status int
	}{
		{"underscore top level", "GET", "/test/_private", catbus.ErrForbidden, 403},
		{"underscore nested", "GET", "/test/MyEndpoint/_x", catbus.ErrForbidden, 403},
		{"unknown handler", "GET", "/test/nope", catbus.ErrNotFound, 404},
		{"unknown child", "GET", "/test/MyEndpoint/nope", catbus.ErrNotFound, 404},
		{"unsafe over GET", "GET", "/test/echo", catbus.ErrMethodNotAllowed, 405},
		{"missing argument", "POST", "/test/echo", catbus.ErrInvalidArgument, 400},
		{"bad collection route", "GET", "/test/Job/bogus", catbus.ErrNotImplemented, 501},
		{"delete list without selector", "DELETE", "/test/Job/list", catbus.ErrMethodNotAllowed, 405},
		{"missing item", "GET", "/test/Job/id/ghost", catbus.ErrNotFound, 404},
		{"bad limit", "GET", "/test/Job/list?limit=x", catbus.ErrInvalidArgument, 400},
		{"bad selector", "GET", "/test/Job/list?where=name", catbus.ErrInvalidArgument, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.Fetch(ctx, rson.NewRequest(tt.method, f.base+tt.path, nil))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var e *rson.Error
			if !errors.As(err, &e) || e.Status != tt.status {
				t.Errorf("status = %+v, want %d", e, tt.status)
			}
		})
	}
}

func TestVerbContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobs := attr[*catbus.RemoteDataset](t, f.index, "Job")
	echo := attr[*catbus.RemoteFunction](t, f.index, "echo")
	before := f.transport.count("")

	checks := []struct {
		name string
		run  func() error
	}{
		{"get key on function", func() error { _, err := f.client.Get(ctx, echo, "k"); return err }},
		{"get with post request", func() error {
			_, err := f.client.Get(ctx, rson.NewRequest("POST", f.base+"/test/echo", nil), "")
			return err
		}},
		{"delete key and selector", func() error {
			_, err := f.client.Delete(ctx, jobs, "k", rson.Selector{rson.Eq("name", "k")})
			return err
		}},
		{"delete list without selector", func() error { _, err := f.client.Delete(ctx, jobs, "", nil); return err }},
		{"post with get request", func() error {
			_, err := f.client.Post(ctx, rson.NewRequest("GET", f.base+"/test/", nil), nil)
			return err
		}},
		{"call object without method", func() error { _, err := f.client.Call(ctx, f.index, "", nil); return err }},
		{"list a function", func() error {
			for _, err := range f.client.List(ctx, echo, nil, 0) {
				return err
			}
			return nil
		}},
		{"list with two selectors", func() error {
			narrowed, err := jobs.Where(map[string]any{"name": "a"})
			if err != nil {
				return err
			}
			for _, err := range f.client.List(ctx, narrowed, rson.Selector{rson.Eq("name", "b")}, 0) {
				return err
			}
			return nil
		}},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if err := c.run(); !errors.Is(err, catbus.ErrInvalidArgument) {
				t.Errorf("err = %v, want InvalidArgument", err)
			}
		})
	}
	if after := f.transport.count(""); after != before {
		t.Errorf("contract violations sent %d requests", after-before)
	}
}
