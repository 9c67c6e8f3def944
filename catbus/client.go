// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/Query-farm/catbus/rson"
	"golang.org/x/net/proxy"
)

// Client fetches requests and turns the descriptors in responses into
// proxies.
type Client struct {
	transport Transport
	headers   map[string]string
	codec     *rson.Registry
}

type clientConfig struct {
	httpClient  *http.Client
	transport   Transport
	headers     map[string]string
	proxyURL    string
	compression bool
}

// Option configures a Client.
type Option func(*clientConfig)

// WithHTTPClient sends requests through c.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithTransport replaces the HTTP transport entirely.
func WithTransport(t Transport) Option {
	return func(cfg *clientConfig) { cfg.transport = t }
}

// WithHeaders adds headers to every request.
func WithHeaders(h map[string]string) Option {
	return func(cfg *clientConfig) {
		if cfg.headers == nil {
			cfg.headers = make(map[string]string)
		}
		for k, v := range h {
			cfg.headers[k] = v
		}
	}
}

// WithProxy dials through the proxy at rawURL, e.g. socks5://127.0.0.1:1080.
func WithProxy(rawURL string) Option {
	return func(cfg *clientConfig) { cfg.proxyURL = rawURL }
}

// WithCompression asks servers for zstd-compressed responses.
func WithCompression() Option {
	return func(cfg *clientConfig) { cfg.compression = true }
}

// NewClient returns a Client configured by opts.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	transport := cfg.transport
	if transport == nil {
		hc := cfg.httpClient
		if cfg.proxyURL != "" {
			var err error
			if hc, err = proxiedClient(hc, cfg.proxyURL); err != nil {
				return nil, err
			}
		}
		transport = &HTTPTransport{Client: hc, Compression: cfg.compression}
	}
	return &Client{transport: transport, headers: cfg.headers, codec: rson.DefaultRegistry}, nil
}

func proxiedClient(base *http.Client, rawURL string) (*http.Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("catbus: proxy url: %w", err)
	}
	if u.Scheme == "socks" {
		u.Scheme = "socks5"
	}
	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("catbus: proxy %s: %w", rawURL, err)
	}
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
	hc := &http.Client{}
	if base != nil {
		*hc = *base
	}
	hc.Transport = &http.Transport{DialContext: dial}
	return hc, nil
}

// Fetch issues req and decodes the response. Descriptors become proxies
// whose URLs are resolved against the final response URL. A 204 response
// yields nil. Error responses yield the decoded *rson.Error, with Status
// set.
func (c *Client) Fetch(ctx context.Context, req *rson.Request) (any, error) {
	headers := map[string]string{HeaderContentType: ContentType}
	for k, v := range c.headers {
		headers[k] = v
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	var body []byte
	if req.Body != nil {
		text, err := c.codec.Encode(req.Body, nil)
		if err != nil {
			return nil, err
		}
		body = []byte(text)
	}

	resp, err := c.transport.Send(ctx, req.Method, req.URL, req.Params, headers, body)
	if err != nil {
		return nil, fmt.Errorf("catbus: %s %s: %w", req.Method, req.URL, err)
	}
	if resp.Status == http.StatusNoContent {
		return nil, nil
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, responseError(resp)
	}
	base, err := url.Parse(resp.URL)
	if err != nil {
		return nil, fmt.Errorf("catbus: response url %q: %w", resp.URL, err)
	}
	return c.codec.Decode(string(resp.Body), func(v any) (any, error) {
		return toProxy(base, v), nil
	})
}

func responseError(resp *Response) error {
	if strings.HasPrefix(resp.Header.Get(HeaderContentType), ContentType) {
		if v, err := rson.Parse(string(resp.Body)); err == nil {
			if e, ok := v.(*rson.Error); ok {
				e.Status = resp.Status
				return e
			}
		}
	}
	return &rson.Error{
		Type:    rson.TypeServerError,
		Message: strings.TrimSpace(string(resp.Body)),
		Status:  resp.Status,
	}
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// toProxy replaces a decoded descriptor with the proxy for it.
func toProxy(base *url.URL, v any) any {
	switch d := v.(type) {
	case *rson.Link:
		return &RemoteFunction{Method: http.MethodGet, url: resolve(base, d.URL), Cached: d.Value}
	case *rson.Form:
		return &RemoteFunction{Method: http.MethodPost, url: resolve(base, d.URL), Arguments: d.Arguments, Defaults: d.Defaults}
	case *rson.Dataset:
		return &RemoteDataset{Kind: d.Kind, url: resolve(base, d.URL), New: d.New, Defaults: d.Defaults, List: d.List, Key: d.Key}
	case *rson.Resource:
		return &RemoteObject{
			Kind: d.Kind, url: resolve(base, d.URL), ID: d.ID, Collection: resolve(base, d.Collection),
			Links: d.Links, Actions: d.Actions, Embeds: d.Embeds, Attributes: d.Attributes,
		}
	case *rson.Namespace:
		return &RemoteObject{
			Kind: d.Kind, url: resolve(base, d.URL),
			Links: d.Links, Actions: d.Actions, Embeds: d.Embeds, Attributes: d.Attributes,
		}
	case *rson.Cursor:
		return &RemoteCursor{
			Kind: d.Kind, Items: d.Items, collection: resolve(base, d.Collection),
			Selector: d.Selector, Continue: d.Continue,
		}
	case *rson.Waiter:
		return &RemoteWaiter{url: resolve(base, d.URL), WaitSeconds: d.WaitSeconds}
	}
	return v
}
