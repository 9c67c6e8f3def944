// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Response is what a Transport returns for one request.
type Response struct {
	Status int
	URL    string // final URL, after redirects
	Header http.Header
	Body   []byte
}

// Transport issues one request. params are merged into the query string of
// url; body is already encoded, or nil.
type Transport interface {
	Send(ctx context.Context, method, url string, params, headers map[string]string, body []byte) (*Response, error)
}

// HTTPTransport sends requests with an http.Client.
type HTTPTransport struct {
	Client *http.Client
	// Compression asks the server for zstd-compressed responses.
	Compression bool

	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
}

func (t *HTTPTransport) Send(ctx context.Context, method, rawURL string, params, headers map[string]string, body []byte) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, invalidArgument("bad url %q: %v", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if t.Compression {
		req.Header.Set(HeaderAcceptEncoding, "zstd")
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catbus: reading response from %s: %w", u, err)
	}
	if strings.EqualFold(resp.Header.Get(HeaderContentEncoding), "zstd") {
		if data, err = t.decompress(data); err != nil {
			return nil, fmt.Errorf("catbus: decompressing response from %s: %w", u, err)
		}
	}
	return &Response{
		Status: resp.StatusCode,
		URL:    resp.Request.URL.String(),
		Header: resp.Header,
		Body:   data,
	}, nil
}

func (t *HTTPTransport) decompress(data []byte) ([]byte, error) {
	t.decoderOnce.Do(func() {
		t.decoder, t.decoderErr = zstd.NewReader(nil)
	})
	if t.decoderErr != nil {
		return nil, t.decoderErr
	}
	return t.decoder.DecodeAll(data, nil)
}
