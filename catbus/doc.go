// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package catbus exposes in-process functions and objects as a navigable
// hypermedia API over HTTP, and provides a client that rebuilds the same
// object graph as proxies from nothing but server responses.
//
// # Server
//
// A [Registry] is the root of a dispatch tree. Functions are registered as
// [Method] values; types as [Type] values served by one of the handler
// variants:
//
//   - [NamespaceHandler]: one instance, methods called as plain functions
//   - [ServiceHandler]: a fresh instance per request
//   - [SingletonHandler]: one instance, methods bound to it
//   - [TokenHandler]: instances rebuilt from the query string
//   - [CollectionHandler]: keyed instances held by a [Store]
//
// Results are rendered through the registry: every exposed value in a
// response is replaced by its descriptor (link, form, dataset, resource,
// namespace, cursor or waiter) before encoding. [HttpServer] serves a
// registry with net/http.
//
//	r := catbus.NewRegistry("api")
//	r.MustFunction(&catbus.Method{
//		Name: "echo",
//		Args: []string{"x"},
//		Call: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
//			return args["x"], nil
//		},
//	})
//	http.ListenAndServe(":8080", catbus.NewHttpServer(r))
//
// # Client
//
// [Client.Fetch] decodes responses into proxies ([RemoteFunction],
// [RemoteObject], [RemoteDataset], [RemoteCursor], [RemoteWaiter]). The
// verbs Get, Create, Delete, List, Call, Wait and Post drive them:
//
//	c, _ := catbus.NewClient()
//	idx, _ := c.Get(ctx, "http://localhost:8080/api/", "")
//	echo, _ := idx.(*catbus.RemoteObject).Attr("echo")
//	out, _ := c.Call(ctx, echo, "", map[string]any{"x": 1})
package catbus
