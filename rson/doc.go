// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package rson implements the tagged-value wire format used by catbus.
//
// A value is a JSON-like body with an optional tag in front of it:
//
//	@datetime "2025-01-02T03:04:05Z"
//	@Link {"url": "/test/echo"}
//	[1, 2.5, "three", @base64 "AAE="]
//
// Reserved tags name primitive kinds that JSON cannot express. Any other tag
// is looked up in a [Registry]; tags the registry does not know decode to a
// [TaggedObject] and re-encode unchanged. The hypermedia descriptors (Link,
// Form, Dataset, Resource, Namespace, Cursor, Waiter, Request, Error) are
// registered in [DefaultRegistry].
package rson
