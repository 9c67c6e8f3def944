// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

// Well-known names used on the wire.
const (
	ContentType = "application/rson"

	HeaderRequestID       = "X-Request-Id"
	HeaderContentType     = "Content-Type"
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"

	// Query parameters understood by collection list endpoints.
	ParamWhere    = "where"
	ParamLimit    = "limit"
	ParamContinue = "continue"

	// Path segments with a fixed meaning.
	SegmentWait   = "wait"
	SegmentID     = "id"
	SegmentList   = "list"
	SegmentNew    = "new"
	SegmentDelete = "delete"
)
