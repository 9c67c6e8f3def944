// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package conformance provides the fixture endpoints used by the catbus
// test suite and the conformance command. It registers one of every kind
// of handler: plain functions, a function returning a function, a service
// with a nested service and a waiter, a stateful singleton and a keyed
// collection whose items have methods and a waiter of their own.
//
// The entry point is [RegisterEndpoints], which adds everything to a
// [catbus.Registry]. [NewRegistry] returns a registry mounted at /test/
// with the fixture already in place.
package conformance
