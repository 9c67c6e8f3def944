// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"time"

	"github.com/Query-farm/catbus/catbus"
)

// ExpensiveSteps is how many times a client polls expensive before it
// completes.
const ExpensiveSteps = 3

var demo = &catbus.Method{
	Name: "demo",
	Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
		return "A nice demo", nil
	},
}

func binary(name string, op func(a, b int64) int64) *catbus.Method {
	return &catbus.Method{
		Name: name,
		Args: []string{"a", "b"},
		Call: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
			a, err := args.Int("a")
			if err != nil {
				return nil, err
			}
			b, err := args.Int("b")
			if err != nil {
				return nil, err
			}
			return op(a, b), nil
		},
	}
}

// Two is nested inside MyEndpoint.
var Two = &catbus.Type{
	Name: "Two",
	Methods: []*catbus.Method{
		{
			Name: "test",
			Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
				return "nice", nil
			},
		},
		{
			Name: "expensive",
			Args: []string{"value"},
			Call: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
				return catbus.NewWaiter(map[string]any{"value": args["value"], "count": ExpensiveSteps}), nil
			},
			Ready: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
				count, err := args.Int("count")
				if err != nil {
					return nil, err
				}
				if count > 0 {
					return catbus.NewWaiter(map[string]any{"value": args["value"], "count": count - 1}), nil
				}
				return args["value"], nil
			},
		},
	},
	Handler: catbus.ServiceHandler,
}

// MyEndpoint is a stateless service. which_demo returns another of its
// functions; now returns the server's clock.
var MyEndpoint = &catbus.Type{
	Name: "MyEndpoint",
	Methods: []*catbus.Method{
		{
			Name: "which_demo",
			Args: []string{"name"},
			Call: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
				if name, _ := args.String("name"); name == "one" {
					return demo, nil
				}
				return nil, nil
			},
		},
		demo,
		binary("rpc_one", func(a, b int64) int64 { return a + b }),
		binary("rpc_two", func(a, b int64) int64 { return a * b }),
		{
			Name: "rpc_three",
			Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
				return nil, nil
			},
		},
		{
			Name: "now",
			Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
				return time.Now().UTC(), nil
			},
		},
	},
	Nested:  []catbus.Entry{{Name: "Two", Exposed: Two}},
	Handler: catbus.ServiceHandler,
}
