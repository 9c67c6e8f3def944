// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"sync"

	"github.com/Query-farm/catbus/catbus"
)

// RegistryName is the mount point used by NewRegistry.
const RegistryName = "test"

// NewRegistry returns a registry mounted at /test/ holding every fixture
// endpoint.
func NewRegistry() *catbus.Registry {
	r := catbus.NewRegistry(RegistryName)
	RegisterEndpoints(r)
	return r
}

// RegisterEndpoints adds the fixture endpoints to r. Each call builds fresh
// state, so two registries never share a singleton or a collection.
func RegisterEndpoints(r *catbus.Registry) {
	r.MustFunction(Echo)
	r.MustFunction(Test)
	r.MustAdd(MyEndpoint)
	r.MustAdd(newTotalType())
	r.MustAdd(newJobType())
}

// --- Functions ---

// Echo returns its argument.
var Echo = &catbus.Method{
	Name: "echo",
	Args: []string{"x"},
	Call: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
		return args["x"], nil
	},
}

// Test returns Echo itself, which renders as a form the client can call.
var Test = &catbus.Method{
	Name: "test",
	Safe: true,
	Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
		return Echo, nil
	},
}

// --- Singleton ---

// Total is a running sum shared by every request.
type Total struct {
	mu  sync.Mutex
	sum int64
}

func (t *Total) TypeName() string { return "Total" }

// Sum returns the current total.
func (t *Total) Sum() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sum
}

func (t *Total) add(n int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum += n
	return t.sum
}

func newTotalType() *catbus.Type {
	return &catbus.Type{
		Name: "Total",
		New: func(*catbus.CallContext, catbus.Args) (catbus.Object, error) {
			return &Total{}, nil
		},
		Attributes: func(obj catbus.Object) map[string]any {
			return map[string]any{"sum": obj.(*Total).Sum()}
		},
		Methods: []*catbus.Method{
			{
				Name: "add",
				Args: []string{"n"},
				Call: func(_ *catbus.CallContext, self catbus.Object, args catbus.Args) (any, error) {
					n, err := args.Int("n")
					if err != nil {
						return nil, err
					}
					return self.(*Total).add(n), nil
				},
			},
			{
				Name: "total",
				Safe: true,
				Call: func(_ *catbus.CallContext, self catbus.Object, _ catbus.Args) (any, error) {
					return self.(*Total).Sum(), nil
				},
			},
		},
		Handler: catbus.SingletonHandler,
	}
}
