// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package benchmark holds a fixture registry and payloads for measuring the
// codec and the dispatch path.
package benchmark

import (
	"fmt"
	"time"

	"github.com/Query-farm/catbus/catbus"
)

// Record is a collection item with a mix of attribute types.
type Record struct {
	ID    string
	Value int64
	Score float64
	Tags  []any
}

func (r *Record) TypeName() string { return "Record" }

var noop = &catbus.Method{
	Name: "noop",
	Safe: true,
	Call: func(*catbus.CallContext, catbus.Object, catbus.Args) (any, error) {
		return nil, nil
	},
}

var add = &catbus.Method{
	Name: "add",
	Args: []string{"a", "b"},
	Call: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
		a, err := args.Float("a")
		if err != nil {
			return nil, err
		}
		b, err := args.Float("b")
		if err != nil {
			return nil, err
		}
		return a + b, nil
	},
}

var greet = &catbus.Method{
	Name: "greet",
	Args: []string{"name"},
	Call: func(_ *catbus.CallContext, _ catbus.Object, args catbus.Args) (any, error) {
		name, err := args.String("name")
		if err != nil {
			return nil, err
		}
		return "Hello, " + name + "!", nil
	},
}

func recordType() *catbus.Type {
	return &catbus.Type{
		Name: "Record",
		Args: []string{"id"},
		New: func(_ *catbus.CallContext, args catbus.Args) (catbus.Object, error) {
			id, err := args.String("id")
			if err != nil {
				return nil, err
			}
			return &Record{ID: id}, nil
		},
		Attributes: func(obj catbus.Object) map[string]any {
			r := obj.(*Record)
			return map[string]any{"id": r.ID, "value": r.Value, "score": r.Score, "tags": r.Tags}
		},
	}
}

// NewRegistry returns a registry mounted at /bench/ with noop, add, greet
// and a Record collection pre-filled with records items.
func NewRegistry(records int) *catbus.Registry {
	r := catbus.NewRegistry("bench")
	r.MustFunction(noop)
	r.MustFunction(add)
	r.MustFunction(greet)

	t := recordType()
	store := catbus.NewMemoryStore(t, "id")
	for i := range records {
		store.Put(&Record{
			ID:    fmt.Sprintf("r%05d", i),
			Value: int64(i),
			Score: float64(i) / 3,
			Tags:  []any{"bench", int64(i % 7)},
		})
	}
	t.Handler = catbus.CollectionHandler(store, "id", "value")
	r.MustAdd(t)
	return r
}

// Payload is a nested value exercising every codec branch that has a
// literal form.
func Payload(n int) map[string]any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{
			"i":     int64(i),
			"half":  float64(i) / 2,
			"name":  fmt.Sprintf("item \"%d\"\n", i),
			"ok":    i%2 == 0,
			"bytes": []byte{byte(i), 0xff},
			"when":  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			"took":  time.Duration(i) * time.Millisecond,
			"none":  nil,
		}
	}
	return map[string]any{"items": items, "count": int64(n)}
}
