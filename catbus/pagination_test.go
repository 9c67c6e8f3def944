// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/Query-farm/catbus/catbus"
)

type item struct {
	Key string `catbus:"key"`
	N   int64  `catbus:"n"`
}

func (item) TypeName() string { return "Item" }

func itemRegistry(n int) *catbus.Registry {
	t := &catbus.Type{Name: "Item", Args: []string{"key", "n"}}
	store := catbus.NewMemoryStore(t, "key")
	for i := range n {
		store.Put(item{Key: fmt.Sprintf("k%02d", i), N: int64(i)})
	}
	t.Handler = catbus.CollectionHandler(store, "key", "n")
	r := catbus.NewRegistry("items")
	r.MustAdd(t)
	return r
}

func TestPagination(t *testing.T) {
	for _, n := range []int{0, 1, 5, 7} {
		for _, batch := range []int{1, 2, 10, 0} {
			t.Run(fmt.Sprintf("n=%d/batch=%d", n, batch), func(t *testing.T) {
				srv := httptest.NewServer(catbus.NewHttpServer(itemRegistry(n)))
				defer srv.Close()
				rt := &recordingTransport{Transport: &catbus.HTTPTransport{}}
				c, err := catbus.NewClient(catbus.WithTransport(rt))
				if err != nil {
					t.Fatal(err)
				}
				ctx := context.Background()
				v, err := c.Get(ctx, srv.URL+"/items/Item", "")
				if err != nil {
					t.Fatal(err)
				}
				ds, ok := v.(*catbus.RemoteDataset)
				if !ok {
					t.Fatalf("Item = %T", v)
				}

				var seen []string
				for it, err := range c.List(ctx, ds, nil, batch) {
					if err != nil {
						t.Fatal(err)
					}
					seen = append(seen, it.(*catbus.RemoteObject).ID.(string))
				}
				if len(seen) != n {
					t.Fatalf("listed %d items, want %d: %v", len(seen), n, seen)
				}
				for i, key := range seen {
					if want := fmt.Sprintf("k%02d", i); key != want {
						t.Errorf("item %d = %s, want %s", i, key, want)
					}
				}

				pages := 1
				if batch > 0 && n > batch {
					pages = (n + batch - 1) / batch
				}
				if got := rt.count("/items/Item/list"); got != pages {
					t.Errorf("fetched %d pages, want %d", got, pages)
				}
			})
		}
	}
}

func TestPaginationWithSelector(t *testing.T) {
	srv := httptest.NewServer(catbus.NewHttpServer(itemRegistry(7)))
	defer srv.Close()
	c, err := catbus.NewClient()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	v, err := c.Get(ctx, srv.URL+"/items/Item", "")
	if err != nil {
		t.Fatal(err)
	}
	odd, err := v.(*catbus.RemoteDataset).NotWhere(map[string]any{"n": 2})
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for it, err := range c.List(ctx, odd, nil, 2) {
		if err != nil {
			t.Fatal(err)
		}
		if it.(*catbus.RemoteObject).Attributes["n"] == int64(2) {
			t.Errorf("selector let n=2 through")
		}
		count++
	}
	if count != 6 {
		t.Errorf("listed %d, want 6", count)
	}
}
