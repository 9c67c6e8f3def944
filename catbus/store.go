// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Query-farm/catbus/rson"
)

// Store is the storage behind a collection.
//
// List pages are cursor based: items are ordered by a stable key and next
// is the key after which the page starts. A page whose Continue is empty
// ends the listing.
type Store interface {
	KeyFor(item Object) string
	Lookup(ctx context.Context, key string) (Object, error)
	Create(ctx context.Context, args Args) (Object, error)
	Delete(ctx context.Context, key string) error
	DeleteList(ctx context.Context, sel rson.Selector) error
	List(ctx context.Context, sel rson.Selector, limit int, next string) (*Page, error)
}

// Page is one page of a listing.
type Page struct {
	Items    []any
	Selector rson.Selector
	Continue string

	kind string
}

func (p *Page) embed(r *Registry, path string) (any, error) {
	sel, err := rson.DumpSelector(p.Selector)
	if err != nil {
		return nil, err
	}
	items := p.Items
	if items == nil {
		items = []any{}
	}
	return &rson.Cursor{
		Kind:       p.kind,
		Items:      items,
		Collection: r.prefix + path,
		Selector:   sel,
		Continue:   p.Continue,
	}, nil
}

// MemoryStore keeps a collection in a map, keyed by the string form of one
// attribute. Listing is in ascending key order. It is safe for concurrent
// use.
type MemoryStore struct {
	t   *Type
	key string

	mu    sync.Mutex
	items map[string]Object
}

// NewMemoryStore returns an empty store for instances of t keyed by the
// attribute key.
func NewMemoryStore(t *Type, key string) *MemoryStore {
	return &MemoryStore{t: t, key: key, items: make(map[string]Object)}
}

func (s *MemoryStore) KeyFor(item Object) string {
	return fmt.Sprint(s.t.attributes(item)[s.key])
}

func (s *MemoryStore) Lookup(_ context.Context, key string) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.items[key]
	if !ok {
		return nil, notFound("%s %q", s.t.Name, key)
	}
	return obj, nil
}

func (s *MemoryStore) Create(ctx context.Context, args Args) (Object, error) {
	obj, err := s.t.construct(NewCallContext(ctx, ""), args)
	if err != nil {
		return nil, err
	}
	key := s.KeyFor(obj)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return nil, invalidArgument("%s %q already exists", s.t.Name, key)
	}
	s.items[key] = obj
	return obj, nil
}

// Put stores obj, replacing any item with the same key.
func (s *MemoryStore) Put(obj Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[s.KeyFor(obj)] = obj
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return notFound("%s %q", s.t.Name, key)
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) DeleteList(_ context.Context, sel rson.Selector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, obj := range s.items {
		ok, err := sel.Match(s.t.attributes(obj))
		if err != nil {
			return err
		}
		if ok {
			delete(s.items, key)
		}
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, sel rson.Selector, limit int, next string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		if next != "" && k <= next {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	page := &Page{Selector: sel, Items: []any{}}
	for _, k := range keys {
		obj := s.items[k]
		ok, err := sel.Match(s.t.attributes(obj))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if limit > 0 && len(page.Items) == limit {
			page.Continue = s.KeyFor(page.Items[len(page.Items)-1].(Object))
			break
		}
		page.Items = append(page.Items, obj)
	}
	return page, nil
}

// Len returns the number of stored items.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
