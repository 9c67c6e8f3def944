// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rson

import (
	"fmt"
	"sort"
	"sync"
)

// ReservedTags are the primitive kinds built into the wire format. No
// registered type may use one of these names.
var ReservedTags = []string{
	"bool", "int", "float", "complex",
	"string", "bytestring", "base64",
	"duration", "datetime",
	"set", "list", "dict", "object",
	"unknown",
}

var reserved = func() map[string]bool {
	m := make(map[string]bool, len(ReservedTags))
	for _, t := range ReservedTags {
		m[t] = true
	}
	return m
}()

// IsReserved reports whether name is a reserved primitive tag.
func IsReserved(name string) bool { return reserved[name] }

// Tagged is implemented by application values that encode as a registered
// tag. The payload must itself be encodable.
type Tagged interface {
	RsonTag() string
	RsonPayload() (any, error)
}

// Decoder builds an application value from a decoded payload.
type Decoder func(payload any) (any, error)

// TaggedObject carries a tag the decoding registry does not know, so it can
// be passed on and re-encoded unchanged.
type TaggedObject struct {
	Name  string
	Value any
}

func (t TaggedObject) RsonTag() string           { return t.Name }
func (t TaggedObject) RsonPayload() (any, error) { return t.Value, nil }

func (t TaggedObject) String() string {
	return fmt.Sprintf("<%s %v>", t.Name, t.Value)
}

// Set is an unordered collection; it keeps the order it was decoded in.
type Set []any

// Unknown wraps a value tagged as being of an unknown kind.
type Unknown struct {
	Value any
}

// Registry binds tag names to decoders. A process normally uses
// [DefaultRegistry], which has every descriptor type registered.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
	names    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register binds name to dec. It fails if the name is reserved or already
// registered.
func (r *Registry) Register(name string, dec Decoder) error {
	if name == "" {
		return Errorf(TypeInvalidTag, "empty tag name")
	}
	if IsReserved(name) {
		return Errorf(TypeInvalidTag, "can't register %q, the name is reserved", name)
	}
	if dec == nil {
		return Errorf(TypeInvalidTag, "no decoder for %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.decoders[name]; ok {
		return Errorf(TypeDuplicateRegistration, "tag %q already registered", name)
	}
	r.decoders[name] = dec
	r.names = append(r.names, name)
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// package initialisation.
func (r *Registry) MustRegister(name string, dec Decoder) {
	if err := r.Register(name, dec); err != nil {
		panic(fmt.Sprintf("rson: registering %q: %v", name, err))
	}
}

// Registered reports whether name is bound in the registry.
func (r *Registry) Registered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[name]
	return ok
}

// Names returns the registered tag names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := append([]string(nil), r.names...)
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) decoder(name string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[name]
	return d, ok
}

// fromTag turns a registered (name, payload) pair into a value, or into a
// TaggedObject when the name is not registered.
func (r *Registry) fromTag(name string, payload any) (any, error) {
	if IsReserved(name) {
		return nil, Errorf(TypeInvalidTag, "can't use reserved tag %q for %v", name, payload)
	}
	if dec, ok := r.decoder(name); ok {
		return dec(payload)
	}
	return TaggedObject{Name: name, Value: payload}, nil
}

// DefaultRegistry knows every descriptor in this package.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("Link", decodeLink)
	r.MustRegister("Form", decodeForm)
	r.MustRegister("Dataset", decodeDataset)
	r.MustRegister("Resource", decodeResource)
	r.MustRegister("Namespace", decodeNamespace)
	r.MustRegister("Cursor", decodeCursor)
	r.MustRegister("Waiter", decodeWaiter)
	r.MustRegister("Request", decodeRequest)
	r.MustRegister("Error", decodeError)
	return r
}

// payloadFields gives typed access to a descriptor payload.
type payloadFields struct {
	tag string
	m   map[string]any
}

func fields(tag string, payload any) (payloadFields, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return payloadFields{}, Errorf(TypeInvalidTag, "@%s payload must be an object, got %T", tag, payload)
	}
	return payloadFields{tag: tag, m: m}, nil
}

func (f payloadFields) bad(key string, v any) error {
	return Errorf(TypeInvalidTag, "@%s field %q has unexpected type %T", f.tag, key, v)
}

func (f payloadFields) str(key string) (string, error) {
	v, ok := f.m[key]
	if !ok {
		return "", Errorf(TypeInvalidTag, "@%s missing field %q", f.tag, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", f.bad(key, v)
	}
	return s, nil
}

func (f payloadFields) optStr(key string) (string, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", f.bad(key, v)
	}
	return s, nil
}

func (f payloadFields) strs(key string) ([]string, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	out, ok := stringList(v)
	if !ok {
		return nil, f.bad(key, v)
	}
	return out, nil
}

func (f payloadFields) obj(key string) (map[string]any, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, f.bad(key, v)
	}
	return m, nil
}

func (f payloadFields) strMap(key string) (map[string]string, error) {
	m, err := f.obj(key)
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil, f.bad(key, v)
		}
		out[k] = s
	}
	return out, nil
}

func (f payloadFields) list(key string) ([]any, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, f.bad(key, v)
	}
	return l, nil
}

func (f payloadFields) number(key string) (float64, error) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, f.bad(key, v)
}

// stringList converts a decoded list (or a []string) into a []string.
func stringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, len(l))
		for i, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// StringList is the exported form of the list conversion used for
// argument-name lists received over the wire.
func StringList(v any) ([]string, bool) { return stringList(v) }
