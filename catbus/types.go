// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package catbus

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// Object is implemented by every value whose type is exposed. TypeName must
// match the Name of the [Type] it was registered under.
type Object interface {
	TypeName() string
}

// Args are the keyword arguments of a call.
type Args map[string]any

// String returns the named argument as a string.
func (a Args) String(name string) (string, error) {
	switch v := a[name].(type) {
	case string:
		return v, nil
	case nil:
		return "", invalidArgument("missing argument %q", name)
	default:
		return fmt.Sprint(v), nil
	}
}

// Int returns the named argument as an integer. Strings of digits and
// integral floats are accepted.
func (a Args) Int(name string) (int64, error) {
	switch v := a[name].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int64(v), nil
		}
	case *big.Int:
		if v.IsInt64() {
			return v.Int64(), nil
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
	case nil:
		return 0, invalidArgument("missing argument %q", name)
	}
	return 0, invalidArgument("argument %q is not an integer: %v", name, a[name])
}

// Float returns the named argument as a float.
func (a Args) Float(name string) (float64, error) {
	switch v := a[name].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	case nil:
		return 0, invalidArgument("missing argument %q", name)
	}
	return 0, invalidArgument("argument %q is not a number: %v", name, a[name])
}

// CallFunc implements an exposed operation. self is nil for functions and
// service methods, and the resolved instance for bound methods.
type CallFunc func(cc *CallContext, self Object, args Args) (any, error)

// Method declares one exposed operation.
type Method struct {
	Name     string
	Args     []string       // declared argument names, in order
	Defaults map[string]any // values for optional arguments
	Safe     bool           // callable with GET
	Call     CallFunc
	// Ready is the completion function polled through the /wait sub-path.
	// Its arguments are the parameters of the Waiter that pointed at it.
	Ready CallFunc
}

// bind checks args against the declaration and fills in defaults.
func (m *Method) bind(args Args) (Args, error) {
	return bindArgs(m.Name, m.Args, m.Defaults, args)
}

func bindArgs(name string, declared []string, defaults map[string]any, args Args) (Args, error) {
	out := make(Args, len(declared))
	known := make(map[string]bool, len(declared))
	for _, a := range declared {
		known[a] = true
		if v, ok := args[a]; ok {
			out[a] = v
		} else if v, ok := defaults[a]; ok {
			out[a] = v
		} else {
			return nil, invalidArgument("%s: missing argument %q", name, a)
		}
	}
	for a := range args {
		if !known[a] {
			return nil, invalidArgument("%s: unexpected argument %q", name, a)
		}
	}
	return out, nil
}

// Type declares an exposed type: how instances are built, which methods
// they expose and which handler variant serves them.
type Type struct {
	Name     string
	Args     []string // constructor arguments
	Defaults map[string]any
	// New builds an instance. When nil the type has no state and a
	// placeholder instance is used.
	New     func(cc *CallContext, args Args) (Object, error)
	Methods []*Method
	Nested  []Entry
	// Attributes reports the public state of an instance. When nil, the
	// exported struct fields are used.
	Attributes func(obj Object) map[string]any
	// Handler is the variant used by [Registry.Add] and for nested entries.
	Handler HandlerFactory
}

// Entry is a nested registration inside a Type.
type Entry struct {
	Name    string
	Exposed any // *Method or *Type
	Factory HandlerFactory
}

// Method returns the declared method called name.
func (t *Type) Method(name string) (*Method, bool) {
	for _, m := range t.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

func (t *Type) construct(cc *CallContext, args Args) (Object, error) {
	if t.New == nil {
		return placeholder(t.Name), nil
	}
	bound, err := bindArgs(t.Name, t.Args, t.Defaults, args)
	if err != nil {
		return nil, err
	}
	return t.New(cc, bound)
}

// attributes of obj as rendered in descriptors.
func (t *Type) attributes(obj Object) map[string]any {
	if t.Attributes != nil {
		return t.Attributes(obj)
	}
	return StructAttributes(obj)
}

// actions splits the declared methods into safe links and argument lists
// for the rest.
func (t *Type) actions() ([]string, map[string]any) {
	links := []string{}
	actions := map[string]any{}
	for _, m := range t.Methods {
		if strings.HasPrefix(m.Name, "_") {
			continue
		}
		if m.Safe {
			links = append(links, m.Name)
		} else {
			actions[m.Name] = argNames(m.Args)
		}
	}
	return links, actions
}

func argNames(a []string) []string {
	if a == nil {
		return []string{}
	}
	return a
}

// placeholder is the instance of a type without state.
type placeholder string

func (p placeholder) TypeName() string { return string(p) }

// Bound is a method together with the instance it applies to. Returning one
// from a call renders it as a link to that instance's method.
type Bound struct {
	Self   Object
	Method *Method
}

// Bind pairs m with self.
func Bind(self Object, m *Method) *Bound {
	return &Bound{Self: self, Method: m}
}

// StructAttributes reports the exported fields of a struct (or pointer to a
// struct). Field names come from the `catbus:"name"` tag, falling back to
// the lower-cased field name; a tag of "-" skips the field.
func StructAttributes(obj any) map[string]any {
	out := map[string]any{}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return out
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return out
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := strings.ToLower(f.Name)
		if tag, ok := f.Tag.Lookup("catbus"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		out[name] = rv.Field(i).Interface()
	}
	return out
}
