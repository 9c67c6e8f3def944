// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rson

import (
	"fmt"
	"net/url"
	"strings"
)

// Operator compares an attribute against a predicate value.
type Operator int

const (
	Equals Operator = iota
	NotEquals
)

var operatorTokens = map[Operator]string{
	Equals:    "eq",
	NotEquals: "ne",
}

func (o Operator) String() string {
	if t, ok := operatorTokens[o]; ok {
		return t
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Predicate is a single (key, operator, value) test.
type Predicate struct {
	Key      string
	Operator Operator
	Value    any
}

// Selector is an ordered conjunction of predicates.
type Selector []Predicate

// Eq returns a predicate testing key == value.
func Eq(key string, value any) Predicate {
	return Predicate{Key: key, Operator: Equals, Value: value}
}

// Ne returns a predicate testing key != value.
func Ne(key string, value any) Predicate {
	return Predicate{Key: key, Operator: NotEquals, Value: value}
}

// And returns a new selector with more predicates appended. The receiver is
// not modified.
func (s Selector) And(p ...Predicate) Selector {
	out := make(Selector, 0, len(s)+len(p))
	out = append(out, s...)
	return append(out, p...)
}

// DumpSelector encodes s as `key:op:value` segments joined by ';'. Keys and
// encoded values are query-escaped, so neither delimiter appears raw.
func DumpSelector(s Selector) (string, error) {
	parts := make([]string, len(s))
	for i, p := range s {
		tok, ok := operatorTokens[p.Operator]
		if !ok {
			return "", Errorf(TypeInvalidArgument, "unsupported operator %v", p.Operator)
		}
		v, err := Dump(p.Value)
		if err != nil {
			return "", fmt.Errorf("selector value for %q: %w", p.Key, err)
		}
		parts[i] = url.QueryEscape(p.Key) + ":" + tok + ":" + url.QueryEscape(v)
	}
	return strings.Join(parts, ";"), nil
}

// ParseSelector is the inverse of [DumpSelector].
func ParseSelector(text string) (Selector, error) {
	if text == "" {
		return nil, nil
	}
	segments := strings.Split(text, ";")
	out := make(Selector, 0, len(segments))
	for _, seg := range segments {
		parts := strings.Split(seg, ":")
		if len(parts) != 3 {
			return nil, Errorf(TypeInvalidArgument, "malformed selector segment %q", seg)
		}
		key, err := url.QueryUnescape(parts[0])
		if err != nil {
			return nil, Errorf(TypeInvalidArgument, "selector key %q: %v", parts[0], err)
		}
		var op Operator
		switch parts[1] {
		case "eq":
			op = Equals
		case "ne":
			op = NotEquals
		default:
			return nil, Errorf(TypeInvalidArgument, "unknown selector operator %q", parts[1])
		}
		raw, err := url.QueryUnescape(parts[2])
		if err != nil {
			return nil, Errorf(TypeInvalidArgument, "selector value %q: %v", parts[2], err)
		}
		v, err := Parse(raw)
		if err != nil {
			return nil, Errorf(TypeInvalidArgument, "selector value for %q: %v", key, err)
		}
		out = append(out, Predicate{Key: key, Operator: op, Value: v})
	}
	return out, nil
}

// Match reports whether attrs satisfies every predicate. Values are
// compared by their canonical encoding, so an int and an int64 holding the
// same number are equal. A missing attribute compares as null.
func (s Selector) Match(attrs map[string]any) (bool, error) {
	for _, p := range s {
		want, err := Dump(p.Value)
		if err != nil {
			return false, err
		}
		got, err := Dump(attrs[p.Key])
		if err != nil {
			return false, err
		}
		switch p.Operator {
		case Equals:
			if got != want {
				return false, nil
			}
		case NotEquals:
			if got == want {
				return false, nil
			}
		default:
			return false, Errorf(TypeInvalidArgument, "unsupported operator %v", p.Operator)
		}
	}
	return true, nil
}
