// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rson

import (
	"encoding/base64"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Transform rewrites values in flight. On encode it is applied to every
// value before it is written; on decode to every value after it is read.
// Returning the argument unchanged is always valid.
type Transform func(any) (any, error)

// Dump encodes v with the default registry and no transform.
func Dump(v any) (string, error) {
	return DefaultRegistry.Encode(v, nil)
}

// Encode renders v as wire text. Values implementing [Tagged] must use a
// tag registered in r.
func (r *Registry) Encode(v any, transform Transform) (string, error) {
	e := &encoder{r: r, transform: transform}
	if err := e.value(v); err != nil {
		return "", err
	}
	return e.sb.String(), nil
}

type encoder struct {
	r         *Registry
	transform Transform
	sb        strings.Builder
}

func (e *encoder) value(v any) error {
	if e.transform != nil {
		var err error
		if v, err = e.transform(v); err != nil {
			return err
		}
	}
	return e.body(v)
}

func (e *encoder) body(v any) error {
	switch x := v.(type) {
	case nil:
		e.sb.WriteString("null")
	case bool:
		if x {
			e.sb.WriteString("true")
		} else {
			e.sb.WriteString("false")
		}
	case string:
		e.quote(x)
	case int:
		e.sb.WriteString(strconv.FormatInt(int64(x), 10))
	case int8:
		e.sb.WriteString(strconv.FormatInt(int64(x), 10))
	case int16:
		e.sb.WriteString(strconv.FormatInt(int64(x), 10))
	case int32:
		e.sb.WriteString(strconv.FormatInt(int64(x), 10))
	case int64:
		e.sb.WriteString(strconv.FormatInt(x, 10))
	case uint:
		e.sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint8:
		e.sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint16:
		e.sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint32:
		e.sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint64:
		e.sb.WriteString(strconv.FormatUint(x, 10))
	case *big.Int:
		if x == nil {
			e.sb.WriteString("null")
		} else {
			e.sb.WriteString(x.String())
		}
	case float32:
		e.float(float64(x), 32)
	case float64:
		e.float(x, 64)
	case complex64:
		e.complex(complex128(x), 32)
	case complex128:
		e.complex(x, 64)
	case []byte:
		e.sb.WriteString("@base64 ")
		e.quote(base64.StdEncoding.EncodeToString(x))
	case time.Time:
		e.sb.WriteString("@datetime ")
		e.quote(x.Format(time.RFC3339Nano))
	case time.Duration:
		e.sb.WriteString("@duration ")
		e.sb.WriteString(formatSeconds(x))
	case Set:
		e.sb.WriteString("@set ")
		return e.list(len(x), func(i int) any { return x[i] })
	case Unknown:
		e.sb.WriteString("@unknown ")
		return e.value(x.Value)
	case []any:
		return e.list(len(x), func(i int) any { return x[i] })
	case []string:
		return e.list(len(x), func(i int) any { return x[i] })
	case map[string]any:
		return e.object(x)
	case Tagged:
		return e.tagged(x)
	default:
		return e.reflect(v)
	}
	return nil
}

func (e *encoder) tagged(t Tagged) error {
	name := t.RsonTag()
	if IsReserved(name) {
		return Errorf(TypeInvalidTag, "can't tag %T with reserved name %q", t, name)
	}
	if _, carrier := t.(TaggedObject); !carrier && !e.r.Registered(name) {
		return Errorf(TypeUnknownType, "can't find tag for %T: %q is not registered", t, name)
	}
	payload, err := t.RsonPayload()
	if err != nil {
		return err
	}
	e.sb.WriteByte('@')
	e.sb.WriteString(name)
	e.sb.WriteByte(' ')
	// The payload container itself is not offered to the transform, only
	// the values inside it.
	switch p := payload.(type) {
	case map[string]any:
		return e.object(p)
	case []any:
		return e.list(len(p), func(i int) any { return p[i] })
	default:
		return e.value(p)
	}
}

func (e *encoder) reflect(v any) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		e.quote(rv.String())
		return nil
	case reflect.Bool:
		return e.body(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.sb.WriteString(strconv.FormatInt(rv.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		e.sb.WriteString(strconv.FormatUint(rv.Uint(), 10))
		return nil
	case reflect.Float32, reflect.Float64:
		e.float(rv.Float(), rv.Type().Bits())
		return nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			e.sb.WriteString("[]")
			return nil
		}
		return e.list(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return e.object(m)
	case reflect.Pointer:
		if rv.IsNil() {
			e.sb.WriteString("null")
			return nil
		}
	}
	return Errorf(TypeUnknownType, "can't encode value of type %T", v)
}

func (e *encoder) list(n int, at func(int) any) error {
	e.sb.WriteByte('[')
	for i := range n {
		if i > 0 {
			e.sb.WriteString(", ")
		}
		if err := e.value(at(i)); err != nil {
			return err
		}
	}
	e.sb.WriteByte(']')
	return nil
}

func (e *encoder) object(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.sb.WriteString(", ")
		}
		e.quote(k)
		e.sb.WriteString(": ")
		if err := e.value(m[k]); err != nil {
			return err
		}
	}
	e.sb.WriteByte('}')
	return nil
}

func (e *encoder) float(f float64, bits int) {
	switch {
	case math.IsNaN(f):
		e.sb.WriteString(`@float "nan"`)
	case math.IsInf(f, 1):
		e.sb.WriteString(`@float "+inf"`)
	case math.IsInf(f, -1):
		e.sb.WriteString(`@float "-inf"`)
	default:
		e.sb.WriteString(formatFloat(f, bits))
	}
}

func (e *encoder) complex(c complex128, bits int) {
	e.sb.WriteString("@complex [")
	e.float(real(c), bits)
	e.sb.WriteString(", ")
	e.float(imag(c), bits)
	e.sb.WriteByte(']')
}

// formatFloat returns the shortest decimal that parses back to f, always
// marked as a float.
func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// formatSeconds renders d as an exact decimal number of seconds.
func formatSeconds(d time.Duration) string {
	neg := d < 0
	n := uint64(d)
	if neg {
		n = uint64(-d)
	}
	frac := strconv.FormatUint(n%uint64(time.Second), 10)
	frac = strings.Repeat("0", 9-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	s := strconv.FormatUint(n/uint64(time.Second), 10) + "." + frac
	if neg {
		s = "-" + s
	}
	return s
}

const hexDigits = "0123456789abcdef"

func (e *encoder) quote(s string) {
	e.sb.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				e.sb.WriteString(`\"`)
			case '\\':
				e.sb.WriteString(`\\`)
			case '\n':
				e.sb.WriteString(`\n`)
			case '\r':
				e.sb.WriteString(`\r`)
			case '\t':
				e.sb.WriteString(`\t`)
			case '\b':
				e.sb.WriteString(`\b`)
			case '\f':
				e.sb.WriteString(`\f`)
			default:
				if c < 0x20 || c == 0x7f {
					e.sb.WriteString(`\u00`)
					e.sb.WriteByte(hexDigits[c>>4])
					e.sb.WriteByte(hexDigits[c&0xf])
				} else {
					e.sb.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			e.sb.WriteString(`�`)
		} else {
			e.sb.WriteString(s[i : i+size])
		}
		i += size
	}
	e.sb.WriteByte('"')
}
