// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rson

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// Parse decodes text with the default registry and no transform.
func Parse(text string) (any, error) {
	return DefaultRegistry.Decode(text, nil)
}

// Decode reads one value from text. Tags that are neither reserved nor
// registered decode to a [TaggedObject].
func (r *Registry) Decode(text string, transform Transform) (any, error) {
	p := &parser{r: r, src: text, transform: transform}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing data")
	}
	return v, nil
}

// MaxDepth bounds the nesting of lists and objects in decoded text.
const MaxDepth = 10000

type parser struct {
	r         *Registry
	src       string
	pos       int
	depth     int
	transform Transform
}

// enter records one more level of nesting; leave undoes it.
func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return p.errorf("nesting deeper than %d", MaxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), Offset: p.pos}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) done(v any) (any, error) {
	if p.transform == nil {
		return v, nil
	}
	return p.transform(v)
}

// value parses an optionally tagged value.
func (p *parser) value() (any, error) {
	if p.peek() != '@' {
		v, err := p.body()
		if err != nil {
			return nil, err
		}
		return p.done(v)
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.src) && isTagChar(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return nil, p.errorf("empty tag")
	}
	p.skipSpace()
	if p.peek() == '@' {
		return nil, p.errorf("tag %q applied to a tagged value", name)
	}
	var v any
	var err error
	if IsReserved(name) {
		v, err = p.reservedBody(name)
	} else {
		var payload any
		if payload, err = p.body(); err == nil {
			v, err = p.r.fromTag(name, payload)
		}
	}
	if err != nil {
		return nil, err
	}
	return p.done(v)
}

func isTagChar(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// body parses an untagged value.
func (p *parser) body() (any, error) {
	switch c := p.peek(); {
	case c == '{':
		return p.object()
	case c == '[':
		return p.list()
	case c == '"':
		return p.str()
	case c == '-' || (c >= '0' && c <= '9'):
		text, isFloat, err := p.number()
		if err != nil {
			return nil, err
		}
		if isFloat {
			return parseFloat(text, p)
		}
		return parseInt(text, p)
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	default:
		return p.literal()
	}
}

func (p *parser) literal() (any, error) {
	for _, lit := range []struct {
		word string
		v    any
	}{{"null", nil}, {"true", true}, {"false", false}} {
		if strings.HasPrefix(p.src[p.pos:], lit.word) {
			p.pos += len(lit.word)
			return lit.v, nil
		}
	}
	return nil, p.errorf("unexpected character %q", p.peek())
}

func (p *parser) number() (text string, isFloat bool, err error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	digits := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
		case (c == '+' || c == '-') && isFloat && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'):
		default:
			goto end
		}
		p.pos++
	}
end:
	if digits == 0 {
		return "", false, p.errorf("malformed number")
	}
	return p.src[start:p.pos], isFloat, nil
}

func parseInt(text string, p *parser) (any, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	b, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, p.errorf("malformed integer %q", text)
	}
	return b, nil
}

func parseFloat(text string, p *parser) (any, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("malformed float %q", text)
	}
	return f, nil
}

func (p *parser) list() ([]any, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	p.pos++ // [
	out := []any{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorf("expected ',' or ']' in list")
		}
	}
}

func (p *parser) object() (map[string]any, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	p.pos++ // {
	out := map[string]any{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		if p.peek() != '"' {
			return nil, p.errorf("object keys must be strings")
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if _, dup := out[key]; dup {
			return nil, p.errorf("duplicate key %q", key)
		}
		out[key] = v
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}' in object")
		}
	}
}

func (p *parser) str() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == '"':
			p.pos++
			return sb.String(), nil
		case c == '\\':
			p.pos++
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		case c < 0x20:
			return "", p.errorf("control character in string")
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) escape(sb *strings.Builder) error {
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '"', '\\', '/':
		sb.WriteByte(c)
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'u':
		r, err := p.hex4()
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) && strings.HasPrefix(p.src[p.pos:], `\u`) {
			p.pos += 2
			r2, err := p.hex4()
			if err != nil {
				return err
			}
			r = utf16.DecodeRune(r, r2)
		}
		sb.WriteRune(r)
	default:
		return p.errorf("invalid escape %q", c)
	}
	return nil
}

func (p *parser) hex4() (rune, error) {
	if p.pos+4 > len(p.src) {
		return 0, p.errorf("short unicode escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
	if err != nil {
		return 0, p.errorf("invalid unicode escape")
	}
	p.pos += 4
	return rune(n), nil
}

// reservedBody parses the body belonging to a reserved tag and converts it.
func (p *parser) reservedBody(name string) (any, error) {
	if name == "duration" && (p.peek() == '-' || (p.peek() >= '0' && p.peek() <= '9')) {
		text, _, err := p.number()
		if err != nil {
			return nil, err
		}
		return parseSeconds(text, p)
	}
	body, err := p.body()
	if err != nil {
		return nil, err
	}
	bad := func() error {
		return Errorf(TypeInvalidTag, "@%s can't tag a value of type %T", name, body)
	}
	switch name {
	case "bool":
		if b, ok := body.(bool); ok {
			return b, nil
		}
	case "int":
		switch n := body.(type) {
		case int64, *big.Int:
			return n, nil
		case string:
			return parseInt(n, p)
		}
	case "float":
		switch n := body.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, Errorf(TypeInvalidTag, "@float can't parse %q", n)
			}
			return f, nil
		}
	case "complex":
		l, ok := body.([]any)
		if !ok || len(l) != 2 {
			return nil, bad()
		}
		re, ok1 := toFloat(l[0])
		im, ok2 := toFloat(l[1])
		if !ok1 || !ok2 {
			return nil, bad()
		}
		return complex(re, im), nil
	case "string":
		if s, ok := body.(string); ok {
			return s, nil
		}
	case "bytestring":
		s, ok := body.(string)
		if !ok {
			return nil, bad()
		}
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0xff {
				return nil, Errorf(TypeInvalidTag, "@bytestring contains code point %U", r)
			}
			out = append(out, byte(r))
		}
		return out, nil
	case "base64":
		s, ok := body.(string)
		if !ok {
			return nil, bad()
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, Errorf(TypeInvalidTag, "@base64: %v", err)
		}
		return b, nil
	case "datetime":
		s, ok := body.(string)
		if !ok {
			return nil, bad()
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, Errorf(TypeInvalidTag, "@datetime: %v", err)
		}
		return t, nil
	case "set":
		if l, ok := body.([]any); ok {
			return Set(l), nil
		}
	case "list":
		if l, ok := body.([]any); ok {
			return l, nil
		}
	case "dict", "object":
		if m, ok := body.(map[string]any); ok {
			return m, nil
		}
	case "unknown":
		return Unknown{Value: body}, nil
	}
	return nil, bad()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// parseSeconds converts an exact decimal number of seconds to a duration.
func parseSeconds(text string, p *parser) (time.Duration, error) {
	if strings.ContainsAny(text, "eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, p.errorf("malformed duration %q", text)
		}
		return time.Duration(f * float64(time.Second)), nil
	}
	neg := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	whole, frac, _ := strings.Cut(text, ".")
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	s, err1 := strconv.ParseInt(whole, 10, 64)
	ns, err2 := strconv.ParseInt(frac, 10, 64)
	if err1 != nil || err2 != nil {
		return 0, p.errorf("malformed duration %q", text)
	}
	d := time.Duration(s)*time.Second + time.Duration(ns)
	if neg {
		d = -d
	}
	return d, nil
}
