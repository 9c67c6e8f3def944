// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package rson

import (
	"errors"
	"math"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRoundTripPrimitives(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	when := time.Date(2025, 3, 4, 5, 6, 7, 890, time.FixedZone("x", 5*3600+1800))

	tests := []struct {
		name string
		in   any
	}{
		{"null", nil},
		{"true", true},
		{"false", false},
		{"int", int64(-42)},
		{"bigint", huge},
		{"float", 2.5},
		{"float integral", 3.0},
		{"float tiny", 1e-300},
		{"complex", complex(1.5, -2)},
		{"string", "héllo \"world\"\n\t\\"},
		{"bytes", []byte{0, 1, 2, 255}},
		{"duration", 1500 * time.Millisecond},
		{"negative duration", -3*time.Second - 7},
		{"datetime", when},
		{"set", Set{int64(1), "two"}},
		{"list", []any{int64(1), "a", []any{}, map[string]any{}}},
		{"object", map[string]any{"b": int64(1), "a": []any{true, nil}}},
		{"unknown", Unknown{Value: "thing"}},
		{"error", &Error{Type: TypeNotFound, Message: "missing"}},
		{"link", &Link{URL: "/x/echo", Value: "cached"}},
		{"form", &Form{URL: "/x/add", Arguments: []string{"a", "b"}, Defaults: map[string]any{"b": int64(2)}}},
		{"dataset", &Dataset{Kind: "Job", URL: "/x/Job", New: []string{"name"}, List: []string{"name"}, Key: "name"}},
		{"dataset with defaults", &Dataset{Kind: "W", URL: "/x/W", New: []string{"name", "color"}, Defaults: map[string]any{"color": "red"}, List: []string{"name"}, Key: "name"}},
		{"waiter", &Waiter{URL: "/x/wait?count=1", WaitSeconds: 2}},
		{"cursor", &Cursor{Kind: "Job", Items: []any{"a"}, Collection: "/x/Job/list", Selector: "name:eq:%22a%22", Continue: "a"}},
		{"request", &Request{Method: "POST", URL: "/x", Params: map[string]string{"a": "1"}, Headers: map[string]string{}, Body: map[string]any{"x": int64(1)}}},
		{"resource", &Resource{
			Kind: "Job", URL: "/x/Job/id/a", ID: "a", Collection: "/x/Job",
			Links:      []string{"status"},
			Actions:    map[string]any{"stop": []string{}, "rename": []string{"to"}},
			Embeds:     map[string]any{},
			Attributes: map[string]any{"name": "a"},
		}},
		{"namespace", &Namespace{
			Kind: "Index", URL: "/x/",
			Links:      []string{"Total"},
			Actions:    map[string]any{"echo": &Form{URL: "/x/echo", Arguments: []string{"x"}}},
			Embeds:     map[string]any{"Total": &Namespace{Kind: "Total", URL: "/x/Total", Links: []string{}, Actions: map[string]any{}, Embeds: map[string]any{}, Attributes: map[string]any{}}},
			Attributes: map[string]any{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Dump(tt.in)
			if err != nil {
				t.Fatalf("Dump: %v", err)
			}
			out, err := Parse(text)
			if err != nil {
				t.Fatalf("Parse(%q): %v", text, err)
			}
			if w, ok := tt.in.(time.Time); ok {
				if !w.Equal(out.(time.Time)) {
					t.Fatalf("got %v, want %v", out, w)
				}
				return
			}
			if b, ok := tt.in.(*big.Int); ok {
				if b.Cmp(out.(*big.Int)) != 0 {
					t.Fatalf("got %v, want %v", out, b)
				}
				return
			}
			if !reflect.DeepEqual(out, tt.in) {
				t.Fatalf("round trip of %q:\n got %#v\nwant %#v", text, out, tt.in)
			}
		})
	}
}

func TestEncodeCanonical(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{map[string]any{"b": 1, "a": 2}, `{"a": 2, "b": 1}`},
		{[]int{1, 2}, `[1, 2]`},
		{1.0, `1.0`},
		{math.NaN(), `@float "nan"`},
		{math.Inf(1), `@float "+inf"`},
		{math.Inf(-1), `@float "-inf"`},
		{1500 * time.Millisecond, `@duration 1.5`},
		{2 * time.Second, `@duration 2.0`},
		{[]byte("hi"), `@base64 "aGk="`},
		{&Link{URL: "/a"}, `@Link {"url": "/a"}`},
		{uint8(7), `7`},
	}
	for _, tt := range tests {
		got, err := Dump(tt.in)
		if err != nil {
			t.Fatalf("Dump(%#v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Dump(%#v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDecodeReservedTags(t *testing.T) {
	tests := []struct {
		text string
		want any
	}{
		{`@int "12"`, int64(12)},
		{`@float 3`, 3.0},
		{`@float "0x1p-2"`, 0.25},
		{`@bytestring "a\u00ff"`, []byte{'a', 0xff}},
		{`@string "s"`, "s"},
		{`@list [1,]`, []any{int64(1)}},
		{`@dict {"a": 1}`, map[string]any{"a": int64(1)}},
		{`@object {}`, map[string]any{}},
		{`@bool true`, true},
		{` [ 1 , 2 , ] `, []any{int64(1), int64(2)}},
		{`"\ud83d\ude00"`, "😀"},
	}
	for _, tt := range tests {
		got, err := Parse(tt.text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.text, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.text, got, tt.want)
		}
	}
}

func TestUnknownTagRoundTrip(t *testing.T) {
	for _, text := range []string{
		`@Widget {"id": 3, "parts": [@Gear {"teeth": 12}]}`,
		`@Opaque [1, "two"]`,
		`@Marker null`,
	} {
		v, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if _, ok := v.(TaggedObject); !ok {
			t.Fatalf("Parse(%q) = %T, want TaggedObject", text, v)
		}
		again, err := Dump(v)
		if err != nil {
			t.Fatalf("Dump: %v", err)
		}
		if again != text {
			t.Errorf("re-encoded %q as %q", text, again)
		}
	}
}

type widget struct{}

func (widget) RsonTag() string           { return "Widget" }
func (widget) RsonPayload() (any, error) { return map[string]any{}, nil }

func TestEncodeErrors(t *testing.T) {
	if _, err := Dump(widget{}); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unregistered tag: got %v, want UnknownType", err)
	}
	if _, err := Dump(struct{ A int }{1}); !errors.Is(err, ErrUnknownType) {
		t.Errorf("struct: got %v, want UnknownType", err)
	}
	if _, err := Dump(make(chan int)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("chan: got %v, want UnknownType", err)
	}
	if _, err := Dump(TaggedObject{Name: "int", Value: 1}); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("reserved carrier: got %v, want InvalidTag", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	syntax := []string{
		``, `[1, 2`, `{"a" 1}`, `{1: 2}`, `"open`, `@`, `@int @int 1`,
		`1 2`, `nul`, `-`, `"\q"`, `{"a": 1, "a": 2}`,
	}
	for _, text := range syntax {
		var se *SyntaxError
		if _, err := Parse(text); !errors.As(err, &se) {
			t.Errorf("Parse(%q): got %v, want SyntaxError", text, err)
		}
	}
	tags := []string{
		`@bool 1`, `@complex [1]`, `@base64 "!!"`, `@datetime "yesterday"`,
		`@bytestring "\u0100"`, `@set {}`, `@Link [1]`, `@Link {"url": 3}`,
	}
	for _, text := range tags {
		if _, err := Parse(text); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("Parse(%q): got %v, want InvalidTag", text, err)
		}
	}
}

func TestDecodeDepth(t *testing.T) {
	nested := func(open, close string, n int) string {
		return strings.Repeat(open, n) + strings.Repeat(close, n)
	}
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"lists at the limit", nested("[", "]", MaxDepth), true},
		{"lists past the limit", nested("[", "]", MaxDepth+1), false},
		{"objects past the limit", nested(`{"a": `, "}", MaxDepth+1), false},
		{"mixed past the limit", nested(`[{"a": `, "}]", MaxDepth/2+1), false},
		{"unterminated flood", strings.Repeat("[", 8<<20), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if tt.ok {
				if err != nil {
					t.Fatalf("Parse: %v", err)
				}
				return
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("got %v, want SyntaxError", err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	dec := func(p any) (any, error) { return p, nil }
	if err := r.Register("Widget", dec); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("Widget", dec); !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("duplicate: got %v", err)
	}
	for _, name := range ReservedTags {
		if err := r.Register(name, dec); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("reserved %q: got %v", name, err)
		}
	}
	if err := r.Register("Gear", nil); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("nil decoder: got %v", err)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"Widget"}) {
		t.Errorf("Names() = %v", got)
	}
	text, err := r.Encode(widget{}, nil)
	if err != nil || text != `@Widget {}` {
		t.Fatalf("Encode = %q, %v", text, err)
	}
	if !strings.Contains(strings.Join(DefaultRegistry.Names(), ","), "Cursor") {
		t.Errorf("default registry is missing descriptors: %v", DefaultRegistry.Names())
	}
}

func TestTransform(t *testing.T) {
	var seen []string
	upper := func(v any) (any, error) {
		if l, ok := v.(*Link); ok {
			seen = append(seen, l.URL)
			return "link:" + l.URL, nil
		}
		return v, nil
	}
	v, err := DefaultRegistry.Decode(`[@Link {"url": "/a"}, {"x": @Link {"url": "/b"}}]`, upper)
	if err != nil {
		t.Fatal(err)
	}
	want := []any{"link:/a", map[string]any{"x": "link:/b"}}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %#v", v)
	}
	if !reflect.DeepEqual(seen, []string{"/a", "/b"}) {
		t.Errorf("transform order %v", seen)
	}

	double := func(v any) (any, error) {
		if n, ok := v.(int64); ok {
			return n * 2, nil
		}
		return v, nil
	}
	text, err := DefaultRegistry.Encode(&Link{URL: "/a", Value: []any{int64(1), int64(2)}}, double)
	if err != nil {
		t.Fatal(err)
	}
	if text != `@Link {"url": "/a", "value": [2, 4]}` {
		t.Errorf("Encode with transform = %s", text)
	}
}

func TestErrorIs(t *testing.T) {
	err := Errorf(TypeNotFound, "no job %q", "a")
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound should match its sentinel")
	}
	if errors.Is(err, ErrForbidden) {
		t.Error("NotFound should not match Forbidden")
	}
	if !errors.Is(err, &Error{}) {
		t.Error("an empty target matches any Error")
	}
	if got := err.Error(); got != `NotFound: no job "a"` {
		t.Errorf("Error() = %q", got)
	}
}
