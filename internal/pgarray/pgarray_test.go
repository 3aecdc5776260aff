/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pgarray

import (
	"reflect"
	"testing"
)

func TestDecodeEmpty(t *testing.T) {
	for _, input := range []string{"", "{}"} {
		got, err := Decode(input)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", input, err)
		}
		if len(got) != 0 {
			t.Fatalf("Decode(%q) = %v, want empty", input, got)
		}
	}
}

func TestDecodeFlat(t *testing.T) {
	got, err := Decode("{1,2,3}")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []any{"1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeNested(t *testing.T) {
	got, err := Decode("{1,2,{3,4},5}")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []any{"1", "2", []any{"3", "4"}, "5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeDeepNesting(t *testing.T) {
	got, err := Decode("{a,{b,{c,d},e},f}")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []any{"a", []any{"b", []any{"c", "d"}, "e"}, "f"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeNestedGroupAtEnd(t *testing.T) {
	// The closing '}' of the nested group must not be confused with the
	// closing '}' of the outer level.
	got, err := Decode("{1,{2,3}}")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []any{"1", []any{"2", "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeAdjacentNestedGroups(t *testing.T) {
	got, err := Decode("{{1,2},{3,4}}")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []any{[]any{"1", "2"}, []any{"3", "4"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeEmptyNestedGroup(t *testing.T) {
	got, err := Decode("{{},a}")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []any{[]any{}, "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeQuoted(t *testing.T) {
	tests := []struct {
		input string
		want  []any
	}{
		{`{"a b",c}`, []any{"a b", "c"}},
		{`{"a\"b",c}`, []any{`a"b`, "c"}},
		{`{"a\\b"}`, []any{`a\b`}},
		{`{"with,comma","with}brace"}`, []any{"with,comma", "with}brace"}},
		{`{"",x}`, []any{"", "x"}},
		{`{"one\ntwo"}`, []any{"one\ntwo"}},
	}
	for _, tc := range tests {
		got, err := Decode(tc.input)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", tc.input, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Decode(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	inputs := []string{
		"{,}",
		"{a,,b}",
		"{a,}",
		"{a",
		"{a}x",
		`{"unterminated}`,
		"a,b}",
		"{{a}",
		"{a{b}}",
	}
	for _, input := range inputs {
		if _, err := Decode(input); err == nil {
			t.Fatalf("Decode(%q) succeeded, want error", input)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"{}",
		"{1,2,3}",
		"{1,2,{3,4},5}",
		`{"a\"b",c}`,
		"{a,{b,{c,d},e},f}",
		`{"with,comma","with\\backslash"}`,
	}
	for _, input := range inputs {
		first, err := Decode(input)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", input, err)
		}
		second, err := Decode(Encode(first))
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) failed: %v", input, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("round trip of %q: %v != %v", input, first, second)
		}
	}
}
