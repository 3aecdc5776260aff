/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pgarray decodes the textual array literal format returned by
// PostgreSQL for array-typed columns into nested Go slices, and re-encodes
// them. Nesting, quoted elements and backslash escapes are supported.
package pgarray

import (
	"fmt"
	"strings"
)

// ParseError reports malformed array literal input with the byte offset at
// which parsing failed.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pgarray: %s at offset %d", e.Msg, e.Offset)
}

// Decode parses an array literal into a slice whose elements are either
// string scalars or nested []any groups. Empty input and "{}" decode to an
// empty slice. Malformed input, including adjacent empty elements, returns
// a *ParseError rather than silently dropping data.
func Decode(text string) ([]any, error) {
	if text == "" || text == "{}" {
		return []any{}, nil
	}
	if text[0] != '{' {
		return nil, &ParseError{Offset: 0, Msg: "expected '{'"}
	}

	values, next, err := parse(text, 1, len(text))
	if err != nil {
		return nil, err
	}
	if next != len(text) {
		return nil, &ParseError{Offset: next, Msg: "trailing input after closing '}'"}
	}
	return values, nil
}

// parse consumes elements starting just past an opening brace and stops at
// the '}' closing this nesting level. It returns the decoded values and the
// offset just past that closing brace. The limit is the length of the outer
// string, so recursion can never read past the input. Offsets are threaded
// through return values; no cursor is shared across levels.
func parse(s string, offset, limit int) ([]any, int, error) {
	values := []any{}

	if offset < limit && s[offset] == '}' {
		return values, offset + 1, nil
	}

	for {
		if offset >= limit {
			return nil, offset, &ParseError{Offset: offset, Msg: "unterminated array"}
		}

		switch s[offset] {
		case '{':
			nested, next, err := parse(s, offset+1, limit)
			if err != nil {
				return nil, next, err
			}
			values = append(values, nested)
			offset = next

		case '"':
			elem, next, err := parseQuoted(s, offset, limit)
			if err != nil {
				return nil, next, err
			}
			values = append(values, elem)
			offset = next

		case ',', '}':
			// An element was expected here; {,} style input is malformed.
			return nil, offset, &ParseError{Offset: offset, Msg: "empty element"}

		default:
			elem, next, err := parseBare(s, offset, limit)
			if err != nil {
				return nil, next, err
			}
			values = append(values, elem)
			offset = next
		}

		if offset >= limit {
			return nil, offset, &ParseError{Offset: offset, Msg: "unterminated array"}
		}
		switch s[offset] {
		case ',':
			offset++
		case '}':
			// Closing brace of this level, not of a nested group: nested
			// groups were fully consumed by the recursive calls above.
			return values, offset + 1, nil
		default:
			return nil, offset, &ParseError{Offset: offset, Msg: "expected ',' or '}'"}
		}
	}
}

// parseQuoted consumes a double-quoted element starting at the opening quote
// and returns the unescaped content and the offset just past the closing
// quote.
func parseQuoted(s string, offset, limit int) (string, int, error) {
	i := offset + 1
	for i < limit {
		switch s[i] {
		case '\\':
			i += 2
		case '"':
			return unescape(s[offset+1 : i]), i + 1, nil
		default:
			i++
		}
	}
	return "", i, &ParseError{Offset: offset, Msg: "unterminated quoted element"}
}

// parseBare consumes an unquoted token up to the next ',' or '}'.
func parseBare(s string, offset, limit int) (string, int, error) {
	i := offset
	for i < limit {
		switch s[i] {
		case ',', '}':
			return s[offset:i], i, nil
		case '{', '"':
			return "", i, &ParseError{Offset: i, Msg: "unexpected character in bare element"}
		default:
			i++
		}
	}
	return "", i, &ParseError{Offset: offset, Msg: "unterminated element"}
}

// unescape reverses C-style backslash escaping inside a quoted element.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Encode renders values back into the array literal format. Scalars that
// contain structural characters or whitespace are quoted with backslash
// escaping. Decode(Encode(v)) yields a structure equivalent to v.
func Encode(values []any) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		switch elem := v.(type) {
		case []any:
			b.WriteString(Encode(elem))
		case string:
			b.WriteString(encodeScalar(elem))
		default:
			b.WriteString(encodeScalar(fmt.Sprint(elem)))
		}
	}
	b.WriteByte('}')
	return b.String()
}

func encodeScalar(s string) string {
	if s != "" && !strings.ContainsAny(s, `{},"\ `) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}
