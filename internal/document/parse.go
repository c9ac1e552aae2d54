// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Errors wrapped by ParseError.
var (
	ErrEmptyField   = errors.New("empty field")
	ErrNotList      = errors.New("not a list of objects")
	ErrMissingKey   = errors.New("object is missing a required key")
	ErrInvalidValue = errors.New("value has the wrong type")
)

// ParseError describes a structured field that could not be read. It is
// recovered locally as an empty list and never aborts a build.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Object is one decoded element of a structured field.
type Object map[string]any

// ParseResult is the outcome of decoding a structured field. It is either
// Parsed or ParseFailure.
type ParseResult interface {
	isParseResult()
}

// Parsed holds the decoded objects in source order.
type Parsed struct {
	Objects []Object
}

// ParseFailure holds the reason a field could not be decoded.
type ParseFailure struct {
	Err *ParseError
}

func (Parsed) isParseResult()       {}
func (ParseFailure) isParseResult() {}

// Parse decodes a list of objects stored as JSON or as a Python literal
// (single quotes, True/False/None).
func Parse(field, raw string) ParseResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return failure(field, ErrEmptyField)
	}

	objects, err := decodeObjects([]byte(raw))
	if err != nil {
		objects, err = decodeObjects([]byte(literalToJSON(raw)))
	}
	if err != nil {
		return failure(field, err)
	}
	return Parsed{Objects: objects}
}

func failure(field string, err error) ParseFailure {
	return ParseFailure{Err: &ParseError{Field: field, Err: err}}
}

func decodeObjects(b []byte) ([]Object, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotList, err)
	}

	objects := make([]Object, len(raw))
	for i, m := range raw {
		if m == nil {
			return nil, ErrNotList
		}
		objects[i] = Object(m)
	}
	return objects, nil
}

// String returns the string value stored at key.
func (o Object) String(key string) (string, error) {
	v, ok := o[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidValue, key)
	}
	return s, nil
}

// Int returns the integer value stored at key.
func (o Object) Int(key string) (int64, error) {
	v, ok := o[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, key)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, key)
	}
	return i, nil
}

// literalToJSON rewrites Python literal syntax into JSON. Single-quoted
// strings become double-quoted and the True, False and None keywords become
// their JSON counterparts. Anything else is copied unchanged.
func literalToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			i = writeQuoted(&b, s, i)
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// writeQuoted copies the string literal starting at s[start] as a JSON
// string and returns the index just past its closing quote.
func writeQuoted(b *strings.Builder, s string, start int) int {
	quote := s[start]
	b.WriteByte('"')

	i := start + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			next := s[i+1]
			switch next {
			case '\'':
				b.WriteByte('\'')
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				b.WriteByte('\\')
				b.WriteByte(next)
			default:
				b.WriteString(`\\`)
				b.WriteByte(next)
			}
			i += 2
		case c == quote:
			b.WriteByte('"')
			return i + 1
		case c == '"':
			b.WriteString(`\"`)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	b.WriteByte('"')
	return i
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
