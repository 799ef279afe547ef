// Package payload normalizes raw webhook bodies into documents the
// formatting layer can rely on. Parsing never fails: anything that is not
// a JSON object degrades to a raw-text wrapper document.
package payload

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// rawCap bounds the fallback text so hostile bodies can't bloat documents.
const rawCap = 1000

// Document is a parsed webhook payload.
//
// Raw marks the fallback form {"raw": <text>} used when the body was not
// a JSON object.
type Document struct {
	Fields map[string]any
	Raw    bool
}

// Parse decodes body as a JSON object, or wraps it as raw text.
//
// Non-object JSON (arrays, strings, numbers) is treated the same as
// invalid JSON: the formatters key off object fields, so anything else is
// only useful as a preview. Invalid UTF-8 bytes are replaced.
func Parse(body []byte) Document {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err == nil && m != nil {
		return Document{Fields: m}
	}

	text := strings.ToValidUTF8(string(body), string(utf8.RuneError))
	return Document{
		Fields: map[string]any{"raw": clipRunes(text, rawCap)},
		Raw:    true,
	}
}

func clipRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Str returns the string value at key, or "".
func (d Document) Str(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// Has reports whether key is present.
func (d Document) Has(key string) bool {
	_, ok := d.Fields[key]
	return ok
}

// Map returns the object value at key, or an empty map.
func (d Document) Map(key string) map[string]any {
	m, _ := d.Fields[key].(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Slice returns the array value at key, or nil.
func (d Document) Slice(key string) []any {
	s, _ := d.Fields[key].([]any)
	return s
}

// Num returns the numeric value at key and whether it was a number.
// JSON numbers decode as float64.
func (d Document) Num(key string) (float64, bool) {
	f, ok := d.Fields[key].(float64)
	return f, ok
}

// JSON renders the document back to compact JSON, best-effort.
func (d Document) JSON() string {
	b, err := json.Marshal(d.Fields)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// StrIn returns the string at m[key], or "".
// Helper for nested objects returned by Document.Map.
func StrIn(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// NumIn returns the number at m[key] and whether it was numeric.
func NumIn(m map[string]any, key string) (float64, bool) {
	f, ok := m[key].(float64)
	return f, ok
}
