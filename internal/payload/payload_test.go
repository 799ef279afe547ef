package payload

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseObject(t *testing.T) {
	t.Parallel()
	d := Parse([]byte(`{"action":"opened","number":7,"pull_request":{"title":"x"}}`))
	if d.Raw {
		t.Fatal("object payload flagged as raw")
	}
	if d.Str("action") != "opened" {
		t.Fatalf("Str(action) = %q", d.Str("action"))
	}
	if n, ok := d.Num("number"); !ok || n != 7 {
		t.Fatalf("Num(number) = %v, %v", n, ok)
	}
	if got := StrIn(d.Map("pull_request"), "title"); got != "x" {
		t.Fatalf("nested title = %q", got)
	}
}

func TestParseNeverFails(t *testing.T) {
	t.Parallel()
	bodies := [][]byte{
		nil,
		{},
		[]byte("not json at all"),
		[]byte(`"just a string"`),
		[]byte(`[1,2,3]`),
		[]byte(`{"truncated":`),
		{0xff, 0xfe, 0x00, 0x41},
	}
	for _, b := range bodies {
		d := Parse(b)
		if !d.Raw {
			t.Fatalf("Parse(%q) should degrade to raw", b)
		}
		raw, ok := d.Fields["raw"].(string)
		if !ok {
			t.Fatalf("Parse(%q) raw field missing", b)
		}
		if !utf8.ValidString(raw) {
			t.Fatalf("Parse(%q) produced invalid UTF-8", b)
		}
	}
}

func TestParseRawIsCapped(t *testing.T) {
	t.Parallel()
	d := Parse([]byte(strings.Repeat("a", 5000)))
	raw := d.Str("raw")
	if utf8.RuneCountInString(raw) != rawCap {
		t.Fatalf("raw length = %d, want %d", utf8.RuneCountInString(raw), rawCap)
	}
}

func TestAccessorsOnMissingFields(t *testing.T) {
	t.Parallel()
	d := Parse([]byte(`{}`))
	if d.Str("nope") != "" || d.Has("nope") {
		t.Fatal("missing field should read as zero")
	}
	if m := d.Map("nope"); len(m) != 0 {
		t.Fatal("Map on missing field should be empty")
	}
	if s := d.Slice("nope"); s != nil {
		t.Fatal("Slice on missing field should be nil")
	}
}
