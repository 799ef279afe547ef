package telegram

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	logx "hookrelay/pkg/logx"
)

func TestSplitShortTextUnchanged(t *testing.T) {
	t.Parallel()
	got := splitText("hello\nworld", 100)
	if len(got) != 1 || got[0] != "hello\nworld" {
		t.Fatalf("splitText = %q", got)
	}
}

func TestSplitPrefersNewlines(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("a", 60)
	text := line + "\n" + line + "\n" + line
	got := splitText(text, 100)
	if len(got) < 2 {
		t.Fatalf("expected a split, got %q", got)
	}
	for _, chunk := range got {
		if utf8.RuneCountInString(chunk) > 100 {
			t.Fatalf("chunk over limit: %d runes", utf8.RuneCountInString(chunk))
		}
		if strings.HasPrefix(chunk, "\n") || strings.HasSuffix(chunk, "\n") {
			t.Fatalf("chunk has dangling newline: %q", chunk)
		}
	}
	if got[0] != line {
		t.Fatalf("first chunk should end at the newline boundary: %q", got[0])
	}
}

func TestSplitAvoidsDanglingTag(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 95) + "<b>bold"
	got := splitText(text, 100)
	for _, chunk := range got {
		opens := strings.Count(chunk, "<")
		closes := strings.Count(chunk, ">")
		if opens > closes && strings.HasSuffix(chunk, "<b") {
			t.Fatalf("chunk cut inside a tag: %q", chunk)
		}
	}
}

func TestSplitReassemblesAllContent(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("word ", 2000)
	got := splitText(text, 500)
	joined := strings.Join(got, "")
	// Only trailing newlines may be dropped; all words survive.
	if strings.Count(joined, "word") != 2000 {
		t.Fatalf("content lost in split: %d words", strings.Count(joined, "word"))
	}
}

func TestDisabledAdapterSendFails(t *testing.T) {
	t.Parallel()
	a, err := New(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("New with empty token should not error: %v", err)
	}
	if a.Enabled() {
		t.Fatal("adapter with empty token reports enabled")
	}
	if err := a.Send(context.Background(), "123", "hi"); err != ErrNoToken {
		t.Fatalf("Send = %v, want ErrNoToken", err)
	}
}
