package tghtml

import "testing"

func TestEscAndTags(t *testing.T) {
	t.Parallel()
	if got := B(`<a&b>`).String(); got != "<b>&lt;a&amp;b&gt;</b>" {
		t.Fatalf("B = %q", got)
	}
	if got := Code("x<y").String(); got != "<code>x&lt;y</code>" {
		t.Fatalf("Code = %q", got)
	}
}

func TestClipRuneSafe(t *testing.T) {
	t.Parallel()
	if got := Clip("héllo", 2); got != "hé" {
		t.Fatalf("Clip = %q", got)
	}
	if got := Clip("abc", 10); got != "abc" {
		t.Fatalf("Clip under limit = %q", got)
	}
	if got := Clip("abc", 0); got != "" {
		t.Fatalf("Clip(0) = %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	t.Parallel()
	if got := FirstLine("subject\nbody\nmore"); got != "subject" {
		t.Fatalf("FirstLine = %q", got)
	}
	if got := FirstLine("no newline"); got != "no newline" {
		t.Fatalf("FirstLine = %q", got)
	}
}

func TestJoinHSkipsBlanks(t *testing.T) {
	t.Parallel()
	if got := JoinH(" ", Esc("a"), Raw(""), Esc("b")).String(); got != "a b" {
		t.Fatalf("JoinH = %q", got)
	}
}
