package digest

import (
	"strings"
	"testing"
	"time"

	"hookrelay/internal/auditlog"
)

func TestSummarizeCountsPerChannel(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	recs := []auditlog.Record{
		{Channel: "ci", ReceivedAt: now, Forwarded: true},
		{Channel: "ci", ReceivedAt: now, Forwarded: false},
		{Channel: "billing", ReceivedAt: now, Forwarded: true},
	}

	out := Summarize(recs)
	for _, want := range []string{
		"billing: 1 received, 1 forwarded",
		"ci: 2 received, 1 forwarded",
		"Total: 3 received, 2 forwarded",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	// Channels render in stable (sorted) order.
	if strings.Index(out, "billing") > strings.Index(out, "ci:") {
		t.Fatalf("channels not sorted:\n%s", out)
	}
}

func TestSummarizeIsPure(t *testing.T) {
	t.Parallel()
	recs := []auditlog.Record{
		{Channel: "a", Forwarded: true},
		{Channel: "b"},
	}
	if Summarize(recs) != Summarize(recs) {
		t.Fatal("Summarize must be deterministic")
	}
}
