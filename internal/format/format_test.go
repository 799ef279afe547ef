package format

import (
	"net/http"
	"strings"
	"testing"

	"hookrelay/internal/payload"
)

func doc(t *testing.T, s string) payload.Document {
	t.Helper()
	d := payload.Parse([]byte(s))
	if d.Raw {
		t.Fatalf("test payload failed to parse: %s", s)
	}
	return d
}

func TestGitHubPushTwoCommits(t *testing.T) {
	t.Parallel()
	d := doc(t, `{
		"ref": "refs/heads/main",
		"repository": {"full_name": "acme/site"},
		"sender": {"login": "mira"},
		"commits": [
			{"message": "fix login flow\n\nlong body"},
			{"message": "bump deps"}
		]
	}`)
	h := http.Header{}
	h.Set("X-GitHub-Event", "push")

	out := NewRegistry().Format(d, h)

	for _, want := range []string{"acme/site", "main", "mira", "Commits: 2", "fix login flow", "bump deps"} {
		if !strings.Contains(out, want) {
			t.Fatalf("push message missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "more") {
		t.Fatalf("push message with 2 commits must not have an overflow line:\n%s", out)
	}
	if strings.Contains(out, "long body") {
		t.Fatalf("commit body leaked into the message:\n%s", out)
	}
}

func TestGitHubPushOverflow(t *testing.T) {
	t.Parallel()
	d := doc(t, `{
		"ref": "refs/heads/dev",
		"repository": {"full_name": "acme/site"},
		"sender": {"login": "mira"},
		"commits": [
			{"message": "a"}, {"message": "b"}, {"message": "c"},
			{"message": "d"}, {"message": "e"}
		]
	}`)
	out := formatGitHub("push", d)
	if !strings.Contains(out, "... and 2 more") {
		t.Fatalf("expected overflow line:\n%s", out)
	}
}

func TestGitHubShapeDetection(t *testing.T) {
	t.Parallel()
	d := doc(t, `{
		"action": "opened",
		"repository": {"full_name": "acme/site"},
		"sender": {"login": "mira"},
		"pull_request": {"number": 12, "title": "Add webhooks"}
	}`)
	// No header: detection must fall to the repository+sender shape.
	out := NewRegistry().Format(d, http.Header{})
	if !strings.Contains(out, "PR #12 opened") || !strings.Contains(out, "Add webhooks") {
		t.Fatalf("shape-detected PR message wrong:\n%s", out)
	}
}

func TestGitHubMissingFieldsDegrade(t *testing.T) {
	t.Parallel()
	d := doc(t, `{"repository": {}, "sender": {}, "issue": {}}`)
	out := formatGitHub("issues", d)
	if !strings.Contains(out, "unknown") || !strings.Contains(out, "#?") {
		t.Fatalf("missing fields should degrade to placeholders:\n%s", out)
	}
}

func TestStripePaymentIntent(t *testing.T) {
	t.Parallel()
	d := doc(t, `{
		"type": "payment_intent.succeeded",
		"data": {"object": {"amount": 500, "currency": "usd", "status": "succeeded"}}
	}`)
	out := NewRegistry().Format(d, http.Header{})
	if !strings.Contains(out, "5.0 USD") {
		t.Fatalf("amount should render as 5.0 USD:\n%s", out)
	}
	if !strings.Contains(out, "Status: succeeded") {
		t.Fatalf("status missing:\n%s", out)
	}
}

func TestStripeCustomerAndSubscription(t *testing.T) {
	t.Parallel()
	cust := doc(t, `{"type":"customer.created","data":{"object":{"email":"a@b.c"}}}`)
	if out := formatStripe("customer.created", cust); !strings.Contains(out, "a@b.c") {
		t.Fatalf("customer email missing:\n%s", out)
	}
	sub := doc(t, `{"type":"subscription_schedule.canceled","data":{"object":{"status":"canceled"}}}`)
	if out := formatStripe("subscription_schedule.canceled", sub); !strings.Contains(out, "Status: canceled") {
		t.Fatalf("subscription status missing:\n%s", out)
	}
}

func TestGenericInterestingFields(t *testing.T) {
	t.Parallel()
	out := NewRegistry().Format(doc(t, `{"status":"ok"}`), http.Header{})
	if !strings.Contains(out, "status: ok") {
		t.Fatalf("generic output missing status line:\n%s", out)
	}
}

func TestGenericEmptyDocumentPreview(t *testing.T) {
	t.Parallel()
	out := NewRegistry().Format(doc(t, `{}`), http.Header{})
	if out == "" {
		t.Fatal("formatter returned empty string")
	}
	if !strings.Contains(out, "<code>{}</code>") {
		t.Fatalf("empty document should render a JSON preview:\n%s", out)
	}
}

func TestGenericEscapesHTML(t *testing.T) {
	t.Parallel()
	out := Generic(doc(t, `{"message":"<script>alert(1)</script>"}`))
	if strings.Contains(out, "<script>") {
		t.Fatalf("payload HTML must be escaped:\n%s", out)
	}
}

func TestRegistryExtension(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register(Provider{
		Name: "pager",
		Detect: func(d payload.Document, _ http.Header) (string, bool) {
			if d.Has("incident") {
				return "incident", true
			}
			return "", false
		},
		Format: func(event string, _ payload.Document) string { return "PAGE " + event },
	})
	out := r.Format(doc(t, `{"incident":{"id":1}}`), http.Header{})
	if out != "PAGE incident" {
		t.Fatalf("registered provider not dispatched: %q", out)
	}
	// Built-ins keep precedence over later registrations.
	gh := doc(t, `{"repository":{},"sender":{},"incident":{}}`)
	if out := r.Format(gh, http.Header{}); !strings.Contains(out, "GitHub") {
		t.Fatalf("earlier provider should win detection:\n%s", out)
	}
}
