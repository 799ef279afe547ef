package signature

import (
	"net/http"
	"testing"
)

func TestVerifyWithAndWithoutPrefix(t *testing.T) {
	t.Parallel()
	body := []byte(`{"hello":"world"}`)
	secret := "whsec_test"
	digest := Sign(body, secret)

	if !Verify(body, digest, secret) {
		t.Fatal("bare digest should verify")
	}
	if !Verify(body, "sha256="+digest, secret) {
		t.Fatal("sha256-prefixed digest should verify")
	}
}

func TestVerifyRejectsMutations(t *testing.T) {
	t.Parallel()
	body := []byte(`{"hello":"world"}`)
	secret := "whsec_test"
	digest := Sign(body, secret)

	// Flip one body byte.
	mutated := append([]byte(nil), body...)
	mutated[0] ^= 0x01
	if Verify(mutated, "sha256="+digest, secret) {
		t.Fatal("mutated body must not verify")
	}

	// Flip one digest character.
	bad := []byte(digest)
	if bad[0] == 'a' {
		bad[0] = 'b'
	} else {
		bad[0] = 'a'
	}
	if Verify(body, "sha256="+string(bad), secret) {
		t.Fatal("mutated digest must not verify")
	}

	if Verify(body, "sha256="+digest, "other-secret") {
		t.Fatal("wrong secret must not verify")
	}
	if Verify(body, "", secret) {
		t.Fatal("empty header must not verify")
	}
}

func TestFromHeaderPrecedence(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	if FromHeader(h) != "" {
		t.Fatal("no headers should yield empty signature")
	}

	h.Set("X-Webhook-Signature", "second")
	if got := FromHeader(h); got != "second" {
		t.Fatalf("FromHeader = %q", got)
	}

	h.Set("X-Hub-Signature-256", "first")
	if got := FromHeader(h); got != "first" {
		t.Fatalf("X-Hub-Signature-256 should win, got %q", got)
	}
}
