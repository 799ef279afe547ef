// Package signature verifies inbound webhook payloads against a
// per-channel shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Headers lists the request header names checked for a signature,
// in priority order. The first one present wins.
var Headers = []string{"X-Hub-Signature-256", "X-Webhook-Signature"}

// FromHeader returns the first recognized signature header value, or "".
func FromHeader(h http.Header) string {
	for _, name := range Headers {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// Sign computes the hex HMAC-SHA256 of body keyed with secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether header carries a valid signature of body.
//
// The header is "<algorithm>=<hex-digest>" in the GitHub style
// ("sha256=ab12..."); the algorithm prefix is optional and not
// interpreted, the digest is always compared against HMAC-SHA256.
// The comparison is constant-time and runs over the raw bytes exactly
// as received, never a re-serialized form.
func Verify(body []byte, header, secret string) bool {
	digest := header
	if i := strings.IndexByte(header, '='); i >= 0 {
		digest = header[i+1:]
	}
	want := Sign(body, secret)
	return hmac.Equal([]byte(want), []byte(digest))
}
