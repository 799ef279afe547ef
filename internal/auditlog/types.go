package auditlog

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	ErrClosed = errors.New("audit store closed")
)

// Config configures the audit store.
//
// Driver values:
//   - "file" (default): one JSON Lines file per UTC day under <DataDir>/logs
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	DataDir     string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one durable entry per processed inbound call.
// Records are write-once; nothing in this system mutates or deletes them.
type Record struct {
	Channel        string            `json:"channel"`
	ReceivedAt     time.Time         `json:"received_at"`
	Forwarded      bool              `json:"forwarded"`
	Headers        map[string]string `json:"headers"`
	PayloadPreview string            `json:"payload_preview"`
}

// PreviewCap bounds the stored payload preview.
const PreviewCap = 500

// headerPrefixes selects which request headers are kept in audit records.
var headerPrefixes = []string{"x-", "content-"}

// FilterHeaders keeps only headers whose name starts with a recognized
// prefix (case-insensitive). Multi-valued headers keep their first value.
func FilterHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for name, values := range h {
		ln := strings.ToLower(name)
		for _, p := range headerPrefixes {
			if strings.HasPrefix(ln, p) {
				if len(values) > 0 {
					out[name] = values[0]
				}
				break
			}
		}
	}
	return out
}

// Preview truncates a serialized payload to PreviewCap bytes on a rune
// boundary.
func Preview(s string) string {
	if len(s) <= PreviewCap {
		return s
	}
	cut := PreviewCap
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
