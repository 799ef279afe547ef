package format

import (
	"encoding/json"
	"strconv"

	"hookrelay/internal/payload"
	"hookrelay/pkg/tghtml"
)

const (
	genericValueCap   = 100
	genericPreviewCap = 200
)

// interestingKeys is the fixed, ordered list of fields the generic
// formatter surfaces when present.
var interestingKeys = []string{"action", "event", "type", "status", "message", "name", "email", "url"}

// Generic renders any payload: one "key: value" line per interesting field
// present, or a JSON preview when none are. Never returns an empty string.
func Generic(doc payload.Document) string {
	out := "📨 " + tghtml.B("webhook").String()

	found := false
	for _, key := range interestingKeys {
		v, ok := doc.Fields[key]
		if !ok {
			continue
		}
		found = true
		out += "\n" + key + ": " + tghtml.Esc(tghtml.Clip(stringify(v), genericValueCap)).String()
	}

	if !found {
		preview := tghtml.Clip(doc.JSON(), genericPreviewCap)
		out += "\n" + tghtml.Code(preview).String()
	}
	return out
}

// stringify renders a decoded JSON value the way a human would expect to
// read it in a one-line notification.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatNumber(x)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "?"
		}
		return string(b)
	}
}
