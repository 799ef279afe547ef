package format

import (
	"net/http"
	"strconv"
	"strings"

	"hookrelay/internal/payload"
	"hookrelay/pkg/tghtml"
)

// stripeTypePrefixes are the event-kind prefixes that claim a payload for
// the Stripe formatter.
var stripeTypePrefixes = []string{"payment_intent", "customer", "subscription", "invoice"}

// Stripe detects Stripe-style webhooks by the "type" field prefix.
func Stripe() Provider {
	return Provider{
		Name: "stripe",
		Detect: func(doc payload.Document, _ http.Header) (string, bool) {
			t := doc.Str("type")
			for _, p := range stripeTypePrefixes {
				if strings.HasPrefix(t, p) {
					return t, true
				}
			}
			return "", false
		},
		Format: formatStripe,
	}
}

func formatStripe(event string, doc payload.Document) string {
	if event == "" {
		event = "unknown"
	}
	obj, _ := doc.Map("data")["object"].(map[string]any)
	head := "💳 " + tghtml.B("Stripe: "+event).String()

	switch {
	case strings.Contains(event, "payment_intent"):
		amount := 0.0
		if n, ok := payload.NumIn(obj, "amount"); ok {
			amount = n
		}
		currency := payload.StrIn(obj, "currency")
		if currency == "" {
			currency = "usd"
		}
		status := payload.StrIn(obj, "status")
		if status == "" {
			status = "unknown"
		}
		return head + "\nAmount: " + formatAmount(amount/100) + " " + strings.ToUpper(currency) +
			"\nStatus: " + tghtml.Esc(status).String()

	case strings.Contains(event, "customer"):
		email := payload.StrIn(obj, "email")
		if email == "" {
			email = "unknown"
		}
		return "👤 " + tghtml.B("Stripe: "+event).String() + "\nCustomer: " + tghtml.Esc(email).String()

	case strings.Contains(event, "subscription"):
		status := payload.StrIn(obj, "status")
		if status == "" {
			status = "unknown"
		}
		return "🔄 " + tghtml.B("Stripe: "+event).String() + "\nStatus: " + tghtml.Esc(status).String()

	default:
		return head
	}
}

// formatAmount renders a monetary amount with at least one decimal place,
// so 500 minor units read as "5.0", not "5".
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatNumber renders a JSON number without a trailing ".0" for integers.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
