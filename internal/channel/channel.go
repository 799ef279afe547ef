// Package channel owns the durable map of webhook ingress channels.
package channel

import "time"

// Channel is one named ingress endpoint and its delivery configuration.
//
// The JSON tags define the snapshot layout (channels.json holds a map of
// id -> Channel).
type Channel struct {
	ID   string `json:"-"`
	Name string `json:"name"`

	// Destination is the notifier address for this channel (e.g. a Telegram
	// chat id). Empty means the process-wide default destination.
	Destination string `json:"destination,omitempty"`

	// Secret, when set, requires inbound calls to carry a valid
	// HMAC-SHA256 signature of the raw body.
	Secret string `json:"secret,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasSecret reports whether inbound calls must be signed.
func (c Channel) HasSecret() bool { return c.Secret != "" }

// Redacted is the management-API projection of a Channel.
// It never carries the secret, only whether one is set.
type Redacted struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	HasSecret bool      `json:"has_secret"`
	CreatedAt time.Time `json:"created_at"`
}

// Redacted returns the secret-free projection of c.
func (c Channel) Redacted() Redacted {
	return Redacted{
		ID:        c.ID,
		Name:      c.Name,
		URL:       "/hook/" + c.ID,
		HasSecret: c.HasSecret(),
		CreatedAt: c.CreatedAt,
	}
}
