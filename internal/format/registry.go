// Package format renders webhook payloads as short human-readable
// notifications. Provider detection uses network-observable signals only
// (headers, payload shape), never provider-asserted names.
package format

import (
	"net/http"

	"hookrelay/internal/payload"
)

// Provider pairs a detector with a formatter.
//
// Detect inspects the request; when it claims the payload it returns the
// provider-specific event kind. Format must be pure and never return an
// empty string.
type Provider struct {
	Name   string
	Detect func(doc payload.Document, h http.Header) (event string, ok bool)
	Format func(event string, doc payload.Document) string
}

// Registry dispatches to providers in registration order, falling back to
// the generic formatter. Adding a provider is a single Register call;
// the dispatch loop never changes.
type Registry struct {
	providers []Provider
}

// NewRegistry returns a registry with the built-in providers, in the
// precedence order: github (header, then payload shape), stripe (type
// prefixes).
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(GitHub())
	r.Register(Stripe())
	return r
}

// Register appends a provider. Earlier registrations win detection ties.
func (r *Registry) Register(p Provider) {
	if p.Detect == nil || p.Format == nil {
		return
	}
	r.providers = append(r.providers, p)
}

// Providers returns the registered provider names in dispatch order.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name)
	}
	return names
}

// Format renders doc as a notification. It never fails and never returns
// an empty string: unmatched payloads go through the generic formatter.
func (r *Registry) Format(doc payload.Document, h http.Header) string {
	for _, p := range r.providers {
		if event, ok := p.Detect(doc, h); ok {
			return p.Format(event, doc)
		}
	}
	return Generic(doc)
}
