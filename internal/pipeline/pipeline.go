// Package pipeline orchestrates one inbound webhook call: channel lookup,
// signature gate, payload normalization, formatting, delivery, audit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hookrelay/internal/auditlog"
	"hookrelay/internal/channel"
	"hookrelay/internal/format"
	"hookrelay/internal/metrics"
	"hookrelay/internal/notify"
	"hookrelay/internal/payload"
	"hookrelay/internal/signature"
	logx "hookrelay/pkg/logx"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Result describes what happened to an accepted call.
type Result struct {
	Delivered bool
}

// DefaultDestination resolves the process-wide fallback destination for
// channels without their own. It is read per call so config hot reloads
// take effect immediately.
type DefaultDestination func() string

// Pipeline wires the per-call stages together.
//
// Lookup and signature failures abort with a typed error; everything after
// the auth gate degrades instead of failing, except audit persistence,
// whose loss is unacceptable and aborts the call.
type Pipeline struct {
	channels *channel.Store
	registry *format.Registry
	sender   *notify.Service
	audit    auditlog.Store
	defDest  DefaultDestination
	log      logx.Logger
}

func New(channels *channel.Store, registry *format.Registry, sender *notify.Service, audit auditlog.Store, defDest DefaultDestination, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	if defDest == nil {
		defDest = func() string { return "" }
	}
	return &Pipeline{
		channels: channels,
		registry: registry,
		sender:   sender,
		audit:    audit,
		defDest:  defDest,
		log:      log,
	}
}

// Handle processes one inbound call.
//
// Rejected calls (unknown channel, missing/invalid signature) return a
// typed error and are NOT audit-logged; accepted calls always produce an
// audit record, whatever the delivery outcome.
func (p *Pipeline) Handle(ctx context.Context, channelID string, body []byte, headers http.Header) (Result, error) {
	ch, ok := p.channels.Get(channelID)
	if !ok {
		metrics.WebhooksRejected.WithLabelValues("channel_not_found").Inc()
		return Result{}, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	if ch.HasSecret() {
		sig := signature.FromHeader(headers)
		if sig == "" {
			metrics.WebhooksRejected.WithLabelValues("missing_signature").Inc()
			return Result{}, ErrMissingSignature
		}
		// Verification runs over the raw bytes exactly as received;
		// parsing happens strictly after this gate.
		if !signature.Verify(body, sig, ch.Secret) {
			metrics.WebhooksRejected.WithLabelValues("invalid_signature").Inc()
			return Result{}, ErrInvalidSignature
		}
	}

	metrics.WebhooksReceived.WithLabelValues(channelID).Inc()
	receivedAt := time.Now().UTC()

	doc := payload.Parse(body)
	message := "[" + ch.Name + "]\n" + p.registry.Format(doc, headers)

	delivered := false
	dest := ch.Destination
	if dest == "" {
		dest = p.defDest()
	}
	if dest == "" {
		p.log.Warn("no destination for channel; skipping delivery", logx.String("channel", channelID))
		metrics.DeliveryFailures.WithLabelValues(channelID).Inc()
	} else {
		start := time.Now()
		delivered = p.sender.Send(ctx, dest, message)
		metrics.SendDuration.Observe(time.Since(start).Seconds())
		if delivered {
			metrics.WebhooksForwarded.WithLabelValues(channelID).Inc()
		} else {
			metrics.DeliveryFailures.WithLabelValues(channelID).Inc()
		}
	}

	rec := auditlog.Record{
		Channel:        channelID,
		ReceivedAt:     receivedAt,
		Forwarded:      delivered,
		Headers:        auditlog.FilterHeaders(headers),
		PayloadPreview: auditlog.Preview(doc.JSON()),
	}
	// The audit write runs even when the client has gone away: audit
	// completeness outlives the response.
	if err := p.audit.Append(context.WithoutCancel(ctx), rec); err != nil {
		metrics.AuditAppendErrors.Inc()
		p.log.Error("audit append failed", logx.String("channel", channelID), logx.Err(err))
		return Result{Delivered: delivered}, fmt.Errorf("audit append: %w", err)
	}

	return Result{Delivered: delivered}, nil
}
