// Package notify wraps the notifier transport with rate limiting and
// best-effort semantics: a send either happened or it didn't, and the
// answer is a boolean, never an error that aborts the caller.
package notify

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"hookrelay/internal/transport"
	logx "hookrelay/pkg/logx"
)

const defaultRatePerSec = 25

// Config configures the send service.
type Config struct {
	// RatePerSec bounds outbound sends (token bucket, burst = rate).
	RatePerSec int
}

// Service performs single-attempt, rate-limited sends.
// There is no retry queue: the relay promises one attempt per call.
type Service struct {
	notifier transport.Notifier
	log      logx.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
}

func New(cfg Config, notifier transport.Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{notifier: notifier, log: log}
	s.Apply(cfg)
	return s
}

// Apply updates the rate limit. Safe during hot reload.
func (s *Service) Apply(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	s.mu.Lock()
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

func (s *Service) currentLimiter() *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limiter
}

// Send attempts one delivery and reports whether it succeeded.
// Transport failures are absorbed: logged at warn, returned as false.
func (s *Service) Send(ctx context.Context, destination, text string) bool {
	if err := s.currentLimiter().Wait(ctx); err != nil {
		s.log.Warn("send aborted waiting for rate limit", logx.Err(err))
		return false
	}
	if err := s.notifier.Send(ctx, destination, text); err != nil {
		s.log.Warn("delivery failed", logx.String("destination", destination), logx.Err(err))
		return false
	}
	s.log.Debug("delivered", logx.String("destination", destination), logx.Int("len", len(text)))
	return true
}
