// Package digest sends an optional scheduled summary of relay activity.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hookrelay/internal/auditlog"
	"hookrelay/internal/notify"
	logx "hookrelay/pkg/logx"
)

const (
	defaultSchedule = "0 9 * * *"
	window          = 24 * time.Hour
	maxWindowRecs   = 10000
)

// Config controls the digest job. Disabled by default.
type Config struct {
	Enabled     bool
	Schedule    string // cron spec
	Destination string // empty means the process default destination
}

// Service runs the digest on a cron schedule. All failures are warn-only;
// a broken digest never affects webhook processing.
type Service struct {
	audit   auditlog.Store
	sender  *notify.Service
	defDest func() string
	log     logx.Logger

	mu   sync.Mutex
	cfg  Config
	cron *cron.Cron
}

func New(cfg Config, audit auditlog.Store, sender *notify.Service, defDest func() string, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if defDest == nil {
		defDest = func() string { return "" }
	}
	return &Service{cfg: cfg, audit: audit, sender: sender, defDest: defDest, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Service) startLocked(ctx context.Context) error {
	if !s.cfg.Enabled || s.cron != nil {
		return nil
	}
	spec := strings.TrimSpace(s.cfg.Schedule)
	if spec == "" {
		spec = defaultSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("digest schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("digest scheduled", logx.String("spec", spec))
	return nil
}

// Apply reconfigures the digest during hot reload, restarting the cron
// when the schedule or enablement changed.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := cfg.Enabled != s.cfg.Enabled || cfg.Schedule != s.cfg.Schedule
	s.cfg = cfg
	if !changed {
		return
	}
	s.stopLocked()
	if err := s.startLocked(ctx); err != nil {
		s.log.Warn("digest reconfigure failed", logx.Err(err))
	}
}

func (s *Service) Stop(ctx context.Context) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Service) stopLocked() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	s.cron = nil
	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
		s.log.Warn("digest job still running at stop")
	}
}

func (s *Service) run(ctx context.Context) {
	recs, err := s.audit.Since(ctx, time.Now().UTC().Add(-window), maxWindowRecs)
	if err != nil {
		s.log.Warn("digest aggregation failed", logx.Err(err))
		return
	}
	if len(recs) == 0 {
		s.log.Debug("digest window empty; nothing to send")
		return
	}

	s.mu.Lock()
	dest := strings.TrimSpace(s.cfg.Destination)
	s.mu.Unlock()
	if dest == "" {
		dest = s.defDest()
	}
	if dest == "" {
		s.log.Warn("digest has no destination; skipping")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if !s.sender.Send(sendCtx, dest, Summarize(recs)) {
		s.log.Warn("digest delivery failed")
	}
}

// counts is one channel's received/forwarded tally.
type counts struct {
	Received  int
	Forwarded int
}

// Summarize renders per-channel received/forwarded counts as one message.
// Pure: same records, same string.
func Summarize(recs []auditlog.Record) string {
	perChannel := map[string]*counts{}
	total := counts{}
	for _, r := range recs {
		c := perChannel[r.Channel]
		if c == nil {
			c = &counts{}
			perChannel[r.Channel] = c
		}
		c.Received++
		total.Received++
		if r.Forwarded {
			c.Forwarded++
			total.Forwarded++
		}
	}

	names := make([]string, 0, len(perChannel))
	for name := range perChannel {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("📊 <b>Webhook digest (24h)</b>")
	for _, name := range names {
		c := perChannel[name]
		fmt.Fprintf(&b, "\n%s: %d received, %d forwarded", name, c.Received, c.Forwarded)
	}
	fmt.Fprintf(&b, "\nTotal: %d received, %d forwarded", total.Received, total.Forwarded)
	return b.String()
}
