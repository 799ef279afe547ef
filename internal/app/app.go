// Package app wires the relay's services together and owns their
// start/stop ordering.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"hookrelay/internal/auditlog"
	"hookrelay/internal/channel"
	"hookrelay/internal/config"
	"hookrelay/internal/digest"
	"hookrelay/internal/format"
	"hookrelay/internal/httpapi"
	"hookrelay/internal/notify"
	"hookrelay/internal/pipeline"
	"hookrelay/internal/runtime/supervisor"
	"hookrelay/internal/transport/telegram"
	logx "hookrelay/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	channels *channel.Store
	audit    auditlog.Store
	sender   *notify.Service
	server   *httpapi.Server
	digest   *digest.Service
}

func New(cfgPath, version string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	dataDir := strings.TrimSpace(cfg.Storage.DataDir)
	if dataDir == "" {
		dataDir = "./data"
	}

	channels := channel.NewStore(dataDir, log.With(logx.String("comp", "channels")))
	if err := channels.Load(cfg.Telegram.DefaultChat); err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("load channels: %w", err)
	}

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	audit, err := auditlog.Open(auditlog.Config{
		Driver:      cfg.Storage.Driver,
		DataDir:     dataDir,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "audit")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open audit store: %w", err)
	}

	sendTimeout, err := config.ParseDurationOrDefault("telegram.send_timeout", cfg.Telegram.SendTimeout, 10*time.Second)
	if err != nil {
		_ = audit.Close()
		_ = logSvc.Close()
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		SendTimeout: sendTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = audit.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	sender := notify.New(notify.Config{RatePerSec: cfg.Telegram.RatePerSec},
		adapter, log.With(logx.String("comp", "notify")))

	// Default destination reads live config so hot reloads apply per call.
	defDest := func() string {
		if c := cfgm.Get(); c != nil {
			return strings.TrimSpace(c.Telegram.DefaultChat)
		}
		return ""
	}

	pipe := pipeline.New(channels, format.NewRegistry(), sender, audit, defDest,
		log.With(logx.String("comp", "pipeline")))

	readTimeout, err := config.ParseDurationField("server.read_timeout", cfg.Server.ReadTimeout)
	if err != nil {
		_ = audit.Close()
		_ = logSvc.Close()
		return nil, err
	}
	writeTimeout, err := config.ParseDurationField("server.write_timeout", cfg.Server.WriteTimeout)
	if err != nil {
		_ = audit.Close()
		_ = logSvc.Close()
		return nil, err
	}
	idleTimeout, err := config.ParseDurationField("server.idle_timeout", cfg.Server.IdleTimeout)
	if err != nil {
		_ = audit.Close()
		_ = logSvc.Close()
		return nil, err
	}
	server := httpapi.New(httpapi.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, pipe, channels, audit, version, log.With(logx.String("comp", "http")))

	dig := digest.New(digestConfig(cfg.Digest), audit, sender, defDest,
		log.With(logx.String("comp", "digest")))

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		channels: channels,
		audit:    audit,
		sender:   sender,
		server:   server,
		digest:   dig,
	}, nil
}

func digestConfig(d *config.DigestConfig) digest.Config {
	if d == nil {
		return digest.Config{}
	}
	return digest.Config{Enabled: d.Enabled, Schedule: d.Schedule, Destination: d.Destination}
}

// Addr returns the HTTP listen address once started.
func (a *App) Addr() string { return a.server.Addr() }

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validate(cfg)
	})

	if err := a.server.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	if err := a.digest.Start(a.sup.Context()); err != nil {
		// Digest is a convenience; a bad schedule must not stop the relay.
		a.log.Warn("digest not started", logx.Err(err))
	}

	// Hot reload fan-out.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started",
		logx.String("addr", a.server.Addr()),
		logx.Int("channels", a.channels.Len()),
	)
	return nil
}

func validate(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Telegram.RatePerSec < 0 {
		return fmt.Errorf("telegram.rate_per_sec must be >= 0")
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must be >= 0")
	}
	for _, f := range []struct{ path, raw string }{
		{"server.read_timeout", cfg.Server.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeout},
		{"server.idle_timeout", cfg.Server.IdleTimeout},
		{"telegram.send_timeout", cfg.Telegram.SendTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
	} {
		if _, err := config.ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if cfg.Digest != nil && cfg.Digest.Enabled {
		spec := strings.TrimSpace(cfg.Digest.Schedule)
		if spec != "" {
			if _, err := cron.ParseStandard(spec); err != nil {
				return fmt.Errorf("digest.schedule: %w", err)
			}
		}
	}
	return nil
}

// applyConfig applies the hot-reloadable parts of a new config.
// Listener address and storage layout changes need a restart; warn and
// keep running with the old values.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	changed, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(changed) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
	})

	a.sender.Apply(notify.Config{RatePerSec: newCfg.Telegram.RatePerSec})
	a.digest.Apply(ctx, digestConfig(newCfg.Digest))

	if oldCfg != nil && strings.TrimSpace(oldCfg.Server.Addr) != strings.TrimSpace(newCfg.Server.Addr) {
		a.log.Warn("server.addr changed; restart required to take effect")
	}
	if oldCfg != nil && (oldCfg.Storage.Driver != newCfg.Storage.Driver || oldCfg.Storage.DataDir != newCfg.Storage.DataDir) {
		a.log.Warn("storage config changed; restart required to take effect")
	}

	a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)...)
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	a.sup.Cancel()

	// Run each shutdown stage with an upper bound so one component can't
	// stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem > 0 && rem < max {
					max = rem
				}
			}
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	// HTTP first so in-flight pipeline calls drain before stores close.
	step("http", 5*time.Second, func(c context.Context) error { return a.server.Stop(c) })
	step("digest", 2*time.Second, func(c context.Context) error { a.digest.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("audit", 1*time.Second, func(context.Context) error { return a.audit.Close() })

	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}
