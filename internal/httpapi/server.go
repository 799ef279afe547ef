// Package httpapi serves the relay's HTTP surface: webhook ingress,
// channel management, log listing, health, and metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hookrelay/internal/auditlog"
	"hookrelay/internal/channel"
	"hookrelay/internal/pipeline"
	logx "hookrelay/pkg/logx"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Config controls the HTTP listener. Addr changes require a restart.
type Config struct {
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxBodyBytes int64
}

type Server struct {
	cfg     Config
	log     logx.Logger
	version string

	pipeline *pipeline.Pipeline
	channels *channel.Store
	audit    auditlog.Store

	mu  sync.Mutex
	ln  net.Listener
	srv *http.Server
}

func New(cfg Config, p *pipeline.Pipeline, channels *channel.Store, audit auditlog.Store, version string, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8000"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		version:  version,
		pipeline: p,
		channels: channels,
		audit:    audit,
	}
}

// Handler builds the full route table with middleware applied.
// Exposed so tests can drive the API through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /hook/{channel}", s.handleReceive)
	mux.HandleFunc("GET /hook/{channel}", s.handlePing)

	mux.HandleFunc("GET /channels", s.handleListChannels)
	mux.HandleFunc("POST /channels", s.handleCreateChannel)
	mux.HandleFunc("DELETE /channels/{id}", s.handleDeleteChannel)

	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.handleRoot)

	var h http.Handler = mux
	h = accessLog(s.log, h)
	h = requestID(h)
	h = recoverPanic(s.log, h)
	return h
}

// Start listens and serves in the background. Listen errors (port taken,
// bad addr) surface here; serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.ln = ln
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped with error", logx.Err(err))
		}
	}()

	s.log.Info("http server started", logx.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listen address ("" before Start).
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the server down, letting in-flight pipeline calls
// (and their audit writes) finish within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if err != nil {
		_ = srv.Close()
	}
	s.log.Info("http server stopped")
	return err
}
