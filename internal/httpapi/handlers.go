package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"hookrelay/internal/auditlog"
	"hookrelay/internal/channel"
	"hookrelay/internal/pipeline"
	logx "hookrelay/pkg/logx"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 1000
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// POST /hook/{channel}
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channel")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed reading request body")
		return
	}

	res, err := s.pipeline.Handle(r.Context(), channelID, body, r.Header)
	switch {
	case errors.Is(err, pipeline.ErrChannelNotFound):
		writeError(w, http.StatusNotFound, "channel '"+channelID+"' not found")
	case errors.Is(err, pipeline.ErrMissingSignature):
		writeError(w, http.StatusUnauthorized, "missing signature")
	case errors.Is(err, pipeline.ErrInvalidSignature):
		writeError(w, http.StatusUnauthorized, "invalid signature")
	case err != nil:
		// Audit persistence failed; the call must not look successful.
		writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "forwarded": res.Delivered})
	}
}

// GET /hook/{channel} — ping, no delivery.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channel")
	if _, ok := s.channels.Get(channelID); !ok {
		writeError(w, http.StatusNotFound, "channel '"+channelID+"' not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"channel": channelID,
		"message": "Use POST to send webhooks",
	})
}

// GET /channels
func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	list := s.channels.List()
	out := make([]channel.Redacted, 0, len(list))
	for _, c := range list {
		out = append(out, c.Redacted())
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": out})
}

type createChannelRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Secret      string `json:"secret"`
}

// POST /channels
func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	c, err := s.channels.Create(req.Name, req.Destination, req.Secret)
	if err != nil {
		s.log.Error("channel create failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":   c.ID,
		"url":  "/hook/" + c.ID,
		"name": c.Name,
	})
}

// DELETE /channels/{id}
func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.channels.Delete(id)
	switch {
	case errors.Is(err, channel.ErrNotFound):
		writeError(w, http.StatusNotFound, "channel not found")
	case err != nil:
		s.log.Error("channel delete failed", logx.String("id", id), logx.Err(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// GET /logs?limit=N
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	recs, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("log listing failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if recs == nil {
		recs = []auditlog.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": recs})
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// GET /
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     "hookrelay",
		"version":  s.version,
		"channels": s.channels.Len(),
		"usage": map[string]string{
			"receive":  "POST /hook/{channel_id}",
			"channels": "GET /channels",
			"create":   "POST /channels",
			"logs":     "GET /logs",
		},
	})
}
