// Package server exposes the engine over HTTP: one endpoint to push
// conversation events and one to read back history.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	csml "github.com/SINHASantos/csml-engine"
	"github.com/SINHASantos/csml-engine/internal/logging"
	"github.com/SINHASantos/csml-engine/pkg/domain"
)

// Engine is the part of the conversational engine the HTTP layer needs.
type Engine interface {
	Process(ctx context.Context, req csml.ProcessRequest) (*csml.ProcessResult, error)
	History(ctx context.Context, client domain.Client, conversationID string) ([]domain.MessageRecord, error)
}

// Server wires the engine into a chi router.
type Server struct {
	engine Engine
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server around an engine.
func New(engine Engine, opts ...Option) *Server {
	s := &Server{engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the HTTP routes. A nil registry disables /metrics.
func (s *Server) Handler(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	r.Post("/conversations/events", s.handleEvent)
	r.Get("/conversations/{conversationID}/messages", s.handleHistory)
	return r
}

// handleEvent runs one conversational turn for the posted event.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req csml.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Client.BotID == "" || req.Client.UserID == "" {
		http.Error(w, "client bot_id and user_id are required", http.StatusBadRequest)
		return
	}

	result, err := s.engine.Process(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHistory returns a conversation's persisted turns.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	client := domain.Client{
		BotID:     r.URL.Query().Get("bot_id"),
		ChannelID: r.URL.Query().Get("channel_id"),
		UserID:    r.URL.Query().Get("user_id"),
	}
	if client.BotID == "" || client.UserID == "" {
		http.Error(w, "bot_id and user_id query parameters are required", http.StatusBadRequest)
		return
	}

	records, err := s.engine.History(r.Context(), client, conversationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        records,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var parseErr *domain.ParseError
	var stepErr *domain.StepNotFoundError
	switch {
	case errors.As(err, &parseErr), errors.As(err, &stepErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCapacityExceeded):
		status = http.StatusServiceUnavailable
	}
	s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "err", err)
	}
}
