package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"notteru/internal/bot"
)

// UpdateHandler consumes inbound chat updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update bot.Update) error
}

// CycleRunner runs one full check sweep.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Server exposes the webhook and periodic-trigger endpoints.
type Server struct {
	updates UpdateHandler
	cycles  CycleRunner
	logger  zerolog.Logger
}

// NewServer creates a Server.
func NewServer(updates UpdateHandler, cycles CycleRunner, logger zerolog.Logger) *Server {
	return &Server{
		updates: updates,
		cycles:  cycles,
		logger:  logger.With().Str("component", "HTTPServer").Logger(),
	}
}

// Routes builds the HTTP router. The webhook route sits behind the Telegram
// source-address filter; the periodic trigger and health check do not.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(TelegramSourceOnly(s.logger))
		r.Post("/webhook", s.handleWebhook)
	})
	r.Post("/periodic", s.handlePeriodic)
	r.Get("/healthz", s.handleHealthz)

	return r
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update bot.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to decode webhook payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if err := s.updates.HandleUpdate(r.Context(), update); err != nil {
		s.logger.Error().Err(err).Int64("update_id", update.UpdateID).Msg("Failed to handle update")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePeriodic(w http.ResponseWriter, r *http.Request) {
	if err := s.cycles.RunCycle(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Periodic check failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
