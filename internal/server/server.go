// Package server exposes the chat service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hpkotak/codebud/internal/chat"
	"github.com/hpkotak/codebud/internal/provider"
)

// maxBodyBytes bounds request bodies; history is resent on every turn.
const maxBodyBytes = 4 << 20

// Chat is the part of chat.Service the HTTP handlers use.
type Chat interface {
	UpdateConfig(ctx context.Context, cfg provider.Config) error
	SendMessage(ctx context.Context, text, language string, history []provider.Message) (provider.Result, error)
}

// Server routes HTTP requests to a Chat.
type Server struct {
	chat    Chat
	logger  *slog.Logger
	handler http.Handler
}

// New builds a Server and its middleware chain. A nil logger discards output.
func New(c Chat, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{chat: c, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chat/models", s.handleModels)
	mux.HandleFunc("POST /api/chat/message", s.handleMessage)
	mux.HandleFunc("POST /api/chat/config", s.handleConfig)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = withRequestID(withAccessLog(logger, withCORS(withGzip(mux))))
	return s
}

// Handler returns the root handler, including middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

type messageRequest struct {
	Message          string             `json:"message"`
	Language         string             `json:"language"`
	PreviousMessages []provider.Message `json:"previousMessages"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chat.Models())
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.chat.SendMessage(r.Context(), req.Message, req.Language, req.PreviousMessages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var cfg provider.Config
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, err)
		return
	}

	if err := s.chat.UpdateConfig(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Configuration updated successfully"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}
