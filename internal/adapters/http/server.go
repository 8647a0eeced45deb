// Package http serves the local control and diagnostics surface of a
// running session: room state, health, metrics, and the call-control
// operations a host UI would otherwise drive directly.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaverel/callbridge/internal/adapters/http/middleware"
	"github.com/kaverel/callbridge/internal/application/session"
	"github.com/kaverel/callbridge/internal/domain"
)

type Server struct {
	runner     *session.Runner
	router     *chi.Mux
	httpServer *http.Server
}

func NewServer(host string, port int, runner *session.Runner) *Server {
	s := &Server{runner: runner}
	s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/control", func(r chi.Router) {
		r.Post("/hold", s.handleHold)
		r.Post("/unhold", s.op(func(ctx context.Context) error { return s.runner.Control().Unhold(ctx) }))
		r.Post("/switch-to-agent", s.op(func(ctx context.Context) error { return s.runner.Control().SwitchToAgent(ctx) }))
		r.Post("/take-control", s.op(func(ctx context.Context) error { return s.runner.Control().TakeControl(ctx) }))
		r.Post("/start-agent", s.op(func(ctx context.Context) error { return s.runner.Control().StartAgent(ctx) }))
		r.Post("/stop-agent", s.op(func(ctx context.Context) error { return s.runner.Control().StopAgent(ctx) }))
		r.Post("/end-call", s.op(func(ctx context.Context) error { return s.runner.Control().EndCall(ctx) }))
		r.Post("/play-audio", s.handlePlayAudio)
		r.Post("/play-to-all", s.handlePlayToAll)
		r.Post("/close-room", s.op(func(context.Context) error { return s.runner.Control().CloseRoom() }))
	})

	r.Route("/confirmations", func(r chi.Router) {
		r.Post("/confirm", s.handleConfirm)
		r.Post("/cancel", s.handleCancel)
	})

	r.Post("/banners/dismiss", s.handleBannerDismiss)

	s.router = r
}

func (s *Server) Start() error {
	slog.Info("http: diagnostics server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"connected": s.runner.State().IsConnected,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := s.runner.State()

	resp := map[string]any{
		"session_id": s.runner.ID(),
		"state":      state,
	}
	if banner := s.runner.Banners().Current(); banner != nil {
		resp["banner"] = banner
	}
	if pending := s.runner.Confirmations().Pending(); pending != nil {
		resp["confirmation"] = map[string]any{
			"title":    pending.Title,
			"message":  pending.Message,
			"severity": pending.Severity,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// op wraps a parameterless control operation into a handler.
func (s *Server) op(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.finishOp(w, fn(r.Context()))
	}
}

func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message        string `json:"message"`
		PauseRecording bool   `json:"pause_recording"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.finishOp(w, s.runner.Control().Hold(r.Context(), body.Message, body.PauseRecording))
}

func (s *Server) handlePlayAudio(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type      string `json:"type"`
		Value     string `json:"value"`
		Loop      bool   `json:"loop"`
		Immediate bool   `json:"immediate"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.finishOp(w, s.runner.Control().PlayAudio(r.Context(), body.Type, body.Value, body.Loop, body.Immediate))
}

func (s *Server) handlePlayToAll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayToAll bool `json:"play_to_all"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.finishOp(w, s.runner.Control().SetPlayToAll(r.Context(), body.PlayToAll))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.finishOp(w, s.runner.Confirmations().Confirm())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.finishOp(w, s.runner.Confirmations().Cancel())
}

func (s *Server) handleBannerDismiss(w http.ResponseWriter, r *http.Request) {
	s.runner.Banners().Dismiss()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) finishOp(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case errors.Is(err, domain.ErrOperationInFlight):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrMissingCallID),
		errors.Is(err, domain.ErrNoPendingConfirmation),
		errors.Is(err, domain.ErrConfirmationPending):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("http: encode response failed", "error", err)
	}
}
