package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nmmd-io/nmmd/internal/config"
	"github.com/nmmd-io/nmmd/internal/events"
	"github.com/nmmd-io/nmmd/internal/storage"
)

// API is the read-only HTTP surface for operators: health, stats, the
// message log, and the event buffer.
type API struct {
	cfg    config.APIConfig
	daemon *Server
	store  *storage.Store
	hub    *events.Hub
	log    *slog.Logger
	http   *http.Server
}

func NewAPI(cfg config.APIConfig, daemon *Server, st *storage.Store, hub *events.Hub, logger *slog.Logger) *API {
	return &API{
		cfg:    cfg,
		daemon: daemon,
		store:  st,
		hub:    hub,
		log:    logger,
	}
}

// Start serves until ctx is cancelled.
func (a *API) Start(ctx context.Context) error {
	a.http = &http.Server{
		Addr:         a.cfg.Listen,
		Handler:      a.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.log.Info("status API starting", "listen", a.cfg.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("status API shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("api server error: %w", err)
	}
}

func (a *API) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealthz)
	r.Get("/status", a.handleStatus)
	r.Get("/messages", a.handleMessages)
	r.Get("/events", a.handleEvents)

	return r
}

func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := a.store.CountByStatus(r.Context())
	if err != nil {
		a.log.Error("count messages failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"daemon":   a.daemon.Stats(),
		"messages": counts,
	})
}

func (a *API) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	msgs, err := a.store.Recent(r.Context(), limit)
	if err != nil {
		a.log.Error("recent messages failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	after := int64(queryInt(r, "after", 0))
	writeJSON(w, http.StatusOK, a.hub.Since(after))
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
