package chat

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/setanarut/nftgen"
	"github.com/setanarut/nftgen/internal/ctxlog"
	"github.com/setanarut/nftgen/internal/history"
)

// SecretHeader carries the webhook secret Telegram echoes back on every update.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Ledger is the read side of the generation history.
type Ledger interface {
	Get(ctx context.Context, id string) (*history.Record, error)
	Recent(ctx context.Context, limit int) ([]history.Record, error)
	Count(ctx context.Context) (int, error)
	TraitCounts(ctx context.Context) ([]history.TraitCount, error)
}

// Server exposes the service over HTTP: the bot webhook, direct generation,
// history lookups and a health check.
type Server struct {
	service *Service
	ledger  Ledger
	secret  string
	logger  *slog.Logger
	router  *chi.Mux
}

// NewServer wires the routes. ledger may be nil, which disables the history
// endpoints; an empty secret disables webhook authentication.
func NewServer(logger *slog.Logger, service *Service, ledger Ledger, secret string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: service,
		ledger:  ledger,
		secret:  secret,
		logger:  logger,
		router:  chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/generate", s.handleGenerate)
	s.router.Post("/webhook", s.handleWebhook)
	s.router.Get("/stats", s.handleStats)
	s.router.Get("/generations", s.handleRecent)
	s.router.Get("/generations/{id}", s.handleGeneration)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	return nil
}

// requestLogger puts a request-scoped logger into the context and logs
// every request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctxlog.WithLogger(r.Context(), logger)))
		logger.Debug("HTTP request served.",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var seed int64
	if v := r.URL.Query().Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n == 0 {
			http.Error(w, "seed must be a non-zero integer", http.StatusBadRequest)
			return
		}
		seed = n
	}

	gen, err := s.service.Generate(r.Context(), seed, "http")
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("Generation failed.", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(gen.PNG)))
	h.Set("X-Seed", strconv.FormatInt(gen.Seed, 10))
	h.Set("X-Traits", nftgen.FormatTraits(gen.Result.Traits))
	if gen.ID != "" {
		h.Set("X-Generation-Id", gen.ID)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(gen.PNG)
}

// handleWebhook answers 200 even when generation or delivery fails: Telegram
// redelivers on any other status, and a redelivered trigger would only fail
// the same way.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(s.secret)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var upd Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&upd); err != nil {
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}
	msg, ok := upd.ChatMessage()
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	if _, err := s.service.HandleMessage(r.Context(), msg); err != nil {
		logger.Error("Failed to answer message.", "update_id", upd.UpdateID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

type statsResponse struct {
	Generations int                  `json:"generations"`
	Traits      []history.TraitCount `json:"traits"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	n, err := s.ledger.Count(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	counts, err := s.ledger.TraitCounts(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, statsResponse{Generations: n, Traits: counts})
}

// Bounds for GET /generations?limit=.
const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRecentLimit {
			http.Error(w, fmt.Sprintf("limit must be between 1 and %d", maxRecentLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.ledger.Recent(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	writeJSON(w, recs)
}

func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	rec, err := s.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	ctxlog.FromContext(r.Context()).Error("Request failed.", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
