package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/raushanprabhakar1/voice-agent/internal/config"
	"github.com/raushanprabhakar1/voice-agent/internal/domain"
	"github.com/raushanprabhakar1/voice-agent/internal/tools"
)

const sessionHeader = "X-Session-ID"

// maxToolBody bounds a tool argument payload; model arguments are tiny.
const maxToolBody = 64 << 10

// ToolDispatcher executes one named tool call within a session.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, sessionID, tool string, args json.RawMessage) tools.Result
}

// HTTPServer exposes the tool boundary over HTTP. It stands in for the
// realtime conversation transport: one POST per tool call, session identity
// in a header, tool results passed through verbatim.
type HTTPServer struct {
	cfg      *config.Config
	dispatch ToolDispatcher
	sessions domain.SessionRepository
	limiter  *rateLimiter
	logger   *zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(cfg *config.Config, dispatch ToolDispatcher, sessions domain.SessionRepository, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		dispatch: dispatch,
		sessions: sessions,
		limiter:  newRateLimiter(&cfg.API),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tools/", srv.handleTool)
	mux.HandleFunc("/healthz", srv.handleHealth)
	if cfg.Monitoring.PrometheusEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/tools/"
	tool := strings.TrimPrefix(r.URL.Path, prefix)
	if tool == "" || strings.Contains(tool, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	sessionID := strings.TrimSpace(r.Header.Get(sessionHeader))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if !s.limiter.allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	allowed, err := s.sessions.CheckRateLimit(r.Context(), sessionID,
		s.cfg.Session.RateLimitMessages, s.cfg.Session.RateWindow())
	if err == nil && !allowed {
		writeError(w, http.StatusTooManyRequests, "session rate limit exceeded")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxToolBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	result := s.dispatch.Dispatch(r.Context(), sessionID, tool, body)

	w.Header().Set(sessionHeader, sessionID)
	// Tool-level failures stay in-band: the conversation layer expects the
	// {error: message} shape with a 200, same as any other tool result.
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.Split(forwarded, ",")[0]
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
