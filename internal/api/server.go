// Package api exposes the HTTP interface that triggers capture runs.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crystalpeak/camcapture/internal/capture"
	"github.com/crystalpeak/camcapture/internal/config"
	"github.com/crystalpeak/camcapture/internal/telemetry"
)

// CaptureRunner executes one capture run.
type CaptureRunner interface {
	Run(ctx context.Context) (capture.RunSummary, error)
}

// Server wires HTTP handlers to the capture orchestrator.
type Server struct {
	router chi.Router
	runner CaptureRunner
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner CaptureRunner, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
	// Missing secret is a degraded operating mode, surfaced in metrics from
	// startup rather than first request.
	telemetry.SetInsecureMode(cfg.Auth.WebhookSecret == "")

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(telemetry.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Options("/", s.preflight)
	r.Post("/", s.capture)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// preflight answers CORS pre-flight requests from scheduler frontends.
func (s *Server) preflight(w http.ResponseWriter, _ *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

type captureSuccess struct {
	Success    bool `json:"success"`
	Processed  int  `json:"processed"`
	Successful int  `json:"successful"`
}

type captureError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if secret := s.cfg.Auth.WebhookSecret; secret != "" {
		if bearerToken(r) != secret {
			s.logger.Error("unauthorized capture request: invalid or missing webhook secret")
			writeJSON(w, http.StatusUnauthorized, captureError{Success: false, Error: "Unauthorized"})
			return
		}
	} else {
		s.logger.Warn("webhook secret not configured; capture endpoint is unprotected")
	}

	summary, err := s.runner.Run(r.Context())
	if err != nil {
		// Internal details are logged, never echoed to the caller.
		s.logger.Error("capture run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, captureError{
			Success: false,
			Error:   "An error occurred during webcam capture",
		})
		return
	}

	writeJSON(w, http.StatusOK, captureSuccess{
		Success:    true,
		Processed:  summary.Processed,
		Successful: summary.Successful,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeJSON(w, http.StatusInternalServerError, captureError{
					Success: false,
					Error:   "An error occurred during webcam capture",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware bounds a request like http.TimeoutHandler but answers an
// overrun with the service's JSON error envelope instead of plain text. The
// handler's output is buffered so a response is only released once it is
// known the deadline was met.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicCh := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicCh <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicCh:
				panic(p)
			case <-done:
				tw.flush(w)
			case <-ctx.Done():
				tw.markTimedOut()
				setCORSHeaders(w)
				writeJSON(w, http.StatusServiceUnavailable, captureError{
					Success: false,
					Error:   "Request timed out",
				})
			}
		})
	}
}

type timeoutWriter struct {
	mu       sync.Mutex
	header   http.Header
	buf      bytes.Buffer
	code     int
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.code != 0 {
		return
	}
	tw.code = code
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if tw.code == 0 {
		tw.code = http.StatusOK
	}
	return tw.buf.Write(b)
}

func (tw *timeoutWriter) markTimedOut() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut = true
}

func (tw *timeoutWriter) flush(w http.ResponseWriter) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	for k, vals := range tw.header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	code := tw.code
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	if _, err := w.Write(tw.buf.Bytes()); err != nil {
		zap.L().Error("flush buffered response failed", zap.Error(err))
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}
