// Package server provides the HTTP API for submitting scraping jobs, running the
// pipeline, checking duplicates, triggering discovery and inspecting the scheduler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/discovery"
	"github.com/jonathan/foodtruck-agent/internal/jobs"
	"github.com/jonathan/foodtruck-agent/internal/pipeline"
	"github.com/jonathan/foodtruck-agent/internal/scheduler"
	"github.com/jonathan/foodtruck-agent/internal/server/ratelimit"
	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// DefaultHeartbeatInterval is how often the pipeline stream sends a keep-alive comment.
const DefaultHeartbeatInterval = 15 * time.Second

// JobService submits and processes scraping jobs.
type JobService interface {
	SubmitJob(ctx context.Context, req types.CreateJobRequest) (*types.Job, error)
	ProcessJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
}

// Discoverer runs one discovery pass.
type Discoverer interface {
	Run(ctx context.Context) *discovery.Result
}

// TaskScheduler exposes scheduler status and toggles.
type TaskScheduler interface {
	GetTaskStatus() []scheduler.TaskStatus
	EnableTask(name string) error
	DisableTask(name string) error
}

// Deps are the components the API delegates to. Discovery and Scheduler may be
// nil, in which case their endpoints answer 503.
type Deps struct {
	Store      store.Store
	Jobs       JobService
	Pipeline   jobs.Pipeline
	Duplicates pipeline.DuplicateChecker
	Discovery  Discoverer
	Scheduler  TaskScheduler
	Logger     *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port              int
	RateLimit         *ratelimit.Config
	HeartbeatInterval time.Duration
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	deps        Deps
	rateLimiter *ratelimit.Limiter
	heartbeat   time.Duration
	logger      *zap.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}

	s := &Server{
		deps:        deps,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		heartbeat:   heartbeat,
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /jobs/{id}/process", s.handleProcessJob)

	mux.HandleFunc("POST /pipeline/run", s.handlePipelineRun)
	mux.HandleFunc("POST /pipeline/stream", s.handlePipelineStream)

	mux.HandleFunc("POST /duplicates/check", s.handleCheckDuplicates)
	mux.HandleFunc("POST /discovery/run", s.handleDiscoveryRun)
	mux.HandleFunc("GET /trucks/nearby", s.handleTrucksNearby)

	mux.HandleFunc("GET /scheduler/tasks", s.handleListTasks)
	mux.HandleFunc("POST /scheduler/tasks/{name}/enable", s.handleEnableTask)
	mux.HandleFunc("POST /scheduler/tasks/{name}/disable", s.handleDisableTask)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // pipeline runs crawl and call the model
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients that exhausted their token bucket.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		info := s.rateLimiter.Allow(clientID, r.Method, r.URL.Path)

		s.setRateLimitHeaders(w, info)
		if !info.Allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFrom writes err with the status HTTPStatus assigns to it.
func (s *Server) errorFrom(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID uses the remote IP as the rate-limit key.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"tier":      info.Tier,
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.logger.Warn("Rate limit exceeded",
		zap.String("client", clientID),
		zap.String("tier", info.Tier),
		zap.Int("limit", info.Limit),
		zap.Time("reset_at", info.ResetTime))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
