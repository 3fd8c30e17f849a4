// Package http exposes the course scheduler over a JSON REST API for the playback
// and presentation clients.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/natibo/natibo/internal/application/command"
	"github.com/natibo/natibo/internal/application/query"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/internal/infrastructure/persistence/projections"
	"github.com/natibo/natibo/internal/interface/http/handlers"
	"github.com/natibo/natibo/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxBodyBytes bounds request bodies; packs are the largest.
	MaxBodyBytes int64

	EnableCORS     bool
	AllowedOrigins []string

	// RateLimitPerSecond is the sustained request rate per client IP (0 = disabled).
	RateLimitPerSecond float64
	RateLimitBurst     int

	// APIKeyHeader is the header carrying the API key.
	APIKeyHeader string

	// APIKeyHashes are bcrypt hashes of the keys accepted on mutating endpoints.
	// Without hashes the API is open.
	APIKeyHashes []string

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       8 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
		APIKeyHeader:       "X-API-Key",
		Version:            "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// ActivityReader reads the activity read model.
type ActivityReader interface {
	Get(courseID string) (projections.CourseActivity, bool)
}

// Dependencies contains the handlers behind the API.
type Dependencies struct {
	// Commands
	CreateCourse        *command.CreateCourseHandler
	PrepareNextDay      *command.PrepareNextDayHandler
	RecordReviews       *command.RecordReviewsHandler
	CompleteDay         *command.CompleteDayHandler
	AddReps             *command.AddRepsHandler
	SetStartingSentence *command.SetStartingSentenceHandler
	SetPause            *command.SetPauseHandler
	DeleteCourse        *command.DeleteCourseHandler
	SavePack            *command.SavePackHandler

	// Queries
	GetCourse     *query.GetCourseHandler
	GetCurrentDay *query.GetCurrentDayHandler
	GetProgress   *query.GetProgressHandler
	ListCourses   *query.ListCoursesHandler
	ListLanguages *query.ListLanguagesHandler

	// Activity is optional.
	Activity ActivityReader

	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	logger     *logger.Logger

	auth    *handlers.APIKeyAuth
	limiter *handlers.RateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	stop      chan struct{}
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}
	s := &Server{
		config: config,
		deps:   deps,
		router: mux.NewRouter(),
		logger: deps.Logger,
		auth:   handlers.NewAPIKeyAuth(config.APIKeyHeader, config.APIKeyHashes),
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.RateLimitPerSecond > 0 {
		s.limiter = handlers.NewRateLimiter(config.RateLimitPerSecond, config.RateLimitBurst, 10*time.Minute)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/courses", s.handleListCourses).Methods(http.MethodGet)
	api.Handle("/courses", s.protect(s.handleCreateCourse)).Methods(http.MethodPost)
	api.HandleFunc("/courses/{id}", s.handleGetCourse).Methods(http.MethodGet)
	api.Handle("/courses/{id}", s.protect(s.handleDeleteCourse)).Methods(http.MethodDelete)

	api.HandleFunc("/courses/{id}/day", s.handleGetCurrentDay).Methods(http.MethodGet)
	api.Handle("/courses/{id}/days", s.protect(s.handlePrepareNextDay)).Methods(http.MethodPost)
	api.Handle("/courses/{id}/day/reviews", s.protect(s.handleRecordReviews)).Methods(http.MethodPost)
	api.Handle("/courses/{id}/day/complete", s.protect(s.handleCompleteDay)).Methods(http.MethodPost)
	api.Handle("/courses/{id}/reps", s.protect(s.handleAddReps)).Methods(http.MethodPost)
	api.Handle("/courses/{id}/cursor", s.protect(s.handleSetCursor)).Methods(http.MethodPut)
	api.Handle("/courses/{id}/pause", s.protect(s.handleSetPause)).Methods(http.MethodPut)
	api.HandleFunc("/courses/{id}/progress", s.handleGetProgress).Methods(http.MethodGet)
	api.HandleFunc("/courses/{id}/activity", s.handleGetActivity).Methods(http.MethodGet)

	api.HandleFunc("/languages", s.handleListLanguages).Methods(http.MethodGet)
	api.Handle("/languages/{language}/packs/{book}", s.protect(s.handleSavePack)).Methods(http.MethodPut)
}

// protect requires an API key on a handler.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return s.auth.Middleware(h)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) buildMiddlewareChain(h http.Handler) http.Handler {
	chain := []handlers.MiddlewareFunc{
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
	}
	if s.config.EnableCORS {
		chain = append(chain, s.corsMiddleware)
	}
	if s.limiter != nil {
		chain = append(chain, s.limiter.Middleware(getClientIP))
	}
	chain = append(chain, handlers.SecurityHeadersMiddleware)
	if s.config.MaxBodyBytes > 0 {
		chain = append(chain, handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	}
	return handlers.Chain(chain...)(h)
}

// requestIDMiddleware adds a unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Latency(time.Since(start)),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := false
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+s.config.APIKeyHeader+", X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	if s.limiter != nil {
		go s.cleanupLimiter(stop)
	}

	s.logger.Info("starting HTTP server",
		logger.String("address", s.config.Address()),
		logger.Bool("auth", s.auth.Enabled()),
	)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

func (s *Server) cleanupLimiter(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := s.limiter.Cleanup(); n > 0 {
				s.logger.Debug("rate limiter cleanup", logger.Int("removed", n))
			}
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Count     int       `json:"count,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSONWithMeta(w, r, status, data, nil)
}

func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data interface{}, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: getRequestID(r.Context()),
	})
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

// writeDomainError maps error kinds to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed",
			logger.Operation(op),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, r, status, code, "Internal error")
		return
	}
	writeJSONError(w, r, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrLocked):
		return http.StatusConflict, "locked"
	case errors.Is(err, shared.ErrConcurrentModification):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case shared.IsMisconfigured(err):
		return http.StatusUnprocessableEntity, "misconfigured"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getQueryParamBool(r *http.Request, key string) bool {
	value := strings.ToLower(r.URL.Query().Get(key))
	return value == "true" || value == "1" || value == "yes"
}
