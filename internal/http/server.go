package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// DefaultMaxUploadBytes caps CSV uploads.
const DefaultMaxUploadBytes = 10 << 20

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the application operations the API exposes.
type Services struct {
	Accounts     *auth.PasswordAuthenticator
	Tokens       *auth.TokenManager
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Analytics    *services.AnalyticsService
	Households   *services.HouseholdService
	Imports      *services.ImportService
	Advisor      *services.AdvisorService
}

// Options configures the transport around the services.
type Options struct {
	Addr               string
	CORSOrigins        []string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	Logger             *applog.Logger
	Metrics            *metrics.Metrics
	Store              Pinger
}

type Server struct {
	http.Server
	svc            Services
	tokens         TokenValidator
	store          Pinger
	metrics        *metrics.Metrics
	logger         *applog.Logger
	rateLimiter    *ratelimit.Limiter
	detector       *security.Detector
	maxUploadBytes int64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options, svc Services) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	s := &Server{
		svc:            svc,
		tokens:         svc.Tokens,
		store:          opts.Store,
		metrics:        m,
		logger:         logger,
		rateLimiter:    ratelimit.NewLimiter(opts.RateLimitPerMinute),
		detector:       security.NewDetector(logger.Logger),
		maxUploadBytes: maxUpload,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux, opts.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.requireAuth(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.requireAuth(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.requireAuth(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireAuth(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/status", s.requireAuth(s.handleBudgetStatus))
	mux.HandleFunc("PUT /api/budgets/{id}", s.requireAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.requireAuth(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/analytics/monthly", s.requireAuth(s.handleMonthlySummary))
	mux.HandleFunc("GET /api/analytics/categories", s.requireAuth(s.handleCategoryBreakdown))
	mux.HandleFunc("GET /api/analytics/trends", s.requireAuth(s.handleSpendingTrend))

	mux.HandleFunc("POST /api/import/csv/preview", s.requireAuth(s.handleImportPreview))
	mux.HandleFunc("POST /api/import/csv/confirm", s.requireAuth(s.handleImportConfirm))

	mux.HandleFunc("GET /api/households", s.requireAuth(s.handleListHouseholds))
	mux.HandleFunc("POST /api/households", s.requireAuth(s.handleCreateHousehold))
	mux.HandleFunc("POST /api/households/join", s.requireAuth(s.handleJoinHousehold))
	mux.HandleFunc("GET /api/households/{id}", s.requireAuth(s.handleGetHousehold))
	mux.HandleFunc("GET /api/households/{id}/members", s.requireAuth(s.handleListMembers))
	mux.HandleFunc("POST /api/households/{id}/regenerate-code", s.requireAuth(s.handleRegenerateCode))
	mux.HandleFunc("DELETE /api/households/{id}/members/{user_id}", s.requireAuth(s.handleRemoveMember))
	mux.HandleFunc("DELETE /api/households/{id}/leave", s.requireAuth(s.handleLeaveHousehold))

	mux.HandleFunc("POST /api/ai/analyze", s.requireAuth(s.handleAnalyze))
	mux.HandleFunc("POST /api/ai/chat", s.requireAuth(s.handleChat))
}

// middleware wraps the mux, outermost first: tracing, security headers,
// CORS, attack detection, rate limiting, request logger, metrics. Metrics
// sits directly on the mux so it sees the matched route pattern.
func (s *Server) middleware(mux http.Handler, corsOrigins []string) http.Handler {
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly,
		func(w http.ResponseWriter, r *http.Request) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
		})

	var h http.Handler = s.metrics.Middleware(mux)
	h = applog.Middleware(s.logger, trace.GetRequestID)(h)
	h = limit(h)
	h = s.detector.Middleware(h)
	h = security.CORS(corsOrigins)(h)
	h = security.Headers(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger.Logger).Middleware(h)
	return h
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
