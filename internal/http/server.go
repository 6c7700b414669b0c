package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"pfledger/internal/core"
	"pfledger/internal/log"
	"pfledger/internal/middleware/security"
)

// Ledger is the ledger surface the API exposes.
type Ledger interface {
	AddTransaction(ctx context.Context, d core.Draft) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, d core.Draft) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	AddCategory(ctx context.Context, name string) (bool, error)
	Reset(ctx context.Context) error
	Export(ctx context.Context) ([]byte, error)

	Categories() []string
	Summary() core.Summary
	Recent(n int) []core.Transaction
	MonthsPresent() []string
	FilterByMonth(month string) []core.Transaction
	Analytics(ref time.Time) core.Analytics
}

type Server struct {
	http.Server
	ledger      Ledger
	symbol      string
	logger      *log.Logger
	httpLog     *log.StructuredLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	corsOrigins []string
	started     time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithCurrencySymbol sets the symbol used for formatted amounts.
func WithCurrencySymbol(symbol string) Option {
	return func(s *Server) { s.symbol = symbol }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimit bounds mutating requests per client IP and minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter = newRateLimiter(perMinute) }
}

// WithCORS lets browser clients from the given origins call the API.
// "*" allows any origin.
func WithCORS(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:  ledger,
		symbol:  core.DefaultCurrencySymbol,
		metrics: &securityMetrics{},
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	if s.rateLimiter == nil {
		s.rateLimiter = newRateLimiter(defaultRequestsPerMinute)
	}
	s.httpLog = log.NewStructuredLogger(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/recent", s.handleRecent)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/export", s.handleExport)

	var api http.Handler = mux
	if len(s.corsOrigins) > 0 {
		api = cors.New(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Location", "Retry-After", "X-Request-ID"},
			MaxAge:         600,
		}).Handler(mux)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           log.Middleware(s.logger)(headers.Middleware(s.withRequestContext(api))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// withRequestContext tags the request with an id, applies rate limiting to
// mutating requests and logs start and completion.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := log.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		s.httpLog.LogHTTPStart(ctx, r, clientIP)
		if detectSuspiciousRequest(r, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, start, s.metrics) {
			TooManyRequestsError("60").Write(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
