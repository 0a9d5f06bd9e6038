// Package api serves the ledger REST API under /api.
package api

import (
	"context"
	"net/http"
	"time"

	"paie/internal/core"
	"paie/internal/log"
	"paie/internal/metrics"
	"paie/internal/middleware/ratelimit"
	"paie/internal/middleware/security"
	"paie/internal/middleware/trace"
)

// LedgerService is what the handlers need from the service layer.
type LedgerService interface {
	CreateWorker(ctx context.Context, in core.WorkerInput) (core.Worker, error)
	GetWorker(ctx context.Context, id string) (core.Worker, error)
	ListWorkers(ctx context.Context) ([]core.Worker, error)
	DeleteWorker(ctx context.Context, id string) error
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListWorkerTransactions(ctx context.Context, workerID string) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	WorkerBalance(ctx context.Context, id string) (core.WorkerBalance, error)
	ListBalances(ctx context.Context) ([]core.WorkerBalance, error)
}

// Options tunes the server. The zero value is usable.
type Options struct {
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	CORSAllowedOrigins string
	// Ready reports whether the storage is reachable. Optional.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server

	svc     LedgerService
	logger  *log.Logger
	metrics *metrics.Metrics
	ready   func(ctx context.Context) error
	started time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
}

// NewServer wires routes and middleware around svc.
func NewServer(addr string, svc LedgerService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New("paie_api", nil)
	}

	s := &Server{
		svc:      svc,
		logger:   logger.WithComponent(log.ComponentAPI),
		metrics:  m,
		ready:    opts.Ready,
		started:  time.Now(),
		detector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			ExemptSafeMethods: true,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{$}", s.handleRoot)
	mux.HandleFunc("POST /api/workers", s.handleCreateWorker)
	mux.HandleFunc("GET /api/workers", s.handleListWorkers)
	mux.HandleFunc("GET /api/workers/{id}", s.handleGetWorker)
	mux.HandleFunc("DELETE /api/workers/{id}", s.handleDeleteWorker)
	mux.HandleFunc("GET /api/workers/{id}/transactions", s.handleListWorkerTransactions)
	mux.HandleFunc("GET /api/workers/{id}/balance", s.handleWorkerBalance)
	mux.HandleFunc("GET /api/workers-balances", s.handleListBalances)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", m.Handler())

	headers := security.NewHeadersMiddleware(security.APIHeadersConfig())
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)
	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP, m)

	var h http.Handler = mux
	h = limit(h)
	h = headers.Middleware(h)
	h = corsMiddleware(opts.CORSAllowedOrigins)(h)
	h = s.detector.Middleware(logger, m)(h)
	h = tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeDetail(w, http.StatusTooManyRequests, "Trop de requêtes, réessayez plus tard")
}

// Shutdown drains connections and stops background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}
