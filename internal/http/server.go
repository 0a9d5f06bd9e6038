package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"paie/internal/cache"
	"paie/internal/ledger"
	"paie/internal/log"
	"paie/internal/metrics"
	"paie/internal/middleware/ratelimit"
	"paie/internal/middleware/security"
	"paie/internal/middleware/trace"
	"paie/internal/view"
	appweb "paie/web"
)

// Options tunes the web server. The zero value is usable.
type Options struct {
	Logger      *log.Logger
	Location    *time.Location
	SubmitGuard bool

	SessionTTL time.Duration
	SessionMax int

	RateLimitPerMinute int

	// Ready reports whether the backend answers. Optional.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server

	ledger      ledger.Ledger
	templates   *template.Template
	logger      *log.Logger
	metrics     *metrics.Metrics
	ready       func(ctx context.Context) error
	started     time.Time
	loc         *time.Location
	submitGuard bool
	sessionTTL  time.Duration

	sessions     *cache.LRUCache[*view.Session]
	cacheManager *cache.Manager
	detector     *security.Detector
	rateLimiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. Every browser gets its own view.Session over l.
func NewServer(addr string, l ledger.Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.SessionMax <= 0 {
		opts.SessionMax = 1000
	}

	s := &Server{
		ledger:      l,
		logger:      logger.WithComponent(log.ComponentHTTP),
		ready:       opts.Ready,
		started:     time.Now(),
		loc:         opts.Location,
		submitGuard: opts.SubmitGuard,
		sessionTTL:  opts.SessionTTL,
		sessions:    cache.NewLRUCache[*view.Session](opts.SessionMax, opts.SessionTTL),
		detector:    security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			ExemptSafeMethods: true,
		}),
	}
	s.metrics = metrics.New("paie_web", func() float64 { return float64(s.sessions.Size()) })

	s.cacheManager = cache.NewManager(logger)
	s.cacheManager.Register(s.sessions)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldError, err.Error())
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/ledger", s.handleLedger)
	mux.HandleFunc("POST /ui/worker-form/{action}", s.handleWorkerForm)
	mux.HandleFunc("POST /ui/transaction-form/{action}", s.handleTransactionForm)
	mux.HandleFunc("GET /ui/workers/{id}", s.handleSelectWorker)
	mux.HandleFunc("POST /ui/detail/close", s.handleCloseDetail)
	mux.HandleFunc("POST /workers", s.handleCreateWorker)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /workers/{id}", s.handleDeleteWorker)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	headers := security.NewHeadersMiddleware(security.PageHeadersConfig())
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)
	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP, s.metrics)

	var h http.Handler = mux
	h = limit(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(logger, s.metrics)(h)
	h = tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
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
	ErrorResponse(http.StatusTooManyRequests, "Trop de requêtes, réessayez plus tard").Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Sessions reports the number of live browser sessions.
func (s *Server) Sessions() int {
	return s.sessions.Size()
}
