package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/felipesemedo05/parcelas-servico/internal/cache"
	"github.com/felipesemedo05/parcelas-servico/internal/core"
	applog "github.com/felipesemedo05/parcelas-servico/internal/log"
	"github.com/felipesemedo05/parcelas-servico/internal/middleware/ratelimit"
	"github.com/felipesemedo05/parcelas-servico/internal/middleware/security"
	"github.com/felipesemedo05/parcelas-servico/internal/services"
	appweb "github.com/felipesemedo05/parcelas-servico/web"
)

// Options tune the server; zero values pick defaults.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	// WritesPerMinute limits POST /purchases per client.
	WritesPerMinute int
	Logger          *applog.Logger
	// Now supplies the reference date; tests pin it.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.Ledger
	views     *cache.LRU[ViewQuery, summaryView]
	limiter   *ratelimit.Limiter
	logger    *applog.Logger
	now       func() time.Time
	started   time.Time

	stopJanitor  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, ledger *services.Ledger, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := mux.NewRouter()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:  ledger,
		views:   cache.NewLRU[ViewQuery, summaryView](opts.CacheSize, opts.CacheTTL),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WritesPerMinute}),
		logger:  opts.Logger,
		now:     opts.Now,
		started: time.Now(),
	}

	// Every successful registration or reload invalidates the rendered views.
	ledger.OnChange(s.views.Purge)

	janitorCtx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	go cache.NewJanitor(s.views).Run(janitorCtx, 10*time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	r.Use(s.trace, applog.Middleware(s.logger), applog.RequestIDMiddleware(requestIDFrom), headers.Middleware)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ui/views", s.handleViewsPartial).Methods(http.MethodGet)
	r.Handle("/purchases", s.limitWrites(http.HandlerFunc(s.handleCreatePurchase))).Methods(http.MethodPost)
	r.HandleFunc("/simulate", s.handleSimulate).Methods(http.MethodPost)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/methods", s.handleMethods).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	return s
}

func (s *Server) limitWrites(next http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, extractClientIP(r), applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").Write(w)
	}
	return s.limiter.Middleware(extractClientIP, onLimit, http.MethodPost)(next)
}

// trace stamps the request id on both request and response and logs the
// request once it completes.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestIDFrom(r)
		r.Header.Set(requestIDHeader, id)
		w.Header().Set(requestIDHeader, id)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		applog.NewStructuredLogger(s.logger.With(applog.FieldRequestID, id)).
			LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), extractClientIP(r))
	})
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

// Shutdown stops background work and then the HTTP server. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopJanitor()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// summary returns the cached views for q, computing them on a miss.
func (s *Server) summary(ctx context.Context, q ViewQuery) summaryView {
	if v, ok := s.views.Get(q); ok {
		slog.DebugContext(ctx, "Summary cache hit", "ref", q.Ref.Key(), "year", q.Year)
		return v
	}
	recs := s.ledger.Snapshot()
	v := buildSummary(recs, q)
	// Records only grow; skip caching if a registration raced the build.
	if s.ledger.Len() == len(recs) {
		s.views.Set(q, v)
	}
	return v
}
