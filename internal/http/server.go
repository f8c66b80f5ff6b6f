package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"barjas/internal/cache"
	applog "barjas/internal/log"
	"barjas/internal/middleware/ratelimit"
	"barjas/internal/middleware/security"
	"barjas/internal/middleware/trace"
	"barjas/internal/services"
	"barjas/internal/session"
	appweb "barjas/web"
)

// requestTimeout bounds every call into the spreadsheet backend.
const requestTimeout = 15 * time.Second

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer. Analysis, Caches and
// Checks may be nil.
type Deps struct {
	Dashboard      *services.DashboardService
	Analysis       *services.AnalysisService
	Sessions       *session.Manager
	Caches         *cache.Manager
	Logger         *applog.Logger
	RateLimit      ratelimit.Config
	TrustedProxies []string
	Checks         []ReadinessCheck
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard *services.DashboardService
	analysis  *services.AnalysisService
	sessions  *session.Manager
	caches    *cache.Manager
	logger    *applog.Logger
	events    *applog.StructuredLogger
	limiter   *ratelimit.Limiter
	clientIP  *security.ClientIPResolver
	tracer    *trace.Middleware
	checks    []ReadinessCheck
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	proxies := deps.TrustedProxies
	if proxies == nil {
		proxies = security.DefaultTrustedProxies
	}
	resolver, err := security.NewClientIPResolver(proxies...)
	if err != nil {
		return nil, err
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	limitCfg := deps.RateLimit
	if limitCfg.Requests <= 0 {
		limitCfg = ratelimit.DefaultConfig()
	}

	s := &Server{
		templates: t,
		dashboard: deps.Dashboard,
		analysis:  deps.Analysis,
		sessions:  deps.Sessions,
		caches:    deps.Caches,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		limiter:   ratelimit.NewLimiter(limitCfg),
		clientIP:  resolver,
		checks:    deps.Checks,
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(resolver.ClientIP, logger)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	limited := s.limiter.Middleware(s.clientIP.ClientIP, s.handleRateLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /dashboard/{sheet}/table", s.handleTableFragment)
	mux.HandleFunc("POST /dashboard/{sheet}/cells", s.handleEditCell)
	mux.HandleFunc("POST /dashboard/{sheet}/rows", s.handleInsertRow)
	mux.HandleFunc("POST /dashboard/{sheet}/rows/{row}/delete", s.handleDeleteRow)
	mux.Handle("POST /dashboard/{sheet}/save", limited(http.HandlerFunc(s.handleSave)))
	mux.HandleFunc("POST /dashboard/{sheet}/discard", s.handleDiscard)
	mux.HandleFunc("GET /dashboard/{sheet}/export.xlsx", s.handleExport)
	mux.HandleFunc("GET /dashboard/{sheet}/history", s.handleHistory)

	mux.HandleFunc("GET /api/sheets", s.handleAPISheets)
	mux.HandleFunc("GET /api/sheets/{sheet}/table", s.handleAPITable)
	mux.HandleFunc("PUT /api/sheets/{sheet}/table", s.handleAPIReplaceTable)
	mux.Handle("POST /api/sheets/{sheet}/save", limited(http.HandlerFunc(s.handleAPISave)))

	mux.HandleFunc("GET /analysis", s.handleAnalysis)
	mux.HandleFunc("GET /api/reports/{kind}", s.handleAPIReport)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Shutdown stops background cleanup and drains the HTTP server. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// render executes a named template into a buffer first so a failure never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender,
			"template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

var templateFuncs = template.FuncMap{
	"humanTime":  humanize.Time,
	"thousands":  thousands,
	"add":        func(a, b int) int { return a + b },
	"pathEscape": url.PathEscape,
}

// thousands formats whole rupiah with dot grouping, e.g. 1.250.000.
func thousands(f float64) string { return humanize.FormatFloat("#.###,", f) }
