package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"

	"paycheck/internal/core"
	applog "paycheck/internal/log"
	"paycheck/internal/metrics"
	"paycheck/internal/services"
	appweb "paycheck/web"
)

// BudgetService is the subset of services.BudgetService the handlers use.
type BudgetService interface {
	Report() core.Report
	Apply(ctx context.Context, u services.Update) core.Contributions
	DeleteBill(ctx context.Context, p core.Period, index int) (bool, error)
	DeleteGoal(ctx context.Context)
}

type Server struct {
	http.Server
	templates   *template.Template
	budget      BudgetService
	metrics     *metrics.Metrics
	logger      *applog.Logger
	rateLimiter *rateLimiter

	exposeMetrics bool
	postLimit     int
	shutdownOnce  sync.Once
}

type Option func(*Server)

// WithMetrics records middleware rejections on m. When expose is true the
// registry is also served on /metrics.
func WithMetrics(m *metrics.Metrics, expose bool) Option {
	return func(s *Server) {
		s.metrics = m
		s.exposeMetrics = expose && m != nil
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithPostLimit overrides the number of POST requests allowed per client
// and minute.
func WithPostLimit(n int) Option {
	return func(s *Server) { s.postLimit = n }
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, budget BudgetService, opts ...Option) *Server {
	s := &Server{
		budget:    budget,
		postLimit: defaultPostLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	s.rateLimiter = newRateLimiter(s.postLimit)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleUpdate)
	mux.HandleFunc("/delete/{cutoff}/{index}", s.handleDeleteBill)
	mux.HandleFunc("/delete_goal", s.handleDeleteGoal)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	if s.exposeMetrics {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.Server = http.Server{
		Addr:    addr,
		Handler: applog.RequestMiddleware(s.logger)(s.withSecurityHeaders(mux)),
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders rejects probing requests, rate limits POSTs and adds
// security headers to every response.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := applog.FromContext(ctx)
		clientIP := extractClientIP(r)

		if reason := suspiciousReason(r); reason != "" {
			logger.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				"reason", reason,
				applog.FieldPath, r.URL.Path)
			if blocksRequest(reason) {
				s.metrics.IncRejected("suspicious")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			s.metrics.IncRejected("rate_limit")
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type indexData struct {
	Report  core.Report
	Periods []core.Period
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.templates == nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Report:  s.budget.Report(),
		Periods: core.Periods[:],
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Index template execution failed",
			applog.FieldError, err,
			"template", "index.html")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// handleUpdate applies every section of the dashboard form that was filled
// in and sends the browser back to the dashboard.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Parse form error",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	update := ParseBudgetForm(r.PostForm)
	if applied := s.budget.Apply(ctx, update); applied != nil {
		applog.FromContext(ctx).DebugContext(ctx, "Contributions applied",
			"15th", applied[core.FirstPeriod].String(),
			"30th", applied[core.SecondPeriod].String())
	}
	redirectToIndex(w, r)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	period, err := core.ParsePeriod(r.PathValue("cutoff"))
	if err != nil {
		logger.WarnContext(ctx, "Ignoring delete for unknown cutoff", applog.FieldCutoff, r.PathValue("cutoff"))
		redirectToIndex(w, r)
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		logger.WarnContext(ctx, "Ignoring delete with invalid index", applog.FieldIndex, r.PathValue("index"))
		redirectToIndex(w, r)
		return
	}

	if _, err := s.budget.DeleteBill(ctx, period, index); err != nil {
		logger.WarnContext(ctx, "Delete bill failed", applog.FieldError, err)
	}
	redirectToIndex(w, r)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.budget.DeleteGoal(r.Context())
	redirectToIndex(w, r)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.budget.Report())
}
