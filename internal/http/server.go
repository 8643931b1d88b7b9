package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"scontrino/internal/api"
	"scontrino/internal/dashboard"
	applog "scontrino/internal/log"
	"scontrino/internal/receipts"
	"scontrino/internal/upload"
	appweb "scontrino/web"
)

// Backend bundles the data-plane capabilities the server needs.
// Both the HTTP API client and the in-memory store satisfy it.
type Backend interface {
	api.AnalyticsReader
	api.ReceiptLister
	api.ReceiptDeleter
	api.ReceiptUploader
	api.Pinger
}

// Options tunes how much data the server requests from the backend.
type Options struct {
	TrendsMonths       int
	TopItemsLimit      int
	ReceiptsFetchLimit int
}

type Server struct {
	http.Server
	templates *template.Template

	pinger   api.Pinger
	dash     *dashboard.Controller
	receipts *receipts.Manager

	// One dispatcher per upload slot so a scan submission never
	// blocks an email submission.
	scanUploads  *upload.Dispatcher
	emailUploads *upload.Dispatcher

	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	structured   *applog.StructuredLogger
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, backend Backend, opts Options) *Server {
	mux := http.NewServeMux()
	httpLogger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: applog.Middleware(httpLogger)(mux),
		},
		pinger: backend,
		dash: dashboard.New(backend, dashboard.Config{
			TrendsMonths:  opts.TrendsMonths,
			TopItemsLimit: opts.TopItemsLimit,
		}),
		receipts:     receipts.New(backend, backend, opts.ReceiptsFetchLimit),
		scanUploads:  upload.New(backend),
		emailUploads: upload.New(backend),
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		structured:   applog.NewStructuredLogger(httpLogger),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	// Dashboard partials and chart data
	mux.HandleFunc("GET /ui/dashboard", s.withSecurityHeaders(s.handleDashboard))
	mux.HandleFunc("GET /ui/dashboard/trend", s.withSecurityHeaders(s.handleTrendData))
	mux.HandleFunc("GET /ui/dashboard/categories", s.withSecurityHeaders(s.handleCategoryData))
	mux.HandleFunc("GET /ui/dashboard/stores", s.withSecurityHeaders(s.handleStoreData))

	// Receipt collection
	mux.HandleFunc("GET /receipts", s.withSecurityHeaders(s.handleReceiptsPage))
	mux.HandleFunc("GET /ui/receipts", s.withSecurityHeaders(s.handleReceiptList))
	mux.HandleFunc("POST /receipts/{id}/delete", s.withSecurityHeaders(s.handleDeleteRequest))
	mux.HandleFunc("POST /receipts/{id}/confirm", s.withSecurityHeaders(s.handleDeleteConfirm))
	mux.HandleFunc("POST /receipts/{id}/cancel", s.withSecurityHeaders(s.handleDeleteCancel))
	mux.HandleFunc("POST /receipts/{id}/expand", s.withSecurityHeaders(s.handleExpand))
	mux.HandleFunc("POST /receipts/collapse", s.withSecurityHeaders(s.handleCollapse))

	// Uploads
	mux.HandleFunc("GET /upload", s.withSecurityHeaders(s.handleUploadPage))
	mux.HandleFunc("POST /upload/scan", s.withSecurityHeaders(s.handleUploadScan))
	mux.HandleFunc("POST /upload/email", s.withSecurityHeaders(s.handleUploadEmail))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, applog.LoggerContextKey,
			applog.FromContext(ctx).With(applog.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		s.structured.LogHTTPStart(ctx, r, clientIP)

		if looksSuspicious(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request", "client_ip", clientIP, "url", r.URL.Path)
		}

		// Rate limit mutating requests (deletes, uploads)
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, r.URL.Path, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("backend unreachable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", nil); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
