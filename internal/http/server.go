// Package http serves the record entry forms and the JSON submit endpoint.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"moneytracker/internal/cache"
	"moneytracker/internal/core"
	applog "moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/middleware/security"
	"moneytracker/internal/services"
	appweb "moneytracker/web"
)

// Config holds the front end settings.
type Config struct {
	Addr              string
	SessionTTL        time.Duration
	MaxSessions       int
	RequestsPerMinute int
	// RequestTimeout bounds page handlers. It must exceed the worst case of
	// a submission with all its retries.
	RequestTimeout  time.Duration
	SuggestionLimit int
	// TrustedProxies extends the networks allowed to set X-Forwarded-For.
	TrustedProxies []string
}

// DefaultConfig returns the settings used by serve.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8081",
		SessionTTL:        30 * time.Minute,
		MaxSessions:       1000,
		RequestsPerMinute: 60,
		RequestTimeout:    60 * time.Second,
		SuggestionLimit:   20,
	}
}

// Form is one record kind as offered by the front end. When ConfigErr is set
// the kind renders a configuration error page and Submitter is nil.
type Form struct {
	Schema    core.Schema
	Submitter *services.RecordSubmitter
	ConfigErr *core.ConfigurationError
}

type Server struct {
	http.Server
	cfg       Config
	templates *template.Template
	forms     map[core.RecordKind]Form
	order     []core.RecordKind
	sessions  *sessionStore
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *applog.Logger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and configures routes, returning
// a ready-to-run server. Forms are listed on the home page in the given order.
func NewServer(cfg Config, forms []Form, logger *applog.Logger) (*Server, error) {
	def := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = def.SuggestionLimit
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		templates: t,
		forms:     make(map[core.RecordKind]Form, len(forms)),
		sessions:  newSessionStore(cfg.MaxSessions, cfg.SessionTTL),
		caches:    cache.NewManager(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
		detector:  detector,
		logger:    logger.WithComponent(applog.ComponentHTTP),
		started:   time.Now(),
	}
	for _, f := range forms {
		if _, dup := s.forms[f.Schema.Kind]; dup {
			s.limiter.Stop()
			return nil, fmt.Errorf("duplicate form for kind %s", f.Schema.Kind)
		}
		if f.ConfigErr == nil && f.Submitter == nil {
			s.limiter.Stop()
			return nil, fmt.Errorf("form %s has neither a submitter nor a configuration error", f.Schema.Kind)
		}
		s.forms[f.Schema.Kind] = f
		s.order = append(s.order, f.Schema.Kind)
	}

	s.caches.Register("sessions", s.sessions.cache)
	s.caches.StartCleanup(time.Minute)

	router, err := s.routes()
	if err != nil {
		s.stopBackground()
		return nil, err
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() (http.Handler, error) {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.detector.ExtractClientIP))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError("GET, POST").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Get("/", s.handleIndex)
		r.Get("/records/{kind}", s.handleForm)
		r.With(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)).
			Post("/records/{kind}", s.handleSubmit)
	})
	return r, nil
}

// accessLog logs every request once it completes.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), s.detector.ExtractClientIP(r))
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)

	if wantsJSON(r) {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			BodyJSON(map[string]string{"error": "rate limit exceeded"}).
			Write(w)
		return
	}
	TooManyRequestsError().Write(w)
}

func (s *Server) stopBackground() {
	s.caches.Stop()
	s.limiter.Stop()
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		err = s.Server.Shutdown(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	})
	return err
}
