// Package web provides the HTTP server and handlers for the bulk product
// import API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/bulkimport/internal/auth"
	"github.com/JonMunkholm/bulkimport/internal/config"
	"github.com/JonMunkholm/bulkimport/internal/core"
	"github.com/JonMunkholm/bulkimport/internal/history"
	mw "github.com/JonMunkholm/bulkimport/internal/web/middleware"
)

// Server is the HTTP server for the import API.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	accessor *auth.Accessor
	history  history.Store
	router   *chi.Mux
	server   *http.Server

	limiters []*mw.RateLimiter
}

// NewServer creates a Server. hist may be nil when history is disabled.
func NewServer(cfg *config.Config, service *core.Service, accessor *auth.Accessor, hist history.Store) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		accessor: accessor,
		history:  hist,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		r.Use(mw.BearerToken)

		// Template download needs no seller
		r.Get("/template", s.handleTemplate)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSeller)

			r.Get("/history", s.handleHistory)
			r.Get("/uploads/limiter", s.handleLimiterStatus)

			r.Post("/uploads", s.handleCreateSession)
			r.Route("/uploads/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/preview", s.handleGetPreview)
				r.Post("/file", s.handleSelectFile)
				r.Post("/preview", s.handlePreview)
				r.Post("/clear", s.handleClear)

				submit := http.HandlerFunc(s.handleSubmit)
				if s.cfg.Rate.Enabled {
					r.Method(http.MethodPost, "/submit", s.newLimiter(s.cfg.Rate.UploadLimit).Middleware(submit))
				} else {
					r.Method(http.MethodPost, "/submit", submit)
				}
			})
		})
	})
}

func (s *Server) newLimiter(perMinute int) *mw.RateLimiter {
	rl := mw.NewRateLimiter(perMinute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status. Encoding errors are
// logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err, "request_id", chimw.GetReqID(r.Context()))
	}
}
