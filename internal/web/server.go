// Package web provides the JSON HTTP API for asset tracking.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/assettrack/internal/config"
	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/web/middleware"
)

// multipartOverhead is the slack allowed on top of the import size limit
// for multipart boundaries and part headers.
const multipartOverhead = 64 << 10

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the asset tracking API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	auth    middleware.TokenVerifier
	db      Pinger
	router  *chi.Mux
	server  *http.Server

	limiters []*middleware.IPRateLimiter
}

// NewServer creates a new Server instance. db may be nil, in which case
// /healthz only reports that the process is up.
func NewServer(service *core.Service, cfg *config.Config, auth middleware.TokenVerifier, db Pinger) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		auth:    auth,
		db:      db,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Metrics.Enabled {
		s.router.Use(middleware.Prometheus(s.cfg.Metrics.Path))
	}
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableHSTS))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.auth))

		// Imports carry a file, so they get their own body cap and a
		// stricter rate limit.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.rateLimiter(s.cfg.Rate.ImportLimit).Middleware)
			}
			r.Use(middleware.MaxBytes(s.service.Options().MaxFileSize + multipartOverhead))
			r.Post("/assets/import", s.handleImport)
			r.Post("/assets/import/preview", s.handleImportPreview)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

			r.Get("/assets", s.handleListAssets)
			r.Post("/assets", s.handleCreateAsset)
			r.Post("/assets/bulk-update", s.handleBulkUpdate)
			r.Get("/assets/{id}", s.handleGetAsset)
			r.Put("/assets/{id}", s.handleUpdateAsset)
			r.Delete("/assets/{id}", s.handleDeleteAsset)
			r.Get("/assets/{id}/history", s.handleAssetHistory)

			r.Get("/asset-types", s.handleListAssetTypes)
			r.Post("/asset-types", s.handleCreateAssetType)
			r.Get("/asset-types/{id}", s.handleGetAssetType)
			r.Put("/asset-types/{id}", s.handleUpdateAssetType)
			r.With(middleware.RequireAdmin).Delete("/asset-types/{id}", s.handleDeleteAssetType)

			r.Get("/clients", s.handleListClients)
			r.Post("/clients", s.handleCreateClient)
			r.Get("/clients/{id}", s.handleGetClient)
			r.Put("/clients/{id}", s.handleUpdateClient)
			r.With(middleware.RequireAdmin).Delete("/clients/{id}", s.handleDeleteClient)

			r.Get("/warehouses", s.handleListWarehouses)
			r.Post("/warehouses", s.handleCreateWarehouse)
			r.Get("/warehouses/{id}", s.handleGetWarehouse)
			r.Put("/warehouses/{id}", s.handleUpdateWarehouse)
			r.With(middleware.RequireAdmin).Delete("/warehouses/{id}", s.handleDeleteWarehouse)

			r.Get("/zones", s.handleListZones)
			r.Post("/zones", s.handleCreateZone)
			r.Get("/zones/{id}", s.handleGetZone)
			r.Put("/zones/{id}", s.handleUpdateZone)
			r.With(middleware.RequireAdmin).Delete("/zones/{id}", s.handleDeleteZone)
		})
	})
}

func (s *Server) rateLimiter(perMinute int) *middleware.IPRateLimiter {
	l := middleware.NewIPRateLimiter(perMinute, 0)
	s.limiters = append(s.limiters, l)
	return l
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown. Rate limiter cleanup runs until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	for _, l := range s.limiters {
		go l.RunCleanup(ctx, time.Minute)
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and then for
// running imports to release their slots.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if drainErr := s.service.ImportLimiter().WaitForDrain(ctx); drainErr != nil {
		err = errors.Join(err, drainErr)
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// healthResponse is the /healthz body. Imports shows import slot usage.
type healthResponse struct {
	Status  string                   `json:"status"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Imports: s.service.ImportLimiter().Status()}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			slog.Error("health check failed", "error", err)
			resp.Status = "unavailable"
			writeJSONStatus(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, resp)
}
