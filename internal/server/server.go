// Package server owns the HTTP surface of the gateway: routing, global
// middleware, health probes, and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/connector"
	"github.com/sluicedb/sluice/internal/handler"
	"github.com/sluicedb/sluice/internal/router"
	"github.com/sluicedb/sluice/internal/server/middleware"
	"github.com/sluicedb/sluice/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	RateLimit       int   // requests per minute per API key or IP; 0 disables
	TLSCertFile     string
	TLSKeyFile      string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     10 * 1024 * 1024, // 10MB
		RateLimit:       600,
	}
}

// Server is the top-level HTTP server for Sluice. It owns the Chi router,
// the tenant router, config store, connector registry, and authentication
// service.
type Server struct {
	cfg        Config
	chiRouter  chi.Router
	registry   *connector.Registry
	store      *configstore.Store
	tenants    *router.Router
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, registry *connector.Registry, store *configstore.Store, tenants *router.Router, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		store:    store,
		tenants:  tenants,
		authSvc:  authSvc,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {

		dataHandler := handler.NewDataHandler(s.tenants)
		sqlHandler := handler.NewSQLHandler(s.tenants)

		// Replication path: integrators push record batches.
		r.Route("/data/{tenantID}", func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))

			r.Post("/", dataHandler.Apply)
			r.Get("/", dataHandler.Tables)
			r.Get("/{tableName}", dataHandler.Read)
		})

		// Raw SQL path: statement outcomes are data, not HTTP faults.
		r.Route("/sql/{tenantID}", func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))

			r.Post("/", sqlHandler.Execute)
		})

		// System APIs (tenant configuration management, operators only).
		r.Route("/system", func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))
			r.Use(middleware.RequireOperator())

			cfgHandler := handler.NewTenantConfigHandler(s.store, s.tenants)

			r.Get("/tenant", cfgHandler.ListTenants)
			r.Get("/tenant/{tenantID}/config", cfgHandler.ListEntries)
			r.Get("/tenant/{tenantID}/config/{key}", cfgHandler.GetEntry)
			r.Post("/tenant/{tenantID}/config/{key}", cfgHandler.CreateEntry)
			r.Put("/tenant/{tenantID}/config/{key}", cfgHandler.PutEntry)
			r.Delete("/tenant/{tenantID}/config/{key}", cfgHandler.DeleteEntry)
		})
	})

	s.chiRouter = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the config store and
// every live tenant pool are reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["config_store"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["config_store"] = "ok"
	}

	for _, tenantID := range s.registry.ActiveTenants() {
		conn, err := s.registry.Get(tenantID)
		if err != nil {
			checks[tenantID] = "error: " + err.Error()
			status = "degraded"
			continue
		}
		if err := conn.Ping(r.Context()); err != nil {
			checks[tenantID] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks[tenantID] = "ok"
		}
	}

	httpStatus := http.StatusOK
	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing all tenant connections.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.chiRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
			s.logger.Info("server starting", "addr", addr, "tls", true)
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			s.logger.Info("server starting", "addr", addr)
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Close all tenant connections
	s.registry.CloseAll()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.chiRouter
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.chiRouter.ServeHTTP(w, r)
}
