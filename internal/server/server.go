package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/licitaware/procura/internal/database"
	"github.com/licitaware/procura/pkg/geo"
	"github.com/licitaware/procura/pkg/logger"
)

// Server represents the HTTP server
type Server struct {
	config     *Config
	db         *database.Connection
	resolver   *geo.Resolver
	log        *logger.Logger
	httpServer *http.Server
	router     *gin.Engine
}

// New creates a new HTTP server
func New(config *Config, db *database.Connection, resolver *geo.Resolver, engine SearchEngine, log *logger.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}

	server := &Server{
		config:   config,
		db:       db,
		resolver: resolver,
		log:      log,
	}
	server.router = server.buildRouter(engine)

	server.httpServer = &http.Server{
		Addr:         config.GetAddress(),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter assembles the gin engine, middleware and routes.
func (s *Server) buildRouter(engine SearchEngine) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware(s.config.RequestIDHeader))
	if s.config.LogRequests {
		router.Use(LoggingMiddleware(s.log))
	}
	router.Use(MaxRequestSizeMiddleware(s.config.MaxRequestSize))

	router.GET(s.config.HealthCheckPath, s.healthCheckHandler)

	api := router.Group(s.config.APIPrefix)
	NewSearchController(engine).RegisterRoutes(api)

	return router
}

// Start starts the HTTP server and blocks until an interrupt signal or
// context cancellation, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.log.Info("starting server on %s", s.config.GetAddress())

		var err error
		if s.config.TLSEnabled {
			err = s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			s.log.Error("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		s.log.Info("shutting down server")
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down server")
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("server shutdown error: %v", err)
		return err
	}

	s.log.Info("server shutdown complete")
	return nil
}

// healthCheckHandler reports the health of the server's dependencies.
func (s *Server) healthCheckHandler(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"
	code := http.StatusOK

	if s.db != nil {
		if err := s.db.HealthCheck(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		} else {
			checks["database"] = "healthy"
		}
	}

	if s.resolver != nil {
		if s.resolver.Size() == 0 {
			checks["geo_resolver"] = "empty: no municipality coordinates loaded"
		} else {
			checks["geo_resolver"] = fmt.Sprintf("healthy: %d municipalities", s.resolver.Size())
		}
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
	})
}
