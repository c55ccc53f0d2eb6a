// Package server hosts the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/handlers"
	"github.com/Az-san/intern-0818-0821/internal/logger"
)

// RouteRegistrar mounts endpoints on the engine
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

// Config holds server configuration
type Config struct {
	Addr         string // e.g. ":8080" or "127.0.0.1:0" for a random port
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// Server wraps the HTTP server and the gin engine
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	listener   net.Listener
	addr       string
	logger     *zap.Logger
}

// New creates a server (does not start it)
func New(cfg Config, routes RouteRegistrar, log *zap.Logger) *Server {
	log = logger.OrNop(log).Named("server")

	engine := gin.New()
	engine.Use(recoveryMiddleware(log))
	engine.Use(requestIDMiddleware())
	engine.Use(accessLogMiddleware(log))
	if len(cfg.CORSOrigins) > 0 {
		engine.Use(corsMiddleware(cfg.CORSOrigins))
	}

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	routes.RegisterRoutes(engine)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: handlers.ErrorDetail{
			Code:    handlers.CodeNotFound,
			Message: "no route for " + c.Request.Method + " " + c.Request.URL.Path,
		}})
	})

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  120 * time.Second,
		},
		engine: engine,
		addr:   cfg.Addr,
		logger: log,
	}
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	s.logger.Info("starting server", zap.String("addr", actualAddr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", zap.Error(err))
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
