package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bupple-inc/ai-engine/core/engine"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

// Server exposes an Engine over HTTP.
type Server struct {
	engine  *engine.Engine
	app     *echo.Echo
	logger  *slog.Logger
	address string
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAddr overrides server.addr from the engine configuration.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.address = addr
		}
	}
}

// New constructs an HTTP server wired with routing and middleware.
func New(eng *engine.Engine, opts ...Option) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine must not be nil")
	}

	srv := &Server{
		engine:  eng,
		logger:  slog.Default(),
		address: eng.Config().Server.Addr,
	}
	for _, opt := range opts {
		opt(srv)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = srv.errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error.Error())
			}
			srv.logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))

	srv.app = e
	srv.registerRoutes()

	return srv, nil
}

// Handler returns the HTTP handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.address
}

// Run starts the HTTP server and blocks until the context is cancelled.
// There is no write timeout because streamed replies can run for minutes.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)

	s.app.POST("/v1/chat/:driver", s.handleChat)
	s.app.POST("/v1/chat/:driver/stream", s.handleChatStream)

	history := s.app.Group("/v1/history/:driver/:class/:id")
	history.GET("", s.handleHistoryList)
	history.POST("", s.handleHistoryAdd)
	history.DELETE("", s.handleHistoryClear)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
