// Package server exposes the dashboard over HTTP and a websocket feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"coinboard/internal/infra"
	"coinboard/internal/present"
	"coinboard/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// IconSource resolves locally cached asset icons.
type IconSource interface {
	CachedIcon(id string) (string, bool)
}

// Options configures the HTTP surface.
type Options struct {
	Listen         string
	AllowedOrigins []string
	Icons          IconSource // nil disables /icons
}

// Server serves the dashboard API.
type Server struct {
	dashboard *service.Dashboard
	metrics   *infra.Metrics
	hub       *Hub
	engine    *gin.Engine
	opts      Options
	logger    *slog.Logger
}

// New builds the router and subscribes the websocket hub to dashboard changes.
func New(d *service.Dashboard, metrics *infra.Metrics, opts Options) *Server {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		dashboard: d,
		metrics:   metrics,
		hub:       NewHub(metrics),
		engine:    gin.New(),
		opts:      opts,
		logger:    slog.Default().With("module", "server"),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.engine.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	s.routes()

	d.Subscribe(func(v service.View) {
		s.hub.Broadcast(present.BuildTable(v))
	})
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Upgrade", "Connection"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/view", s.handleView)
	api.GET("/metrics", s.handleMetrics)
	api.GET("/favorites", s.handleFavorites)
	api.POST("/query", s.handleQuery)
	api.POST("/favorites/:id/toggle", s.handleToggleFavorite)
	api.POST("/favorites-only/toggle", s.handleToggleFavoritesOnly)
	api.POST("/currency", s.handleCurrency)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/chart/:id/open", s.handleOpenChart)
	api.POST("/chart/close", s.handleCloseChart)
	api.POST("/chart/notice/dismiss", s.handleDismissNotice)

	s.engine.GET("/ws", s.hub.ServeWS)
	if s.opts.Icons != nil {
		s.engine.GET("/icons/:id", s.handleIcon)
	}
}

// Handler returns the HTTP handler (tests).
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", s.opts.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.opts.Listen, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
		)
	}
}
