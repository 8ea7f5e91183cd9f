// Package server exposes the haunting pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thywilljoshua/haunted-syllabus/internal/haunt"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
	"github.com/thywilljoshua/haunted-syllabus/internal/metrics"
)

type Config struct {
	Addr string
	// MaxUploadBytes bounds multipart bodies.
	MaxUploadBytes int64
}

type Server struct {
	cfg      Config
	pipeline *haunt.Pipeline
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	log      logger.Logger
	router   *gin.Engine
}

func New(cfg Config, p *haunt.Pipeline, m *metrics.Metrics, g prometheus.Gatherer, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{cfg: cfg, pipeline: p, metrics: m, gatherer: g, log: log}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log, s.metrics))
	r.Use(SecurityHeaders())

	api := r.Group("/api", SameOrigin())
	api.GET("/health", s.health)
	api.POST("/upload", s.upload)
	api.POST("/haunt", s.haunt)
	api.POST("/lesson", s.lesson)
	api.POST("/paginate", s.paginate)
	api.POST("/export/:format", s.export)
	api.OPTIONS("/*any", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", "address", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
