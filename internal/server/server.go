// Package server exposes the widget over HTTP as JSON.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ratewidget/internal/ratelimit"
	"ratewidget/internal/rates"
	"ratewidget/internal/widget"
)

// Server dependencies for the HTTP handlers
type Server struct {
	widget  *widget.Widget
	store   *rates.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	router  *gin.Engine
}

// New returns a Server with its routes installed. limiter throttles each
// client separately; nil disables throttling.
func New(w *widget.Widget, store *rates.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		widget:  w,
		store:   store,
		limiter: limiter,
		logger:  logger.With("component", "server"),
		router:  gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(gin.Recovery(), requestLogger(s.logger))
	if s.limiter != nil {
		s.router.Use(rateLimit(s.limiter, s.logger))
	}

	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api")
	api.GET("/widget", s.view)
	api.PUT("/widget/amount", s.setAmount)
	api.PUT("/widget/currencies", s.setCurrencies)
	api.POST("/widget/swap", s.swap)
	api.GET("/convert", s.convert)
	api.GET("/rates", s.rates)
	api.POST("/rates/refresh", s.refresh)
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("widget server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
