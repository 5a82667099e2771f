package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/config"
	"github.com/tedkimdev/nft-staking/internal/observability/tracing"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func New(cfg *config.ServerConfig, handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)
	registerRoutes(r, handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      r,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		handler: handler,
	}
}

// Start blocks until the server is shut down
func (s *Server) Start() error {
	log.Info().Msgf("Starting api server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
