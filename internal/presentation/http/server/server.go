// Package server owns the HTTP listener lifecycle for the board API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/FableForge/canvasflow-go/internal/application/container"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/routes"
	"github.com/FableForge/canvasflow-go/pkg/config"
)

// Server couples the net/http server with the wired route tree.
type Server struct {
	httpServer *http.Server
	container  *container.Container
}

// New builds the server around the container's routes, applying the
// configured read/write/idle timeouts.
func New(port string, container *container.Container) *Server {
	router := routes.SetupRoutes(container)

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      router,
			ReadTimeout:  config.ServerReadTimeout,
			WriteTimeout: config.ServerWriteTimeout,
			IdleTimeout:  config.ServerIdleTimeout,
		},
		container: container,
	}
}

// Start listens and serves until the server is shut down. A graceful
// shutdown is not reported as an error.
func (s *Server) Start() error {
	log.Printf("Board API listening on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server exited: %w", err)
	}

	return nil
}

// Stop drains in-flight requests within the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	log.Println("Draining HTTP connections...")
	return s.httpServer.Shutdown(ctx)
}
