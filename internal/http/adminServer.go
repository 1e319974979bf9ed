package http

import (
	"alumconnect/internal/api"
	"context"
	"log/slog"
	"net/http"
	"sync"
)

type AdminServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAdminServer(adminHandler *api.AdminHandler, addr string) *AdminServer {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/presence", adminHandler.PresenceHandler)
	mux.HandleFunc("POST /admin/profiles", adminHandler.AddProfileHandler)
	mux.HandleFunc("DELETE /admin/sessions", adminHandler.KickHandler)

	if addr == "" {
		addr = "localhost:3001"
	}

	return &AdminServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Handler exposes the routed handler, for tests.
func (s *AdminServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *AdminServer) Start() error {
	slog.Info("Admin API started", "addr", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
