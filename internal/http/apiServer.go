package http

import (
	"alumconnect/internal/api"
	"alumconnect/internal/ws"
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/rs/cors"
)

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(apiHandlers *api.API, wsServer *ws.Server, allowedOrigins []string, addr string) *APIServer {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", apiHandlers.LivenessHandler)

	// Chat
	mux.HandleFunc("GET /api/channels", apiHandlers.ChannelsHandler)
	mux.HandleFunc("GET /api/messages", apiHandlers.MessagesHandler)
	mux.HandleFunc("GET /api/chat", wsServer.HandleConnections)

	// Connection graph
	mux.HandleFunc("GET /api/connections/users/{id}", apiHandlers.CandidatesHandler)
	mux.HandleFunc("POST /api/connections/request", apiHandlers.CreateConnectionHandler)
	mux.HandleFunc("GET /api/connections/requests/{id}", apiHandlers.PendingConnectionsHandler)
	mux.HandleFunc("PUT /api/connections/respond/{id}", apiHandlers.RespondConnectionHandler)
	mux.HandleFunc("GET /api/connections/accepted/{id}", apiHandlers.AcceptedConnectionsHandler)

	// Auth
	mux.HandleFunc("POST /api/auth/signup", apiHandlers.SignupHandler)
	mux.HandleFunc("POST /api/auth/login", apiHandlers.LoginHandler)
	mux.HandleFunc("GET /api/auth/me", apiHandlers.MeHandler)

	// Community
	mux.HandleFunc("GET /api/posts", apiHandlers.ListPostsHandler)
	mux.HandleFunc("POST /api/posts", apiHandlers.CreatePostHandler)
	mux.HandleFunc("GET /api/groups", apiHandlers.ListGroupsHandler)
	mux.HandleFunc("POST /api/groups", apiHandlers.CreateGroupHandler)
	mux.HandleFunc("GET /api/jobs", apiHandlers.ListJobsHandler)
	mux.HandleFunc("POST /api/jobs", apiHandlers.CreateJobHandler)

	if addr == "" {
		addr = ":3000"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: withCORS(mux, allowedOrigins),
		},
	}
}

func withCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
	}).Handler(h)
}

// Handler exposes the routed handler, for tests.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *APIServer) Start() error {
	slog.Info("API server started", "addr", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
